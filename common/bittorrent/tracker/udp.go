package tracker

import (
	"context"
	"net"
	"net/url"
	"time"

	"github.com/juju/errors"
	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent"
	"github.com/zeromicro/go-zero/core/logx"
)

// Largest well-formed scrape response is 8 + 12 per hash; connect responses
// are 16 bytes. 2048 covers both with room for misbehaving trackers.
const udpReadBufferSize = 2048

// udpSession is the ephemeral per-invocation state of one BEP-15 exchange:
// the connection id from the connect phase, the hashes not yet included in
// any scrape wave, and the records accumulated so far. It is owned by a
// single ScrapeUDP call and never shared.
type udpSession struct {
	client       *Client
	tracker      *url.URL
	timeout      time.Duration
	connectionID uint64
	remaining    []bittorrent.InfoHash
	results      map[bittorrent.InfoHash]ScrapeRecord
}

// ScrapeUDP runs the connect handshake and as many scrape waves as the hash
// set needs against one UDP tracker. It never fails outright: expected
// network and protocol errors are logged and whatever records were obtained
// before the failure are returned.
func (c *Client) ScrapeUDP(ctx context.Context, trackerURL *url.URL, infoHashes []bittorrent.InfoHash, timeout time.Duration) map[bittorrent.InfoHash]ScrapeRecord {
	session := &udpSession{
		client:    c,
		tracker:   trackerURL,
		timeout:   timeout,
		remaining: append([]bittorrent.InfoHash(nil), infoHashes...),
		results:   make(map[bittorrent.InfoHash]ScrapeRecord),
	}
	err := session.connect(ctx)
	if err != nil {
		logx.Errorf("udp tracker %s: connect failed: %v", trackerURL, err)
		return session.results
	}
	// Waves are strictly sequential: each one consumes a slice of the
	// remaining hashes before the next is attempted.
	for len(session.remaining) > 0 {
		err = session.scrapeWave(ctx)
		if err != nil {
			logx.Errorf("udp tracker %s: scrape wave failed: %v", trackerURL, err)
		}
	}
	return session.results
}

func (s *udpSession) connect(ctx context.Context) error {
	req, packet := newConnectRequest()
	data, err := s.client.udpRoundTrip(ctx, s.tracker, packet, s.timeout)
	if err != nil {
		return errors.Trace(err)
	}
	resp, err := parseConnectResponse(data, req.TransactionID)
	if err != nil {
		return errors.Trace(err)
	}
	s.connectionID = resp.ConnectionID
	return nil
}

func (s *udpSession) scrapeWave(ctx context.Context) error {
	packet, included, transactionID, err := buildScrapeRequest(s.connectionID, s.remaining)
	if err != nil {
		s.remaining = nil
		return errors.Trace(err)
	}
	// The wave's hashes leave the remaining set before the response comes
	// back, so a timeout drops them instead of retrying forever.
	s.remaining = s.remaining[len(included):]
	data, err := s.client.udpRoundTrip(ctx, s.tracker, packet, s.timeout)
	if err != nil {
		return errors.Trace(err)
	}
	stats, err := parseScrapeResponse(data, transactionID, len(included))
	if err != nil {
		return errors.Trace(err)
	}
	for i, st := range stats {
		s.results[included[i]] = ScrapeRecord{
			TrackerURL: s.tracker.String(),
			Seeders:    int(st.Seeders),
			Peers:      int(st.Leechers),
			Complete:   int(st.Completed),
		}
	}
	return nil
}

// udpRoundTrip opens a fresh socket for one request, sends the packet and
// waits up to timeout for a single datagram. The hostname is resolved before
// every open; the socket is torn down when the deadline expires.
func (c *Client) udpRoundTrip(ctx context.Context, trackerURL *url.URL, packet []byte, timeout time.Duration) ([]byte, error) {
	ip, err := c.Resolver.LookupIPv4(ctx, trackerURL.Hostname())
	if err != nil {
		return nil, errors.Annotatef(err, "resolving %s", trackerURL.Hostname())
	}
	addr, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(ip, trackerURL.Port()))
	if err != nil {
		return nil, errors.Trace(err)
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer conn.Close()
	err = conn.SetDeadline(time.Now().Add(timeout))
	if err != nil {
		return nil, errors.Trace(err)
	}
	_, err = conn.Write(packet)
	if err != nil {
		return nil, errors.Trace(err)
	}
	buf := make([]byte, udpReadBufferSize)
	n, err := conn.Read(buf)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return buf[:n], nil
}
