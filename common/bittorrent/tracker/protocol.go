package tracker

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"math/rand"

	"github.com/juju/errors"
	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent"
)

const (
	ProtocolID uint64 = 0x41727101980
)

const (
	ActionConnect  uint32 = 0x00
	ActionAnnounce uint32 = 0x01
	ActionScrape   uint32 = 0x02
	ActionError    uint32 = 0x03
)

// MaxScrapePacketSize is the largest scrape request datagram we will send.
// Trackers silently drop oversized datagrams, so the bound is enforced at
// build time and larger hash sets are split into several waves.
const MaxScrapePacketSize = 508

var (
	connectResponseSize = binary.Size(ConnectResponse{})
	scrapeHeaderSize    = binary.Size(ScrapeResponseHeader{})
	scrapeStatsSize     = binary.Size(ScrapeStats{})
)

type ConnectRequest struct {
	ProtocolID    uint64
	Action        uint32
	TransactionID uint32
}

type ConnectResponse struct {
	Action        uint32
	TransactionID uint32
	ConnectionID  uint64
}

type ScrapeRequestHeader struct {
	ConnectionID  uint64
	Action        uint32
	TransactionID uint32
}

type ScrapeResponseHeader struct {
	Action        uint32
	TransactionID uint32
}

// ScrapeStats is one 12-byte per-hash block of a scrape response. The wire
// integers are signed big-endian.
type ScrapeStats struct {
	Seeders   int32
	Completed int32
	Leechers  int32
}

func newConnectRequest() (*ConnectRequest, []byte) {
	req := &ConnectRequest{
		ProtocolID:    ProtocolID,
		Action:        ActionConnect,
		TransactionID: rand.Uint32(),
	}
	writer := bytes.NewBuffer(make([]byte, 0, binary.Size(req)))
	_ = binary.Write(writer, binary.BigEndian, req)
	return req, writer.Bytes()
}

func parseConnectResponse(data []byte, transactionID uint32) (*ConnectResponse, error) {
	if len(data) < connectResponseSize {
		return nil, errors.Errorf("connect response too short: %d bytes", len(data))
	}
	resp := &ConnectResponse{}
	err := binary.Read(bytes.NewReader(data), binary.BigEndian, resp)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if resp.Action != ActionConnect {
		return nil, errors.Errorf("unexpected connect action: %d", resp.Action)
	}
	if resp.TransactionID != transactionID {
		return nil, errors.Errorf("connect transaction mismatch: sent %d, got %d",
			transactionID, resp.TransactionID)
	}
	return resp, nil
}

// buildScrapeRequest packs as many hashes as fit under MaxScrapePacketSize
// into one scrape request and reports which ones were included.
func buildScrapeRequest(connectionID uint64, infoHashes []bittorrent.InfoHash) (packet []byte, included []bittorrent.InfoHash, transactionID uint32, err error) {
	hdr := ScrapeRequestHeader{
		ConnectionID:  connectionID,
		Action:        ActionScrape,
		TransactionID: rand.Uint32(),
	}
	writer := bytes.NewBuffer(make([]byte, 0, MaxScrapePacketSize))
	err = binary.Write(writer, binary.BigEndian, hdr)
	if err != nil {
		return nil, nil, 0, errors.Trace(err)
	}
	for _, infoHash := range infoHashes {
		if writer.Len()+sha1.Size > MaxScrapePacketSize {
			break
		}
		writer.Write(infoHash.Bytes())
		included = append(included, infoHash)
	}
	if len(included) == 0 {
		return nil, nil, 0, errors.Errorf("no info hashes fit in a %d-byte scrape packet", MaxScrapePacketSize)
	}
	return writer.Bytes(), included, hdr.TransactionID, nil
}

// parseScrapeResponse returns the per-hash stats blocks in request order.
// A truncated tail yields fewer blocks than requested; the partial bytes of
// an incomplete block are never used.
func parseScrapeResponse(data []byte, transactionID uint32, want int) ([]ScrapeStats, error) {
	if len(data) < scrapeHeaderSize {
		return nil, errors.Errorf("scrape response too short: %d bytes", len(data))
	}
	reader := bytes.NewReader(data)
	hdr := ScrapeResponseHeader{}
	err := binary.Read(reader, binary.BigEndian, &hdr)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if hdr.Action != ActionScrape {
		return nil, errors.Errorf("unexpected scrape action: %d", hdr.Action)
	}
	if hdr.TransactionID != transactionID {
		return nil, errors.Errorf("scrape transaction mismatch: sent %d, got %d",
			transactionID, hdr.TransactionID)
	}
	stats := make([]ScrapeStats, 0, want)
	for i := 0; i < want; i++ {
		if reader.Len() < scrapeStatsSize {
			break
		}
		s := ScrapeStats{}
		err = binary.Read(reader, binary.BigEndian, &s)
		if err != nil {
			return stats, errors.Trace(err)
		}
		stats = append(stats, s)
	}
	return stats, nil
}
