package tracker

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/juju/errors"
	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent"
)

// ScrapeRecord is the swarm statistics one tracker reported for one info
// hash. Complete is the cumulative completed-download count. Immutable once
// constructed.
type ScrapeRecord struct {
	TrackerURL string `json:"tracker_url" bson:"tracker_url"`
	Seeders    int    `json:"seeders" bson:"seeders"`
	Peers      int    `json:"peers" bson:"peers"`
	Complete   int    `json:"complete" bson:"complete"`
}

// Client scrapes individual trackers. The zero value is not usable; build
// one with NewClient and override fields to inject transports in tests.
type Client struct {
	// HTTPClient issues scrape GETs to http(s) trackers. Per-request
	// deadlines come from the scrape timeout, not from this client.
	HTTPClient *http.Client
	// Resolver maps tracker hostnames to IPv4 addresses for UDP scrapes.
	Resolver Resolver
}

func NewClient() *Client {
	return &Client{
		HTTPClient: http.DefaultClient,
		Resolver:   NewResolver(),
	}
}

// ScrapeTracker routes one scrape to the engine matching the URL scheme.
// Engines swallow network and protocol failures and return partial results;
// the only errors surfaced here are configuration errors (unparsable URL or
// unsupported scheme), which callers can tell apart with errors.IsNotValid
// and errors.IsNotSupported.
func (c *Client) ScrapeTracker(ctx context.Context, trackerURL string, infoHashes []bittorrent.InfoHash, timeout time.Duration) (map[bittorrent.InfoHash]ScrapeRecord, error) {
	u, err := url.Parse(trackerURL)
	if err != nil {
		return nil, errors.NotValidf("tracker url %q", trackerURL)
	}
	switch u.Scheme {
	case "udp":
		return c.ScrapeUDP(ctx, u, infoHashes, timeout), nil
	case "http", "https":
		return c.ScrapeHTTP(ctx, u, infoHashes, timeout), nil
	default:
		return nil, errors.NotSupportedf("tracker scheme %q in %q", u.Scheme, trackerURL)
	}
}
