// Package scraper fans scrape queries out to many BitTorrent trackers
// concurrently and aggregates the per-tracker swarm statistics, tolerating
// any subset of trackers failing.
package scraper

import (
	"context"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/elliotchance/orderedmap"
	"github.com/juju/errors"
	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent"
	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent/tracker"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
	"golang.org/x/net/proxy"
)

// DefaultTimeout bounds each tracker request when the caller passes no
// timeout of its own.
const DefaultTimeout = 10 * time.Second

// Result maps a hex info hash to the records of every tracker that answered
// for it, in completion order. A hash no tracker answered for has no key.
type Result map[string][]tracker.ScrapeRecord

// HashTrackers pairs one info hash with the trackers it should be scraped
// from.
type HashTrackers struct {
	InfoHash string
	Trackers []string
}

type Scraper struct {
	client *tracker.Client
}

func New() *Scraper {
	return &Scraper{client: tracker.NewClient()}
}

// NewWithClient lets tests and embedders inject their own tracker transport.
func NewWithClient(client *tracker.Client) *Scraper {
	return &Scraper{client: client}
}

// NewWithProxy routes HTTP scrapes through a SOCKS5 proxy. UDP scrapes keep
// using the direct path, SOCKS5 has no datagram support worth relying on.
func NewWithProxy(socks5Addr string) (*Scraper, error) {
	dialer, err := proxy.SOCKS5("tcp", socks5Addr, nil, proxy.Direct)
	if err != nil {
		return nil, errors.Trace(err)
	}
	dialCtx := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if cd, ok := dialer.(proxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return dialer.Dial(network, addr)
	}
	client := tracker.NewClient()
	client.HTTPClient = &http.Client{
		Transport: &http.Transport{DialContext: dialCtx},
	}
	return &Scraper{client: client}, nil
}

// ScrapeInfoHashes queries every tracker for every hash concurrently and
// merges the per-tracker results. Individual tracker failures are logged and
// contribute nothing; the returned error is reserved for caller mistakes
// such as a malformed info hash.
func (s *Scraper) ScrapeInfoHashes(ctx context.Context, infoHashes []string, trackerList []string, timeout time.Duration) (Result, error) {
	hashes, err := parseInfoHashes(infoHashes)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	type trackerOutcome struct {
		trackerURL string
		records    map[bittorrent.InfoHash]tracker.ScrapeRecord
		err        error
	}
	outcomes := make(chan trackerOutcome, len(trackerList))
	group := threading.NewRoutineGroup()
	for _, trackerURL := range trackerList {
		trackerURL := trackerURL
		group.RunSafe(func() {
			records, err := s.client.ScrapeTracker(ctx, trackerURL, hashes, timeout)
			outcomes <- trackerOutcome{trackerURL: trackerURL, records: records, err: err}
		})
	}
	group.Wait()
	close(outcomes)

	// Single-threaded merge; channel order is completion order.
	aggregated := make(Result)
	for outcome := range outcomes {
		if outcome.err != nil {
			logx.Errorf("skipping tracker %s: %v", outcome.trackerURL, outcome.err)
			continue
		}
		for infoHash, record := range outcome.records {
			key := infoHash.String()
			aggregated[key] = append(aggregated[key], record)
		}
	}
	return aggregated, nil
}

// scrapeGroup is the set of hashes sharing one distinct tracker set.
type scrapeGroup struct {
	trackers []string
	hashes   []string
	seen     map[string]struct{}
}

func (g *scrapeGroup) addHash(infoHash string) {
	if _, ok := g.seen[infoHash]; ok {
		return
	}
	g.seen[infoHash] = struct{}{}
	g.hashes = append(g.hashes, infoHash)
}

// BatchScrapeInfoHashes groups the pairs by their unordered, deduplicated
// tracker set, queries each distinct group once with the union of its
// hashes, and merges the group results. A hash listed under two different
// tracker sets keeps both record lists.
func (s *Scraper) BatchScrapeInfoHashes(ctx context.Context, pairs []HashTrackers, timeout time.Duration) (Result, error) {
	groups := orderedmap.NewOrderedMap()
	for _, pair := range pairs {
		_, err := bittorrent.ParseInfoHash(pair.InfoHash)
		if err != nil {
			return nil, errors.Trace(err)
		}
		key, trackers := trackerSetKey(pair.Trackers)
		var g *scrapeGroup
		if v, ok := groups.Get(key); ok {
			g = v.(*scrapeGroup)
		} else {
			g = &scrapeGroup{trackers: trackers, seen: make(map[string]struct{})}
			groups.Set(key, g)
		}
		g.addHash(pair.InfoHash)
	}

	results := make(chan Result, groups.Len())
	routines := threading.NewRoutineGroup()
	for el := groups.Front(); el != nil; el = el.Next() {
		g := el.Value.(*scrapeGroup)
		routines.RunSafe(func() {
			r, err := s.ScrapeInfoHashes(ctx, g.hashes, g.trackers, timeout)
			if err != nil {
				logx.Errorf("batch scrape group failed: %v", err)
				return
			}
			results <- r
		})
	}
	routines.Wait()
	close(results)

	all := make(Result)
	for r := range results {
		for infoHash, records := range r {
			all[infoHash] = append(all[infoHash], records...)
		}
	}
	return all, nil
}

func parseInfoHashes(infoHashes []string) ([]bittorrent.InfoHash, error) {
	hashes := make([]bittorrent.InfoHash, 0, len(infoHashes))
	for _, s := range infoHashes {
		infoHash, err := bittorrent.ParseInfoHash(s)
		if err != nil {
			return nil, errors.Trace(err)
		}
		hashes = append(hashes, infoHash)
	}
	return hashes, nil
}

// trackerSetKey collapses duplicates and returns an order-insensitive key
// for the set plus the deduplicated trackers in first-seen order.
func trackerSetKey(trackerList []string) (string, []string) {
	seen := make(map[string]struct{}, len(trackerList))
	uniq := make([]string, 0, len(trackerList))
	for _, t := range trackerList {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		uniq = append(uniq, t)
	}
	sorted := append([]string(nil), uniq...)
	sort.Strings(sorted)
	return strings.Join(sorted, "\n"), uniq
}

var defaultScraper = New()

// ScrapeInfoHashes calls the default Scraper.
func ScrapeInfoHashes(ctx context.Context, infoHashes []string, trackerList []string, timeout time.Duration) (Result, error) {
	return defaultScraper.ScrapeInfoHashes(ctx, infoHashes, trackerList, timeout)
}

// BatchScrapeInfoHashes calls the default Scraper.
func BatchScrapeInfoHashes(ctx context.Context, pairs []HashTrackers, timeout time.Duration) (Result, error) {
	return defaultScraper.BatchScrapeInfoHashes(ctx, pairs, timeout)
}
