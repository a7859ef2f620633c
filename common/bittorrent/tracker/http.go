package tracker

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent"
	"github.com/zeebo/bencode"
	"github.com/zeromicro/go-zero/core/logx"
)

type scrapeFile struct {
	Complete   int `bencode:"complete"`
	Incomplete int `bencode:"incomplete"`
	Downloaded int `bencode:"downloaded"`
}

type httpScrapeResponse struct {
	Files map[string]scrapeFile `bencode:"files"`
}

// ScrapeHTTP issues one GET against the tracker's scrape endpoint with every
// hash as a repeated raw-byte info_hash parameter. Like ScrapeUDP it never
// fails outright: any transport, status or decode problem is logged and an
// empty result returned for this tracker.
func (c *Client) ScrapeHTTP(ctx context.Context, trackerURL *url.URL, infoHashes []bittorrent.InfoHash, timeout time.Duration) map[bittorrent.InfoHash]ScrapeRecord {
	results := make(map[bittorrent.InfoHash]ScrapeRecord)

	scrapeURL := *trackerURL
	scrapeURL.Path = scrapePath(trackerURL.Path)
	params := url.Values{}
	for _, infoHash := range infoHashes {
		params.Add("info_hash", string(infoHash.Bytes()))
	}
	scrapeURL.RawQuery = params.Encode()

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, scrapeURL.String(), nil)
	if err != nil {
		logx.Errorf("http tracker %s: building request: %v", trackerURL, err)
		return results
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logx.Errorf("http tracker %s: %v", trackerURL, err)
		return results
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		logx.Errorf("http tracker %s: unexpected status %s", trackerURL, resp.Status)
		return results
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		logx.Errorf("http tracker %s: reading body: %v", trackerURL, err)
		return results
	}
	decoded := httpScrapeResponse{}
	err = bencode.DecodeBytes(body, &decoded)
	if err != nil {
		logx.Errorf("http tracker %s: decoding response: %v", trackerURL, err)
		return results
	}

	requested := make(map[bittorrent.InfoHash]struct{}, len(infoHashes))
	for _, infoHash := range infoHashes {
		requested[infoHash] = struct{}{}
	}
	for rawHash, stats := range decoded.Files {
		infoHash, err := bittorrent.InfoHashFromBytes([]byte(rawHash))
		if err != nil {
			logx.Errorf("http tracker %s: %v", trackerURL, err)
			continue
		}
		// Some trackers pad the files dict with extra or stale entries.
		if _, ok := requested[infoHash]; !ok {
			continue
		}
		results[infoHash] = ScrapeRecord{
			TrackerURL: trackerURL.String(),
			Seeders:    stats.Complete,
			Peers:      stats.Incomplete,
			Complete:   stats.Downloaded,
		}
	}
	return results
}

// scrapePath rewrites the trailing "announce" path segment to "scrape", the
// de-facto tracker convention. Paths without it pass through unchanged.
func scrapePath(path string) string {
	idx := strings.LastIndex(path, "/")
	last := path[idx+1:]
	if !strings.Contains(last, "announce") {
		return path
	}
	return path[:idx+1] + strings.Replace(last, "announce", "scrape", 1)
}
