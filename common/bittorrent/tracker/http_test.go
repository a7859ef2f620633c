package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent"
	"github.com/stretchr/testify/assert"
	"github.com/zeebo/bencode"
)

const debianHash = "2b66980093bc11806fab50cb3cb41835b95a0362"

func bencodeFiles(t *testing.T, files map[string]interface{}) []byte {
	body, err := bencode.EncodeBytes(map[string]interface{}{"files": files})
	assert.NoError(t, err)
	return body
}

func TestScrapeHTTP(t *testing.T) {
	infoHash, err := bittorrent.ParseInfoHash(debianHash)
	assert.NoError(t, err)

	var gotPath string
	var gotHashes []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHashes = r.URL.Query()["info_hash"]
		w.Write(bencodeFiles(t, map[string]interface{}{
			string(infoHash.Bytes()): map[string]interface{}{
				"complete":   1022,
				"incomplete": 2,
				"downloaded": 14920,
			},
		}))
	}))
	defer server.Close()

	trackerURL, err := url.Parse(server.URL + "/announce")
	assert.NoError(t, err)

	client := NewClient()
	results := client.ScrapeHTTP(context.Background(), trackerURL, []bittorrent.InfoHash{infoHash}, time.Second)

	assert.Equal(t, "/scrape", gotPath)
	if assert.Len(t, gotHashes, 1) {
		assert.Equal(t, string(infoHash.Bytes()), gotHashes[0])
	}
	record, ok := results[infoHash]
	if assert.True(t, ok) {
		assert.Equal(t, trackerURL.String(), record.TrackerURL)
		assert.Equal(t, 1022, record.Seeders)
		assert.Equal(t, 2, record.Peers)
		assert.Equal(t, 14920, record.Complete)
	}
}

func TestScrapeHTTP_FiltersUnrequestedHashes(t *testing.T) {
	requested := testInfoHashes(t, 1)[0]
	stale := testInfoHashes(t, 2)[1]

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bencodeFiles(t, map[string]interface{}{
			string(requested.Bytes()): map[string]interface{}{"complete": 1, "incomplete": 1, "downloaded": 1},
			string(stale.Bytes()):     map[string]interface{}{"complete": 9, "incomplete": 9, "downloaded": 9},
		}))
	}))
	defer server.Close()

	trackerURL, _ := url.Parse(server.URL + "/announce")
	client := NewClient()
	results := client.ScrapeHTTP(context.Background(), trackerURL, []bittorrent.InfoHash{requested}, time.Second)

	assert.Len(t, results, 1)
	_, ok := results[requested]
	assert.True(t, ok)
}

func TestScrapeHTTP_NonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "go away", http.StatusForbidden)
	}))
	defer server.Close()

	trackerURL, _ := url.Parse(server.URL + "/announce")
	client := NewClient()
	results := client.ScrapeHTTP(context.Background(), trackerURL, testInfoHashes(t, 1), time.Second)
	assert.Empty(t, results)
}

func TestScrapeHTTP_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not bencode at all"))
	}))
	defer server.Close()

	trackerURL, _ := url.Parse(server.URL + "/announce")
	client := NewClient()
	results := client.ScrapeHTTP(context.Background(), trackerURL, testInfoHashes(t, 1), time.Second)
	assert.Empty(t, results)
}

func TestScrapeHTTP_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	trackerURL, _ := url.Parse(server.URL + "/announce")
	client := NewClient()
	results := client.ScrapeHTTP(context.Background(), trackerURL, testInfoHashes(t, 1), 50*time.Millisecond)
	assert.Empty(t, results)
}

func TestScrapePath(t *testing.T) {
	assert.Equal(t, "/scrape", scrapePath("/announce"))
	assert.Equal(t, "/tr/scrape", scrapePath("/tr/announce"))
	assert.Equal(t, "/scrape.php", scrapePath("/announce.php"))
	assert.Equal(t, "/stats", scrapePath("/stats"))
	assert.Equal(t, "", scrapePath(""))
	// only the trailing segment is rewritten
	assert.Equal(t, "/announce/scrape", scrapePath("/announce/announce"))
}
