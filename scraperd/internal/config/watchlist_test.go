package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReadWatchlistFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watchlist.yaml")
	err := os.WriteFile(path, []byte(`
trackers:
  - udp://tracker.opentrackr.org:1337/announce
  - http://bttracker.debian.org:6969/announce
info_hashes:
  - 2b66980093bc11806fab50cb3cb41835b95a0362
`), 0o644)
	assert.NoError(t, err)

	watchlist, err := ReadWatchlistFromFile(path)
	if assert.NoError(t, err) {
		assert.Len(t, watchlist.Trackers, 2)
		assert.Equal(t, []string{"2b66980093bc11806fab50cb3cb41835b95a0362"}, watchlist.InfoHashes)
	}
}

func TestReadWatchlistFromFile_Missing(t *testing.T) {
	_, err := ReadWatchlistFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
