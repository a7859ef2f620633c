package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Watchlist is the operator-maintained list of default trackers and pinned
// info hashes scraperd seeds into the torrent collection.
type Watchlist struct {
	Trackers   []string `yaml:"trackers"`
	InfoHashes []string `yaml:"info_hashes"`
}

func ReadWatchlistFromFile(path string) (*Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	watchlist := &Watchlist{}
	err = yaml.Unmarshal(data, watchlist)
	if err != nil {
		return nil, err
	}
	return watchlist, nil
}
