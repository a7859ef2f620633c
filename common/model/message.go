package model

import (
	"time"

	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent/tracker"
)

const (
	TopicTrackerUpdated = "tracker_updated"
)

// TrackerUpdate is the message published after every successful scrape
// round for one info hash, carrying the per-tracker records and the maxima
// consumers index on.
type TrackerUpdate struct {
	InfoHash  string                 `json:"info_hash"`
	Seeders   int                    `json:"seeders"`
	Leechers  int                    `json:"leechers"`
	Completed int                    `json:"completed"`
	Records   []tracker.ScrapeRecord `json:"records"`
	UpdatedAt time.Time              `json:"updated_at"`
}
