package model

import (
	"time"

	"github.com/kamva/mgm/v3"
)

var _ mgm.Model = (*Torrent)(nil)

// Torrent is the watched-torrent document scraperd keeps swarm statistics
// fresh for.
type Torrent struct {
	InfoHash           string     `bson:"_id" json:"info_hash"`
	Name               string     `bson:"name" json:"name,omitempty"`
	Trackers           []string   `bson:"trackers" json:"trackers,omitempty"`
	Seeders            *int       `bson:"seeders" json:"seeders,omitempty"`
	Leechers           *int       `bson:"leechers" json:"leechers,omitempty"`
	Completed          *int       `bson:"completed" json:"completed,omitempty"`
	CreatedAt          *time.Time `bson:"created_at" json:"created_at,omitempty"`
	UpdatedAt          *time.Time `bson:"updated_at" json:"updated_at,omitempty"`
	TrackerUpdatedAt   *time.Time `bson:"tracker_updated_at" json:"tracker_updated_at,omitempty"`
	TrackerLastTriedAt *time.Time `bson:"tracker_last_tried_at" json:"tracker_last_tried_at,omitempty"`
}

func (t *Torrent) PrepareID(id interface{}) (interface{}, error) {
	return id, nil
}

func (t *Torrent) GetID() interface{} {
	return t.InfoHash
}

func (t *Torrent) SetID(id interface{}) {
	t.InfoHash = id.(string)
}

func (t *Torrent) CollectionName() string {
	return "torrents"
}
