package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestScrapeTracker_UnsupportedScheme(t *testing.T) {
	client := NewClient()
	_, err := client.ScrapeTracker(context.Background(), "wss://tracker.example.com/announce", testInfoHashes(t, 1), time.Second)
	assert.True(t, errors.IsNotSupported(err))
}

func TestScrapeTracker_BadURL(t *testing.T) {
	client := NewClient()
	_, err := client.ScrapeTracker(context.Background(), "udp://bad url\x7f:x", testInfoHashes(t, 1), time.Second)
	assert.Error(t, err)
}

func TestScrapeTracker_RoutesToUDP(t *testing.T) {
	mock := newMockUDPTracker(t)
	client := NewClient()
	hashes := testInfoHashes(t, 2)

	results, err := client.ScrapeTracker(context.Background(), mock.url(t).String(), hashes, time.Second)
	if assert.NoError(t, err) {
		assert.Len(t, results, 2)
	}
}
