package svc

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/kamva/mgm/v3"
	"github.com/kamva/mgm/v3/operator"
	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent"
	"github.com/mhdzumair/PyAsyncTracker/common/bittorrent/tracker"
	"github.com/mhdzumair/PyAsyncTracker/common/model"
	"github.com/mhdzumair/PyAsyncTracker/common/util"
	"github.com/mhdzumair/PyAsyncTracker/scraper"
	"github.com/sirupsen/logrus"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/metric"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/time/rate"
)

const (
	metricsNamespace = "pyasynctracker"
	metricsSubsystem = "scraperd"

	// a torrent whose stats are older than this is scraped again
	requeryAge = 6 * time.Hour

	seenFilterBits = 1024 * 1024 * 64
)

var (
	metricScrapeEvent metric.CounterVec
	metricCooldown    metric.GaugeVec
)

func init() {
	metricScrapeEvent = metric.NewCounterVec(&metric.CounterVecOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "scrape_event",
		Labels:    []string{"event"},
	})
	metricCooldown = metric.NewGaugeVec(&metric.GaugeVecOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "cooldown_size",
		Labels:    []string{"type"},
	})
}

// Updater keeps the torrent collection's swarm statistics fresh: it picks
// stale documents, scrapes their trackers through the public scraper API and
// writes the maxima back, optionally appending history rows and publishing
// update messages.
type Updater struct {
	ctx    context.Context
	cancel context.CancelFunc
	svcCtx *ServiceContext

	limiter    *rate.Limiter
	cooldown   *util.Cooldown
	seenFilter *util.BloomFilter
	ticker     *time.Ticker
}

func InjectUpdater(ctx context.Context, svcCtx *ServiceContext) {
	updater, err := NewUpdater(ctx, svcCtx)
	if err != nil {
		logx.Errorf("Failed to initialize updater %+v", err)
		panic(err)
	}
	svcCtx.Updater = updater
}

func NewUpdater(ctx context.Context, svcCtx *ServiceContext) (*Updater, error) {
	c := svcCtx.Config
	u := &Updater{
		svcCtx:   svcCtx,
		limiter:  rate.NewLimiter(rate.Limit(c.ScrapeRatePerSecond), 1),
		cooldown: util.NewCooldown(time.Duration(c.CooldownSeconds) * time.Second),
		ticker:   time.NewTicker(time.Duration(c.ScrapeIntervalSeconds) * time.Second),
	}
	u.ctx, u.cancel = context.WithCancel(ctx)

	_, err := os.Stat(c.BloomFilterPath)
	if err != nil && os.IsNotExist(err) {
		u.seenFilter = util.NewBloomFilter(seenFilterBits)
	} else {
		file, err := os.Open(c.BloomFilterPath)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		u.seenFilter, err = util.LoadBloomFilter(file)
		if err != nil {
			return nil, err
		}
	}
	return u, nil
}

func (u *Updater) Start() {
	u.seedWatchlist()
	for {
		select {
		case <-u.ctx.Done():
			return
		case <-u.ticker.C:
			u.refresh()
		}
	}
}

func (u *Updater) Stop() {
	u.ticker.Stop()
	u.cancel()
	file, err := os.Create(u.svcCtx.Config.BloomFilterPath)
	if err != nil {
		logrus.Errorf("Failed to write seen filter: %v", err)
		return
	}
	defer file.Close()
	err = u.seenFilter.Save(file)
	if err != nil {
		logrus.Errorf("Failed to save seen filter: %v", err)
	}
}

// seedWatchlist upserts the pinned hashes so the refresh loop picks them up
// like any other torrent.
func (u *Updater) seedWatchlist() {
	col := mgm.Coll(&model.Torrent{})
	now := time.Now()
	for _, raw := range u.svcCtx.Watchlist.InfoHashes {
		infoHash, err := bittorrent.ParseInfoHash(raw)
		if err != nil {
			logrus.Errorf("Skipping watchlist entry: %v", err)
			continue
		}
		opts := options.Update().SetUpsert(true)
		_, err = col.UpdateByID(u.ctx, infoHash.String(), bson.M{
			operator.SetOnInsert: bson.M{
				"trackers":   u.svcCtx.Watchlist.Trackers,
				"created_at": now,
			},
		}, opts)
		if err != nil {
			logrus.Errorf("Failed to seed watchlist hash %s. %v", infoHash, err)
		}
	}
}

func (u *Updater) refresh() {
	torrents, err := u.pickTorrents()
	if err != nil {
		logrus.Errorf("Failed to load torrents for scrape. %v", err)
		return
	}
	metricCooldown.Set(float64(u.cooldown.Len()), "hashes")

	col := mgm.Coll(&model.Torrent{})
	now := time.Now()
	pairs := make([]scraper.HashTrackers, 0, len(torrents))
	for _, t := range torrents {
		if !u.cooldown.Touch(t.InfoHash) {
			metricScrapeEvent.Inc("cooldown_skip")
			continue
		}
		_, err = col.UpdateByID(u.ctx, t.InfoHash, bson.M{
			operator.Set: bson.M{"tracker_last_tried_at": now},
		})
		if err != nil {
			logrus.Errorf("Failed to update tracker last tried at. %v", err)
			continue
		}
		trackers := t.Trackers
		if len(trackers) == 0 {
			trackers = u.svcCtx.Watchlist.Trackers
		}
		if len(trackers) == 0 {
			metricScrapeEvent.Inc("no_trackers")
			continue
		}
		pairs = append(pairs, scraper.HashTrackers{InfoHash: t.InfoHash, Trackers: trackers})
	}
	if len(pairs) == 0 {
		return
	}
	err = u.limiter.Wait(u.ctx)
	if err != nil {
		return
	}

	timeout := time.Duration(u.svcCtx.Config.ScrapeTimeoutSeconds) * time.Second
	results, err := u.svcCtx.Scraper.BatchScrapeInfoHashes(u.ctx, pairs, timeout)
	if err != nil {
		logrus.Warnf("Failed to scrape %d torrents. %v", len(pairs), err)
		return
	}
	metricScrapeEvent.Add(float64(len(pairs)-len(results)), "hash_unanswered")
	for infoHash, records := range results {
		u.storeResult(infoHash, records)
	}
}

// pickTorrents selects never-scraped documents first, then the most outdated
// ones, up to the batch size.
func (u *Updater) pickTorrents() ([]*model.Torrent, error) {
	limit := u.svcCtx.Config.ScrapeBatchSize
	col := mgm.Coll(&model.Torrent{})

	fresh := make([]*model.Torrent, 0)
	err := col.SimpleFind(&fresh, bson.M{
		"tracker_updated_at": bson.M{operator.Eq: nil},
	}, &options.FindOptions{
		Sort:  bson.M{"created_at": 1},
		Limit: &limit,
	})
	if err != nil {
		return nil, err
	}
	if int64(len(fresh)) >= limit {
		return fresh, nil
	}

	limit -= int64(len(fresh))
	age := time.Now().Add(-requeryAge)
	outdated := make([]*model.Torrent, 0)
	err = col.SimpleFind(&outdated, bson.M{
		"tracker_updated_at": bson.M{operator.Lte: age},
	}, &options.FindOptions{
		Sort:  bson.M{"tracker_updated_at": 1},
		Limit: &limit,
	})
	if err != nil {
		return nil, err
	}
	return append(fresh, outdated...), nil
}

func (u *Updater) storeResult(infoHash string, records []tracker.ScrapeRecord) {
	seeders, leechers, completed := 0, 0, 0
	for _, r := range records {
		if r.Seeders > seeders {
			seeders = r.Seeders
		}
		if r.Peers > leechers {
			leechers = r.Peers
		}
		if r.Complete > completed {
			completed = r.Complete
		}
	}
	now := time.Now()
	col := mgm.Coll(&model.Torrent{})
	_, err := col.UpdateByID(u.ctx, infoHash, bson.M{
		operator.Set: bson.M{
			"seeders":            seeders,
			"leechers":           leechers,
			"completed":          completed,
			"updated_at":         now,
			"tracker_updated_at": now,
		},
	})
	if err != nil {
		logx.Errorf("Failed to store stats for %s: %+v", infoHash, err)
		return
	}
	logrus.Infof("Updating torrent %s %d:%d", infoHash, seeders, leechers)
	metricScrapeEvent.Inc("torrent_updated")

	if u.svcCtx.DB != nil {
		rows := make([]*model.ScrapeHistory, 0, len(records))
		for _, r := range records {
			rows = append(rows, &model.ScrapeHistory{
				InfoHash:   infoHash,
				TrackerURL: r.TrackerURL,
				Seeders:    r.Seeders,
				Leechers:   r.Peers,
				Completed:  r.Complete,
				ScrapedAt:  now,
			})
		}
		err = u.svcCtx.DB.Create(&rows).Error
		if err != nil {
			logx.Errorf("Failed to append scrape history for %s: %+v", infoHash, err)
		} else {
			metricScrapeEvent.Add(float64(len(rows)), "history_rows")
		}
	}

	if u.svcCtx.Publisher != nil {
		payload, err := json.Marshal(&model.TrackerUpdate{
			InfoHash:  infoHash,
			Seeders:   seeders,
			Leechers:  leechers,
			Completed: completed,
			Records:   records,
			UpdatedAt: now,
		})
		if err != nil {
			logx.Errorf("Failed to marshal tracker update: %+v", err)
			return
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		err = u.svcCtx.Publisher.Publish(model.TopicTrackerUpdated, msg)
		if err != nil {
			logx.Errorf("Failed to publish tracker update for %s: %+v", infoHash, err)
		}
	}

	if !u.seenFilter.Exists(infoHash) {
		u.seenFilter.Add(infoHash)
		metricScrapeEvent.Inc("first_scrape")
	}
}
