package config

import (
	"time"

	"github.com/zeromicro/go-zero/core/proc"
	"github.com/zeromicro/go-zero/core/service"
)

type Config struct {
	service.ServiceConf
	Mongo                 string
	MongoDatabase         string `json:",default=pyasynctracker"`
	MySQL                 string `json:",optional"`
	AMQP                  string `json:",optional"`
	AMQPPreFetch          int    `json:",default=64"`
	ElasticSearch         string `json:",optional"`
	ElasticIndex          string `json:",default=torrents"`
	WatchlistPath         string `json:",optional"`
	ScrapeBatchSize       int64  `json:",default=50"`
	ScrapeTimeoutSeconds  int    `json:",default=10"`
	ScrapeIntervalSeconds int    `json:",default=5"`
	ScrapeRatePerSecond   int    `json:",default=1"`
	CooldownSeconds       int    `json:",default=3600"`
	Socks5Proxy           string `json:",optional"`
	BloomFilterPath       string `json:",default=bloom.dat"`
	ForceQuitSeconds      int    `json:",default=20"`
}

func (c *Config) MustSetUp() {
	c.ServiceConf.MustSetUp()
	proc.SetTimeToForceQuit(time.Duration(c.ForceQuitSeconds) * time.Second)
}
