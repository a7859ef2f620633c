package svc

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v2/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/mhdzumair/PyAsyncTracker/common/model"
	"github.com/mhdzumair/PyAsyncTracker/dao"
	"github.com/mhdzumair/PyAsyncTracker/scraper"
	"github.com/mhdzumair/PyAsyncTracker/scraperd/internal/config"
	"github.com/zeromicro/go-zero/core/logx"
	"gorm.io/gorm"
)

type ServiceContext struct {
	Config     config.Config
	Watchlist  *config.Watchlist
	Scraper    *scraper.Scraper
	DB         *gorm.DB
	Publisher  message.Publisher
	Updater    *Updater
	SearchSync *SearchSync
}

func NewServiceContext(ctx context.Context, c config.Config) *ServiceContext {
	err := dao.InitMongo(c.MongoDatabase, c.Mongo)
	if err != nil {
		logx.Errorf("Failed to connect to mongo. %v", err)
		panic(err)
	}
	svcCtx := &ServiceContext{
		Config:    c,
		Watchlist: &config.Watchlist{},
	}
	if len(c.WatchlistPath) > 0 {
		svcCtx.Watchlist, err = config.ReadWatchlistFromFile(c.WatchlistPath)
		if err != nil {
			logx.Errorf("Failed to read watchlist %s. %v", c.WatchlistPath, err)
			panic(err)
		}
	}
	if len(c.Socks5Proxy) > 0 {
		svcCtx.Scraper, err = scraper.NewWithProxy(c.Socks5Proxy)
		if err != nil {
			logx.Errorf("Failed to set up socks5 proxy. %v", err)
			panic(err)
		}
	} else {
		svcCtx.Scraper = scraper.New()
	}
	if len(c.MySQL) > 0 {
		svcCtx.DB, err = dao.InitDB(c.MySQL)
		if err != nil {
			logx.Errorf("Failed to connect to mysql. %v", err)
			panic(err)
		}
		err = svcCtx.DB.AutoMigrate(&model.ScrapeHistory{})
		if err != nil {
			logx.Errorf("Failed to migrate scrape history. %v", err)
			panic(err)
		}
	}
	if len(c.AMQP) > 0 {
		amqpConfig := amqp.NewDurablePubSubConfig(c.AMQP, nil)
		svcCtx.Publisher, err = amqp.NewPublisher(amqpConfig, watermill.NewStdLogger(false, false))
		if err != nil {
			logx.Errorf("Failed to create publisher. %v", err)
			panic(err)
		}
	}
	InjectUpdater(ctx, svcCtx)
	if len(c.AMQP) > 0 && len(c.ElasticSearch) > 0 {
		InjectSearchSync(ctx, svcCtx)
	}
	return svcCtx
}
