package svc

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v2/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/juju/errors"
	"github.com/mhdzumair/PyAsyncTracker/common/model"
	"github.com/olivere/elastic/v7"
	"github.com/zeromicro/go-zero/core/logx"
)

const handlerNameSearchSync = "search_sync"

// SearchSync consumes tracker-update messages and mirrors the swarm maxima
// into the search index, so queries can rank by seeders without touching
// mongo.
type SearchSync struct {
	svcCtx *ServiceContext
	ctx    context.Context

	subscriber message.Subscriber
	router     *message.Router
	es         *elastic.Client
}

func InjectSearchSync(ctx context.Context, svcCtx *ServiceContext) {
	searchSync, err := NewSearchSync(ctx, svcCtx)
	if err != nil {
		logx.Errorf("Failed to initialize search sync %+v", err)
		panic(err)
	}
	svcCtx.SearchSync = searchSync
}

func NewSearchSync(ctx context.Context, svcCtx *ServiceContext) (*SearchSync, error) {
	es, err := elastic.NewClient(
		elastic.SetURL(svcCtx.Config.ElasticSearch),
		elastic.SetSniff(false),
	)
	if err != nil {
		return nil, errors.Trace(err)
	}
	amqpConfig := amqp.NewDurablePubSubConfig(svcCtx.Config.AMQP, amqp.GenerateQueueNameConstant(handlerNameSearchSync))
	amqpConfig.Consume.Qos.PrefetchCount = svcCtx.Config.AMQPPreFetch
	subscriber, err := amqp.NewSubscriber(amqpConfig, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, errors.Trace(err)
	}
	err = subscriber.SubscribeInitialize(model.TopicTrackerUpdated)
	if err != nil {
		return nil, errors.Trace(err)
	}
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, errors.Trace(err)
	}
	ret := &SearchSync{
		svcCtx:     svcCtx,
		ctx:        ctx,
		subscriber: subscriber,
		router:     router,
		es:         es,
	}
	router.AddNoPublisherHandler(handlerNameSearchSync, model.TopicTrackerUpdated, subscriber, ret.consumeTrackerUpdate)
	return ret, nil
}

func (s *SearchSync) consumeTrackerUpdate(msg *message.Message) error {
	update := model.TrackerUpdate{}
	err := json.Unmarshal(msg.Payload, &update)
	if err != nil {
		return errors.Trace(err)
	}
	_, err = s.es.Update().
		Index(s.svcCtx.Config.ElasticIndex).
		Id(update.InfoHash).
		Doc(map[string]interface{}{
			"seeders":            update.Seeders,
			"leechers":           update.Leechers,
			"completed":          update.Completed,
			"tracker_updated_at": update.UpdatedAt,
		}).
		DocAsUpsert(true).
		Do(s.ctx)
	if err != nil {
		return errors.Trace(err)
	}
	metricScrapeEvent.Inc("search_updated")
	return nil
}

func (s *SearchSync) Start() {
	err := s.router.Run(s.ctx)
	if err != nil {
		logx.Errorf("Router error: %+v", err)
	}
}

func (s *SearchSync) Stop() {
	s.router.Close()
}
