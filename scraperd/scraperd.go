package main

import (
	"context"
	"flag"
	_ "net/http/pprof"

	"github.com/mhdzumair/PyAsyncTracker/scraperd/internal/config"
	"github.com/mhdzumair/PyAsyncTracker/scraperd/internal/svc"
	"github.com/sirupsen/logrus"
	"github.com/zeromicro/go-zero/core/conf"
	"github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/scraperd.yaml", "the config file")

func main() {
	flag.Parse()

	var c config.Config
	conf.MustLoad(*configFile, &c)
	c.MustSetUp()
	ctx := svc.NewServiceContext(context.Background(), c)

	group := service.NewServiceGroup()
	group.Add(ctx.Updater)
	if ctx.SearchSync != nil {
		group.Add(ctx.SearchSync)
	}
	defer group.Stop()

	logrus.Infof("Starting scraperd...")
	group.Start()
}
