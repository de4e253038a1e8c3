package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/iamtommetcalfe/encom-smart-home/config"
	"github.com/iamtommetcalfe/encom-smart-home/internal/adminapi"
	"github.com/iamtommetcalfe/encom-smart-home/internal/app"
	"github.com/iamtommetcalfe/encom-smart-home/internal/webserver"
)

var (
	cfile   = flag.String("c", "encom.yml", "config file")
	initdb  = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	showver = flag.Bool("v", false, "print version and exit")
)

var version = "dev"

func main() {
	flag.Parse()

	if *showver {
		fmt.Println("encom-smart-home", version)
		return
	}

	cfg := config.LoadConfig(*cfile)

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	webserver.Init(cfg)
	adminapi.RegisterRoutes(application)

	go func() {
		if err := webserver.Start(); err != nil {
			zap.L().Fatal("web server stopped", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	zap.L().Info("shutting down")
}
