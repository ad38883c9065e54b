package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"vmixctl/internal/config"
	"vmixctl/internal/controller"
	"vmixctl/internal/daemon"
	"vmixctl/internal/history"
	"vmixctl/internal/logging"
	"vmixctl/internal/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: XDG config dir)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare data directory: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logger.Error("open history store", logging.Error(err))
		return
	}
	defer store.Close()

	m := metrics.New()
	ctl := controller.New(cfg, logger, controller.Options{
		Metrics: m,
		History: store,
	})

	d, err := daemon.New(cfg, ctl, store, m, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	d.Stop()
}
