package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airtriage/internal/api"
	"airtriage/internal/attack"
	"airtriage/internal/config"
	"airtriage/internal/ingest"
	"airtriage/internal/logging"
	"airtriage/internal/model"
	"airtriage/internal/storage"
	"airtriage/internal/tracker"
)

const version = "0.3.1"

func main() {
	configPath := flag.String("config", "airtriage.yaml", "path to config file")
	flag.Parse()

	cfgMgr, err := config.NewManager(config.ResolvePath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	cfg := cfgMgr.Get()
	logger := logging.NewLogger(cfg.LogLevel)
	logger.Info("airtriage starting", "version", version, "config", cfgMgr.Path())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	persist, err := storage.NewStore(cfg.Storage)
	if err != nil {
		logger.Error("storage init error", "err", err)
		os.Exit(1)
	}
	if persist != nil {
		if err := persist.Init(ctx); err != nil {
			logger.Error("storage schema error", "err", err)
			os.Exit(1)
		}
		defer persist.Close()
	}

	records := attack.NewStore(cfg.Attacks.HistoryLimit)
	orchestrator := attack.NewOrchestrator(records, logging.Component(logger, "orchestrator"), persist)
	aggregator := attack.NewAggregator(records, cfg.Attacks.RecentLimit)
	trk := tracker.New(cfg.Scoring.UpdateInterval, cfg.Scoring.SignalWindow, cfg.Scoring.TrackerLimit, cfg.Scoring.ScoreCacheSize)

	samples := make(chan model.ScanSample, cfg.Ingest.ChannelBuffer)
	ingest.StartPipeline(ctx, samples, trk, persist, logging.Component(logger, "pipeline"))
	ingest.StartREST(ctx, cfgMgr, samples, logging.Component(logger, "ingest"))
	ingest.StartTCPStream(ctx, cfgMgr, samples, logging.Component(logger, "ingest"))
	ingest.StartKafka(ctx, cfgMgr, samples, logging.Component(logger, "ingest"))

	api.Start(ctx, cfgMgr, orchestrator, aggregator, trk, logging.Component(logger, "api"), version)

	stop := make(chan struct{})
	go cfgMgr.Watch(3*time.Second,
		func(next *config.Config) { logger.Info("config reloaded", "path", cfgMgr.Path()) },
		func(err error) { logger.Warn("config reload error", "err", err) },
		stop,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down")
	close(stop)
	cancel()
}
