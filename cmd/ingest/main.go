package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/werklead/go-ingest/internal/config"
	"github.com/werklead/go-ingest/internal/dedup"
	"github.com/werklead/go-ingest/internal/extract"
	"github.com/werklead/go-ingest/internal/fetch"
	"github.com/werklead/go-ingest/internal/pipeline"
	"github.com/werklead/go-ingest/internal/resolve"
	"github.com/werklead/go-ingest/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run one ingestion cycle and exit")
	sourceFlag := flag.String("sources", "", "comma-separated source slugs (default: all configured sources)")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting vacancy ingestion service")

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.NewStore(cfg.Postgres.ConnectionString)
	if err != nil {
		logger.Fatal("postgres connection failed", zap.Error(err))
	}
	logger.Info("postgres connected")

	// Redis backs the seen-cache and the resume cursor. Both degrade
	// gracefully, so a missing Redis is a warning, not a startup failure.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var cursors pipeline.CursorStore
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, running without seen-cache and resume cursor", zap.Error(err))
		rdb = nil
	} else {
		logger.Info("redis connected")
		cursors = store.NewCursorStore(rdb)
	}

	var search pipeline.SearchSink
	indexer, err := store.NewSearchIndexer(cfg.Elasticsearch.Addresses, cfg.Elasticsearch.Index, logger)
	if err != nil {
		logger.Warn("elasticsearch unavailable, running without search indexing", zap.Error(err))
	} else {
		if err := indexer.EnsureIndex(ctx); err != nil {
			logger.Warn("ensure search index failed", zap.Error(err))
		}
		search = indexer
		logger.Info("elasticsearch connected")
	}

	fetcher := fetch.NewFetcher(fetch.DefaultPolicy(cfg.Ingest.MaxRetries), cfg.Ingest.UserAgent)
	extractor := extract.NewExtractor(cfg.Extractor, logger)
	deduplicator := dedup.NewDeduplicator(rdb, st, cfg.Redis.SeenPrefix, cfg.Redis.SeenTTL)
	resolver := resolve.NewResolver(st, logger)

	orch := pipeline.New(
		fetcher,
		extractor,
		deduplicator,
		resolver,
		st,
		search,
		cursors,
		pipeline.Config{
			PageDelay:      cfg.Ingest.PageDelay,
			ItemDelay:      cfg.Ingest.ItemDelay,
			ExtractDelay:   cfg.Extractor.CallDelay,
			MaxPagesPerRun: cfg.Ingest.MaxPagesPerRun,
		},
		logger,
	)

	var slugs []string
	if *sourceFlag != "" {
		for _, s := range strings.Split(*sourceFlag, ",") {
			if s = strings.TrimSpace(s); s != "" {
				slugs = append(slugs, s)
			}
		}
	}

	scheduler := pipeline.NewScheduler(orch, st, slugs, cfg.Ingest.Schedule, logger)

	if *once {
		scheduler.RunCycle(ctx)
		logger.Info("single cycle complete")
		return
	}

	if err := scheduler.Start(ctx); err != nil {
		logger.Fatal("scheduler start failed", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutdown signal received", zap.String("signal", sig.String()))

	cancel()
	scheduler.Stop()
	logger.Info("shutdown complete")
}
