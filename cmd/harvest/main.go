package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/config"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/feed"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/harvest"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/relevance"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/search"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/storage"
)

// One-shot entry point: run a single harvest cycle and exit. Suited to
// manual refreshes and external schedulers.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	kv, err := storage.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer kv.Close()

	weights := relevance.DefaultWeights()
	weights.Attribution = cfg.ScoreAttribution
	weights.Jurisdiction = cfg.ScoreJurisdiction
	weights.Severity = cfg.ScoreSeverity
	weights.Recency = cfg.ScoreRecency

	opts := harvest.Options{
		Categories:   cfg.Categories,
		Fetcher:      feed.NewRSSFetcher(cfg.FetchTimeout),
		Store:        storage.New(kv),
		Weights:      weights,
		FetchTimeout: cfg.FetchTimeout,
		FanOut:       cfg.FetchFanOut,
		TopN:         cfg.ProcessedLimit,
		WeeklyN:      cfg.WeeklyLimit,
	}
	if sc := search.New(cfg.SearchAPIKey, cfg.SearchEndpoint, cfg.FetchTimeout); sc != nil {
		opts.Searcher = sc
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := harvest.New(opts).Run(ctx); err != nil {
		log.Fatalf("harvest cycle: %v", err)
	}
}
