package main

import (
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/api"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/config"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/feed"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/harvest"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/relevance"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/report"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/scheduler"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/search"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store := storage.New(openKV(cfg))

	opts := harvest.Options{
		Categories:   cfg.Categories,
		Fetcher:      feed.NewRSSFetcher(cfg.FetchTimeout),
		Store:        store,
		FetchTimeout: cfg.FetchTimeout,
		FanOut:       cfg.FetchFanOut,
		TopN:         cfg.ProcessedLimit,
		WeeklyN:      cfg.WeeklyLimit,
		Weights:      weightsFrom(cfg),
	}
	if sc := search.New(cfg.SearchAPIKey, cfg.SearchEndpoint, cfg.FetchTimeout); sc != nil {
		opts.Searcher = sc
		log.Info("external search augmentation enabled")
	}
	orchestrator := harvest.New(opts)

	s, err := scheduler.New(cfg.CronSpec, orchestrator)
	if err != nil {
		log.Fatalf("init scheduler: %v", err)
	}
	s.Start()

	compiler := report.NewCompiler(store, cfg.Order())

	r := gin.Default()
	apiServer := api.NewServer(cfg, store, orchestrator, compiler)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Infof("starting api server at %s ...", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}

// openKV connects to redis, falling back to the in-process store so a
// missing redis only costs durability across restarts, not availability.
func openKV(cfg *config.Config) storage.KV {
	kv, err := storage.NewRedisKV(cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Warnf("redis unavailable (%v), using in-memory store", err)
		return storage.NewMemoryKV()
	}
	return kv
}

func weightsFrom(cfg *config.Config) relevance.Weights {
	w := relevance.DefaultWeights()
	w.Attribution = cfg.ScoreAttribution
	w.Jurisdiction = cfg.ScoreJurisdiction
	w.Severity = cfg.ScoreSeverity
	w.Recency = cfg.ScoreRecency
	return w
}
