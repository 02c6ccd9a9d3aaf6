// Package harvest drives the fetch→filter→dedup→score→persist cycle
// across all configured categories.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/config"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/feed"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/metrics"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/relevance"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/storage"
)

// ErrInProgress is returned when a cycle is requested while another one
// is still running. The caller backs off; it never queues.
var ErrInProgress = errors.New("harvest cycle already in progress")

const freshnessWindow = 24 * time.Hour

// Searcher is the optional external search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string) ([]feed.Item, error)
}

type Orchestrator struct {
	categories []config.Category
	fetcher    feed.Fetcher
	searcher   Searcher // nil when no API key is configured
	store      *storage.Store
	weights    relevance.Weights

	fetchTimeout time.Duration
	fanOut       int
	topN         int
	weeklyN      int

	now      func() time.Time
	inFlight atomic.Bool
}

// Options carries the orchestrator's collaborators. Fetcher, Store and
// Categories are required; the rest default sensibly.
type Options struct {
	Categories []config.Category
	Fetcher    feed.Fetcher
	Searcher   Searcher
	Store      *storage.Store
	Weights    relevance.Weights

	FetchTimeout time.Duration
	FanOut       int
	TopN         int
	WeeklyN      int

	Now func() time.Time
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		categories:   opts.Categories,
		fetcher:      opts.Fetcher,
		searcher:     opts.Searcher,
		store:        opts.Store,
		weights:      opts.Weights,
		fetchTimeout: opts.FetchTimeout,
		fanOut:       opts.FanOut,
		topN:         opts.TopN,
		weeklyN:      opts.WeeklyN,
		now:          opts.Now,
	}
	if o.weights == (relevance.Weights{}) {
		o.weights = relevance.DefaultWeights()
	}
	if o.fetchTimeout <= 0 {
		o.fetchTimeout = 15 * time.Second
	}
	if o.fanOut <= 0 {
		o.fanOut = 6
	}
	if o.topN <= 0 {
		o.topN = 10
	}
	if o.weeklyN <= 0 {
		o.weeklyN = 20
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// Run executes one full harvest cycle. Per-source failures are contained
// inside their category; per-category store failures are joined into the
// returned error while the remaining categories still refresh. Readers
// never observe a partial category: each snapshot write is one put.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.inFlight.CompareAndSwap(false, true) {
		return ErrInProgress
	}
	defer o.inFlight.Store(false)

	started := o.now()
	log.Infof("harvest: cycle started (%d categories)", len(o.categories))

	var errs []error
	for _, cat := range o.categories {
		if err := o.harvestCategory(ctx, cat, started); err != nil {
			log.Errorf("harvest: category %s failed: %v", cat.Name, err)
			errs = append(errs, fmt.Errorf("category %s: %w", cat.Name, err))
		}
	}

	if err := o.store.SetLastUpdate(ctx, started); err != nil {
		errs = append(errs, fmt.Errorf("stamp lastUpdate: %w", err))
	}

	metrics.CycleDuration.Observe(time.Since(started).Seconds())
	if len(errs) > 0 {
		metrics.HarvestCycles.WithLabelValues("failed").Inc()
		return errors.Join(errs...)
	}
	metrics.HarvestCycles.WithLabelValues("ok").Inc()
	log.Infof("harvest: cycle done in %s", time.Since(started).Round(time.Millisecond))
	return nil
}

// InFlight reports whether a cycle is currently running.
func (o *Orchestrator) InFlight() bool {
	return o.inFlight.Load()
}

func (o *Orchestrator) harvestCategory(ctx context.Context, cat config.Category, cycleTime time.Time) error {
	fetched := o.fetchSources(ctx, cat)
	metrics.ItemsHarvested.WithLabelValues(cat.Name).Add(float64(len(fetched)))

	candidates := applyMarker(fetched, cat.Marker)
	extra := o.augment(ctx, cat)
	candidates = append(candidates, extra...)

	// The raw tier archives everything the cycle accumulated, before any
	// marker or freshness filtering.
	raw := append(append([]feed.Item{}, fetched...), extra...)
	if err := o.store.PutRaw(ctx, cat.Name, cycleTime, raw); err != nil {
		return err
	}

	processed := o.process(candidates, cycleTime, o.topN)
	if err := o.store.PutProcessed(ctx, cat.Name, storage.ProcessedSnapshot{
		Items:     processed,
		UpdatedAt: cycleTime,
	}); err != nil {
		return err
	}

	log.Infof("harvest: %s fetched=%d processed=%d", cat.Name, len(raw), len(processed))
	return nil
}

// fetchSources pulls every source of one category with bounded fan-out.
// A failing or hung source is logged and skipped; it never aborts the
// remaining sources.
func (o *Orchestrator) fetchSources(ctx context.Context, cat config.Category) []feed.Item {
	var (
		mu    sync.Mutex
		items []feed.Item
		wg    sync.WaitGroup
	)
	sem := make(chan struct{}, o.fanOut)

	for _, src := range cat.Feeds {
		wg.Add(1)
		go func(sourceURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			fetchCtx, cancel := context.WithTimeout(ctx, o.fetchTimeout)
			defer cancel()

			got, err := o.fetcher.Fetch(fetchCtx, sourceURL)
			if err != nil {
				log.Warnf("harvest: skip source %s: %v", sourceURL, err)
				metrics.SourceFailures.WithLabelValues(cat.Name).Inc()
				return
			}

			mu.Lock()
			defer mu.Unlock()
			for _, it := range got {
				it.Category = cat.Name
				items = append(items, it)
			}
		}(src)
	}

	wg.Wait()
	return items
}

// augment queries the external search collaborator for categories
// configured to use it. Absent credential or API failure contributes
// zero items, never an error.
func (o *Orchestrator) augment(ctx context.Context, cat config.Category) []feed.Item {
	if o.searcher == nil || cat.SearchQuery == "" {
		return nil
	}
	got, err := o.searcher.Search(ctx, cat.SearchQuery)
	if err != nil {
		log.Warnf("harvest: search augmentation for %s failed: %v", cat.Name, err)
		return nil
	}
	for i := range got {
		got[i].Category = cat.Name
	}
	return got
}

// applyMarker keeps only items mentioning the marker substring in their
// title or URL. Mention-only categories harvest broad feeds and rely on
// this cut.
func applyMarker(items []feed.Item, marker string) []feed.Item {
	if marker == "" {
		return items
	}
	marker = strings.ToLower(marker)
	kept := make([]feed.Item, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), marker) || strings.Contains(strings.ToLower(it.URL), marker) {
			kept = append(kept, it)
		}
	}
	return kept
}

// process derives a top-N view: drop items missing a URL or title or
// older than the freshness window, dedupe by URL keeping the first
// occurrence, score, then stable-sort by score so ties preserve their
// original relative order.
func (o *Orchestrator) process(items []feed.Item, now time.Time, limit int) []feed.ScoredItem {
	fresh := make([]feed.Item, 0, len(items))
	for _, it := range items {
		if it.URL == "" || it.Title == "" {
			continue
		}
		if now.Sub(it.PublishedAt) >= freshnessWindow {
			continue
		}
		it.ID = relevance.ContentID(it.URL)
		fresh = append(fresh, it)
	}

	deduped := relevance.Dedupe(fresh, func(it feed.Item) string { return it.URL })

	scored := make([]feed.ScoredItem, 0, len(deduped))
	for _, it := range deduped {
		scored = append(scored, feed.ScoredItem{
			Item: it,
			Score: o.weights.Score(relevance.Signal{
				Title:       it.Title,
				Description: it.Description,
				PublishedAt: it.PublishedAt,
			}, now),
		})
	}

	sortByScore(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// sortByScore orders descending by score; the stable sort keeps ties in
// their original relative order.
func sortByScore(items []feed.ScoredItem) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Score > items[j].Score })
}
