package harvest

import (
	"context"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/feed"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/relevance"
)

// Weekly reconstructs a rolling seven-day view for one category from the
// daily raw snapshots, walking today back to six days prior. Missing
// days read as empty. The result is recomputed on every call and never
// persisted: duplicates are collapsed across the whole window (first
// occurrence in the walk wins), items rescored and the top entries
// returned sorted by descending score.
func (o *Orchestrator) Weekly(ctx context.Context, category string) ([]feed.ScoredItem, error) {
	now := o.now()

	var window []feed.Item
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, -i)
		items, err := o.store.Raw(ctx, category, day)
		if err != nil {
			return nil, err
		}
		window = append(window, items...)
	}

	deduped := relevance.Dedupe(window, func(it feed.Item) string { return it.URL })

	scored := make([]feed.ScoredItem, 0, len(deduped))
	for _, it := range deduped {
		if it.URL == "" {
			continue
		}
		it.ID = relevance.ContentID(it.URL)
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
	if len(scored) > o.weeklyN {
		scored = scored[:o.weeklyN]
	}
	return scored, nil
}
