package harvest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/config"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/feed"
)

func TestWeeklyCollapsesSharedURLAcrossDays(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator([]config.Category{{Name: "global"}}, &stubFetcher{}, nil)

	// The same article appears in all seven daily snapshots.
	for i := 0; i < 7; i++ {
		day := fixedNow.AddDate(0, 0, -i)
		items := []feed.Item{
			{URL: "https://x/shared", Title: "recurring story", PublishedAt: day},
			{URL: fmt.Sprintf("https://x/day-%d", i), Title: fmt.Sprintf("day %d story", i), PublishedAt: day},
		}
		require.NoError(t, store.PutRaw(ctx, "global", day, items))
	}

	out, err := o.Weekly(ctx, "global")
	require.NoError(t, err)

	shared := 0
	for _, it := range out {
		if it.URL == "https://x/shared" {
			shared++
		}
	}
	assert.Equal(t, 1, shared)
	assert.Len(t, out, 8)
}

func TestWeeklyMissingDaysAreEmptyNotErrors(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator([]config.Category{{Name: "global"}}, &stubFetcher{}, nil)

	// Only two of the seven days exist.
	require.NoError(t, store.PutRaw(ctx, "global", fixedNow, []feed.Item{
		{URL: "https://x/today", Title: "today", PublishedAt: fixedNow},
	}))
	require.NoError(t, store.PutRaw(ctx, "global", fixedNow.AddDate(0, 0, -3), []feed.Item{
		{URL: "https://x/older", Title: "older", PublishedAt: fixedNow.AddDate(0, 0, -3)},
	}))

	out, err := o.Weekly(ctx, "global")
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestWeeklyTruncatesToTopTwenty(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator([]config.Category{{Name: "global"}}, &stubFetcher{}, nil)

	for i := 0; i < 7; i++ {
		day := fixedNow.AddDate(0, 0, -i)
		var items []feed.Item
		for j := 0; j < 5; j++ {
			items = append(items, feed.Item{
				URL:         fmt.Sprintf("https://x/%d-%d", i, j),
				Title:       fmt.Sprintf("story %d %d", i, j),
				PublishedAt: day,
			})
		}
		require.NoError(t, store.PutRaw(ctx, "global", day, items))
	}

	out, err := o.Weekly(ctx, "global")
	require.NoError(t, err)
	assert.Len(t, out, 20)
}

func TestWeeklySortedByScore(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator([]config.Category{{Name: "global"}}, &stubFetcher{}, nil)

	require.NoError(t, store.PutRaw(ctx, "global", fixedNow, []feed.Item{
		{URL: "https://x/dull", Title: "schedule change notice", PublishedAt: fixedNow.AddDate(0, 0, -5)},
		{URL: "https://x/hot", Title: "APT28 breach of Norwegian ministry", PublishedAt: fixedNow.Add(-time.Hour)},
	}))

	out, err := o.Weekly(ctx, "global")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "https://x/hot", out[0].URL)
	assert.Equal(t, 10, out[0].Score)
	assert.Equal(t, 0, out[1].Score)
}

func TestWeeklyIsNotPersisted(t *testing.T) {
	ctx := context.Background()
	o, store := newTestOrchestrator([]config.Category{{Name: "global"}}, &stubFetcher{}, nil)

	require.NoError(t, store.PutRaw(ctx, "global", fixedNow, []feed.Item{
		{URL: "https://x/1", Title: "one", PublishedAt: fixedNow},
	}))

	_, err := o.Weekly(ctx, "global")
	require.NoError(t, err)

	// The processed tier is untouched by a weekly read.
	snap, err := store.Processed(ctx, "global")
	require.NoError(t, err)
	assert.Empty(t, snap.Items)
}
