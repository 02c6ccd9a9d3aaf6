// Package report renders the per-category plain-text digest served at
// /api/v1/report.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/feed"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/storage"
)

const (
	nothingNotable = "nothing notable in the last 24 hours"
	topTitles      = 3
)

type Compiler struct {
	store      *storage.Store
	categories []string // canonical order
}

func NewCompiler(store *storage.Store, categories []string) *Compiler {
	return &Compiler{store: store, categories: categories}
}

// Compile reads every category's processed snapshot and renders the
// digest. Categories appear in the canonical enumeration order; an
// empty snapshot renders the fixed "nothing notable" line.
func (c *Compiler) Compile(ctx context.Context) (string, error) {
	lastUpdate, err := c.store.LastUpdate(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("CYBER DEFENCE DIGEST\n")
	if lastUpdate.IsZero() {
		b.WriteString("Last updated: never\n")
	} else {
		fmt.Fprintf(&b, "Last updated: %s\n", lastUpdate.Local().Format(time.RFC1123))
	}

	for _, category := range c.categories {
		snap, err := c.store.Processed(ctx, category)
		if err != nil {
			return "", err
		}
		b.WriteString("\n")
		b.WriteString(renderSection(category, snap))
	}

	return b.String(), nil
}

func renderSection(category string, snap storage.ProcessedSnapshot) string {
	header := strings.ToUpper(category)
	if len(snap.Items) == 0 {
		return fmt.Sprintf("%s: %s\n", header, nothingNotable)
	}

	lines := lo.Map(lo.Slice(snap.Items, 0, topTitles), func(it feed.ScoredItem, _ int) string {
		return fmt.Sprintf("  - %s (%s)", it.Title, it.Source)
	})
	return fmt.Sprintf("%s: %d items\n%s\n", header, len(snap.Items), strings.Join(lines, "\n"))
}
