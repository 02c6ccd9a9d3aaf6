package feed

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/relevance"
)

// Item is the canonical record every feed shape is normalized into.
// Category is assigned by the caller; the fetcher does not know which
// logical bucket a source belongs to.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
}

// ScoredItem is an Item with its relevance score attached.
type ScoredItem struct {
	Item
	Score int `json:"score"`
}

// Fetcher abstracts one feed source fetch.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) ([]Item, error)
}

// RSSFetcher downloads RSS or Atom feeds and normalizes them. gofeed's
// universal parser accepts both the channel/item and feed/entry shapes,
// so malformed or mixed feeds degrade to a parse error, never a panic.
type RSSFetcher struct {
	parser *gofeed.Parser
	cache  *fetchCache
	now    func() time.Time
}

func NewRSSFetcher(timeout time.Duration) *RSSFetcher {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	p.UserAgent = "cyber-defenders-dashboard/1.0"
	return &RSSFetcher{
		parser: p,
		cache:  newFetchCache(5 * time.Minute),
		now:    time.Now,
	}
}

func (f *RSSFetcher) Fetch(ctx context.Context, sourceURL string) ([]Item, error) {
	if items, ok := f.cache.get(sourceURL); ok {
		log.Debugf("feed: cache hit for %s (%d items)", sourceURL, len(items))
		return items, nil
	}

	parsed, err := f.parser.ParseURLWithContext(sourceURL, ctx)
	if err != nil {
		return nil, err
	}

	fetchedAt := f.now()
	items := make([]Item, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		items = append(items, normalize(entry, fetchedAt))
	}

	f.cache.put(sourceURL, items)
	return items, nil
}

// normalize maps one gofeed entry onto Item, applying the field fallback
// chains: absent titles become "(untitled)", the link falls back to the
// GUID, the timestamp falls back from published to updated to fetch time,
// and the description falls back to the content body.
func normalize(entry *gofeed.Item, fetchedAt time.Time) Item {
	title := strings.TrimSpace(entry.Title)
	if title == "" {
		title = "(untitled)"
	}

	link := strings.TrimSpace(entry.Link)
	if link == "" && len(entry.Links) > 0 {
		link = strings.TrimSpace(entry.Links[0])
	}
	if link == "" {
		link = strings.TrimSpace(entry.GUID)
	}

	published := fetchedAt
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	desc := entry.Description
	if desc == "" {
		desc = entry.Content
	}

	return Item{
		ID:          relevance.ContentID(link),
		Title:       title,
		URL:         link,
		Source:      hostname(link),
		PublishedAt: published,
		Description: stripHTML(desc),
	}
}

// hostname derives the presentation source from a link, stripping a
// leading "www.". Unparsable links yield "unknown" rather than an error.
func hostname(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

func stripHTML(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
