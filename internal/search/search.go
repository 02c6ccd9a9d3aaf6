// Package search is the optional keyed article-search collaborator. A
// missing API key disables it entirely: the client is nil and the cycle
// simply harvests without augmentation.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/feed"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/relevance"
)

type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
}

type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
}

// New returns nil when no API key is configured; callers treat a nil
// client as "contributes zero items".
func New(apiKey, endpoint string, timeout time.Duration) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Search runs one query and normalizes the hits into canonical items.
func (c *Client) Search(ctx context.Context, query string) ([]feed.Item, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("sortBy", "publishedAt")
	params.Add("apiKey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", c.endpoint, params.Encode()), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api error: %s", resp.Status)
	}

	var result response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]feed.Item, 0, len(result.Articles))
	for _, a := range result.Articles {
		if a.URL == "" {
			continue
		}
		source := a.Source.Name
		if source == "" {
			source = "unknown"
		}
		items = append(items, feed.Item{
			ID:          relevance.ContentID(a.URL),
			Title:       a.Title,
			URL:         a.URL,
			Source:      source,
			PublishedAt: a.PublishedAt,
			Description: a.Description,
		})
	}
	return items, nil
}
