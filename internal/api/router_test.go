package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/config"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/feed"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/harvest"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/report"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/storage"
)

type noopFetcher struct{}

func (noopFetcher) Fetch(context.Context, string) ([]feed.Item, error) { return nil, nil }

func newTestRouter(t *testing.T) (*gin.Engine, *storage.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		AdminToken: "sesame",
		Categories: []config.Category{{Name: "global", Feeds: []string{"https://feed/a"}}},
	}
	store := storage.New(storage.NewMemoryKV())
	o := harvest.New(harvest.Options{
		Categories: cfg.Categories,
		Fetcher:    noopFetcher{},
		Store:      store,
	})
	compiler := report.NewCompiler(store, cfg.Order())

	r := gin.New()
	NewServer(cfg, store, o, compiler).RegisterRoutes(r)
	return r, store
}

func TestTriggerRequiresAdminToken(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/harvest", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/harvest", nil)
	req.Header.Set("X-Admin-Token", "wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTriggerFireAndContinue(t *testing.T) {
	r, store := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/harvest", nil)
	req.Header.Set("X-Admin-Token", "sesame")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusAccepted, w.Code)

	// The cycle completes in the background and stamps the marker.
	require.Eventually(t, func() bool {
		last, err := store.LastUpdate(context.Background())
		return err == nil && !last.IsZero()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCategoryReads(t *testing.T) {
	r, store := newTestRouter(t)

	require.NoError(t, store.PutProcessed(context.Background(), "global", storage.ProcessedSnapshot{
		Items:     []feed.ScoredItem{{Item: feed.Item{URL: "https://x/1", Title: "t", Source: "x"}, Score: 4}},
		UpdatedAt: time.Now(),
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/news/global", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "https://x/1")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/news/bogus", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/weekly/global", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReportEndpointServesPlainText(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/report", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CYBER DEFENCE DIGEST")
	assert.Contains(t, w.Body.String(), "GLOBAL: nothing notable")
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
