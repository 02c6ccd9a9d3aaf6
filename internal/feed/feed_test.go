package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssPayload = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Security Feed</title>
    <item>
      <title>Ransomware gang dismantled</title>
      <link>https://www.example.com/news/ransomware-takedown</link>
      <pubDate>Mon, 24 Aug 2026 08:00:00 GMT</pubDate>
      <description><![CDATA[<p>Europol coordinated the <b>operation</b>.</p>]]></description>
    </item>
    <item>
      <link>https://example.com/news/no-title</link>
      <pubDate>Mon, 24 Aug 2026 09:00:00 GMT</pubDate>
    </item>
    <item>
      <title>GUID only entry</title>
      <guid>https://example.com/news/guid-only</guid>
    </item>
  </channel>
</rss>`

const atomPayload = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Advisory Feed</title>
  <entry>
    <title>Critical advisory issued</title>
    <link href="https://advisories.example.org/2026-001"/>
    <updated>2026-08-25T10:00:00Z</updated>
    <summary>Patch immediately.</summary>
  </entry>
</feed>`

func serve(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRSSChannelItems(t *testing.T) {
	srv := serve(t, rssPayload)
	f := NewRSSFetcher(5 * time.Second)

	items, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 3)

	first := items[0]
	assert.Equal(t, "Ransomware gang dismantled", first.Title)
	assert.Equal(t, "https://www.example.com/news/ransomware-takedown", first.URL)
	assert.Equal(t, "example.com", first.Source, "www. prefix stripped")
	assert.Equal(t, "Europol coordinated the operation.", first.Description, "markup stripped")
	assert.Equal(t, time.Date(2026, 8, 24, 8, 0, 0, 0, time.UTC), first.PublishedAt.UTC())
	assert.Len(t, first.ID, 8)

	// Missing title falls back to the placeholder.
	assert.Equal(t, "(untitled)", items[1].Title)

	// Missing link falls back to the GUID; timestamp falls back to fetch
	// time, so it is recent.
	assert.Equal(t, "https://example.com/news/guid-only", items[2].URL)
	assert.WithinDuration(t, time.Now(), items[2].PublishedAt, time.Minute)
}

func TestFetchAtomFeedEntries(t *testing.T) {
	srv := serve(t, atomPayload)
	f := NewRSSFetcher(5 * time.Second)

	items, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, items, 1)

	it := items[0]
	assert.Equal(t, "Critical advisory issued", it.Title)
	assert.Equal(t, "https://advisories.example.org/2026-001", it.URL)
	assert.Equal(t, "advisories.example.org", it.Source)
	assert.Equal(t, "Patch immediately.", it.Description)
	// No published date: the updated date is used.
	assert.Equal(t, time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC), it.PublishedAt.UTC())
}

func TestFetchMalformedPayloadIsAnError(t *testing.T) {
	srv := serve(t, "this is not xml at all {")
	f := NewRSSFetcher(5 * time.Second)

	_, err := f.Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetchCachesWithinWindow(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(rssPayload))
	}))
	t.Cleanup(srv.Close)

	f := NewRSSFetcher(5 * time.Second)
	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 1, hits, "second fetch within the cache window is served locally")
}

func TestHostnameFallbacks(t *testing.T) {
	assert.Equal(t, "example.com", hostname("https://www.example.com/x"))
	assert.Equal(t, "example.com", hostname("https://example.com/x"))
	assert.Equal(t, "unknown", hostname("not a url at all\x7f"))
	assert.Equal(t, "unknown", hostname(""))
}
