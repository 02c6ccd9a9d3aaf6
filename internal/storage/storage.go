// Package storage is the two-tier snapshot cache on top of a key-value
// store. Key families: raw:{category}:{date} (7 day TTL, unfiltered),
// cat:{category} (48 hour TTL, processed top-N) and the singleton
// lastUpdate marker (no TTL).
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/feed"
)

const (
	rawTTL       = 7 * 24 * time.Hour
	processedTTL = 48 * time.Hour

	lastUpdateKey = "lastUpdate"
	dateLayout    = "2006-01-02"
)

// KV is the external key-value engine contract. Get returns (nil, nil)
// for absent keys; a zero ttl means the key never expires. Writes are
// last-writer-wins, no transactions.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ProcessedSnapshot is one category's filtered, scored, truncated view.
type ProcessedSnapshot struct {
	Items     []feed.ScoredItem `json:"items"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

type Store struct {
	kv KV
}

func New(kv KV) *Store {
	return &Store{kv: kv}
}

func rawKey(category string, day time.Time) string {
	return fmt.Sprintf("raw:%s:%s", category, day.Format(dateLayout))
}

func processedKey(category string) string {
	return fmt.Sprintf("cat:%s", category)
}

// PutRaw replaces the category's unfiltered snapshot for the given
// calendar day. Each cycle overwrites it wholesale, never merges.
func (s *Store) PutRaw(ctx context.Context, category string, day time.Time, items []feed.Item) error {
	if items == nil {
		items = []feed.Item{}
	}
	return s.put(ctx, rawKey(category, day), items, rawTTL)
}

// Raw reads one daily snapshot. A missing day yields an empty list.
func (s *Store) Raw(ctx context.Context, category string, day time.Time) ([]feed.Item, error) {
	var items []feed.Item
	if err := s.get(ctx, rawKey(category, day), &items); err != nil {
		return nil, err
	}
	return items, nil
}

// PutProcessed replaces the category's processed snapshot.
func (s *Store) PutProcessed(ctx context.Context, category string, snap ProcessedSnapshot) error {
	if snap.Items == nil {
		snap.Items = []feed.ScoredItem{}
	}
	return s.put(ctx, processedKey(category), snap, processedTTL)
}

// Processed reads the category's current processed snapshot. Absence
// yields an empty snapshot, never an error.
func (s *Store) Processed(ctx context.Context, category string) (ProcessedSnapshot, error) {
	var snap ProcessedSnapshot
	if err := s.get(ctx, processedKey(category), &snap); err != nil {
		return ProcessedSnapshot{}, err
	}
	return snap, nil
}

// SetLastUpdate stamps the global marker, overwritten every cycle.
func (s *Store) SetLastUpdate(ctx context.Context, t time.Time) error {
	return s.put(ctx, lastUpdateKey, t, 0)
}

// LastUpdate returns the marker, or the zero time when none was written.
func (s *Store) LastUpdate(ctx context.Context) (time.Time, error) {
	var t time.Time
	if err := s.get(ctx, lastUpdateKey, &t); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

// put marshals the value and writes it, retrying the write once before
// surfacing the failure so a transient store hiccup does not fail the
// category's cycle.
func (s *Store) put(ctx context.Context, key string, value any, ttl time.Duration) error {
	bs, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}

	attempt := func() error {
		return s.kv.Put(ctx, key, bs, ttl)
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(200*time.Millisecond), 1), ctx)
	if err := backoff.Retry(attempt, policy); err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// get reads and unmarshals a key; absent keys leave out untouched.
// A corrupt value is logged and treated as absent so a bad write can
// never wedge the read path.
func (s *Store) get(ctx context.Context, key string, out any) error {
	bs, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	if bs == nil {
		return nil
	}
	if err := json.Unmarshal(bs, out); err != nil {
		log.Warnf("storage: discarding corrupt value at %s: %v", key, err)
	}
	return nil
}
