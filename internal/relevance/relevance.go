// Package relevance assigns stable content ids, removes duplicate URLs
// and estimates how notable an item is for a cyber-defence audience.
package relevance

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ContentID returns a fixed-width hex token derived from the raw URL via
// FNV-1a. It is a dedup convenience only, not a security identifier:
// collisions are tolerable because dedup itself keys on the full URL.
func ContentID(rawURL string) string {
	h := fnv.New32a()
	h.Write([]byte(rawURL))
	return fmt.Sprintf("%08x", h.Sum32())
}

// Dedupe retains the first occurrence of each distinct key, preserving
// the input order. Later duplicates are dropped regardless of content.
func Dedupe[T any](items []T, key func(T) string) []T {
	return lo.UniqBy(items, key)
}

// Weights are the additive scoring signals. They are heuristic constants
// without documented calibration, so they stay injectable.
type Weights struct {
	Attribution  int // adversary/actor keyword match
	Jurisdiction int // Nordic/NATO/EU relevance
	Severity     int // incident keyword match
	Recency      int // published within RecencyWindow

	RecencyWindow time.Duration
	Max           int
}

// DefaultWeights matches the dashboard's original tuning.
func DefaultWeights() Weights {
	return Weights{
		Attribution:   3,
		Jurisdiction:  4,
		Severity:      2,
		Recency:       1,
		RecencyWindow: 12 * time.Hour,
		Max:           10,
	}
}

// Signal carries the fields the scorer inspects.
type Signal struct {
	Title       string
	Description string
	PublishedAt time.Time
}

var attributionKeywords = []string{
	"apt", "lazarus", "sandworm", "turla", "fancy bear", "cozy bear",
	"midnight blizzard", "threat actor", "nation-state", "state-sponsored",
	"fin7", "killnet",
}

var jurisdictionKeywords = []string{
	"norway", "norwegian", "norge", "norsk", "nordic", "scandinav",
	"nato", "european union", "europe", "denmark", "sweden", "finland",
	"iceland",
}

var severityKeywords = []string{
	"attack", "breach", "ransomware", "exploit", "vulnerability",
	"zero-day", "malware", "phishing", "ddos", "cve-", "intrusion",
	"compromise", "data leak", "wiper",
}

// Score combines the independently triggered signals against the
// lowercase title+description text and clamps the sum to [0, Max].
// The signals are not mutually exclusive.
func (w Weights) Score(sig Signal, now time.Time) int {
	text := strings.ToLower(sig.Title + " " + sig.Description)

	score := 0
	if matchesAny(text, attributionKeywords) {
		score += w.Attribution
	}
	if matchesAny(text, jurisdictionKeywords) {
		score += w.Jurisdiction
	}
	if matchesAny(text, severityKeywords) {
		score += w.Severity
	}
	if !sig.PublishedAt.IsZero() && now.Sub(sig.PublishedAt) < w.RecencyWindow {
		score += w.Recency
	}

	if score > w.Max {
		score = w.Max
	}
	if score < 0 {
		score = 0
	}
	return score
}

func matchesAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
