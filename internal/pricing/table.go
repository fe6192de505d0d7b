package pricing

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/benithors/dotquote/internal/metrics"
)

// TTL bounds how long a table entry is considered fresh.
const TTL = 24 * time.Hour

type tableEntry struct {
	info Info
	// priced is false when the provider was asked and had no price; the
	// entry still counts as fresh so the extension is not refetched.
	priced      bool
	refreshedAt time.Time
}

// Table is one provider's extension → price table. Entries are refreshed
// individually; a refresh of some extensions leaves the others untouched.
type Table struct {
	name  string
	clock clock.Clock
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]tableEntry
	fullAt  time.Time
}

// NewTable creates an empty table. name labels cache metrics; c may be nil.
func NewTable(name string, c clock.Clock) *Table {
	if c == nil {
		c = clock.New()
	}
	return &Table{
		name:    name,
		clock:   c,
		ttl:     TTL,
		entries: make(map[string]tableEntry),
	}
}

func (t *Table) fresh(e tableEntry, now time.Time) bool {
	return now.Sub(e.refreshedAt) < t.ttl
}

// Lookup returns the fresh price info for ext.
func (t *Table) Lookup(ext string) (Info, bool) {
	t.mu.RLock()
	e, ok := t.entries[ext]
	t.mu.RUnlock()

	switch {
	case !ok:
		metrics.CacheLookups.WithLabelValues(t.name, "miss").Inc()
		return Info{}, false
	case !t.fresh(e, t.clock.Now()):
		metrics.CacheLookups.WithLabelValues(t.name, "expired").Inc()
		return Info{}, false
	case !e.priced:
		metrics.CacheLookups.WithLabelValues(t.name, "unpriced").Inc()
		return Info{}, false
	}
	metrics.CacheLookups.WithLabelValues(t.name, "hit").Inc()
	return e.info.Clone(), true
}

// Missing returns the extensions of exts that are absent or expired, sorted.
func (t *Table) Missing(exts []string) []string {
	now := t.clock.Now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for _, ext := range exts {
		e, ok := t.entries[ext]
		if !ok || !t.fresh(e, now) {
			out = append(out, ext)
		}
	}
	sort.Strings(out)
	return out
}

// Merge stores prices. With a non-nil requested list only those extensions
// are touched, and requested extensions absent from prices are remembered as
// unpriced. With a nil list every key of prices is stored and the table is
// marked fully refreshed.
func (t *Table) Merge(requested []string, prices map[string]Info) {
	now := t.clock.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if requested == nil {
		for ext, info := range prices {
			t.entries[ext] = tableEntry{info: info.Clone(), priced: info.Registration != nil, refreshedAt: now}
		}
		t.fullAt = now
		return
	}

	for _, ext := range requested {
		info, ok := prices[ext]
		t.entries[ext] = tableEntry{info: info.Clone(), priced: ok && info.Registration != nil, refreshedAt: now}
	}
}

// Subset returns the fresh priced entries among exts.
func (t *Table) Subset(exts []string) map[string]Info {
	out := make(map[string]Info, len(exts))
	for _, ext := range exts {
		if info, ok := t.Lookup(ext); ok {
			out[ext] = info
		}
	}
	return out
}

// Snapshot returns every fresh priced entry.
func (t *Table) Snapshot() map[string]Info {
	now := t.clock.Now()

	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]Info, len(t.entries))
	for ext, e := range t.entries {
		if e.priced && t.fresh(e, now) {
			out[ext] = e.info.Clone()
		}
	}
	return out
}

// FullyFresh reports whether a full refresh happened within TTL.
func (t *Table) FullyFresh() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return !t.fullAt.IsZero() && t.clock.Now().Sub(t.fullAt) < t.ttl
}

// Len counts stored entries, stale ones included.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}
