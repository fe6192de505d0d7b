// Package availability holds the unified per-domain record and the
// time-boxed cache in front of the primary registrar.
package availability

import (
	"time"

	"github.com/benbjohnson/clock"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/benithors/dotquote/internal/metrics"
)

const (
	// TTL bounds how long a record is served from cache.
	TTL = 24 * time.Hour
	// DefaultMaxEntries caps the cache; least recently used records go first.
	DefaultMaxEntries = 100_000
)

// Record is the unified answer for one domain. Prices are micro-units of USD.
type Record struct {
	Domain    string `json:"domain"`
	Available bool   `json:"available"`
	// Price is the primary registrar's price, when it quoted one.
	Price    *int64 `json:"price,omitempty"`
	Currency string `json:"currency,omitempty"`
	// Providers maps provider name to price. Only set for available domains.
	Providers map[string]int64 `json:"providers,omitempty"`
	Error     string           `json:"error,omitempty"`
	FetchedAt time.Time        `json:"fetched_at"`
}

// ErrorRecord is the record returned for a domain that could not be resolved.
func ErrorRecord(domain, msg string, at time.Time) Record {
	return Record{Domain: domain, Error: msg, FetchedAt: at}
}

// Clone returns a deep copy so cached records cannot be mutated by callers.
func (r Record) Clone() Record {
	if r.Price != nil {
		p := *r.Price
		r.Price = &p
	}
	if r.Providers != nil {
		m := make(map[string]int64, len(r.Providers))
		for k, v := range r.Providers {
			m[k] = v
		}
		r.Providers = m
	}
	return r
}

// Entry is what the cache stores.
type Entry struct {
	Record    Record
	ExpiresAt time.Time
}

type Option func(*Cache)

// WithClock swaps the time source.
func WithClock(c clock.Clock) Option {
	return func(cache *Cache) { cache.clock = c }
}

// WithMaxEntries overrides DefaultMaxEntries.
func WithMaxEntries(n int) Option {
	return func(cache *Cache) {
		if n > 0 {
			cache.maxEntries = n
		}
	}
}

// Cache maps a domain to its last resolved Record for TTL.
type Cache struct {
	clock      clock.Clock
	ttl        time.Duration
	maxEntries int
	entries    *lru.Cache[string, Entry]
}

func NewCache(opts ...Option) *Cache {
	c := &Cache{
		clock:      clock.New(),
		ttl:        TTL,
		maxEntries: DefaultMaxEntries,
	}
	for _, opt := range opts {
		opt(c)
	}
	entries, err := lru.New[string, Entry](c.maxEntries)
	if err != nil {
		// Only reachable with a non-positive size, which the options rule out.
		panic(err)
	}
	c.entries = entries
	return c
}

// Get returns the record for domain until its entry expires, TTL after it
// was stored.
// Expired entries are evicted and reported as a miss.
func (c *Cache) Get(domain string) (Record, bool) {
	e, ok := c.entries.Get(domain)
	if !ok {
		metrics.CacheLookups.WithLabelValues("availability", "miss").Inc()
		return Record{}, false
	}
	if !c.clock.Now().Before(e.ExpiresAt) {
		c.entries.Remove(domain)
		metrics.CacheLookups.WithLabelValues("availability", "expired").Inc()
		return Record{}, false
	}
	metrics.CacheLookups.WithLabelValues("availability", "hit").Inc()
	return e.Record.Clone(), true
}

// Put stores rec under domain, stamping FetchedAt with the current time, and
// returns the stored copy.
func (c *Cache) Put(domain string, rec Record) Record {
	now := c.clock.Now()
	rec = rec.Clone()
	rec.FetchedAt = now
	c.entries.Add(domain, Entry{Record: rec, ExpiresAt: now.Add(c.ttl)})
	return rec.Clone()
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.entries.Purge()
}

// Len counts stored entries, including expired ones not yet evicted.
func (c *Cache) Len() int {
	return c.entries.Len()
}
