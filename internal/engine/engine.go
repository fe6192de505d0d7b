// Package engine answers "is this domain free, and what does it cost" for
// batches of domains. It puts the availability cache in front of the primary
// registrar and prices available domains through the secondary providers.
package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/benbjohnson/clock"

	"github.com/benithors/dotquote/internal/availability"
	"github.com/benithors/dotquote/internal/domain"
	"github.com/benithors/dotquote/internal/pricing"
	"github.com/benithors/dotquote/internal/registrar"
	"github.com/benithors/dotquote/internal/serrors"
	"github.com/benithors/dotquote/internal/session"
)

// MoreExtensions is the list CheckMoreExtensions walks.
var MoreExtensions = []string{"com", "net", "org", "io", "ai", "app", "dev", "tech"} //nolint: gochecknoglobals

// DirectMode decides when a secondary provider is asked for an exact
// per-domain price on top of its extension table.
type DirectMode int

const (
	// DirectWhenMissing looks a domain up only when its extension has no
	// table price.
	DirectWhenMissing DirectMode = iota
	DirectNever
	DirectAlways
)

func (m DirectMode) String() string {
	switch m {
	case DirectNever:
		return "never"
	case DirectAlways:
		return "always"
	default:
		return "missing"
	}
}

func ParseDirectMode(s string) (DirectMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "missing":
		return DirectWhenMissing, nil
	case "never":
		return DirectNever, nil
	case "always":
		return DirectAlways, nil
	default:
		return 0, fmt.Errorf("invalid direct lookup mode %q (want missing|never|always)", s)
	}
}

type Options struct {
	Primary     registrar.Primary
	Secondaries []*pricing.Provider
	Cache       *availability.Cache
	// Session is closed by Close when set.
	Session *session.Manager

	Direct DirectMode
	// Concurrency bounds direct lookups in flight per provider.
	Concurrency int
	Clock       clock.Clock
}

type Engine struct {
	primary     registrar.Primary
	secondaries []*pricing.Provider
	cache       *availability.Cache
	session     *session.Manager
	direct      DirectMode
	concurrency int
	clock       clock.Clock
}

// PriceInfo is what CheckSingle reports for an available domain.
type PriceInfo struct {
	Price     *int64           `json:"price,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Providers map[string]int64 `json:"providers,omitempty"`
}

func New(opts Options) *Engine {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Cache == nil {
		opts.Cache = availability.NewCache(availability.WithClock(opts.Clock))
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	return &Engine{
		primary:     opts.Primary,
		secondaries: opts.Secondaries,
		cache:       opts.Cache,
		session:     opts.Session,
		direct:      opts.Direct,
		concurrency: opts.Concurrency,
		clock:       opts.Clock,
	}
}

func (e *Engine) PrimaryName() string { return e.primary.Name() }

// Providers lists the secondary provider names in configuration order.
func (e *Engine) Providers() []string {
	out := make([]string, 0, len(e.secondaries))
	for _, p := range e.secondaries {
		out = append(out, p.Name())
	}
	return out
}

// Pricing returns a secondary provider's prices for extensions, or its full
// table when none are given.
func (e *Engine) Pricing(ctx context.Context, provider string, extensions ...string) (map[string]pricing.Info, error) {
	for _, p := range e.secondaries {
		if p.Name() == provider {
			return p.GetPricing(ctx, extensions...)
		}
	}
	return nil, serrors.With(serrors.ErrNotFound, "unknown pricing provider %q (have %s)",
		provider, strings.Join(e.Providers(), ", "))
}

// CheckMoreExtensions checks name under every MoreExtensions entry not in
// already.
func (e *Engine) CheckMoreExtensions(ctx context.Context, name string, already []string) map[string]availability.Record {
	skip := make([]string, 0, len(already))
	for _, a := range already {
		skip = append(skip, domain.NormalizeExtension(a))
	}

	name = strings.TrimSpace(name)
	var domains []string
	for _, ext := range MoreExtensions {
		if slices.Contains(skip, ext) {
			continue
		}
		domains = append(domains, name+"."+ext)
	}
	return e.CheckMultiple(ctx, domains)
}

// Close drops cached records and pooled connections.
func (e *Engine) Close() {
	e.cache.Clear()
	if e.session != nil {
		e.session.Close()
	}
}
