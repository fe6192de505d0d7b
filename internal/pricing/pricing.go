// Package pricing keeps per-provider extension price tables and the clients
// that refresh them.
package pricing

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/benithors/dotquote/internal/domain"
	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/metrics"
	"github.com/benithors/dotquote/internal/serrors"
)

// Info is the price of one extension at one provider, in micro-units.
type Info struct {
	Registration *int64 `json:"registration,omitempty"`
	Renewal      *int64 `json:"renewal,omitempty"`
	Transfer     *int64 `json:"transfer,omitempty"`
	Currency     string `json:"currency,omitempty"`
}

// Clone deep-copies the price pointers.
func (i Info) Clone() Info {
	cp := func(p *int64) *int64 {
		if p == nil {
			return nil
		}
		v := *p
		return &v
	}
	i.Registration = cp(i.Registration)
	i.Renewal = cp(i.Renewal)
	i.Transfer = cp(i.Transfer)
	return i
}

// Source is a secondary provider's raw API.
//
//go:generate mockgen -package mockpricing -source=pricing.go -destination=mock/mockpricing.go
type Source interface {
	Name() string
	// FetchPrices returns prices for extensions, or for every extension the
	// provider knows when extensions is empty.
	FetchPrices(ctx context.Context, extensions []string) (map[string]Info, error)
	// DomainPrice returns the registration price of one domain. It returns
	// serrors.ErrNotFound when the provider has no price for it.
	DomainPrice(ctx context.Context, domain string) (int64, error)
}

// Provider pairs a Source with the Table it refreshes.
type Provider struct {
	source Source
	table  *Table
	group  singleflight.Group
}

// RefreshTimeout bounds a shared table refresh.
const RefreshTimeout = 30 * time.Second

// NewProvider wires source to table. The caller owns table.
func NewProvider(source Source, table *Table) *Provider {
	return &Provider{source: source, table: table}
}

func (p *Provider) Name() string { return p.source.Name() }

func (p *Provider) Table() *Table { return p.table }

// GetPricing returns price info for extensions. Only missing or expired
// entries are fetched; everything else is served from the table. With no
// extensions it returns the full table, refreshing it when stale.
//
// On a failed refresh it returns what the table already had plus the error.
// Concurrent refreshes of the same missing set share one request.
func (p *Provider) GetPricing(ctx context.Context, extensions ...string) (map[string]Info, error) {
	if len(extensions) == 0 {
		if p.table.FullyFresh() {
			return p.table.Snapshot(), nil
		}
		err := p.refresh(ctx, "*", nil)
		return p.table.Snapshot(), err
	}

	exts := make([]string, 0, len(extensions))
	for _, e := range extensions {
		if e = domain.NormalizeExtension(e); e != "" {
			exts = append(exts, e)
		}
	}

	var err error
	if missing := p.table.Missing(exts); len(missing) > 0 {
		err = p.refresh(ctx, strings.Join(missing, ","), missing)
	}
	return p.table.Subset(exts), err
}

// refresh fetches exts (nil means the full table) and merges them. Callers
// asking for the same key share one fetch. The fetch is detached from the
// caller that started it, so a cancelled caller only gives up its own wait.
func (p *Provider) refresh(ctx context.Context, key string, exts []string) error {
	ch := p.group.DoChan(key, func() (_ any, err error) {
		// DoChan re-panics on a fresh goroutine, out of reach of callers.
		defer func() {
			if r := recover(); r != nil {
				err = serrors.With(serrors.ErrInternal, "%s: price refresh panicked: %v", p.Name(), r)
			}
		}()

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), RefreshTimeout)
		defer cancel()

		prices, err := p.fetch(fctx, exts)
		if err != nil {
			return nil, err
		}
		p.table.Merge(exts, prices)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Provider) fetch(ctx context.Context, exts []string) (map[string]Info, error) {
	start := time.Now()
	metrics.PriceTableRefreshes.WithLabelValues(p.Name()).Inc()

	prices, err := p.source.FetchPrices(ctx, exts)
	metrics.ObserveCall(p.Name(), "pricing", start, err)
	if err != nil {
		logger.Warn(ctx, "price table refresh failed",
			zap.String("provider", p.Name()), zap.Strings("extensions", exts), zap.Error(err))
		return nil, err
	}

	logger.Debug(ctx, "price table refreshed",
		zap.String("provider", p.Name()), zap.Int("requested", len(exts)), zap.Int("received", len(prices)))
	return prices, nil
}

// CheckDomain asks the provider for the exact price of domain. ok is false
// when the provider has no price; err is only set on a failed call.
func (p *Provider) CheckDomain(ctx context.Context, domain string) (price int64, ok bool, err error) {
	start := time.Now()
	price, err = p.source.DomainPrice(ctx, domain)
	metrics.ObserveCall(p.Name(), "domain_price", start, err)

	switch {
	case errors.Is(err, serrors.ErrNotFound):
		return 0, false, nil
	case err != nil:
		logger.Debug(ctx, "direct price lookup failed",
			zap.String("provider", p.Name()), zap.String("domain", domain), zap.Error(err))
		return 0, false, err
	}
	return price, true, nil
}
