package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benithors/dotquote/internal/availability"
	"github.com/benithors/dotquote/internal/domain"
	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/pricing"
	"github.com/benithors/dotquote/internal/registrar"
	"github.com/benithors/dotquote/internal/serrors"
)

const internalErrorMessage = "internal error"

// verdictFunc asks the primary registrar about a set of domains.
type verdictFunc func(ctx context.Context, domains []string) map[string]registrar.Availability

// CheckMultiple resolves every input and returns a map keyed by the inputs
// exactly as given. Cached records are served as is; the rest go to the
// primary registrar in bulk and, when available, to the secondary providers
// for prices. Failures become error records; the map always covers every
// input.
func (e *Engine) CheckMultiple(ctx context.Context, inputs []string) (out map[string]availability.Record) {
	start := e.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "engine: check panicked", zap.Any("panic", r), zap.Stack("stack"))
			out = failAll(inputs, start)
		}
	}()

	out = make(map[string]availability.Record, len(inputs))
	pending := make(map[string][]string)
	var queries []domain.Query
	cached := 0

	for _, in := range inputs {
		if _, done := out[in]; done {
			continue
		}
		q, err := domain.Parse(in)
		if err != nil {
			out[in] = availability.ErrorRecord(in, err.Error(), start)
			continue
		}
		d := q.String()
		if rec, ok := e.cache.Get(d); ok {
			out[in] = rec
			cached++
			continue
		}
		if _, seen := pending[d]; !seen {
			queries = append(queries, q)
		}
		pending[d] = append(pending[d], in)
	}

	if len(queries) == 0 {
		return out
	}

	resolved, err := e.resolve(ctx, queries, e.primary.CheckBulk)
	if err != nil {
		logger.Error(ctx, "engine: check failed", zap.Error(err))
		return failAll(inputs, start)
	}

	available, failed := 0, 0
	for d, ins := range pending {
		rec, ok := resolved[d]
		if !ok {
			rec = availability.ErrorRecord(d, internalErrorMessage, start)
		}
		switch {
		case rec.Error != "":
			failed++
		case rec.Available:
			available++
		}
		for _, in := range ins {
			out[in] = rec.Clone()
		}
	}

	logger.Info(ctx, "engine: batch resolved",
		zap.Int("requested", len(inputs)),
		zap.Int("cached", cached),
		zap.Int("resolved", len(queries)),
		zap.Int("available", available),
		zap.Int("errors", failed),
		zap.Duration("took", e.clock.Since(start)))
	return out
}

// CheckSingle is the single-domain path. It reports availability and, for an
// available domain, the prices found.
func (e *Engine) CheckSingle(ctx context.Context, name, extension string) (bool, *PriceInfo) {
	rec, err := e.Lookup(ctx, name, extension)
	if err != nil || !rec.Available {
		return false, nil
	}
	return true, &PriceInfo{Price: rec.Price, Currency: rec.Currency, Providers: rec.Providers}
}

// Lookup is CheckSingle returning the full record. err is only set when name
// and extension do not form a valid domain; provider failures land in
// Record.Error.
func (e *Engine) Lookup(ctx context.Context, name, extension string) (rec availability.Record, err error) {
	q, err := domain.NewQuery(name, extension)
	if err != nil {
		return availability.Record{}, serrors.Wrap(serrors.ErrBadRequest, err, "invalid domain")
	}
	d := q.String()

	start := e.clock.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "engine: lookup panicked", zap.Any("panic", r), zap.Stack("stack"))
			rec = availability.ErrorRecord(d, internalErrorMessage, start)
		}
	}()

	if rec, ok := e.cache.Get(d); ok {
		return rec, nil
	}

	single := func(ctx context.Context, domains []string) map[string]registrar.Availability {
		out := make(map[string]registrar.Availability, len(domains))
		for _, d := range domains {
			out[d] = e.primary.CheckSingle(ctx, d)
		}
		return out
	}

	resolved, err := e.resolve(ctx, []domain.Query{q}, single)
	if err != nil {
		logger.Error(ctx, "engine: lookup failed", zap.String("domain", d), zap.Error(err))
		return availability.ErrorRecord(d, internalErrorMessage, start), nil
	}
	if rec, ok := resolved[d]; ok {
		return rec, nil
	}
	return availability.ErrorRecord(d, internalErrorMessage, start), nil
}

// resolve runs the primary check, prices the available domains and writes
// the merged records to the cache. It only fails on an internal defect.
func (e *Engine) resolve(ctx context.Context, queries []domain.Query, verdicts verdictFunc) (map[string]availability.Record, error) {
	names := make([]string, len(queries))
	for i, q := range queries {
		names[i] = q.String()
	}

	results := verdicts(ctx, names)

	var free []domain.Query
	for _, q := range queries {
		if a, ok := results[q.String()]; ok && a.Err == nil && a.Available {
			free = append(free, q)
		}
	}

	prices, err := e.secondaryPrices(ctx, free)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	out := make(map[string]availability.Record, len(queries))
	for _, q := range queries {
		d := q.String()
		a, ok := results[d]
		if !ok {
			a = registrar.Failed(d, serrors.With(serrors.ErrInternal, "no verdict from %s", e.primary.Name()))
		}

		rec := e.merge(d, a, prices, now)
		if rec.Error != "" {
			// errors are retried on the next request
			out[d] = rec
			continue
		}
		out[d] = e.cache.Put(d, rec)
	}
	return out, nil
}

// merge builds the record for one domain. Only the primary verdict decides
// availability; providers without a price get no entry.
func (e *Engine) merge(d string, a registrar.Availability, prices map[string]map[string]int64, now time.Time) availability.Record {
	if a.Err != nil {
		return availability.ErrorRecord(d, a.Err.Error(), now)
	}

	rec := availability.Record{Domain: d, Available: a.Available, FetchedAt: now}
	if !a.Available {
		return rec
	}

	rec.Providers = make(map[string]int64, len(e.secondaries)+1)
	if a.Price != nil {
		p := *a.Price
		rec.Price = &p
		rec.Currency = a.Currency
		rec.Providers[e.primary.Name()] = p
	}
	for provider, byDomain := range prices {
		if p, ok := byDomain[d]; ok {
			rec.Providers[provider] = p
		}
	}
	return rec
}

// secondaryPrices prices free domains at every secondary provider
// concurrently. The result maps provider → domain → price.
func (e *Engine) secondaryPrices(ctx context.Context, free []domain.Query) (map[string]map[string]int64, error) {
	out := make(map[string]map[string]int64, len(e.secondaries))
	if len(free) == 0 || len(e.secondaries) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	for _, p := range e.secondaries {
		g.Go(guard(func() error {
			got, err := e.providerPrices(ctx, p, free)
			if err != nil {
				return err
			}
			mu.Lock()
			out[p.Name()] = got
			mu.Unlock()
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// providerPrices refreshes the table entries the free domains need, then
// fills gaps with direct lookups according to the direct mode. Provider
// failures are logged and leave the affected domains unpriced.
func (e *Engine) providerPrices(ctx context.Context, p *pricing.Provider, free []domain.Query) (map[string]int64, error) {
	table, err := p.GetPricing(ctx, domain.Extensions(free)...)
	if err != nil {
		logger.Warn(ctx, "engine: price table incomplete",
			zap.String("provider", p.Name()), zap.Error(err))
	}

	out := make(map[string]int64, len(free))
	var direct []string
	for _, q := range free {
		info, ok := table[q.Extension]
		hasTable := ok && info.Registration != nil
		if hasTable {
			out[q.String()] = *info.Registration
		}
		if e.direct == DirectAlways || (e.direct == DirectWhenMissing && !hasTable) {
			direct = append(direct, q.String())
		}
	}
	if len(direct) == 0 {
		return out, nil
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)
	for _, d := range direct {
		g.Go(guard(func() error {
			price, ok, err := p.CheckDomain(ctx, d)
			if err != nil || !ok {
				return nil
			}
			mu.Lock()
			out[d] = price
			mu.Unlock()
			return nil
		}))
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// guard turns a panic in fn into an ErrInternal error.
func guard(fn func() error) func() error {
	return func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = serrors.With(serrors.ErrInternal, "panic: %v", r)
			}
		}()
		return fn()
	}
}

func failAll(inputs []string, at time.Time) map[string]availability.Record {
	out := make(map[string]availability.Record, len(inputs))
	for _, in := range inputs {
		out[in] = availability.ErrorRecord(in, internalErrorMessage, at)
	}
	return out
}

// IsInternal reports whether a record error came from an engine defect.
func IsInternal(rec availability.Record) bool {
	return rec.Error == internalErrorMessage
}
