// Package rdap answers availability from registry RDAP servers, located
// through the IANA bootstrap file. It carries no prices.
package rdap

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/metrics"
	"github.com/benithors/dotquote/internal/registrar"
	"github.com/benithors/dotquote/internal/resilience"
	"github.com/benithors/dotquote/internal/serrors"
)

const (
	Name                = "rdap"
	DefaultBootstrapURL = "https://data.iana.org/rdap/dns.json"
)

type Options struct {
	BootstrapURL string
	BootstrapTTL time.Duration
	HTTP         *http.Client
	Timeout      time.Duration

	// MaxConcurrent bounds lookups in flight during CheckBulk.
	MaxConcurrent int64
	Retry         resilience.Policy
}

// Registry is a registrar.Primary over RDAP.
type Registry struct {
	opts Options
	http *http.Client

	mu          sync.Mutex
	bootstrap   *bootstrap
	bootstrapAt time.Time
}

func NewRegistry(opts Options) *Registry {
	if opts.BootstrapURL == "" {
		opts.BootstrapURL = DefaultBootstrapURL
	}
	if opts.BootstrapTTL <= 0 {
		opts.BootstrapTTL = 7 * 24 * time.Hour
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 8
	}
	if opts.Retry.Retries == 0 && opts.Retry.Backoff == 0 {
		opts.Retry = resilience.Policy{Retries: 1, Backoff: 200 * time.Millisecond}
	}

	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Registry{opts: opts, http: hc}
}

func (r *Registry) Name() string { return Name }

func (r *Registry) CheckSingle(ctx context.Context, domain string) registrar.Availability {
	start := time.Now()
	res := r.lookup(ctx, domain)
	metrics.ObserveCall(Name, "check_single", start, res.Err)
	if res.Err != nil {
		logger.Debug(ctx, "rdap: lookup failed", zap.String("domain", domain), zap.Error(res.Err))
	}
	return res
}

// CheckBulk fans single lookups out; RDAP has no bulk query.
func (r *Registry) CheckBulk(ctx context.Context, domains []string) map[string]registrar.Availability {
	out := make(map[string]registrar.Availability, len(domains))
	var mu sync.Mutex
	var wg sync.WaitGroup

	sem := semaphore.NewWeighted(r.opts.MaxConcurrent)
	for _, d := range domains {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			out[d] = registrar.Failed(d, resilience.Tag(err, "rdap"))
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)

			var a registrar.Availability
			defer func() {
				if p := recover(); p != nil {
					logger.Error(ctx, "rdap: check panicked", zap.String("domain", d), zap.Any("panic", p), zap.Stack("stack"))
					a = registrar.Failed(d, serrors.With(serrors.ErrInternal, "rdap: internal error"))
				}
				mu.Lock()
				out[d] = a
				mu.Unlock()
			}()
			a = r.CheckSingle(ctx, d)
		}()
	}
	wg.Wait()
	return out
}

func (r *Registry) lookup(ctx context.Context, domain string) registrar.Availability {
	tld := lastLabel(domain)
	if tld == "" {
		return registrar.Failed(domain, serrors.With(serrors.ErrBadRequest, "rdap: invalid domain %q", domain))
	}

	bs, err := r.getBootstrap(ctx)
	if err != nil {
		return registrar.Failed(domain, err)
	}

	urls := bs.urlsForTLD(tld)
	if len(urls) == 0 {
		return registrar.Failed(domain, serrors.With(serrors.ErrNotFound, "rdap: no service for .%s", tld))
	}

	var lastErr error
	for _, base := range urls {
		var available bool
		err := r.opts.Retry.Do(ctx, func(ctx context.Context) error {
			var err error
			available, err = r.lookupOne(ctx, base, domain)
			return err
		})
		if err == nil {
			return registrar.Availability{Domain: domain, Available: available}
		}
		lastErr = err
	}
	return registrar.Failed(domain, lastErr)
}

// lookupOne maps 404 to available and 200 to taken.
func (r *Registry) lookupOne(ctx context.Context, base, domain string) (bool, error) {
	rdapURL := strings.TrimRight(base, "/") + "/domain/" + url.PathEscape(domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rdapURL, nil)
	if err != nil {
		return false, serrors.Wrap(serrors.ErrInternal, err, "rdap: build request")
	}
	req.Header.Set("accept", "application/rdap+json, application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return false, resilience.Tag(err, "rdap: %s", rdapURL)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))

	switch code := resp.StatusCode; {
	case code == http.StatusOK:
		return false, nil
	case code == http.StatusNotFound:
		return true, nil
	case code == http.StatusTooManyRequests:
		return false, serrors.With(serrors.ErrRateLimited, "rdap: http %d from %s", code, base)
	case code >= 500:
		return false, serrors.With(serrors.ErrUnavailable, "rdap: http %d from %s", code, base)
	default:
		return false, serrors.With(serrors.ErrBadRequest, "rdap: http %d from %s", code, base)
	}
}

func (r *Registry) getBootstrap(ctx context.Context) (*bootstrap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bootstrap != nil && time.Since(r.bootstrapAt) < r.opts.BootstrapTTL {
		return r.bootstrap, nil
	}

	bs, err := r.loadBootstrap(ctx)
	if err != nil {
		// a stale table beats none
		if r.bootstrap != nil {
			logger.Warn(ctx, "rdap: bootstrap refresh failed, keeping stale copy", zap.Error(err))
			return r.bootstrap, nil
		}
		return nil, err
	}
	r.bootstrap = bs
	r.bootstrapAt = time.Now()
	return r.bootstrap, nil
}

func (r *Registry) loadBootstrap(ctx context.Context) (*bootstrap, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.opts.BootstrapURL, nil)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "rdap: build bootstrap request")
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, resilience.Tag(err, "rdap: bootstrap")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, serrors.With(serrors.ErrUnavailable, "rdap: bootstrap http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, resilience.Tag(err, "rdap: read bootstrap")
	}
	bs, err := parseBootstrap(body)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformed, err, "rdap: decode bootstrap")
	}
	return bs, nil
}

type bootstrap struct {
	tldToURLs map[string][]string
}

func (b *bootstrap) urlsForTLD(tld string) []string {
	return b.tldToURLs[strings.ToLower(tld)]
}

type bootstrapJSON struct {
	Services [][][]string `json:"services"`
}

func parseBootstrap(b []byte) (*bootstrap, error) {
	var raw bootstrapJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	m := make(map[string][]string, 2048)
	for _, svc := range raw.Services {
		if len(svc) != 2 {
			continue
		}
		urls := uniqueURLs(svc[1])
		for _, tld := range svc[0] {
			tld = strings.ToLower(strings.TrimSpace(tld))
			if tld == "" {
				continue
			}
			m[tld] = urls
		}
	}
	return &bootstrap{tldToURLs: m}, nil
}

func uniqueURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := map[string]struct{}{}
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if _, err := url.Parse(u); err != nil {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func lastLabel(domain string) string {
	i := strings.LastIndexByte(domain, '.')
	if i < 0 || i == len(domain)-1 {
		return ""
	}
	return domain[i+1:]
}
