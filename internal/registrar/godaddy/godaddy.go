// Package godaddy is the primary availability source backed by the GoDaddy
// domains API.
package godaddy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/metrics"
	"github.com/benithors/dotquote/internal/registrar"
	"github.com/benithors/dotquote/internal/resilience"
	"github.com/benithors/dotquote/internal/serrors"
)

const (
	Name           = "godaddy"
	defaultBaseURL = "https://api.ote-godaddy.com"

	// MaxBulkSize is the largest domain list one bulk request may carry.
	MaxBulkSize = 500
)

type Options struct {
	APIKey    string
	APISecret string
	BaseURL   string
	HTTP      *http.Client
	Timeout   time.Duration

	// MaxConcurrent bounds in-flight requests: bulk chunks, and singles
	// within a chunk that fell back.
	MaxConcurrent int
	// Retry applies to single checks only.
	Retry resilience.Policy
}

type Client struct {
	opts Options
	http *http.Client
}

func NewClient(opts Options) *Client {
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	opts.APISecret = strings.TrimSpace(opts.APISecret)
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 4
	}
	if opts.Retry.Retries == 0 && opts.Retry.Backoff == 0 {
		opts.Retry = resilience.Policy{Retries: 2, Backoff: 250 * time.Millisecond}
	}

	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{opts: opts, http: hc}
}

func (c *Client) Name() string { return Name }

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.opts.APIKey != "" && c.opts.APISecret != ""
}

func (c *Client) CheckSingle(ctx context.Context, domain string) registrar.Availability {
	start := time.Now()
	res := c.checkSingle(ctx, domain)
	metrics.ObserveCall(Name, "check_single", start, res.Err)
	if res.Err != nil {
		logger.Warn(ctx, "godaddy: single check failed", zap.String("domain", domain), zap.Error(res.Err))
	}
	return res
}

func (c *Client) checkSingle(ctx context.Context, domain string) registrar.Availability {
	if !c.Configured() {
		return registrar.Failed(domain, errMissingCredentials())
	}

	q := url.Values{}
	q.Set("domain", domain)
	q.Set("checkType", "FAST")

	var decoded availableDomain
	err := c.opts.Retry.Do(ctx, func(ctx context.Context) error {
		b, err := c.do(ctx, http.MethodGet, "/v1/domains/available?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		decoded = availableDomain{}
		if err := json.Unmarshal(b, &decoded); err != nil {
			return serrors.Wrap(serrors.ErrMalformed, err, "godaddy: decode error")
		}
		return nil
	})
	if err != nil {
		return registrar.Failed(domain, err)
	}
	return decoded.availability(domain)
}

// CheckBulk checks domains in chunks of MaxBulkSize. A chunk the bulk
// endpoint rejects, or whose payload cannot be decoded, is retried domain by
// domain; so is any domain the bulk payload leaves out. A rate-limited chunk
// is not retried: each of its domains carries the rate-limit error.
func (c *Client) CheckBulk(ctx context.Context, domains []string) map[string]registrar.Availability {
	out := make(map[string]registrar.Availability, len(domains))
	if len(domains) == 0 {
		return out
	}
	if !c.Configured() {
		err := errMissingCredentials()
		for _, d := range domains {
			out[d] = registrar.Failed(d, err)
		}
		return out
	}

	var mu sync.Mutex
	put := func(a registrar.Availability) {
		mu.Lock()
		out[a.Domain] = a
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrent)
	for start := 0; start < len(domains); start += MaxBulkSize {
		chunk := domains[start:min(start+MaxBulkSize, len(domains))]
		g.Go(func() error {
			defer recoverAll(gctx, chunk, put)
			for _, a := range c.checkChunk(gctx, chunk) {
				put(a)
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}

func (c *Client) checkChunk(ctx context.Context, chunk []string) []registrar.Availability {
	start := time.Now()
	got, err := c.bulk(ctx, chunk)
	metrics.ObserveCall(Name, "check_bulk", start, err)

	var retry []string
	results := make([]registrar.Availability, 0, len(chunk))
	switch {
	case errors.Is(err, serrors.ErrRateLimited):
		// Rate-limited chunks are reported as such, never retried one by one.
		logger.Warn(ctx, "godaddy: bulk chunk rate limited", zap.Int("domains", len(chunk)), zap.Error(err))
		for _, d := range chunk {
			results = append(results, registrar.Failed(d, err))
		}
		return results
	case err != nil:
		logger.Warn(ctx, "godaddy: bulk chunk failed, checking domains one by one",
			zap.Int("domains", len(chunk)), zap.Error(err))
		retry = chunk
	default:
		for _, d := range chunk {
			if a, ok := got[strings.ToLower(d)]; ok {
				a.Domain = d
				results = append(results, a)
			} else {
				retry = append(retry, d)
			}
		}
		if len(retry) > 0 {
			logger.Debug(ctx, "godaddy: domains missing from bulk payload", zap.Strings("domains", retry))
		}
	}

	if len(retry) == 0 {
		return results
	}

	singles := make([]registrar.Availability, len(retry))
	g := new(errgroup.Group)
	g.SetLimit(c.opts.MaxConcurrent)
	for i, d := range retry {
		g.Go(func() error {
			defer recoverAll(ctx, []string{d}, func(a registrar.Availability) { singles[i] = a })
			singles[i] = c.CheckSingle(ctx, d)
			return nil
		})
	}
	_ = g.Wait()

	return append(results, singles...)
}

// recoverAll turns a panic in a check goroutine into an internal-error
// record for each of domains. It must be deferred.
func recoverAll(ctx context.Context, domains []string, put func(registrar.Availability)) {
	r := recover()
	if r == nil {
		return
	}
	logger.Error(ctx, "godaddy: check panicked", zap.Any("panic", r), zap.Stack("stack"))
	err := serrors.With(serrors.ErrInternal, "godaddy: internal error")
	for _, d := range domains {
		put(registrar.Failed(d, err))
	}
}

// bulk returns results keyed by lowercase domain.
func (c *Client) bulk(ctx context.Context, chunk []string) (map[string]registrar.Availability, error) {
	body, err := json.Marshal(chunk)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "godaddy: encode body")
	}

	b, err := c.do(ctx, http.MethodPost, "/v1/domains/available?checkType=FAST", body)
	if err != nil {
		return nil, err
	}

	var decoded bulkResponse
	if err := json.Unmarshal(b, &decoded); err != nil {
		return nil, serrors.Wrap(serrors.ErrMalformed, err, "godaddy: decode bulk response")
	}
	if decoded.Domains == nil && decoded.Errors == nil {
		return nil, serrors.With(serrors.ErrMalformed, "godaddy: bulk response has no domains")
	}

	out := make(map[string]registrar.Availability, len(chunk))
	for _, d := range decoded.Domains {
		key := strings.ToLower(strings.TrimSpace(d.Domain))
		out[key] = d.availability(key)
	}
	for _, e := range decoded.Errors {
		key := strings.ToLower(strings.TrimSpace(e.Domain))
		if key == "" {
			continue
		}
		out[key] = registrar.Failed(key, e.err())
	}
	return out, nil
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.opts.BaseURL, "/")+path, rdr)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrInternal, err, "godaddy: build request")
	}
	req.Header.Set("Authorization", "sso-key "+c.opts.APIKey+":"+c.opts.APISecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.Tag(err, "godaddy")
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, resilience.Tag(err, "godaddy: read body")
	}

	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return b, nil
	case code == http.StatusTooManyRequests:
		return nil, serrors.With(serrors.ErrRateLimited, "godaddy: http %d", code)
	case code >= 500:
		return nil, serrors.With(serrors.ErrUnavailable, "godaddy: http %d", code)
	default:
		var e apiError
		_ = json.Unmarshal(b, &e)
		msg := strings.TrimSpace(e.Message)
		if msg == "" {
			msg = strings.TrimSpace(string(b))
		}
		return nil, serrors.With(serrors.ErrBadRequest, "godaddy: http %d: %s", code, msg)
	}
}

func errMissingCredentials() error {
	return serrors.With(serrors.ErrConfig, "godaddy: missing api key (set GODADDY_API_KEY and GODADDY_API_SECRET)")
}

type availableDomain struct {
	Domain     string `json:"domain"`
	Available  bool   `json:"available"`
	Definitive bool   `json:"definitive"`
	Price      *int64 `json:"price,omitempty"`
	Currency   string `json:"currency,omitempty"`
	Period     int    `json:"period,omitempty"`
}

// availability converts the payload; GoDaddy prices are already micro-units.
func (d availableDomain) availability(domain string) registrar.Availability {
	a := registrar.Availability{Domain: domain, Available: d.Available}
	if d.Available && d.Price != nil {
		p := *d.Price
		a.Price = &p
		a.Currency = d.Currency
		if a.Currency == "" {
			a.Currency = "USD"
		}
	}
	return a
}

type bulkResponse struct {
	Domains []availableDomain `json:"domains"`
	Errors  []bulkError       `json:"errors"`
}

type bulkError struct {
	Domain  string `json:"domain"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e bulkError) err() error {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = e.Code
	}
	switch {
	case e.Status == http.StatusTooManyRequests:
		return serrors.With(serrors.ErrRateLimited, "godaddy: %s", msg)
	case e.Status >= 500:
		return serrors.With(serrors.ErrUnavailable, "godaddy: %s", msg)
	default:
		return serrors.With(serrors.ErrBadRequest, "godaddy: %s", msg)
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
