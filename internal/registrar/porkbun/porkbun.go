// Package porkbun is the Porkbun pricing source: a full price table in one
// call plus per-domain checks.
package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/benithors/dotquote/internal/domain"
	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/pricing"
	"github.com/benithors/dotquote/internal/registrar"
	"github.com/benithors/dotquote/internal/resilience"
	"github.com/benithors/dotquote/internal/serrors"
)

const (
	Name           = "porkbun"
	defaultBaseURL = "https://api.porkbun.com/api/json/v3"
)

type Options struct {
	APIKey       string
	SecretAPIKey string
	BaseURL      string
	// HTTP is the shared session client. When nil a private client with
	// Timeout is used.
	HTTP    *http.Client
	Timeout time.Duration

	// Client-side pacing to reduce the chance of hitting provider limits.
	MinDelay      time.Duration
	MaxConcurrent int

	Retry resilience.Policy
}

type Client struct {
	opts Options
	http *http.Client

	sem chan struct{}

	mu              sync.Mutex
	nextRequestAt   time.Time
	dynamicMinDelay time.Duration
}

// NewClient never fails; missing credentials surface as serrors.ErrConfig on
// every call so the engine can keep serving the other providers.
func NewClient(opts Options) *Client {
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	opts.SecretAPIKey = strings.TrimSpace(opts.SecretAPIKey)
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = 200 * time.Millisecond
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Retry.Retries == 0 && opts.Retry.Backoff == 0 {
		opts.Retry = resilience.Policy{Retries: 1, Backoff: 500 * time.Millisecond}
	}

	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	return &Client{
		opts: opts,
		http: hc,
		sem:  make(chan struct{}, opts.MaxConcurrent),
	}
}

func (c *Client) Name() string { return Name }

// FetchPrices loads the whole Porkbun table and keeps the requested
// extensions, or everything when extensions is empty.
func (c *Client) FetchPrices(ctx context.Context, extensions []string) (map[string]pricing.Info, error) {
	var decoded pricingResponse
	if err := c.post(ctx, "/pricing/get", &decoded); err != nil {
		return nil, err
	}

	want := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		want[domain.NormalizeExtension(e)] = struct{}{}
	}

	out := make(map[string]pricing.Info, len(decoded.Pricing))
	for tld, p := range decoded.Pricing {
		ext := domain.NormalizeExtension(tld)
		if _, ok := want[ext]; len(want) > 0 && !ok {
			continue
		}
		info := pricing.Info{
			Registration: micros(p.Registration),
			Renewal:      micros(p.Renewal),
			Transfer:     micros(p.Transfer),
			Currency:     "USD",
		}
		if info.Registration == nil {
			logger.Debug(ctx, "porkbun: unparseable registration price",
				zap.String("extension", ext), zap.String("price", p.Registration))
			continue
		}
		out[ext] = info
	}
	return out, nil
}

// DomainPrice returns the first-year price of a buyable domain. Taken domains
// report serrors.ErrNotFound.
func (c *Client) DomainPrice(ctx context.Context, name string) (int64, error) {
	check, err := c.CheckDomain(ctx, name)
	if err != nil {
		return 0, err
	}
	if !check.Buyable {
		return 0, serrors.With(serrors.ErrNotFound, "porkbun: %s is not buyable", name)
	}
	p, err := registrar.ParseMicros(check.Price)
	if err != nil {
		return 0, serrors.Wrap(serrors.ErrMalformed, err, "porkbun: price for %s", name)
	}
	return p, nil
}

// DomainCheck is Porkbun's answer for one domain.
type DomainCheck struct {
	Buyable        bool
	Premium        bool
	Price          string
	RegularPrice   string
	MinDuration    int
	FirstYearPromo bool
	Limits         *Limits
}

// Limits is the rate-limit hint Porkbun attaches to checkDomain responses.
type Limits struct {
	TTLSeconds      int
	Limit           int
	Used            int
	NaturalLanguage string
}

func (c *Client) CheckDomain(ctx context.Context, name string) (DomainCheck, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DomainCheck{}, serrors.With(serrors.ErrBadRequest, "porkbun: empty domain")
	}

	var decoded checkDomainResponse
	if err := c.post(ctx, "/domain/checkDomain/"+url.PathEscape(name), &decoded); err != nil {
		return DomainCheck{}, err
	}

	check := DomainCheck{
		Buyable:        yesNo(decoded.Response.Avail),
		Premium:        yesNo(decoded.Response.Premium),
		Price:          strings.TrimSpace(decoded.Response.Price),
		RegularPrice:   strings.TrimSpace(decoded.Response.RegularPrice),
		MinDuration:    decoded.Response.MinDuration,
		FirstYearPromo: yesNo(decoded.Response.FirstYearPromo),
	}

	if limits := parseLimits(decoded.Limits); limits != nil {
		check.Limits = limits
		c.updateDynamicDelay(*limits)
		logger.Debug(ctx, "porkbun: rate limits", zap.Stringer("limits", *limits))
	}

	return check, nil
}

type envelope interface {
	status() (string, string)
}

// post sends an authenticated request under the throttle and decodes a
// SUCCESS envelope into out.
func (c *Client) post(ctx context.Context, path string, out envelope) error {
	if c.opts.APIKey == "" || c.opts.SecretAPIKey == "" {
		return serrors.With(serrors.ErrConfig, "porkbun: missing api key (set PORKBUN_API_KEY and PORKBUN_SECRET_API_KEY)")
	}

	// Limit in-flight requests.
	select {
	case c.sem <- struct{}{}:
		defer func() { <-c.sem }()
	case <-ctx.Done():
		return resilience.Tag(ctx.Err(), "porkbun")
	}

	body, err := json.Marshal(map[string]string{
		"apikey":       c.opts.APIKey,
		"secretapikey": c.opts.SecretAPIKey,
	})
	if err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "porkbun: encode body")
	}
	u := strings.TrimRight(c.opts.BaseURL, "/") + path

	return c.opts.Retry.Do(ctx, func(ctx context.Context) error {
		if err := c.throttle(ctx); err != nil {
			return resilience.Tag(err, "porkbun")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
		if err != nil {
			return serrors.Wrap(serrors.ErrInternal, err, "porkbun: build request")
		}
		req.Header.Set("content-type", "application/json")
		req.Header.Set("accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return resilience.Tag(err, "porkbun: %s", path)
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return resilience.Tag(err, "porkbun: read body")
		}
		if err := statusError(resp.StatusCode, b); err != nil {
			return err
		}

		if err := json.Unmarshal(b, out); err != nil {
			return serrors.Wrap(serrors.ErrMalformed, err, "porkbun: decode error")
		}
		if status, msg := out.status(); strings.ToUpper(status) != "SUCCESS" {
			if msg = strings.TrimSpace(msg); msg == "" {
				msg = "unknown error"
			}
			return serrors.With(serrors.ErrBadRequest, "porkbun: %s", msg)
		}
		return nil
	})
}

func statusError(code int, body []byte) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusTooManyRequests:
		return serrors.With(serrors.ErrRateLimited, "porkbun: http %d", code)
	case code >= 500:
		return serrors.With(serrors.ErrUnavailable, "porkbun: http %d", code)
	default:
		return serrors.With(serrors.ErrBadRequest, "porkbun: http %d: %s", code, strings.TrimSpace(string(body)))
	}
}

func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	minDelay := c.opts.MinDelay
	if c.dynamicMinDelay > minDelay {
		minDelay = c.dynamicMinDelay
	}

	now := time.Now()
	scheduled := now
	if scheduled.Before(c.nextRequestAt) {
		scheduled = c.nextRequestAt
	}
	c.nextRequestAt = scheduled.Add(minDelay)
	c.mu.Unlock()

	wait := time.Until(scheduled)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) updateDynamicDelay(l Limits) {
	if l.TTLSeconds <= 0 || l.Limit <= 0 {
		return
	}
	per := time.Duration(l.TTLSeconds) * time.Second / time.Duration(l.Limit)
	if per <= 0 {
		return
	}

	// Cap so one response cannot stall a whole batch.
	if per > 5*time.Second {
		per = 5 * time.Second
	}

	c.mu.Lock()
	if per > c.dynamicMinDelay {
		c.dynamicMinDelay = per
	}
	c.mu.Unlock()
}

type baseResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

func (r *baseResponse) status() (string, string) { return r.Status, r.Message }

type pricingResponse struct {
	baseResponse
	Pricing map[string]struct {
		Registration string `json:"registration"`
		Renewal      string `json:"renewal"`
		Transfer     string `json:"transfer"`
	} `json:"pricing"`
}

type checkDomainResponse struct {
	baseResponse
	Response struct {
		Avail          string `json:"avail"`
		Price          string `json:"price"`
		RegularPrice   string `json:"regularPrice"`
		Premium        string `json:"premium"`
		MinDuration    int    `json:"minDuration"`
		FirstYearPromo string `json:"firstYearPromo"`
	} `json:"response"`
	Limits apiLimits `json:"limits"`
}

type apiLimits struct {
	TTL             string `json:"TTL"`
	Limit           string `json:"limit"`
	Used            int    `json:"used"`
	NaturalLanguage string `json:"naturalLanguage"`
}

func parseLimits(l apiLimits) *Limits {
	ttl, _ := strconv.Atoi(strings.TrimSpace(l.TTL))
	limit, _ := strconv.Atoi(strings.TrimSpace(l.Limit))
	if ttl == 0 && limit == 0 && l.Used == 0 && strings.TrimSpace(l.NaturalLanguage) == "" {
		return nil
	}
	return &Limits{
		TTLSeconds:      ttl,
		Limit:           limit,
		Used:            l.Used,
		NaturalLanguage: strings.TrimSpace(l.NaturalLanguage),
	}
}

func micros(s string) *int64 {
	v, err := registrar.ParseMicros(s)
	if err != nil {
		return nil
	}
	return &v
}

func yesNo(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1":
		return true
	default:
		return false
	}
}

func (l Limits) String() string {
	return fmt.Sprintf("%d/%d per %ds", l.Used, l.Limit, l.TTLSeconds)
}
