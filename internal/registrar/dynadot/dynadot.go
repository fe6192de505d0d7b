// Package dynadot is the Dynadot pricing source. Dynadot has no price table
// endpoint, so tables are built by searching one throwaway label per extension.
package dynadot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/benithors/dotquote/internal/domain"
	"github.com/benithors/dotquote/internal/logger"
	"github.com/benithors/dotquote/internal/pricing"
	"github.com/benithors/dotquote/internal/registrar"
	"github.com/benithors/dotquote/internal/resilience"
	"github.com/benithors/dotquote/internal/serrors"
)

const (
	Name           = "dynadot"
	defaultBaseURL = "https://api.dynadot.com"

	// MaxSearchSize is the number of domainN parameters accepted per search.
	MaxSearchSize = 100
)

// DefaultExtensions are probed when a full table is requested.
var DefaultExtensions = []string{"com", "net", "org", "io", "ai", "app", "dev", "tech"} //nolint: gochecknoglobals

var (
	registrationRe = regexp.MustCompile(`(?i)registration price:\s*(\d+(?:\.\d+)?)`)
	renewalRe      = regexp.MustCompile(`(?i)renewal price:\s*(\d+(?:\.\d+)?)`)
	anyUSDRe       = regexp.MustCompile(`(\d+\.\d+)\s*USD`)
)

type Options struct {
	APIKey  string
	BaseURL string
	HTTP    *http.Client
	Timeout time.Duration

	// MaxConcurrent bounds parallel search requests.
	MaxConcurrent int
	Retry         resilience.Policy

	// Label returns a random second-level label for table probes.
	Label func() string
}

type Client struct {
	opts Options
	http *http.Client
}

func NewClient(opts Options) *Client {
	opts.APIKey = strings.TrimSpace(opts.APIKey)
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 2
	}
	if opts.Retry.Retries == 0 && opts.Retry.Backoff == 0 {
		opts.Retry = resilience.Policy{Retries: 2, Backoff: 100 * time.Millisecond}
	}
	if opts.Label == nil {
		opts.Label = func() string {
			return "dq" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
		}
	}

	hc := opts.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{opts: opts, http: hc}
}

func (c *Client) Name() string { return Name }

// SearchResult is Dynadot's answer for one domain. Prices are nil when the
// domain is taken or the price string did not parse.
type SearchResult struct {
	Domain       string
	Available    bool
	Registration *int64
	Renewal      *int64
}

// FetchPrices probes a random label under each extension and reads the
// quoted registration and renewal prices.
func (c *Client) FetchPrices(ctx context.Context, extensions []string) (map[string]pricing.Info, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}

	probes := make([]string, 0, len(extensions))
	extOf := make(map[string]string, len(extensions))
	for _, e := range extensions {
		ext := domain.NormalizeExtension(e)
		if ext == "" {
			continue
		}
		probe := c.opts.Label() + "." + ext
		probes = append(probes, probe)
		extOf[probe] = ext
	}

	results, err := c.Search(ctx, probes)
	if err != nil {
		return nil, err
	}

	out := make(map[string]pricing.Info, len(results))
	for _, r := range results {
		ext, ok := extOf[r.Domain]
		if !ok || !r.Available || r.Registration == nil {
			continue
		}
		out[ext] = pricing.Info{Registration: r.Registration, Renewal: r.Renewal, Currency: "USD"}
	}
	return out, nil
}

// DomainPrice searches the domain itself. Taken or unpriced domains report
// serrors.ErrNotFound.
func (c *Client) DomainPrice(ctx context.Context, name string) (int64, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	results, err := c.Search(ctx, []string{name})
	if err != nil {
		return 0, err
	}
	for _, r := range results {
		if r.Domain == name && r.Available && r.Registration != nil {
			return *r.Registration, nil
		}
	}
	return 0, serrors.With(serrors.ErrNotFound, "dynadot: no price for %s", name)
}

// Search looks up domains in batches of MaxSearchSize. A failed batch fails
// the whole call.
func (c *Client) Search(ctx context.Context, domains []string) ([]SearchResult, error) {
	if c.opts.APIKey == "" {
		return nil, serrors.With(serrors.ErrConfig, "dynadot: missing api key (set DYNADOT_API_KEY)")
	}

	var batches [][]string
	for start := 0; start < len(domains); start += MaxSearchSize {
		end := min(start+MaxSearchSize, len(domains))
		batches = append(batches, domains[start:end])
	}

	out := make([][]SearchResult, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxConcurrent)
	for i, batch := range batches {
		g.Go(func() error {
			res, err := c.search(gctx, batch)
			out[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var flat []SearchResult
	for _, res := range out {
		flat = append(flat, res...)
	}
	return flat, nil
}

func (c *Client) search(ctx context.Context, batch []string) ([]SearchResult, error) {
	q := url.Values{}
	q.Set("key", c.opts.APIKey)
	q.Set("command", "search")
	q.Set("show_price", "1")
	q.Set("currency", "USD")
	for i, d := range batch {
		q.Set("domain"+strconv.Itoa(i), d)
	}
	u := strings.TrimRight(c.opts.BaseURL, "/") + "/api3.json?" + q.Encode()

	var decoded searchResponse
	err := c.opts.Retry.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return serrors.Wrap(serrors.ErrInternal, err, "dynadot: build request")
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			// the URL carries the api key
			return resilience.Tag(stripURL(err), "dynadot: search")
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return resilience.Tag(err, "dynadot: read body")
		}
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return serrors.With(serrors.ErrRateLimited, "dynadot: http %d", resp.StatusCode)
		case resp.StatusCode >= 500:
			return serrors.With(serrors.ErrUnavailable, "dynadot: http %d", resp.StatusCode)
		case resp.StatusCode != http.StatusOK:
			return serrors.With(serrors.ErrBadRequest, "dynadot: http %d", resp.StatusCode)
		}

		decoded = searchResponse{}
		if err := json.Unmarshal(b, &decoded); err != nil {
			return serrors.Wrap(serrors.ErrMalformed, err, "dynadot: decode error")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sr := decoded.SearchResponse
	if code := strings.TrimSpace(sr.ResponseCode); code != "" && code != "0" {
		msg := strings.TrimSpace(sr.Error)
		if msg == "" {
			msg = "response code " + code
		}
		return nil, serrors.With(serrors.ErrBadRequest, "dynadot: %s", msg)
	}

	results := make([]SearchResult, 0, len(sr.SearchResults))
	for _, r := range sr.SearchResults {
		res := SearchResult{
			Domain:    strings.ToLower(strings.TrimSpace(r.DomainName)),
			Available: strings.EqualFold(strings.TrimSpace(r.Available), "yes"),
		}
		if res.Available {
			res.Registration, res.Renewal = ParsePrice(r.Price)
			if res.Registration == nil && r.Price != "" {
				logger.Warn(ctx, "dynadot: no price pattern matched",
					zap.String("domain", res.Domain), zap.String("price", r.Price))
			}
		}
		results = append(results, res)
	}
	return results, nil
}

// ParsePrice reads the registration and renewal amounts out of Dynadot's
// free-text price, e.g. "Registration Price: 10.86 in USD and Renewal price:
// 10.86 in USD and Domain is not a Premium Domain".
func ParsePrice(s string) (registration, renewal *int64) {
	if m := registrationRe.FindStringSubmatch(s); m != nil {
		registration = parse(m[1])
	} else if m := anyUSDRe.FindStringSubmatch(s); m != nil {
		registration = parse(m[1])
	}
	if m := renewalRe.FindStringSubmatch(s); m != nil {
		renewal = parse(m[1])
	}
	return registration, renewal
}

func parse(s string) *int64 {
	v, err := registrar.ParseMicros(s)
	if err != nil {
		return nil
	}
	return &v
}

func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

type searchResponse struct {
	SearchResponse struct {
		ResponseCode  string `json:"ResponseCode"`
		Error         string `json:"Error"`
		SearchResults []struct {
			DomainName string `json:"DomainName"`
			Available  string `json:"Available"`
			Price      string `json:"Price"`
		} `json:"SearchResults"`
	} `json:"SearchResponse"`
}
