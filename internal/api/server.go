// Package api exposes the engine over HTTP/JSON for collaborators that do
// not link it directly.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benithors/dotquote/internal/availability"
	"github.com/benithors/dotquote/internal/config"
	"github.com/benithors/dotquote/internal/pricing"
)

// Checker is the slice of the engine the API serves.
type Checker interface {
	CheckMultiple(ctx context.Context, domains []string) map[string]availability.Record
	Lookup(ctx context.Context, name, extension string) (availability.Record, error)
	CheckMoreExtensions(ctx context.Context, name string, already []string) map[string]availability.Record
	Pricing(ctx context.Context, provider string, extensions ...string) (map[string]pricing.Info, error)
}

// Options holds the HTTP server settings. Zero durations fall back to the
// net/http defaults.
type Options struct {
	Addr              string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	// MaxBatch caps the domains accepted by one POST /v1/check.
	MaxBatch    int
	MetricsPath string
}

func NewOptions(cfg *config.Config) Options {
	return Options{
		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		MaxBatch:          cfg.HTTP.MaxBatch,
		MetricsPath:       cfg.HTTP.MetricsPath,
	}
}

// NewHandler builds the routed handler wrapped in the access-log middleware.
func NewHandler(checker Checker, opts Options) http.Handler {
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.MaxBatch <= 0 {
		opts.MaxBatch = 5000
	}

	h := &handler{checker: checker, maxBatch: opts.MaxBatch}

	mux := http.NewServeMux()
	mux.Handle("GET "+opts.MetricsPath, promhttp.Handler())
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST /v1/check", h.checkMultiple)
	mux.HandleFunc("GET /v1/check/{name}/{extension}", h.checkSingle)
	mux.HandleFunc("GET /v1/more/{name}", h.more)
	mux.HandleFunc("GET /v1/pricing/{provider}", h.pricing)

	return WithLogger(mux)
}

func NewServer(checker Checker, opts Options) *http.Server {
	return &http.Server{
		Addr:              opts.Addr,
		Handler:           NewHandler(checker, opts),
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}
}
