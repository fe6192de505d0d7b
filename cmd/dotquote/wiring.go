package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/benithors/dotquote/internal/config"
	"github.com/benithors/dotquote/internal/engine"
	"github.com/benithors/dotquote/internal/pricing"
	"github.com/benithors/dotquote/internal/rdap"
	"github.com/benithors/dotquote/internal/registrar"
	"github.com/benithors/dotquote/internal/registrar/dynadot"
	"github.com/benithors/dotquote/internal/registrar/godaddy"
	"github.com/benithors/dotquote/internal/registrar/porkbun"
	"github.com/benithors/dotquote/internal/session"
)

// buildEngine wires one shared session into every provider client.
func buildEngine(cfg *config.Config, concurrency int, ver string) (*engine.Engine, error) {
	direct, err := engine.ParseDirectMode(cfg.DirectLookups)
	if err != nil {
		return nil, err
	}

	sess := session.NewManager(session.Options{
		MaxConns:  cfg.MaxConnections,
		Timeout:   cfg.RequestTimeout,
		UserAgent: "dotquote/" + ver,
	})
	// every provider keeps this client; sess.Close only drains its idle connections
	hc := sess.Client()

	primary, err := buildPrimary(cfg, hc, sess)
	if err != nil {
		return nil, err
	}

	pb := porkbun.NewClient(porkbun.Options{
		APIKey:       cfg.Porkbun.APIKey,
		SecretAPIKey: cfg.Porkbun.SecretAPIKey,
		BaseURL:      cfg.Porkbun.BaseURL,
		HTTP:         hc,
		Timeout:      sess.Timeout(),
	})
	dd := dynadot.NewClient(dynadot.Options{
		APIKey:  cfg.Dynadot.APIKey,
		BaseURL: cfg.Dynadot.BaseURL,
		HTTP:    hc,
		Timeout: sess.Timeout(),
	})

	return engine.New(engine.Options{
		Primary: primary,
		Secondaries: []*pricing.Provider{
			pricing.NewProvider(pb, pricing.NewTable(pb.Name(), nil)),
			pricing.NewProvider(dd, pricing.NewTable(dd.Name(), nil)),
		},
		Session:     sess,
		Direct:      direct,
		Concurrency: concurrency,
	}), nil
}

func buildPrimary(cfg *config.Config, hc *http.Client, sess *session.Manager) (registrar.Primary, error) {
	gd := godaddy.NewClient(godaddy.Options{
		APIKey:    cfg.GoDaddy.APIKey,
		APISecret: cfg.GoDaddy.APISecret,
		BaseURL:   cfg.GoDaddy.BaseURL,
		HTTP:      hc,
		Timeout:   sess.Timeout(),
	})
	rd := rdap.NewRegistry(rdap.Options{
		BootstrapURL: cfg.RDAP.BootstrapURL,
		HTTP:         hc,
		Timeout:      sess.Timeout(),
	})

	switch strings.ToLower(strings.TrimSpace(cfg.PrimaryProvider)) {
	case "", "auto":
		if gd.Configured() {
			return gd, nil
		}
		return rd, nil
	case godaddy.Name:
		return gd, nil
	case rdap.Name:
		return rd, nil
	default:
		return nil, fmt.Errorf("unknown primary provider %q (use auto|godaddy|rdap)", cfg.PrimaryProvider)
	}
}
