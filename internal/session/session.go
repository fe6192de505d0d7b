// Package session owns the pooled HTTP client shared by every provider.
package session

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	DefaultMaxConns = 30
	DefaultTimeout  = 15 * time.Second
	MinTimeout      = 10 * time.Second
	MaxTimeout      = 30 * time.Second
)

type Options struct {
	// MaxConns caps connections per host, idle or active.
	MaxConns int
	// Timeout is the per-call deadline, clamped to [MinTimeout, MaxTimeout].
	Timeout   time.Duration
	UserAgent string

	// Transport overrides the pooled transport (tests).
	Transport http.RoundTripper
}

// Manager lazily builds one *http.Client and hands it out to concurrent
// callers. Providers hold on to that client for their lifetime, so Close
// only releases pooled connections and the client stays usable.
type Manager struct {
	opts Options

	mu        sync.Mutex
	client    *http.Client
	transport *http.Transport
}

func NewManager(opts Options) *Manager {
	if opts.MaxConns <= 0 {
		opts.MaxConns = DefaultMaxConns
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Timeout < MinTimeout {
		opts.Timeout = MinTimeout
	}
	if opts.Timeout > MaxTimeout {
		opts.Timeout = MaxTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "dotquote"
	}
	return &Manager{opts: opts}
}

// Timeout is the effective per-call deadline.
func (m *Manager) Timeout() time.Duration { return m.opts.Timeout }

// Client returns the shared client, creating it if needed.
func (m *Manager) Client() *http.Client {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client != nil {
		return m.client
	}

	var base http.RoundTripper
	if m.opts.Transport != nil {
		base = m.opts.Transport
	} else {
		m.transport = &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			ForceAttemptHTTP2:     true,
			MaxIdleConns:          m.opts.MaxConns,
			MaxIdleConnsPerHost:   m.opts.MaxConns,
			MaxConnsPerHost:       m.opts.MaxConns,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: time.Second,
		}
		base = m.transport
	}

	m.client = &http.Client{
		Timeout:   m.opts.Timeout,
		Transport: &userAgentTransport{next: base, ua: m.opts.UserAgent},
	}
	return m.client
}

// Close releases pooled connections. Safe to call more than once.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.transport != nil {
		m.transport.CloseIdleConnections()
	}
}

type userAgentTransport struct {
	next http.RoundTripper
	ua   string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(r)
}
