package rdap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benithors/dotquote/internal/resilience"
	"github.com/benithors/dotquote/internal/serrors"
)

func TestParseBootstrap(t *testing.T) {
	t.Parallel()

	b, err := parseBootstrap([]byte(`{
  "services": [
    [["com"], ["https://rdap.example/"]],
    [["de","io"], ["https://rdap.one/","https://rdap.two/","https://rdap.one/"]]
  ]
}`))
	if err != nil {
		t.Fatalf("parseBootstrap: %v", err)
	}

	if got := b.urlsForTLD("com"); len(got) != 1 || got[0] != "https://rdap.example/" {
		t.Fatalf("urlsForTLD(com)=%v", got)
	}
	if got := b.urlsForTLD("DE"); len(got) != 2 {
		t.Fatalf("urlsForTLD(de)=%v", got)
	}
}

// newRegistryServer serves a bootstrap pointing every tld at itself. Domains
// starting with "free" are available, "flaky" ones fail with 503.
func newRegistryServer(t *testing.T, bootstraps *atomic.Int32) *httptest.Server {
	t.Helper()
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bootstrap.json" {
			bootstraps.Add(1)
			_, _ = fmt.Fprintf(w, `{"services":[[["com","io"],["%s/"]]]}`, srv.URL)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/domain/")
		switch {
		case strings.HasPrefix(name, "free"):
			w.WriteHeader(http.StatusNotFound)
		case strings.HasPrefix(name, "flaky"):
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			_, _ = w.Write([]byte(`{"objectClassName":"domain"}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRegistry(srv *httptest.Server) *Registry {
	return NewRegistry(Options{
		BootstrapURL: srv.URL + "/bootstrap.json",
		Retry:        resilience.Policy{Retries: 1, Backoff: time.Millisecond},
	})
}

func TestRegistry_CheckSingle(t *testing.T) {
	t.Parallel()

	var bootstraps atomic.Int32
	r := newTestRegistry(newRegistryServer(t, &bootstraps))
	ctx := context.Background()

	if got := r.CheckSingle(ctx, "freename.io"); got.Err != nil || !got.Available {
		t.Fatalf("freename.io=%+v, want available", got)
	}
	if got := r.CheckSingle(ctx, "google.com"); got.Err != nil || got.Available {
		t.Fatalf("google.com=%+v, want taken", got)
	}
	if got := r.CheckSingle(ctx, "flaky.com"); !serrorsIs(got.Err, serrors.ErrUnavailable) {
		t.Fatalf("flaky.com err=%v, want UNAVAILABLE", got.Err)
	}
	if got := r.CheckSingle(ctx, "name.zz"); !serrorsIs(got.Err, serrors.ErrNotFound) {
		t.Fatalf("name.zz err=%v, want NOT_FOUND", got.Err)
	}
	if n := bootstraps.Load(); n != 1 {
		t.Fatalf("bootstrap fetched %d times, want 1", n)
	}
}

func TestRegistry_CheckBulk(t *testing.T) {
	t.Parallel()

	var bootstraps atomic.Int32
	r := newTestRegistry(newRegistryServer(t, &bootstraps))

	domains := []string{"free1.com", "free2.io", "taken.com", "flaky.io", "bad"}
	got := r.CheckBulk(context.Background(), domains)

	if len(got) != len(domains) {
		t.Fatalf("len=%d, want %d", len(got), len(domains))
	}
	if !got["free1.com"].Available || !got["free2.io"].Available {
		t.Fatalf("free domains not available: %+v", got)
	}
	if got["taken.com"].Available || got["taken.com"].Err != nil {
		t.Fatalf("taken.com=%+v", got["taken.com"])
	}
	if got["flaky.io"].Err == nil || got["bad"].Err == nil {
		t.Fatalf("want errors for flaky.io and bad: %+v", got)
	}
}

func serrorsIs(err error, k serrors.Kind) bool {
	return err != nil && serrors.KindOf(err) == k
}

type panicTransport struct{}

func (panicTransport) RoundTrip(*http.Request) (*http.Response, error) {
	panic("transport exploded")
}

func TestCheckBulkRecoversPanics(t *testing.T) {
	t.Parallel()

	r := NewRegistry(Options{
		BootstrapURL: "http://bootstrap.invalid/dns.json",
		HTTP:         &http.Client{Transport: panicTransport{}},
		Retry:        resilience.Policy{Retries: 1, Backoff: time.Millisecond},
	})

	got := r.CheckBulk(context.Background(), []string{"a.com", "b.io"})
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2", len(got))
	}
	for d, a := range got {
		if !serrorsIs(a.Err, serrors.ErrInternal) {
			t.Fatalf("%s err=%v, want INTERNAL", d, a.Err)
		}
	}
}
