package porkbun

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benithors/dotquote/internal/resilience"
	"github.com/benithors/dotquote/internal/serrors"
)

func newTestClient(url string) *Client {
	return NewClient(Options{
		APIKey:        "k",
		SecretAPIKey:  "s",
		BaseURL:       url,
		Timeout:       2 * time.Second,
		MinDelay:      time.Nanosecond,
		MaxConcurrent: 1,
		Retry:         resilience.Policy{Retries: 1, Backoff: time.Millisecond},
	})
}

func TestClient_CheckDomain_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method=%q, want POST", r.Method)
		}
		if !strings.HasPrefix(r.URL.Path, "/domain/checkDomain/") {
			t.Errorf("path=%q, want /domain/checkDomain/...", r.URL.Path)
		}

		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["apikey"] != "k" || body["secretapikey"] != "s" {
			t.Errorf("bad keys in body: %#v", body)
		}

		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{
			"status":"SUCCESS",
			"response":{
				"avail":"yes",
				"price":"10.29",
				"regularPrice":"10.29",
				"premium":"no",
				"minDuration":1,
				"firstYearPromo":"no"
			},
			"limits":{"TTL":"10","limit":"100","used":1,"naturalLanguage":"example"}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	got, err := c.CheckDomain(context.Background(), "example.com")
	if err != nil {
		t.Fatalf("CheckDomain: %v", err)
	}
	if !got.Buyable {
		t.Fatalf("Buyable=false, want true")
	}
	if got.Premium {
		t.Fatalf("Premium=true, want false")
	}
	if got.Price != "10.29" {
		t.Fatalf("Price=%q, want 10.29", got.Price)
	}
	if got.Limits == nil || got.Limits.TTLSeconds != 10 || got.Limits.Limit != 100 || got.Limits.Used != 1 {
		t.Fatalf("Limits=%#v, want parsed", got.Limits)
	}

	// 10s / 100 requests
	c.mu.Lock()
	delay := c.dynamicMinDelay
	c.mu.Unlock()
	if delay != 100*time.Millisecond {
		t.Fatalf("dynamicMinDelay=%v, want 100ms", delay)
	}
}

func TestClient_CheckDomain_ErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ERROR","message":"nope"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).CheckDomain(context.Background(), "example.com")
	if err == nil || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("err=%v, want message", err)
	}
	if !errors.Is(err, serrors.ErrBadRequest) {
		t.Fatalf("err=%v, want BAD_REQUEST", err)
	}
}

func TestClient_DomainPrice(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		avail := "yes"
		if strings.HasSuffix(r.URL.Path, "/google.com") {
			avail = "no"
		}
		_, _ = w.Write([]byte(`{"status":"SUCCESS","response":{"avail":"` + avail + `","price":"39.99"}}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	got, err := c.DomainPrice(context.Background(), "coolstartup.io")
	if err != nil {
		t.Fatalf("DomainPrice: %v", err)
	}
	if got != 39_990_000 {
		t.Fatalf("price=%d, want 39990000", got)
	}

	_, err = c.DomainPrice(context.Background(), "google.com")
	if !errors.Is(err, serrors.ErrNotFound) {
		t.Fatalf("err=%v, want NOT_FOUND", err)
	}
}

func TestClient_FetchPrices_FiltersRequested(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pricing/get" {
			t.Errorf("path=%q, want /pricing/get", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"status":"SUCCESS",
			"pricing":{
				"com":{"registration":"10.29","renewal":"10.29","transfer":"10.29"},
				"io":{"registration":"32.00","renewal":"45.00","transfer":"45.00"},
				"xyz":{"registration":"2.04","renewal":"12.98","transfer":"12.98"},
				"bad":{"registration":"n/a"}
			}
		}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)

	got, err := c.FetchPrices(context.Background(), []string{"io", ".COM"})
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len=%d, want 2 (%v)", len(got), got)
	}
	if got["io"].Registration == nil || *got["io"].Registration != 32_000_000 {
		t.Fatalf("io=%+v, want registration 32000000", got["io"])
	}
	if got["io"].Renewal == nil || *got["io"].Renewal != 45_000_000 {
		t.Fatalf("io renewal=%v, want 45000000", got["io"].Renewal)
	}

	all, err := c.FetchPrices(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchPrices(all): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all)=%d, want 3", len(all))
	}
}

func TestClient_MissingCredentials(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := NewClient(Options{BaseURL: srv.URL})

	_, err := c.FetchPrices(context.Background(), []string{"com"})
	if !errors.Is(err, serrors.ErrConfig) {
		t.Fatalf("err=%v, want CONFIG", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("calls=%d, want 0", calls.Load())
	}
}

func TestClient_RateLimitedIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPrices(context.Background(), nil)
	if !errors.Is(err, serrors.ErrRateLimited) {
		t.Fatalf("err=%v, want RATE_LIMITED", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls=%d, want 1", calls.Load())
	}
}

func TestClient_ServerErrorIsRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"status":"SUCCESS","pricing":{"com":{"registration":"10.29"}}}`))
	}))
	defer srv.Close()

	got, err := newTestClient(srv.URL).FetchPrices(context.Background(), []string{"com"})
	if err != nil {
		t.Fatalf("FetchPrices: %v", err)
	}
	if calls.Load() != 2 || len(got) != 1 {
		t.Fatalf("calls=%d len=%d, want 2 and 1", calls.Load(), len(got))
	}
}

func TestClient_MalformedPayload(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchPrices(context.Background(), nil)
	if !errors.Is(err, serrors.ErrMalformed) {
		t.Fatalf("err=%v, want MALFORMED", err)
	}
}
