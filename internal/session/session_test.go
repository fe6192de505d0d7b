package session

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewManager_Defaults(t *testing.T) {
	t.Parallel()

	m := NewManager(Options{})
	require.Equal(t, DefaultTimeout, m.Timeout())
	require.Equal(t, DefaultMaxConns, m.opts.MaxConns)

	require.Equal(t, MinTimeout, NewManager(Options{Timeout: time.Second}).Timeout())
	require.Equal(t, MaxTimeout, NewManager(Options{Timeout: time.Minute}).Timeout())
}

func TestManager_ClientIsShared(t *testing.T) {
	t.Parallel()

	m := NewManager(Options{MaxConns: 4})

	var wg sync.WaitGroup
	clients := make([]*http.Client, 16)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			clients[i] = m.Client()
		}(i)
	}
	wg.Wait()

	for _, c := range clients {
		require.Same(t, clients[0], c)
	}
	require.Equal(t, 4, m.transport.MaxConnsPerHost)
}

func TestManager_CloseKeepsHandedOutClientUsable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	m := NewManager(Options{})
	held := m.Client()

	get := func() {
		resp, err := held.Get(srv.URL)
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		require.NoError(t, resp.Body.Close())
	}
	get()

	m.Close()
	m.Close()

	require.Same(t, held, m.Client())
	get()
}

func TestManager_SetsUserAgent(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.UserAgent()))
	}))
	defer srv.Close()

	m := NewManager(Options{UserAgent: "dotquote-test"})
	defer m.Close()

	resp, err := m.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "dotquote-test", string(b))
}
