package availability

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func price(v int64) *int64 { return &v }

func TestCache_HitWithinTTL(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	c := NewCache(WithClock(mock))

	c.Put("example.com", Record{Domain: "example.com", Available: true, Price: price(12_990_000)})
	mock.Add(TTL - time.Second)

	got, ok := c.Get("example.com")
	require.True(t, ok)
	require.True(t, got.Available)
	require.Equal(t, int64(12_990_000), *got.Price)
	require.Equal(t, mock.Now().Add(-(TTL - time.Second)), got.FetchedAt)
}

func TestCache_ExpiredIsMissAndEvicted(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	c := NewCache(WithClock(mock))

	c.Put("example.com", Record{Domain: "example.com"})
	mock.Add(TTL)

	_, ok := c.Get("example.com")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())
}

func TestCache_GetHonoursEntryExpiry(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	c := NewCache(WithClock(mock))

	// fetched just now but already past its expiry
	c.entries.Add("early.io", Entry{
		Record:    Record{Domain: "early.io", FetchedAt: mock.Now()},
		ExpiresAt: mock.Now().Add(time.Minute),
	})
	mock.Add(time.Minute)

	_, ok := c.Get("early.io")
	require.False(t, ok)
}

func TestCache_PutOverwritesAndRestampsFetchedAt(t *testing.T) {
	t.Parallel()

	mock := clock.NewMock()
	c := NewCache(WithClock(mock))

	c.Put("a.io", Record{Domain: "a.io", Available: true})
	mock.Add(time.Hour)
	c.Put("a.io", Record{Domain: "a.io", Available: false, FetchedAt: time.Unix(0, 0)})

	got, ok := c.Get("a.io")
	require.True(t, ok)
	require.False(t, got.Available)
	require.Equal(t, mock.Now(), got.FetchedAt)
}

func TestCache_ReturnsCopies(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Put("a.io", Record{Domain: "a.io", Available: true, Providers: map[string]int64{"porkbun": 1}})

	got, _ := c.Get("a.io")
	got.Providers["porkbun"] = 99

	again, _ := c.Get("a.io")
	require.Equal(t, int64(1), again.Providers["porkbun"])
}

func TestCache_ClearAndBound(t *testing.T) {
	t.Parallel()

	c := NewCache(WithMaxEntries(2))
	c.Put("a.com", Record{Domain: "a.com"})
	c.Put("b.com", Record{Domain: "b.com"})
	c.Put("c.com", Record{Domain: "c.com"})
	require.Equal(t, 2, c.Len())

	_, ok := c.Get("a.com")
	require.False(t, ok, "oldest entry should have been evicted")

	c.Clear()
	require.Equal(t, 0, c.Len())
}
