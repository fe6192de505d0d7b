package main

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/benithors/dotquote/internal/availability"
	"github.com/benithors/dotquote/internal/pricing"
)

func runWithArgs(args ...string) int {
	old, oldStdin := os.Args, stdin
	defer func() { os.Args, stdin = old, oldStdin }()
	os.Args = append([]string{"dotquote"}, args...)
	stdin = nil
	return run()
}

// Keep these exit codes stable: they matter in scripts/agents.
func TestRun_NoArgs_Exit2(t *testing.T) {
	if got := runWithArgs(); got != 2 {
		t.Fatalf("exit=%d, want 2", got)
	}
}

func TestRun_UnknownCommand_Exit2(t *testing.T) {
	if got := runWithArgs("nope"); got != 2 {
		t.Fatalf("exit=%d, want 2", got)
	}
}

func TestRun_Version_Exit0(t *testing.T) {
	if got := runWithArgs("--version"); got != 0 {
		t.Fatalf("exit=%d, want 0", got)
	}
}

func TestRun_UsageErrors_Exit2(t *testing.T) {
	cases := [][]string{
		{"check", "--json", "--plain", "example.com"},
		{"check", "--format", "json", "--ndjson", "example.com"},
		{"check", "--only", "buyable", "example.com"},
		{"check", "--sort", "random", "example.com"},
		{"check"},
		{"check", "--primary", "namecheap", "example.com"},
		{"check", "--direct", "sometimes", "example.com"},
		{"pricing", "namecheap"},
		{"pricing"},
		{"more"},
	}
	for _, args := range cases {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			if got := runWithArgs(args...); got != 2 {
				t.Fatalf("exit=%d, want 2", got)
			}
		})
	}
}

func TestRun_StrictFailsOnErrorRecords(t *testing.T) {
	// Invalid input never reaches a provider.
	if got := runWithArgs("check", "--plain", "not a domain"); got != 0 {
		t.Fatalf("exit=%d, want 0", got)
	}
	if got := runWithArgs("check", "--plain", "--strict", "not a domain"); got != 1 {
		t.Fatalf("exit=%d, want 1", got)
	}
}

func price(v int64) *int64 { return &v }

func TestSortResults(t *testing.T) {
	t.Parallel()

	results := []result{
		{Record: availability.Record{Domain: "longer-name.com", Available: true, Price: price(20_000_000)}},
		{Record: availability.Record{Domain: "b.io", Error: "timeout"}},
		{Record: availability.Record{Domain: "a.dev", Available: true, Price: price(12_990_000)}},
		{Record: availability.Record{Domain: "c.com"}},
	}

	domains := func() []string {
		out := make([]string, 0, len(results))
		for _, r := range results {
			out = append(out, r.Domain)
		}
		return out
	}

	sortResults(results, "status")
	require.Equal(t, []string{"a.dev", "longer-name.com", "c.com", "b.io"}, domains())

	sortResults(results, "price")
	require.Equal(t, []string{"a.dev", "longer-name.com"}, domains()[:2])

	sortResults(results, "length")
	require.Equal(t, []string{"b.io", "a.dev", "c.com", "longer-name.com"}, domains())

	sortResults(results, "domain")
	require.Equal(t, []string{"a.dev", "b.io", "c.com", "longer-name.com"}, domains())
}

func TestWriteResults(t *testing.T) {
	t.Parallel()

	results := []result{{
		Input: "Example.COM",
		Record: availability.Record{
			Domain:    "example.com",
			Available: true,
			Price:     price(12_990_000),
			Currency:  "USD",
			Providers: map[string]int64{"porkbun": 10_290_000, "godaddy": 12_990_000},
		},
	}}

	var buf bytes.Buffer
	require.NoError(t, writeResults(&buf, formatPlain, results))
	require.Equal(t, "example.com\tavailable\t12.99 USD\tgodaddy=12.99 porkbun=10.29\n", buf.String())

	buf.Reset()
	require.NoError(t, writeResults(&buf, formatNDJSON, results))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Equal(t, "Example.COM", got["input"])
	require.Equal(t, "example.com", got["domain"])

	buf.Reset()
	require.NoError(t, writeResults(&buf, formatTable, results))
	require.True(t, strings.HasPrefix(buf.String(), "DOMAIN"))
}

func TestWritePricing(t *testing.T) {
	t.Parallel()

	rows := priceRows(map[string]pricing.Info{
		"io":  {Registration: price(28_000_000), Currency: "USD"},
		"com": {Registration: price(10_290_000), Renewal: price(10_290_000), Currency: "USD"},
	})
	require.Equal(t, "com", rows[0].Extension)

	var buf bytes.Buffer
	require.NoError(t, writePricing(&buf, formatPlain, rows))
	require.Equal(t, "com\t10.29\t10.29\t-\nio\t28.00\t-\t-\n", buf.String())
}

func TestSplitCommaList(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"com", "ai"}, splitCommaList(" COM, ai,,com "))
	require.Empty(t, splitCommaList(""))
}
