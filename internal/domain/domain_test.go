package domain

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"OpenAI.COM", "openai.com", false},
		{" https://OpenAI.COM/ ", "openai.com", false},
		{"openai.com:443", "openai.com", false},
		{"openai.com.", "openai.com", false},
		{"bücher.de", "xn--bcher-kva.de", false},
		{"", "", true},
		{"localhost", "", true},
		{"foo..com", "", true},
		{"-bad.com", "", true},
		{"bad-.com", "", true},
	}

	for _, tc := range cases {
		got, err := Normalize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Normalize(%q): expected error, got none (got=%q)", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Normalize(%q): unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Normalize(%q): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in       string
		wantName string
		wantExt  string
		wantErr  bool
	}{
		{"UniqueName42.COM", "uniquename42", "com", false},
		{"shop.co.uk", "shop", "co.uk", false},
		{"https://startup.io/pricing", "startup", "io", false},
		{"brand.zzznotatld", "brand", "zzznotatld", false},
		{"www.example.com", "", "", true},
		{"co.uk", "co", "uk", false},
		{"nodot", "", "", true},
	}

	for _, tc := range cases {
		q, err := Parse(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("Parse(%q): expected error, got %+v", tc.in, q)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): unexpected error: %v", tc.in, err)
		}
		if q.Name != tc.wantName || q.Extension != tc.wantExt {
			t.Fatalf("Parse(%q)=%+v, want {%s %s}", tc.in, q, tc.wantName, tc.wantExt)
		}
	}
}

func TestNewQuery(t *testing.T) {
	t.Parallel()

	q, err := NewQuery("Example", ".IO")
	if err != nil {
		t.Fatalf("NewQuery: %v", err)
	}
	if q.String() != "example.io" {
		t.Fatalf("String()=%q, want example.io", q.String())
	}
}

func TestExtensions(t *testing.T) {
	t.Parallel()

	got := Extensions([]Query{
		{Name: "a", Extension: "io"},
		{Name: "b", Extension: "com"},
		{Name: "c", Extension: "io"},
	})
	if strings.Join(got, ",") != "com,io" {
		t.Fatalf("Extensions=%v, want [com io]", got)
	}
}

func TestReadLines(t *testing.T) {
	t.Parallel()

	got, err := ReadLines(strings.NewReader("a.com\n\n  b.io  \n# comment\n"))
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	if len(got) != 2 || got[0] != "a.com" || got[1] != "b.io" {
		t.Fatalf("ReadLines=%v", got)
	}
}
