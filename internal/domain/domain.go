package domain

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"net/url"
	"sort"
	"strings"

	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// Query is a registrable name under one extension, e.g. {"example", "co.uk"}.
// Both parts are lowercase ASCII; build it with NewQuery or Parse.
type Query struct {
	Name      string
	Extension string
}

// NewQuery builds a Query from a bare name and extension. A leading dot on the
// extension is tolerated.
func NewQuery(name, extension string) (Query, error) {
	ext := strings.TrimPrefix(strings.TrimSpace(extension), ".")
	return Parse(strings.TrimSpace(name) + "." + ext)
}

// Parse normalizes input and splits it into name and extension. The extension
// is the public suffix of the domain, so "shop.co.uk" yields {"shop", "co.uk"}.
// Subdomains are rejected: "www.example.com" is not a registrable name.
func Parse(input string) (Query, error) {
	ascii, err := Normalize(input)
	if err != nil {
		return Query{}, err
	}

	ext := Extension(ascii)
	name := strings.TrimSuffix(ascii, "."+ext)
	if name == "" || name == ascii {
		return Query{}, fmt.Errorf("no registrable name in %q", input)
	}
	if strings.Contains(name, ".") {
		return Query{}, fmt.Errorf("%q is a subdomain, not a registrable name", input)
	}
	return Query{Name: name, Extension: ext}, nil
}

// String returns the full domain.
func (q Query) String() string {
	return q.Name + "." + q.Extension
}

// Extension returns the extension of an already normalized domain. It prefers
// the ICANN public suffix and falls back to the last label for unlisted ones.
func Extension(ascii string) string {
	ascii = strings.ToLower(strings.TrimSuffix(ascii, "."))
	if suffix, icann := publicsuffix.PublicSuffix(ascii); icann && suffix != ascii {
		return suffix
	}
	i := strings.LastIndexByte(ascii, '.')
	if i < 0 || i == len(ascii)-1 {
		return ""
	}
	return ascii[i+1:]
}

// Extensions returns the sorted unique extensions of qs.
func Extensions(qs []Query) []string {
	seen := make(map[string]struct{}, len(qs))
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		if _, ok := seen[q.Extension]; ok {
			continue
		}
		seen[q.Extension] = struct{}{}
		out = append(out, q.Extension)
	}
	sort.Strings(out)
	return out
}

// NormalizeExtension lowercases an extension and strips a leading dot.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// Normalize attempts to turn user input into an ASCII domain name suitable for
// registrar lookups.
//
// It is permissive for agent/human inputs (allows URLs, strips paths, strips
// port). It returns an error if the remaining value is not a valid domain name.
func Normalize(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", fmt.Errorf("empty domain")
	}

	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil && u.Host != "" {
			s = u.Host
		}
	}

	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}

	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	} else if i := strings.LastIndexByte(s, ':'); i > 0 && i < len(s)-1 && isAllDigits(s[i+1:]) {
		// net.SplitHostPort is strict; handle the common "example.com:443" case.
		s = s[:i]
	}

	s = strings.ToLower(strings.TrimSpace(strings.TrimSuffix(s, ".")))
	if s == "" {
		return "", fmt.Errorf("empty domain")
	}

	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("idna: %w", err)
	}

	// Single-label names are not registrable domains.
	if !strings.Contains(ascii, ".") {
		return "", fmt.Errorf("domain must contain a dot: %q", input)
	}
	if !isValidDomainASCII(ascii) {
		return "", fmt.Errorf("invalid domain: %q", input)
	}
	return ascii, nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ReadLines returns the non-blank trimmed lines of r.
func ReadLines(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	var out []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func isValidDomainASCII(s string) bool {
	if len(s) > 253 {
		return false
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) < 1 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for i := 0; i < len(label); i++ {
			c := label[i]
			if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' {
				continue
			}
			return false
		}
	}
	return true
}
