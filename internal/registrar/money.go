package registrar

import (
	"fmt"
	"math"
	"strings"
)

// MicrosPerUnit is the number of micro-units in one currency unit. Every price
// that leaves a provider client is expressed in micro-units.
const MicrosPerUnit = 1_000_000

// ParseMicros converts a decimal string such as "10.29" or "1,234.5" into
// micro-units without going through floating point.
func ParseMicros(s string) (int64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "$"))
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("negative price %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 6 {
		frac = frac[:6]
	}
	frac += strings.Repeat("0", 6-len(frac))

	var w, f int64
	for _, c := range whole {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		w = w*10 + int64(c-'0')
		if w > math.MaxInt64/MicrosPerUnit {
			return 0, fmt.Errorf("price %q out of range", s)
		}
	}
	for _, c := range frac {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("invalid price %q", s)
		}
		f = f*10 + int64(c-'0')
	}
	return w*MicrosPerUnit + f, nil
}

// FormatMicros renders micro-units as a two-decimal amount, e.g. "12.99".
func FormatMicros(v int64) string {
	cents := (v + 5_000) / 10_000
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
