package registrar

import "testing"

func TestParseMicros(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"12.99", 12_990_000, false},
		{"10.29", 10_290_000, false},
		{" $9 ", 9_000_000, false},
		{".5", 500_000, false},
		{"1,234.56", 1_234_560_000, false},
		{"0.1234567", 123_456, false},
		{"", 0, true},
		{"N/A", 0, true},
		{"-1.00", 0, true},
	}

	for _, tc := range cases {
		got, err := ParseMicros(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseMicros(%q): expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseMicros(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParseMicros(%q)=%d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestFormatMicros(t *testing.T) {
	t.Parallel()

	if got := FormatMicros(12_990_000); got != "12.99" {
		t.Fatalf("FormatMicros=%q, want 12.99", got)
	}
	if got := FormatMicros(9_999_999); got != "10.00" {
		t.Fatalf("FormatMicros=%q, want 10.00", got)
	}
}
