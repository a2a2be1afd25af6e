package contract

import (
	"testing"
	"time"
	"unicode/utf8"
)

// FuzzTruncate fuzzes Truncate with random strings and widths.
func FuzzTruncate(f *testing.F) {
	f.Add("[FIX] resolve null pointer in payment service", 20)
	f.Add("", 0)
	f.Add("🐛 emoji first", 4)
	f.Fuzz(func(t *testing.T, s string, width int) {
		out := Truncate(s, width)
		if width > 3 && utf8.RuneCountInString(s) > width && utf8.RuneCountInString(out) != width {
			t.Fatalf("Truncate(%q, %d) = %q", s, width, out)
		}
	})
}

// FuzzParseDate fuzzes ParseDate to make sure it never panics.
func FuzzParseDate(f *testing.F) {
	for _, seed := range []string{"2025-08-19", "today", "3 days ago", "2025-08-19T10:00:00Z", "x"} {
		f.Add(seed)
	}
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	f.Fuzz(func(_ *testing.T, s string) {
		_, _ = ParseDate(s, now)
	})
}
