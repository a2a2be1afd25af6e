package contract

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/devpulse/schema"
)

// relativeDateRe captures "N [units] ago", e.g. "3 days ago" or "2 weeks ago".
var relativeDateRe = regexp.MustCompile(`^(\d+)\s+(year|month|week|day)s?\s+ago$`)

// ParseDate accepts YYYY-MM-DD, RFC3339, "today", "yesterday" or "N [units] ago"
// and returns midnight of that day in now's location.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	loc := now.Location()

	switch s {
	case "":
		return time.Time{}, errors.New("empty date")
	case "today":
		return schema.TruncateDay(now), nil
	case "yesterday":
		return schema.TruncateDay(now.AddDate(0, 0, -1)), nil
	}

	if t, err := time.ParseInLocation(schema.DateLayout, s, loc); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, strings.ToUpper(s)); err == nil {
		return schema.TruncateDay(t.In(loc)), nil
	}

	matches := relativeDateRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, RFC3339 or 'N [units] ago'")
	}
	value, _ := strconv.Atoi(matches[1])
	var t time.Time
	switch matches[2] {
	case "year":
		t = now.AddDate(-value, 0, 0)
	case "month":
		t = now.AddDate(0, -value, 0)
	case "week":
		t = now.AddDate(0, 0, -7*value)
	default:
		t = now.AddDate(0, 0, -value)
	}
	return schema.TruncateDay(t), nil
}

// maxAgeRe captures "N [units]" for durations Go cannot parse natively.
var maxAgeRe = regexp.MustCompile(`^(\d+)\s*(week|day|hour|minute)s?$`)

// ParseMaxAge converts strings like "24h" or "2 days" into a time.Duration.
// It first tries time.ParseDuration, then the human-readable form.
func ParseMaxAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseDuration(s); err == nil {
		if d <= 0 {
			return 0, errors.New("duration must be positive")
		}
		return d, nil
	}

	matches := maxAgeRe.FindStringSubmatch(strings.ToLower(s))
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid duration format: %q", s)
	}
	value, _ := strconv.Atoi(matches[1])
	var unit time.Duration
	switch matches[2] {
	case "week":
		unit = 7 * 24 * time.Hour
	case "day":
		unit = 24 * time.Hour
	case "hour":
		unit = time.Hour
	default:
		unit = time.Minute
	}
	if value == 0 {
		return 0, errors.New("duration must be positive")
	}
	return time.Duration(value) * unit, nil
}
