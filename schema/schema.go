// Package schema has the models and constants shared by all parts of devpulse.
package schema

import "time"

// DateLayout is the calendar-day format used in keys, flags and tables.
const DateLayout = "2006-01-02"

// TruncateDay returns midnight of t in t's location.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
