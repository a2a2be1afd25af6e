package tags

// DayType classifies the dominant activity of a day.
type DayType struct {
	Name        string
	Description string
	Multiplier  float64
	Icon        string
	match       func(pct map[string]float64) bool
}

// Matches reports whether the rule accepts the given tag percentages.
func (d DayType) Matches(pct map[string]float64) bool {
	return d.match(pct)
}

// MixedDayType is the catch-all rule and the value for empty days.
var MixedDayType = DayType{
	Name:        "MIXED",
	Description: "Mixed Activities",
	Multiplier:  1.0,
	Icon:        "📦",
	match:       func(map[string]float64) bool { return true },
}

// DayTypes is evaluated in order and the first match wins.
var DayTypes = []DayType{
	{
		Name:        "REFACTORING",
		Description: "Debt Repayment Day",
		Multiplier:  1.5,
		Icon:        "🔧",
		match:       func(p map[string]float64) bool { return p["REFACTOR"] > 20 || p["FIX"] > 50 },
	},
	{
		Name:        "BUG_FIXING",
		Description: "Bug Extermination Day",
		Multiplier:  1.3,
		Icon:        "🐛",
		match:       func(p map[string]float64) bool { return p["FIX"] > 40 && p["FIX"] <= 50 },
	},
	{
		Name:        "FEATURE_DEV",
		Description: "Feature Building Day",
		Multiplier:  1.0,
		Icon:        "✨",
		match:       func(p map[string]float64) bool { return p["FEAT"] > 50 },
	},
	{
		Name:        "TESTING",
		Description: "Quality Assurance Day",
		Multiplier:  1.1,
		Icon:        "🧪",
		match:       func(p map[string]float64) bool { return p["TEST"] > 40 },
	},
	{
		Name:        "MAINTENANCE",
		Description: "Maintenance Day",
		Multiplier:  0.8,
		Icon:        "🔨",
		match:       func(p map[string]float64) bool { return p["CHORE"] > 40 },
	},
	MixedDayType,
}

// Percentages converts a tag histogram into per-tag shares of 100.
func Percentages(histogram map[string]int) map[string]float64 {
	total := 0
	for _, n := range histogram {
		total += n
	}
	pct := make(map[string]float64, len(histogram))
	if total == 0 {
		return pct
	}
	for tag, n := range histogram {
		pct[tag] = float64(n) / float64(total) * 100
	}
	return pct
}

// ClassifyDayType returns the first day type whose rule matches the histogram.
func ClassifyDayType(histogram map[string]int) DayType {
	pct := Percentages(histogram)
	if len(pct) == 0 {
		return MixedDayType
	}
	for _, dt := range DayTypes {
		if dt.Matches(pct) {
			return dt
		}
	}
	return MixedDayType
}

// LookupDayType returns the day type with the given name, or MIXED.
func LookupDayType(name string) DayType {
	for _, dt := range DayTypes {
		if dt.Name == name {
			return dt
		}
	}
	return MixedDayType
}
