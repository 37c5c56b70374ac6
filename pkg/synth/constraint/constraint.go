// Package constraint extracts numeric ranges, option lists and date ranges from the
// free-form constraint text attached to a field.
//
// Parsing is best effort. Nothing here returns an error: text that does not match, or
// matches but cannot be converted, resolves to the documented default.
package constraint

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// DefaultDateSpan is the width of the date range used when no range can be parsed.
const DefaultDateSpan = 5 * 365 * 24 * time.Hour

var (
	numericRangeRe = regexp.MustCompile(`(?i)between\s+(-?[\d.]+)\s+and\s+(-?[\d.]+)`)
	optionsRe      = regexp.MustCompile(`(?i)(options|categories):\s*(.+)`)
	dateRangeRe    = regexp.MustCompile(`(?i)between\s+([\w\s,/:.-]+?)\s+and\s+([\w\s,/:.-]+)`)
)

// NumericRange parses "between <num> and <num>". The bounds are returned in the order
// they appear in the text; an inverted range is not corrected here.
func NumericRange(s string, defMin, defMax float64) (min, max float64) {
	m := numericRangeRe.FindStringSubmatch(s)
	if m == nil {
		return defMin, defMax
	}
	lo, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return defMin, defMax
	}
	hi, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return defMin, defMax
	}
	return lo, hi
}

// HasOptions reports whether s declares an "options:" list.
func HasOptions(s string) bool {
	return strings.Contains(strings.ToLower(s), "options:")
}

// HasCategories reports whether s declares a "categories:" list.
func HasCategories(s string) bool {
	return strings.Contains(strings.ToLower(s), "categories:")
}

// Options returns the comma-separated items following "options:" or "categories:",
// trimmed, in listed order. Empty items are dropped. No match returns nil.
func Options(s string) []string {
	m := optionsRe.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	parts := strings.Split(m[2], ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// DateRange parses "between <date> and <date>" using a lenient date parser. If either
// side cannot be parsed the range is [now-DefaultDateSpan, now].
func DateRange(s string, now time.Time) (start, end time.Time) {
	defStart, defEnd := now.Add(-DefaultDateSpan), now

	m := dateRangeRe.FindStringSubmatch(s)
	if m == nil {
		return defStart, defEnd
	}
	start, ok := parseDate(m[1], now.Location())
	if !ok {
		return defStart, defEnd
	}
	end, ok = parseDate(m[2], now.Location())
	if !ok {
		return defStart, defEnd
	}
	return start, end
}

func parseDate(raw string, loc *time.Location) (t time.Time, ok bool) {
	raw = strings.Trim(strings.TrimSpace(raw), ".,")
	if raw == "" {
		return time.Time{}, false
	}
	// dateparse panics on a handful of malformed inputs.
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()
	if loc == nil {
		loc = time.UTC
	}
	parsed, err := dateparse.ParseIn(raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
