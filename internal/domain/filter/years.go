package filter

import (
	"strconv"
	"strings"
)

// YearRange renders a year range value. The full supported range, or an
// inverted one, is the wildcard.
func YearRange(from, to, minYear, maxYear int) string {
	if (from == minYear && to == maxYear) || from >= to {
		return Wildcard
	}
	return "[" + strconv.Itoa(from) + " TO " + strconv.Itoa(to) + "]"
}

// ParseYearRange splits "[from TO to]" back into years. The wildcard and
// unparsable bounds fall back to the supported range.
func ParseYearRange(value string, minYear, maxYear int) (from, to int) {
	from, to = minYear, maxYear
	if value == Wildcard {
		return from, to
	}
	raw := strings.Trim(strings.TrimSpace(value), "[]")
	lo, hi, found := strings.Cut(raw, " TO ")
	if !found {
		return from, to
	}
	if v, err := strconv.Atoi(strings.TrimSpace(lo)); err == nil {
		from = v
	}
	if v, err := strconv.Atoi(strings.TrimSpace(hi)); err == nil {
		to = v
	}
	return from, to
}
