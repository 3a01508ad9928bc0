package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// AmountRange is an inclusive amount interval. A nil bound means
// unbounded on that side.
type AmountRange struct {
	Min *float64
	Max *float64
}

// Contains reports whether v falls within the range, inclusive on both
// bounds.
func (r AmountRange) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// ParseAmountRange parses a "min-max" encoded range. Either bound may
// be empty, meaning unbounded on that side. Amounts are stored as
// non-negative magnitudes, so the separator is unambiguous.
func ParseAmountRange(s string) (AmountRange, error) {
	minPart, maxPart, found := strings.Cut(s, "-")
	if !found {
		return AmountRange{}, fmt.Errorf("amount range %q: missing %q separator", s, "-")
	}

	var r AmountRange
	if strings.TrimSpace(minPart) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(minPart), 64)
		if err != nil {
			return AmountRange{}, fmt.Errorf("amount range %q: invalid minimum: %w", s, err)
		}
		r.Min = &v
	}
	if strings.TrimSpace(maxPart) != "" {
		v, err := strconv.ParseFloat(strings.TrimSpace(maxPart), 64)
		if err != nil {
			return AmountRange{}, fmt.Errorf("amount range %q: invalid maximum: %w", s, err)
		}
		r.Max = &v
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return AmountRange{}, fmt.Errorf("amount range %q: minimum exceeds maximum", s)
	}
	return r, nil
}
