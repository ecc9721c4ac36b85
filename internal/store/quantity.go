package store

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/xtxerr/telemetryd/internal/constants"
	"github.com/xtxerr/telemetryd/internal/errors"
)

// Metric is one reported numeric value. Known is false for the unknown
// sentinel: the agent omitted the field or sent something unparseable.
type Metric struct {
	Value float64
	Known bool
}

// Unknown is the zero Metric.
var Unknown = Metric{}

// Gigabytes returns a known size in decimal gigabytes.
func Gigabytes(v float64) Metric {
	return Metric{Value: v, Known: true}
}

// Count returns a known integral count.
func Count(n int) Metric {
	return Metric{Value: float64(n), Known: true}
}

// String renders the metric without a unit.
func (m Metric) String() string {
	if !m.Known {
		return constants.Unknown
	}
	return strconv.FormatFloat(m.Value, 'f', -1, 64)
}

// =============================================================================
// Parsing
// =============================================================================

// ParseGigabytes parses a size such as "120.5 GB", "512 MiB" or a bare
// number (taken as gigabytes) and normalizes it to decimal gigabytes.
// The unknown sentinels parse to Unknown without error.
func ParseGigabytes(s string) (Metric, error) {
	s = strings.TrimSpace(s)
	if constants.IsUnknown(s) {
		return Unknown, nil
	}

	// Bare numbers and plain "GB" are parsed directly so the value
	// survives a format/parse round trip bit for bit.
	num := s
	if lower := strings.ToLower(s); strings.HasSuffix(lower, "gb") {
		num = strings.TrimSpace(s[:len(s)-2])
	}
	if v, err := strconv.ParseFloat(num, 64); err == nil {
		return checkSize(s, v)
	}

	b, err := humanize.ParseBytes(s)
	if err != nil {
		return Unknown, fmt.Errorf("size %q: %w", s, errors.ErrInvalidQuantity)
	}
	return checkSize(s, float64(b)/constants.BytesPerGB)
}

func checkSize(raw string, v float64) (Metric, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return Unknown, fmt.Errorf("size %q out of range: %w", raw, errors.ErrInvalidQuantity)
	}
	return Gigabytes(v), nil
}

// ParseCount parses a non-negative integer such as "8" or "8.0".
// The unknown sentinels parse to Unknown without error.
func ParseCount(s string) (Metric, error) {
	s = strings.TrimSpace(s)
	if constants.IsUnknown(s) {
		return Unknown, nil
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return Count(n), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
		return Unknown, fmt.Errorf("count %q: %w", s, errors.ErrInvalidQuantity)
	}
	return Count(int(v)), nil
}

// =============================================================================
// Formatting
// =============================================================================

// FormatGigabytes renders a size the way agents send it, e.g. "120.5 GB".
func FormatGigabytes(m Metric) string {
	if !m.Known {
		return constants.Unknown
	}
	return m.String() + " " + constants.UnitGB
}

// FormatCount renders a count, e.g. "8".
func FormatCount(m Metric) string {
	return m.String()
}
