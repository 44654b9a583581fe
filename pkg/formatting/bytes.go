// Package formatting renders and parses human-readable byte sizes such as
// upload limits and exported report sizes.
package formatting

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Base-1024 units indexed by exponent.
var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB", "ZB", "YB"}

var bytesPattern = regexp.MustCompile(`^(\d+(?:\.\d*)?)\s*([A-Za-z]*)$`)

// ErrInvalidSize is wrapped by every ParseBytes failure.
var ErrInvalidSize = errors.New("invalid byte size")

// FormatBytes renders n with the largest unit that keeps the value at or
// above one. Negative counts keep their sign; negative precision means zero.
func FormatBytes(n int64, precision int) string {
	if n == 0 {
		return "0 B"
	}
	precision = max(precision, 0)

	sign := ""
	f := float64(n)
	if f < 0 {
		sign = "-"
		f = -f
	}

	exp := 0
	for f >= 1024 && exp < len(units)-1 {
		f /= 1024
		exp++
	}

	return sign + strconv.FormatFloat(f, 'f', precision, 64) + " " + units[exp]
}

// ParseBytes parses sizes such as "20MB", "1.5 gb" or "4096". A bare number
// is a byte count. Values beyond int64 are rejected.
func ParseBytes(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidSize)
	}

	m := bytesPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSize, s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidSize, err)
	}

	exp := 0
	if unit := strings.ToUpper(m[2]); unit != "" {
		exp = slices.Index(units, unit)
		if exp < 0 {
			return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidSize, m[2])
		}
	}

	n := value * math.Pow(1024, float64(exp))
	if n >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %q overflows", ErrInvalidSize, s)
	}
	return int64(n), nil
}
