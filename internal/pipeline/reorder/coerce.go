package reorder

import (
	"math"
	"strconv"
	"strings"
)

var nullLiterals = map[string]struct{}{
	"NAN":  {},
	"INF":  {},
	"-INF": {},
	"NONE": {},
	"NULL": {},
}

// Coerce turns a spreadsheet cell into a finite number. Anything that cannot
// be read as a number becomes 0.
func Coerce(s string) float64 {
	v := strings.ToUpper(strings.TrimSpace(s))
	if v == "" {
		return 0
	}
	if _, ok := nullLiterals[v]; ok {
		return 0
	}

	v = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		}
		return -1
	}, v)
	v = strings.ReplaceAll(v, ",", ".")
	if v == "" {
		return 0
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// FormatCoerced renders a coerced value in the shortest form Coerce reads
// back unchanged.
func FormatCoerced(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
