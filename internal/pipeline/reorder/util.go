package reorder

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// roundFloat rounds v to the given number of decimal places.
func roundFloat(v float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(v)
	}

	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}

// roundCost rounds a money amount half away from zero to 2 decimals.
func roundCost(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// toInt truncates toward zero; non-finite and out of range values become 0.
func toInt(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= 1<<62 {
		return 0
	}
	return int(v)
}

// formatIDFloat formats a float using Indonesian locale conventions:
// thousands separator as dot and decimal separator as comma.
// When the fractional part is zero after rounding, the decimal part is omitted.
// Example: 1234.5 (2 decimals) => "1.234,50"; 1000.0 => "1.000".
func formatIDFloat(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}

	d := decimal.NewFromFloat(finiteOrZero(v)).Round(int32(decimals))
	if d.IsZero() {
		return "0"
	}
	prefix := ""
	if d.IsNegative() {
		prefix = "-"
		d = d.Abs()
	}

	// Exact at any magnitude.
	fixed := d.StringFixed(int32(decimals))
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	s := groupThousands(intPart)

	if strings.Trim(fracPart, "0") == "" {
		return prefix + s
	}
	return fmt.Sprintf("%s%s,%s", prefix, s, fracPart)
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// formatCommaDecimal writes v without grouping, comma as decimal separator.
func formatCommaDecimal(v float64) string {
	return strings.Replace(strconv.FormatFloat(roundFloat(finiteOrZero(v), 2), 'f', -1, 64), ".", ",", 1)
}
