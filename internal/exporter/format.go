package exporter

import (
	"fmt"
	"strconv"
	"strings"
)

// formatFloat formats a float64 value for CSV output with exactly 2 decimal places
func formatFloat(f float64) string {
	// Always format with exactly 2 decimal places for consistency
	// This ensures values like 13.4 appear as 13.40 in CSV
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an int64 value for CSV output
func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}

// formatCoordinate formats a latitude or longitude without rounding
func formatCoordinate(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatCurrency renders a dollar amount with thousands separators and two
// decimal places, e.g. 1234567.8 -> $1,234,567.80
func formatCurrency(f float64) string {
	return "$" + groupThousands(fmt.Sprintf("%.2f", f))
}

// formatCount renders an integer with thousands separators, e.g. 1234 -> 1,234
func formatCount(n int) string {
	return groupThousands(strconv.Itoa(n))
}

// groupThousands inserts comma separators into the integer part of an
// already-formatted decimal number, preserving any sign and fraction.
func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign = "-"
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart = s[:dot]
		fracPart = s[dot:]
	}

	if len(intPart) <= 3 {
		return sign + intPart + fracPart
	}

	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(intPart[i : i+3])
	}

	return sign + b.String() + fracPart
}
