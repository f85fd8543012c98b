package cli

import (
	"fmt"
	"strings"
	"time"
)

// FormatCurrency formats an amount with thousands separators and two
// decimals, e.g. 12345.6 -> "12,345.60".
func FormatCurrency(amount float64) string {
	negative := amount < 0
	if negative {
		amount = -amount
	}

	s := fmt.Sprintf("%.2f", amount)
	parts := strings.SplitN(s, ".", 2)
	intPart, fracPart := parts[0], parts[1]

	var b strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(digit)
	}

	result := b.String() + "." + fracPart
	if negative {
		return "-" + result
	}
	return result
}

// FormatDate renders an epoch-milliseconds timestamp as a local date.
func FormatDate(epochMillis int64) string {
	if epochMillis == 0 {
		return "-"
	}
	return time.UnixMilli(epochMillis).Format("02-Jan-2006")
}

// FormatRR renders an R-multiple with one decimal and an R suffix.
func FormatRR(rr float64) string {
	return fmt.Sprintf("%.1fR", rr)
}

// Truncate shortens a string to max runes, appending an ellipsis.
func Truncate(s string, max int) string {
	if max <= 1 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
