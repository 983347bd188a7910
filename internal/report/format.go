package report

import (
	"fmt"
	"strings"
	"time"
)

// FormatCurrency renders a value in the Brazilian convention: thousands
// separated by dots, decimals by comma ("R$ 1.234,56").
func FormatCurrency(value float64) string {
	s := fmt.Sprintf("%.2f", value)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	parts := strings.SplitN(s, ".", 2)
	integer, decimals := parts[0], parts[1]

	var b strings.Builder
	for i, digit := range integer {
		if i > 0 && (len(integer)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(digit)
	}

	sign := ""
	if negative {
		sign = "-"
	}
	return fmt.Sprintf("R$ %s%s,%s", sign, b.String(), decimals)
}

// FormatPercent renders a percentage with two decimal places.
func FormatPercent(value float64) string {
	return fmt.Sprintf("%.2f%%", value)
}

// FormatShortDate renders a date in the Brazilian dd/mm/yyyy convention.
// Nil dates render empty.
func FormatShortDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006")
}

// FormatMonth renders a month as mm/yyyy.
func FormatMonth(t time.Time) string {
	return t.Format("01/2006")
}
