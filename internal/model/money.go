package model

import (
	"strconv"
	"strings"
)

// ParseMoney converts a model-reported currency string to whole dollars.
// It tolerates "$", thousands separators, surrounding whitespace, and
// decimal cents (truncated, not rounded). The second return reports
// whether a usable numeric value was present; blank or unparsable input
// yields (0, false).
func ParseMoney(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// FormatMoney renders whole dollars back into the portal's display form,
// e.g. 125000 -> "$125,000".
func FormatMoney(dollars int64) string {
	neg := dollars < 0
	if neg {
		dollars = -dollars
	}
	digits := strconv.FormatInt(dollars, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
