package sheets

import (
	"strconv"
	"strings"
)

// ParseLenientFloat parses a number out of a spreadsheet cell that may carry
// currency symbols, thousands separators, percent signs, or surrounding
// whitespace ("$1,234.50", "12.5%", "€ 99"). Accounting-style parentheses
// denote negation ("(50)" -> -50).
//
// Returns (0, false) when no number can be recovered. Callers decide whether
// 0 is an acceptable default for their field.
func ParseLenientFloat(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	replacer := strings.NewReplacer(
		"$", "",
		"€", "",
		"£", "",
		"%", "",
		",", "",
		" ", "",
	)
	s = replacer.Replace(s)

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}

	if negative {
		v = -v
	}
	return v, true
}
