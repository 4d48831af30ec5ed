package formats

import (
	"strconv"
	"strings"
)

// cleanAmount strips currency symbols, thousands separators and wrapping
// parentheses (accounting negatives) from a cell before parsing.
func cleanAmount(raw string) string {
	s := strings.TrimSpace(raw)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", "USD", "", " ", "", " ", "").Replace(s)
	if neg && !strings.HasPrefix(s, "-") {
		s = "-" + s
	}
	return s
}

// parseAmount parses a monetary cell. Empty and dash-only cells parse to
// zero without error.
func parseAmount(raw string) (float64, bool) {
	s := cleanAmount(raw)
	if s == "" || s == "-" || s == "--" {
		return 0, true
	}
	s = strings.TrimSuffix(s, "%")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseCount parses an integer cell, tolerating a trailing ".0" from
// spreadsheet exports.
func parseCount(raw string) (int, bool) {
	v, ok := parseAmount(raw)
	if !ok {
		return 0, false
	}
	return int(v + 0.5), true
}
