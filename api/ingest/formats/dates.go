package formats

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Report exports disagree on date layouts, so parseDate walks a fixed list.
// US POS vendors write MM/DD/YYYY, so that family comes first.
var dateLayouts = []string{
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"2006-01-02",
	"2006/01/02",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Monday, January 2, 2006",
	"Mon, Jan 2, 2006",
	"02-Jan-2006",
	"02-Jan-06",
}

func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if serial, ok := parseAmount(s); ok && serial > 20000 && serial < 80000 {
		return excelSerialDate(int(serial)), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// excelSerialDate converts an Excel 1900-epoch serial day number. Excel
// counts the nonexistent 1900-02-29, so serials below day 60 sit one day
// behind the 1899-12-30 base.
func excelSerialDate(serial int) time.Time {
	base := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	if serial < 60 {
		serial++
	}
	return base.AddDate(0, 0, serial)
}

var (
	filenameDateRe = regexp.MustCompile(`SalesSummary_(\d{4}-\d{2}-\d{2})`)
	longDateRe     = regexp.MustCompile(`(?i)(?:Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday),?\s+(January|February|March|April|May|June|July|August|September|October|November|December)\s+(\d{1,2}),?\s+(\d{4})`)
	slashDateRe    = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
)

// extractDateFromFilename picks the business date out of vendor export names
// like SalesSummary_2025-03-14.csv.
func extractDateFromFilename(name string) (time.Time, bool) {
	m := filenameDateRe.FindStringSubmatch(name)
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", m[1])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// extractDateFromText scans report text for a business date, preferring the
// spelled-out form vendors put in report headers.
func extractDateFromText(text string) (time.Time, bool) {
	if m := longDateRe.FindStringSubmatch(text); m != nil {
		t, err := time.Parse("January 2 2006", fmt.Sprintf("%s %s %s", m[1], m[2], m[3]))
		if err == nil {
			return t, true
		}
	}
	if m := slashDateRe.FindStringSubmatch(text); m != nil {
		t, err := time.Parse("1/2/2006", fmt.Sprintf("%s/%s/%s", m[1], m[2], m[3]))
		if err == nil {
			return t, true
		}
	}
	if m := isoDateRe.FindStringSubmatch(text); m != nil {
		t, err := time.Parse("2006-01-02", m[0])
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
