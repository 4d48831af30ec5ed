package formats

import (
	"testing"
	"time"
)

func TestParseDateLayouts(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"03/14/2025", "2025-03-14"},
		{"3/4/2025", "2025-03-04"},
		{"2025-03-14", "2025-03-14"},
		{"March 14, 2025", "2025-03-14"},
		{"Friday, March 14, 2025", "2025-03-14"},
		{"14-Mar-2025", "2025-03-14"},
	}
	for _, c := range cases {
		got, err := parseDate(c.in)
		if err != nil {
			t.Fatalf("parseDate(%q): %v", c.in, err)
		}
		if got.Format("2006-01-02") != c.want {
			t.Fatalf("parseDate(%q) = %s, want %s", c.in, got.Format("2006-01-02"), c.want)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "Visa", "Gross Sales", "12.50"} {
		if _, err := parseDate(in); err == nil {
			t.Fatalf("parseDate(%q) expected error", in)
		}
	}
}

func TestExcelSerialDate(t *testing.T) {
	cases := []struct {
		serial int
		want   string
	}{
		{59, "1900-02-28"},
		{61, "1900-03-01"},
		{45718, "2025-03-02"},
	}
	for _, c := range cases {
		got := excelSerialDate(c.serial).Format("2006-01-02")
		if got != c.want {
			t.Fatalf("excelSerialDate(%d) = %s, want %s", c.serial, got, c.want)
		}
	}
}

func TestParseDateExcelSerial(t *testing.T) {
	got, err := parseDate("45718")
	if err != nil {
		t.Fatalf("parseDate serial: %v", err)
	}
	want := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestExtractDateFromFilename(t *testing.T) {
	got, ok := extractDateFromFilename("SalesSummary_2025-03-14.csv")
	if !ok {
		t.Fatal("expected a date")
	}
	if got.Format("2006-01-02") != "2025-03-14" {
		t.Fatalf("got %s", got.Format("2006-01-02"))
	}
	if _, ok := extractDateFromFilename("daily_report.csv"); ok {
		t.Fatal("expected no date")
	}
}

func TestExtractDateFromText(t *testing.T) {
	cases := []struct {
		text string
		want string
	}{
		{"Daily Summary\nFriday, March 14, 2025\nGross Sales $1000", "2025-03-14"},
		{"Report for 03/14/2025", "2025-03-14"},
		{"Report 2025-03-14 end of day", "2025-03-14"},
	}
	for _, c := range cases {
		got, ok := extractDateFromText(c.text)
		if !ok {
			t.Fatalf("no date found in %q", c.text)
		}
		if got.Format("2006-01-02") != c.want {
			t.Fatalf("got %s want %s", got.Format("2006-01-02"), c.want)
		}
	}
}
