package formats

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDocumentExtractBrink(t *testing.T) {
	doc := Document{FileName: "report.pdf", TeamID: "team-1", Text: brinkText}
	ext, err := (&DocumentExtractor{Profile: profileFor(FormatBrink)}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	rec := ext.Data
	if rec.GrossSales != 6018.78 {
		t.Fatalf("gross = %v, want 6018.78", rec.GrossSales)
	}
	if rec.NetSales != 5744.76 {
		t.Fatalf("net = %v, want 5744.76", rec.NetSales)
	}
	if rec.OrderCount != 198 {
		t.Fatalf("orders = %d, want 198", rec.OrderCount)
	}
	pb := rec.PaymentBreakdown
	if pb == nil {
		t.Fatal("payment breakdown missing")
	}
	if pb.TotalCash != 1471.74 || pb.NonCash != 4273.02 || pb.Tips != 91.30 {
		t.Fatalf("payment breakdown = %+v", pb)
	}
	if pb.CalculatedCash != 1471.74-91.30 {
		t.Fatalf("calculated cash = %v", pb.CalculatedCash)
	}
	if rec.Labor == nil || rec.Labor.TotalHours != 82.5 {
		t.Fatalf("labor = %+v", rec.Labor)
	}
	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	if ext.ExtractedDate == nil || !ext.ExtractedDate.Equal(want) {
		t.Fatalf("extracted date = %v", ext.ExtractedDate)
	}
	if ext.Confidence != 100 {
		t.Fatalf("confidence = %v, want 100 with every field present", ext.Confidence)
	}
}

func TestDocumentExtractMissingGross(t *testing.T) {
	doc := Document{FileName: "report.pdf", Text: "Tips: $12.00\nnothing else"}
	_, err := (&DocumentExtractor{Profile: profileFor(FormatBrink)}).Extract(context.Background(), doc)
	if !errors.Is(err, ErrMissingRequiredField) {
		t.Fatalf("err = %v, want ErrMissingRequiredField", err)
	}
}

func TestDocumentExtractFallbackDate(t *testing.T) {
	fallback := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	doc := Document{
		FileName:     "report.pdf",
		FallbackDate: fallback,
		Text:         "Gross Sales: $500.00\nOrder Count: 20",
	}
	ext, err := (&DocumentExtractor{Profile: profileFor(FormatBrink)}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ext.ExtractedDate != nil {
		t.Fatalf("extracted date = %v, want nil", ext.ExtractedDate)
	}
	if !ext.Data.Date.Equal(fallback) {
		t.Fatalf("record date = %v, want fallback %v", ext.Data.Date, fallback)
	}
	if ext.Confidence >= 100 {
		t.Fatalf("confidence = %v, want reduced without date", ext.Confidence)
	}
}

func TestGenericTabularLabelScan(t *testing.T) {
	doc := Document{
		FileName: "daily.csv",
		Rows: [][]string{
			{"Daily Report", "03/14/2025"},
			{"Total Sales", "1250.00"},
			{"Net Sales", "1190.00"},
			{"Orders", "48"},
			{"Cash", "300.00"},
			{"Card", "950.00"},
		},
	}
	ext, err := (&GenericTabularExtractor{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	rec := ext.Data
	if rec.GrossSales != 1250.00 {
		t.Fatalf("gross = %v", rec.GrossSales)
	}
	if rec.NetSales != 1190.00 {
		t.Fatalf("net = %v", rec.NetSales)
	}
	if rec.OrderCount != 48 {
		t.Fatalf("orders = %d", rec.OrderCount)
	}
	if rec.PaymentBreakdown == nil || rec.PaymentBreakdown.TotalCash != 300 || rec.PaymentBreakdown.NonCash != 950 {
		t.Fatalf("payment breakdown = %+v", rec.PaymentBreakdown)
	}
	if ext.ExtractedDate == nil || ext.ExtractedDate.Format("2006-01-02") != "2025-03-14" {
		t.Fatalf("extracted date = %v", ext.ExtractedDate)
	}
}

func TestGenericTabularLargestValueFallback(t *testing.T) {
	doc := Document{
		FileName: "numbers.csv",
		Rows: [][]string{
			{"a", "12.00"},
			{"b", "840.50"},
			{"c", "99.99"},
		},
	}
	ext, err := (&GenericTabularExtractor{}).Extract(context.Background(), doc)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if ext.Data.GrossSales != 840.50 {
		t.Fatalf("gross = %v, want largest value 840.50", ext.Data.GrossSales)
	}
	if ext.Confidence != 60 {
		t.Fatalf("confidence = %v, want 60", ext.Confidence)
	}
}
