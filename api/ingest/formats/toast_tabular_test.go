package formats

import (
	"context"
	"testing"
	"time"
)

func toastRows() [][]string {
	return [][]string{
		{"SalesSummary_2025-03-14"},
		{"Main Street Grill"},
		{},
		{"Net Sales Summary"},
		{"Gross Sales", "6018.78"},
		{"Net Sales", "5744.76"},
		{"Orders", "198"},
		{},
		{"Service Mode Summary"},
		{"Mode", "Count", "Total"},
		{"Dine In", "120", "3680.20"},
		{"Takeout", "46", "1692.26"},
		{"EXT DoorDash", "32", "646.32"},
		{},
		{"Payments Summary"},
		{"Payment Type", "Count", "Payments", "Tips", "Total"},
		{"Visa", "136", "4273.02", "91.30", "4364.32"},
		{"Cash", "62", "1471.74", "0.00", "1471.74"},
		{},
		{"Void Summary"},
		{"Void Amount", "25.40"},
	}
}

func TestToastTabularExtract(t *testing.T) {
	doc := Document{
		FileName: "SalesSummary_2025-03-14.csv",
		TeamID:   "team-1",
		Rows:     toastRows(),
	}
	ext, err := (&ToastTabularExtractor{}).Extract(context.Background(), doc)
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
	if rec.Location != "Main Street Grill" {
		t.Fatalf("location = %q", rec.Location)
	}
	if rec.Voids != 25.40 {
		t.Fatalf("voids = %v, want 25.40", rec.Voids)
	}

	if len(rec.Tenders) != 2 {
		t.Fatalf("tenders = %d, want 2", len(rec.Tenders))
	}
	visa := rec.Tenders[0]
	if visa.Name != "Visa" || visa.Quantity != 136 || visa.Payments != 4273.02 || visa.Tips != 91.30 {
		t.Fatalf("visa tender = %+v", visa)
	}
	cash := rec.Tenders[1]
	if cash.Name != "Cash" || cash.Quantity != 62 || cash.Payments != 1471.74 || cash.Tips != 0 {
		t.Fatalf("cash tender = %+v", cash)
	}

	pb := rec.PaymentBreakdown
	if pb == nil {
		t.Fatal("payment breakdown missing")
	}
	if pb.TotalCash != 1471.74 {
		t.Fatalf("total cash = %v, want 1471.74", pb.TotalCash)
	}
	if pb.NonCash != 4273.02 {
		t.Fatalf("non-cash = %v, want 4273.02", pb.NonCash)
	}
	if pb.Tips != 91.30 {
		t.Fatalf("tips = %v, want 91.30", pb.Tips)
	}

	want := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
	if ext.ExtractedDate == nil || !ext.ExtractedDate.Equal(want) {
		t.Fatalf("extracted date = %v, want %v", ext.ExtractedDate, want)
	}
	if !rec.Date.Equal(want) {
		t.Fatalf("record date = %v, want %v", rec.Date, want)
	}

	if len(rec.Destinations) != 3 {
		t.Fatalf("destinations = %d, want 3", len(rec.Destinations))
	}
	if rec.Destinations[2].Name != "EXT DoorDash" || rec.Destinations[2].Total != 646.32 {
		t.Fatalf("doordash destination = %+v", rec.Destinations[2])
	}
}

func TestToastConfidenceScalesWithSections(t *testing.T) {
	full, err := (&ToastTabularExtractor{}).Extract(context.Background(), Document{
		FileName: "SalesSummary_2025-03-14.csv", Rows: toastRows(),
	})
	if err != nil {
		t.Fatalf("extract full: %v", err)
	}
	sparse, err := (&ToastTabularExtractor{}).Extract(context.Background(), Document{
		FileName: "SalesSummary_2025-03-14.csv",
		Rows: [][]string{
			{"SalesSummary_2025-03-14"},
			{"Net Sales Summary"},
			{"Net Sales", "5744.76"},
		},
	})
	if err != nil {
		t.Fatalf("extract sparse: %v", err)
	}
	if sparse.Confidence >= full.Confidence {
		t.Fatalf("sparse confidence %v should be below full %v", sparse.Confidence, full.Confidence)
	}
	if full.Confidence > 100 {
		t.Fatalf("confidence above 100: %v", full.Confidence)
	}
}

func TestToastMissingSalesFails(t *testing.T) {
	_, err := (&ToastTabularExtractor{}).Extract(context.Background(), Document{
		FileName: "SalesSummary_2025-03-14.csv",
		Rows: [][]string{
			{"SalesSummary_2025-03-14"},
			{"Void Summary"},
			{"Void Amount", "25.40"},
		},
	})
	if err == nil {
		t.Fatal("expected missing-field error")
	}
}
