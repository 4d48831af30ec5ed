package formats

import "testing"

const brinkText = `Daily Sales Report
Powered by Brink POS (brinkpos.com)
Friday, March 14, 2025
Gross Sales: $6,018.78
Net Sales: $5,744.76
Order Count: 198
Cash Payments: $1,471.74
Non-Cash Payments: $4,273.02
Tips: $91.30
Total Labor Hours: 82.5
Labor Cost: $1,240.00`

func TestDetectForcedFormatWins(t *testing.T) {
	doc := Document{Rows: [][]string{{"anything"}}}
	det := Detect("whatever.csv", doc, FormatSquare)
	if det.Format != FormatSquare {
		t.Fatalf("format = %s, want square", det.Format)
	}
	if det.Confidence != 100 {
		t.Fatalf("confidence = %v, want 100", det.Confidence)
	}
}

func TestDetectToastSheet(t *testing.T) {
	det := Detect("SalesSummary_2025-03-14.csv", Document{Rows: toastRows()}, FormatAuto)
	if det.Format != FormatToast {
		t.Fatalf("format = %s, want toast", det.Format)
	}
	if det.Confidence < 70 {
		t.Fatalf("confidence = %v, want >= 70", det.Confidence)
	}
}

func TestDetectBrinkDocument(t *testing.T) {
	det := Detect("report.pdf", Document{Text: brinkText}, FormatAuto)
	if det.Format != FormatBrink {
		t.Fatalf("format = %s, want brink", det.Format)
	}
}

func TestDetectUnknownFallsBack(t *testing.T) {
	tab := Detect("numbers.csv", Document{Rows: [][]string{{"a", "b"}, {"1", "2"}}}, FormatAuto)
	if tab.Format != FormatGenericTabular {
		t.Fatalf("tabular fallback = %s", tab.Format)
	}
	doc := Detect("scan.pdf", Document{Text: "nothing recognizable here"}, FormatAuto)
	if doc.Format != FormatGenericDocument {
		t.Fatalf("document fallback = %s", doc.Format)
	}
	if doc.Confidence >= 50 {
		t.Fatalf("fallback confidence = %v, want low", doc.Confidence)
	}
}
