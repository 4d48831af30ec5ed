package formats

import (
	"context"
	"strings"
	"time"

	"RestoLedger/api/ingest/salesdata"
)

// GenericTabularExtractor handles spreadsheets from systems without a
// dedicated profile. It scans for labeled figures and, failing that, takes
// the largest monetary value on the sheet as gross sales.
type GenericTabularExtractor struct{}

// Ordered so non-cash labels claim their cells before the bare "cash" label
// can.
var genericLabels = []struct {
	field  string
	labels []string
}{
	{"gross_sales", []string{"gross sales", "total sales", "total revenue", "sales total"}},
	{"net_sales", []string{"net sales", "net total", "net revenue"}},
	{"order_count", []string{"order count", "orders", "transactions", "checks", "guest count"}},
	{"non_cash", []string{"non-cash", "non cash", "card", "credit"}},
	{"total_cash", []string{"cash"}},
	{"tips", []string{"tips", "gratuity"}},
}

func (e *GenericTabularExtractor) Extract(ctx context.Context, doc Document) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows := doc.Rows
	fields := make(map[string]float64)

	for _, row := range rows {
		for j, cell := range row {
			if cell == "" {
				continue
			}
			lc := strings.ToLower(cell)
			for _, gl := range genericLabels {
				if _, done := fields[gl.field]; done {
					continue
				}
				if !matchesAnyLabel(lc, gl.labels) {
					continue
				}
				for k := j + 1; k < len(row); k++ {
					if row[k] == "" {
						continue
					}
					if v, ok := parseAmount(row[k]); ok {
						fields[gl.field] = v
					}
					break
				}
				break
			}
		}
	}

	if _, ok := fields["gross_sales"]; !ok {
		if v, ok := largestAmount(rows); ok {
			fields["gross_sales"] = v
		} else {
			return nil, ErrMissingRequiredField
		}
	}

	var extractedDate *time.Time
	if t, ok := extractDateFromFilename(doc.FileName); ok {
		extractedDate = &t
	} else {
		for _, row := range rows {
			for _, cell := range row {
				if looksLikeDate(cell) {
					if t, err := parseDate(cell); err == nil {
						extractedDate = &t
						break
					}
				}
			}
			if extractedDate != nil {
				break
			}
		}
	}
	date := doc.FallbackDate
	if extractedDate != nil {
		date = *extractedDate
	}

	rec := &salesdata.SalesData{
		TeamID:     doc.TeamID,
		Date:       date,
		POSSystem:  string(FormatGenericTabular),
		GrossSales: fields["gross_sales"],
		NetSales:   fields["net_sales"],
		OrderCount: int(fields["order_count"] + 0.5),
	}
	if rec.NetSales == 0 {
		rec.NetSales = rec.GrossSales
	}
	if rec.OrderCount > 0 {
		rec.OrderAverage = rec.GrossSales / float64(rec.OrderCount)
	}
	var findings []salesdata.ValidationFinding
	cash, hasCash := fields["total_cash"]
	nonCash, hasNonCash := fields["non_cash"]
	if hasCash || hasNonCash {
		tips := fields["tips"]
		rec.PaymentBreakdown = &salesdata.PaymentBreakdown{
			NonCash:        nonCash,
			TotalCash:      cash,
			CalculatedCash: cash - tips,
			Tips:           tips,
		}
	} else {
		findings = append(findings, salesdata.ValidationFinding{
			Field:    "payment_breakdown",
			Message:  "no payment breakdown found in sheet",
			Severity: salesdata.SeverityInfo,
		})
	}

	return &Extraction{
		Data:          rec,
		ExtractedDate: extractedDate,
		Confidence:    60,
		Findings:      findings,
	}, nil
}

func matchesAnyLabel(cell string, labels []string) bool {
	for _, l := range labels {
		if strings.Contains(cell, l) {
			return true
		}
	}
	return false
}

func largestAmount(rows [][]string) (float64, bool) {
	var max float64
	found := false
	for _, row := range rows {
		for _, cell := range row {
			if cell == "" {
				continue
			}
			if v, ok := parseAmount(cell); ok && v > max {
				max = v
				found = true
			}
		}
	}
	return max, found
}

func looksLikeDate(cell string) bool {
	return strings.Count(cell, "/") == 2 || strings.Count(cell, "-") == 2
}
