package formats

import (
	"context"
	"strings"
	"time"

	"RestoLedger/api/ingest/salesdata"
)

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// DocumentExtractor pulls sales figures out of free-text reports (PDF text
// layers) using a vendor profile's field patterns.
type DocumentExtractor struct {
	Profile documentProfile
}

func (e *DocumentExtractor) Extract(ctx context.Context, doc Document) (*Extraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := doc.Text
	fields := make(map[string]float64)
	for name, re := range e.Profile.Fields {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, ok := parseAmount(m[1]); ok {
			fields[name] = v
		}
	}
	if _, ok := fields["gross_sales"]; !ok {
		if net, ok := fields["net_sales"]; ok {
			fields["gross_sales"] = net
		} else {
			return nil, ErrMissingRequiredField
		}
	}

	var extractedDate *time.Time
	if t, ok := extractDateFromText(text); ok {
		extractedDate = &t
	} else if t, ok := extractDateFromFilename(doc.FileName); ok {
		extractedDate = &t
	}

	date := doc.FallbackDate
	if extractedDate != nil {
		date = *extractedDate
	}

	rec := &salesdata.SalesData{
		TeamID:     doc.TeamID,
		Date:       date,
		POSSystem:  string(e.Profile.Format),
		GrossSales: fields["gross_sales"],
		NetSales:   fields["net_sales"],
		OrderCount: int(fields["order_count"] + 0.5),
		Voids:      fields["voids"],
		Refunds:    fields["refunds"],
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
	tips := fields["tips"]
	if hasCash || hasNonCash {
		rec.PaymentBreakdown = &salesdata.PaymentBreakdown{
			NonCash:        nonCash,
			TotalCash:      cash,
			CalculatedCash: cash - tips,
			Tips:           tips,
		}
	} else {
		findings = append(findings, salesdata.ValidationFinding{
			Field:    "payment_breakdown",
			Message:  "no payment breakdown found in report",
			Severity: salesdata.SeverityInfo,
		})
	}
	if hours, ok := fields["labor_hours"]; ok {
		rec.Labor = &salesdata.Labor{TotalHours: hours, TotalCost: fields["labor_cost"]}
		if rec.GrossSales > 0 && rec.Labor.TotalCost > 0 {
			rec.Labor.PercentOfSales = rec.Labor.TotalCost / rec.GrossSales * 100
		}
	} else {
		findings = append(findings, salesdata.ValidationFinding{
			Field:    "labor",
			Message:  "no labor section found in report",
			Severity: salesdata.SeverityInfo,
		})
	}

	conf := fieldConfidence(fields, extractedDate != nil)
	return &Extraction{
		Data:          rec,
		ExtractedDate: extractedDate,
		Confidence:    conf,
		Findings:      findings,
	}, nil
}

// fieldConfidence weighs what was actually found: the three core figures at
// 25 points each, the four optional ones at 10, the report date at 15,
// capped at 100.
func fieldConfidence(fields map[string]float64, hasDate bool) float64 {
	score := 0.0
	for _, core := range []string{"gross_sales", "net_sales", "order_count"} {
		if _, ok := fields[core]; ok {
			score += 25
		}
	}
	for _, opt := range []string{"total_cash", "non_cash", "tips", "labor_hours"} {
		if _, ok := fields[opt]; ok {
			score += 10
		}
	}
	if hasDate {
		score += 15
	}
	if score > 100 {
		score = 100
	}
	return score
}
