// Package validate applies business rules to extracted sales records. The
// validator only describes problems; it never rewrites a record.
package validate

import (
	"fmt"
	"math"
	"time"

	"RestoLedger/api/ingest/salesdata"
)

// BusinessRules are the thresholds the rule set runs against.
type BusinessRules struct {
	MaxDailySales      float64
	MinDailySales      float64
	MaxLaborPercentage float64
	MaxOrderCount      int
	MinAverageOrder    float64
	MaxAverageOrder    float64
	MaxRecordAgeYears  int
}

func DefaultRules() BusinessRules {
	return BusinessRules{
		MaxDailySales:      50000,
		MinDailySales:      100,
		MaxLaborPercentage: 40,
		MaxOrderCount:      1000,
		MinAverageOrder:    5,
		MaxAverageOrder:    150,
		MaxRecordAgeYears:  3,
	}
}

// BaselineProvider supplies the historical daily-sales mean and standard
// deviation for a team, for anomaly detection. Implementations that have no
// history return ok=false and the anomaly rule is skipped.
type BaselineProvider interface {
	SalesBaseline(teamID string) (mean, stddev float64, ok bool)
}

// Validator runs the rule set. A nil Baseline disables the anomaly rule.
type Validator struct {
	Rules    BusinessRules
	Baseline BaselineProvider
	Now      func() time.Time
}

func New() *Validator {
	return &Validator{Rules: DefaultRules(), Now: time.Now}
}

// Validate evaluates every rule against the record. The findings come back
// in rule order, so identical input always yields the identical slice.
func (v *Validator) Validate(rec *salesdata.SalesData) []salesdata.ValidationFinding {
	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	var out []salesdata.ValidationFinding
	add := func(field, severity, msg string, suggested interface{}) {
		out = append(out, salesdata.ValidationFinding{
			Field: field, Severity: severity, Message: msg, SuggestedValue: suggested,
		})
	}

	if rec.GrossSales < 0 {
		add("gross_sales", salesdata.SeverityCritical, "gross sales cannot be negative", nil)
	}
	if rec.NetSales < 0 {
		add("net_sales", salesdata.SeverityCritical, "net sales cannot be negative", nil)
	}
	if rec.NetSales > rec.GrossSales && rec.GrossSales > 0 {
		add("net_sales", salesdata.SeverityCritical,
			fmt.Sprintf("net sales (%.2f) exceed gross sales (%.2f)", rec.NetSales, rec.GrossSales),
			rec.GrossSales)
	}
	if rec.OrderCount == 0 && rec.GrossSales > 0 {
		add("order_count", salesdata.SeverityCritical, "sales recorded with zero orders", nil)
	}
	if rec.OrderCount < 0 {
		add("order_count", salesdata.SeverityCritical, "order count cannot be negative", nil)
	}

	if len(rec.Tenders) > 0 {
		tenderSum := rec.TenderTotal()
		if !salesdata.ReconciliationTolerance(tenderSum, rec.GrossSales) {
			add("tenders", salesdata.SeverityError,
				fmt.Sprintf("tender payments (%.2f) do not reconcile with gross sales (%.2f)", tenderSum, rec.GrossSales), nil)
		}
	}
	if pb := rec.PaymentBreakdown; pb != nil {
		paid := pb.NonCash + pb.TotalCash
		if !salesdata.ReconciliationTolerance(paid, rec.GrossSales) {
			add("payment_breakdown", salesdata.SeverityError,
				fmt.Sprintf("cash plus non-cash (%.2f) does not reconcile with gross sales (%.2f)", paid, rec.GrossSales), nil)
		}
	}
	if !rec.Date.IsZero() {
		today := now().Truncate(24 * time.Hour)
		// One day of grace: a venue east of the server can legitimately
		// close out a business date the server still calls tomorrow.
		if rec.Date.After(today.AddDate(0, 0, 1)) {
			add("date", salesdata.SeverityError, "business date is in the future", nil)
		}
		maxAge := v.Rules.MaxRecordAgeYears
		if maxAge == 0 {
			maxAge = 3
		}
		if rec.Date.Before(today.AddDate(-maxAge, 0, 0)) {
			add("date", salesdata.SeverityError,
				fmt.Sprintf("business date is more than %d years old", maxAge), nil)
		}
	}

	for _, group := range []struct {
		field string
		items []salesdata.BreakdownItem
	}{
		{"destinations", rec.Destinations},
		{"revenue_items", rec.RevenueItems},
		{"discounts", rec.Discounts},
		{"promotions", rec.Promotions},
		{"taxes", rec.Taxes},
	} {
		if dev, bad := percentDeviation(group.items); bad {
			add(group.field, salesdata.SeverityWarning,
				fmt.Sprintf("%s percentages sum to %.1f, expected 100", group.field, dev), nil)
		}
	}
	if len(rec.Tenders) > 0 {
		items := make([]salesdata.BreakdownItem, 0, len(rec.Tenders))
		for _, tn := range rec.Tenders {
			items = append(items, salesdata.BreakdownItem{Name: tn.Name, Percent: tn.Percent})
		}
		if dev, bad := percentDeviation(items); bad {
			add("tenders", salesdata.SeverityWarning,
				fmt.Sprintf("tenders percentages sum to %.1f, expected 100", dev), nil)
		}
	}
	if rec.OrderCount > 0 {
		avg := rec.GrossSales / float64(rec.OrderCount)
		if avg < v.Rules.MinAverageOrder || avg > v.Rules.MaxAverageOrder {
			add("order_average", salesdata.SeverityWarning,
				fmt.Sprintf("average order value %.2f outside expected range %.0f-%.0f",
					avg, v.Rules.MinAverageOrder, v.Rules.MaxAverageOrder), nil)
		}
	}
	if rec.GrossSales > v.Rules.MaxDailySales {
		add("gross_sales", salesdata.SeverityWarning,
			fmt.Sprintf("gross sales %.2f unusually high for one day", rec.GrossSales), nil)
	}
	if rec.GrossSales > 0 && rec.GrossSales < v.Rules.MinDailySales {
		add("gross_sales", salesdata.SeverityWarning,
			fmt.Sprintf("gross sales %.2f unusually low for one day", rec.GrossSales), nil)
	}
	if rec.OrderCount > v.Rules.MaxOrderCount {
		add("order_count", salesdata.SeverityWarning,
			fmt.Sprintf("order count %d unusually high for one day", rec.OrderCount), nil)
	}
	if rec.Labor != nil && rec.GrossSales > 0 && rec.Labor.TotalCost > 0 {
		pct := rec.Labor.TotalCost / rec.GrossSales * 100
		if pct > v.Rules.MaxLaborPercentage {
			add("labor", salesdata.SeverityWarning,
				fmt.Sprintf("labor cost is %.1f%% of sales, above %.0f%%", pct, v.Rules.MaxLaborPercentage), nil)
		}
	}
	if v.Baseline != nil {
		if mean, stddev, ok := v.Baseline.SalesBaseline(rec.TeamID); ok && stddev > 0 {
			z := math.Abs(rec.GrossSales-mean) / stddev
			if z > 2 {
				add("gross_sales", salesdata.SeverityWarning,
					fmt.Sprintf("gross sales %.2f deviates %.1f standard deviations from the team average %.2f",
						rec.GrossSales, z, mean), nil)
			}
		}
	}

	if rec.PaymentBreakdown == nil {
		add("payment_breakdown", salesdata.SeverityInfo, "no payment breakdown present", nil)
	}
	if rec.Labor == nil {
		add("labor", salesdata.SeverityInfo, "no labor data present", nil)
	}
	if len(rec.Tenders) == 0 {
		add("tenders", salesdata.SeverityInfo, "no tender breakdown present", nil)
	}
	return out
}

// percentDeviation reports the summed percent column when it departs from
// 100 by more than 1.5 points. Sections without percent columns are skipped.
func percentDeviation(items []salesdata.BreakdownItem) (float64, bool) {
	if len(items) == 0 {
		return 0, false
	}
	var sum float64
	any := false
	for _, it := range items {
		if it.Percent != 0 {
			any = true
		}
		sum += it.Percent
	}
	if !any {
		return 0, false
	}
	if math.Abs(sum-100) > 1.5 {
		return sum, true
	}
	return 0, false
}

// SeverityScore folds findings into a 0-100 quality score: critical costs
// 25, error 15, warning 5, info 2.
func SeverityScore(findings []salesdata.ValidationFinding) float64 {
	score := 100.0
	for _, f := range findings {
		switch f.Severity {
		case salesdata.SeverityCritical:
			score -= 25
		case salesdata.SeverityError:
			score -= 15
		case salesdata.SeverityWarning:
			score -= 5
		case salesdata.SeverityInfo:
			score -= 2
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}
