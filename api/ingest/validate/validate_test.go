package validate

import (
	"reflect"
	"testing"
	"time"

	"RestoLedger/api/ingest/salesdata"
)

func fixedNow() time.Time {
	return time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
}

func newValidator() *Validator {
	v := New()
	v.Now = fixedNow
	return v
}

func cleanRecord() *salesdata.SalesData {
	return &salesdata.SalesData{
		TeamID:     "team-1",
		Date:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		GrossSales: 5744.76,
		NetSales:   5500.00,
		OrderCount: 198,
		Tenders: []salesdata.TenderItem{
			{Name: "Visa", Payments: 4273.02, Tips: 91.30},
			{Name: "Cash", Payments: 1471.74},
		},
		PaymentBreakdown: &salesdata.PaymentBreakdown{
			NonCash:   4273.02,
			TotalCash: 1471.74,
			Tips:      91.30,
		},
		Labor: &salesdata.Labor{TotalHours: 82.5, TotalCost: 1240.00},
	}
}

func countSeverity(fs []salesdata.ValidationFinding, sev string) int {
	n := 0
	for _, f := range fs {
		if f.Severity == sev {
			n++
		}
	}
	return n
}

func TestValidateCleanRecord(t *testing.T) {
	findings := newValidator().Validate(cleanRecord())
	if countSeverity(findings, salesdata.SeverityCritical) != 0 {
		t.Fatalf("unexpected critical findings: %+v", findings)
	}
	if countSeverity(findings, salesdata.SeverityError) != 0 {
		t.Fatalf("unexpected error findings: %+v", findings)
	}
}

func TestValidateDeterministic(t *testing.T) {
	rec := cleanRecord()
	rec.NetSales = 7000 // force findings
	v := newValidator()
	first := v.Validate(rec)
	second := v.Validate(rec)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("findings differ between runs:\n%+v\n%+v", first, second)
	}
	if len(first) == 0 {
		t.Fatal("expected findings")
	}
}

func TestValidateNetExceedsGross(t *testing.T) {
	rec := cleanRecord()
	rec.NetSales = 6000
	rec.GrossSales = 5744.76
	findings := newValidator().Validate(rec)
	found := false
	for _, f := range findings {
		if f.Field == "net_sales" && f.Severity == salesdata.SeverityCritical {
			found = true
			if f.SuggestedValue != 5744.76 {
				t.Fatalf("suggested = %v, want gross 5744.76", f.SuggestedValue)
			}
		}
	}
	if !found {
		t.Fatalf("no critical net_sales finding in %+v", findings)
	}
}

func TestValidateZeroOrdersWithSales(t *testing.T) {
	rec := cleanRecord()
	rec.OrderCount = 0
	findings := newValidator().Validate(rec)
	if countSeverity(findings, salesdata.SeverityCritical) == 0 {
		t.Fatalf("expected critical finding, got %+v", findings)
	}
}

func TestValidateTenderReconciliation(t *testing.T) {
	rec := cleanRecord()
	rec.Tenders = []salesdata.TenderItem{{Name: "Visa", Payments: 3000}}
	findings := newValidator().Validate(rec)
	found := false
	for _, f := range findings {
		if f.Field == "tenders" && f.Severity == salesdata.SeverityError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected tender reconciliation error in %+v", findings)
	}
}

func TestReconciliationTolerance(t *testing.T) {
	cases := []struct {
		a, b float64
		want bool
	}{
		{100, 100.99, true},
		{100, 101.01, false},
		{10000, 10099, true},
		{10000, 10150, false},
		{0, 0, true},
		{0, 0.5, true},
	}
	for _, c := range cases {
		if got := salesdata.ReconciliationTolerance(c.a, c.b); got != c.want {
			t.Fatalf("tolerance(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestValidateFutureDate(t *testing.T) {
	rec := cleanRecord()
	rec.Date = fixedNow().AddDate(0, 0, 7)
	findings := newValidator().Validate(rec)
	found := false
	for _, f := range findings {
		if f.Field == "date" && f.Severity == salesdata.SeverityError {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected future-date error in %+v", findings)
	}
}

func TestValidateFutureDateGrace(t *testing.T) {
	hasDateError := func(fs []salesdata.ValidationFinding) bool {
		for _, f := range fs {
			if f.Field == "date" && f.Severity == salesdata.SeverityError {
				return true
			}
		}
		return false
	}
	v := newValidator()

	rec := cleanRecord()
	rec.Date = fixedNow().Truncate(24 * time.Hour).AddDate(0, 0, 1)
	if hasDateError(v.Validate(rec)) {
		t.Fatalf("tomorrow is within the timezone grace, got %+v", v.Validate(rec))
	}
	rec.Date = fixedNow().Truncate(24 * time.Hour).AddDate(0, 0, 2)
	if !hasDateError(v.Validate(rec)) {
		t.Fatalf("two days ahead must error, got %+v", v.Validate(rec))
	}
}

func TestValidatePercentSums(t *testing.T) {
	hasWarning := func(fs []salesdata.ValidationFinding, field string) bool {
		for _, f := range fs {
			if f.Field == field && f.Severity == salesdata.SeverityWarning {
				return true
			}
		}
		return false
	}
	v := newValidator()

	rec := cleanRecord()
	rec.Taxes = []salesdata.BreakdownItem{
		{Name: "State", Percent: 60},
		{Name: "City", Percent: 20},
	}
	rec.Discounts = []salesdata.BreakdownItem{
		{Name: "Employee", Percent: 50},
		{Name: "Comp", Percent: 50},
	}
	rec.Tenders[0].Percent = 70
	rec.Tenders[1].Percent = 10
	findings := v.Validate(rec)
	if !hasWarning(findings, "taxes") {
		t.Fatalf("taxes sum to 80, expected warning in %+v", findings)
	}
	if hasWarning(findings, "discounts") {
		t.Fatalf("discounts sum to 100, unexpected warning in %+v", findings)
	}
	if !hasWarning(findings, "tenders") {
		t.Fatalf("tenders sum to 80, expected warning in %+v", findings)
	}
}

func TestValidateBaselineAnomaly(t *testing.T) {
	rec := cleanRecord()
	rec.GrossSales = 20000
	rec.NetSales = 19000
	rec.Tenders = nil
	rec.PaymentBreakdown = nil
	v := newValidator()
	v.Baseline = baselineFunc(func(teamID string) (float64, float64, bool) {
		return 5000, 1000, true
	})
	findings := v.Validate(rec)
	found := false
	for _, f := range findings {
		if f.Field == "gross_sales" && f.Severity == salesdata.SeverityWarning {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected anomaly warning in %+v", findings)
	}
}

type baselineFunc func(teamID string) (float64, float64, bool)

func (f baselineFunc) SalesBaseline(teamID string) (float64, float64, bool) {
	return f(teamID)
}

func TestSeverityScore(t *testing.T) {
	findings := []salesdata.ValidationFinding{
		{Severity: salesdata.SeverityCritical},
		{Severity: salesdata.SeverityError},
		{Severity: salesdata.SeverityWarning},
		{Severity: salesdata.SeverityInfo},
	}
	if got := SeverityScore(findings); got != 53 {
		t.Fatalf("score = %v, want 53", got)
	}
	if got := SeverityScore(nil); got != 100 {
		t.Fatalf("empty score = %v, want 100", got)
	}
}
