package salesdata

import (
	"math"
	"time"
)

// SalesData is the canonical one-business-day sales record that every
// extractor produces and the permanent store persists. Breakdown slices keep
// source order; absent sections stay nil rather than empty.
type SalesData struct {
	ID        string    `json:"id,omitempty"`
	TeamID    string    `json:"team_id"`
	Date      time.Time `json:"date"`
	Location  string    `json:"location,omitempty"`
	POSSystem string    `json:"pos_system,omitempty"`

	GrossSales   float64 `json:"gross_sales"`
	NetSales     float64 `json:"net_sales"`
	OrderCount   int     `json:"order_count"`
	OrderAverage float64 `json:"order_average"`

	Destinations []BreakdownItem `json:"destinations,omitempty"`
	RevenueItems []BreakdownItem `json:"revenue_items,omitempty"`
	Tenders      []TenderItem    `json:"tenders,omitempty"`
	Discounts    []BreakdownItem `json:"discounts,omitempty"`
	Promotions   []BreakdownItem `json:"promotions,omitempty"`
	Taxes        []BreakdownItem `json:"taxes,omitempty"`

	PaymentBreakdown *PaymentBreakdown `json:"payment_breakdown,omitempty"`
	Labor            *Labor            `json:"labor,omitempty"`
	CashManagement   *CashManagement   `json:"cash_management,omitempty"`
	GiftCards        *GiftCards        `json:"gift_cards,omitempty"`

	Voids      float64 `json:"voids"`
	Refunds    float64 `json:"refunds"`
	Surcharges float64 `json:"surcharges"`
	Expenses   float64 `json:"expenses"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// BreakdownItem is one named line of a breakdown section.
type BreakdownItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity,omitempty"`
	Total    float64 `json:"total"`
	Percent  float64 `json:"percent,omitempty"`
}

// TenderItem is a payment-method line. Payments is the settled amount before
// tips; Total is payments plus tips.
type TenderItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity,omitempty"`
	Payments float64 `json:"payments"`
	Tips     float64 `json:"tips"`
	Total    float64 `json:"total"`
	Percent  float64 `json:"percent,omitempty"`
}

type PaymentBreakdown struct {
	NonCash        float64 `json:"non_cash"`
	TotalCash      float64 `json:"total_cash"`
	CalculatedCash float64 `json:"calculated_cash"`
	Tips           float64 `json:"tips"`
}

type Labor struct {
	TotalHours      float64 `json:"total_hours"`
	TotalCost       float64 `json:"total_cost"`
	PercentOfSales  float64 `json:"percent_of_sales,omitempty"`
	SalesPerHour    float64 `json:"sales_per_hour,omitempty"`
}

type CashManagement struct {
	Deposits float64 `json:"deposits"`
	PaidIn   float64 `json:"paid_in"`
	PaidOut  float64 `json:"paid_out"`
	OverUnder float64 `json:"over_under,omitempty"`
}

type GiftCards struct {
	SoldQuantity     int     `json:"sold_quantity"`
	SoldTotal        float64 `json:"sold_total"`
	RedeemedQuantity int     `json:"redeemed_quantity"`
	RedeemedTotal    float64 `json:"redeemed_total"`
}

// ReconciliationTolerance reports whether two monetary amounts agree within
// $1 absolute or 1% of the larger magnitude, whichever is looser.
func ReconciliationTolerance(a, b float64) bool {
	diff := math.Abs(a - b)
	if diff <= 1.0 {
		return true
	}
	larger := math.Max(math.Abs(a), math.Abs(b))
	if larger == 0 {
		return diff == 0
	}
	return diff/larger <= 0.01
}

// TenderTotal sums settled payments across all tenders.
func (s *SalesData) TenderTotal() float64 {
	var sum float64
	for _, t := range s.Tenders {
		sum += t.Payments
	}
	return sum
}

// DateKey renders the record date as yyyy-mm-dd, the uniqueness key used with
// TeamID by the duplicate check.
func (s *SalesData) DateKey() string {
	return s.Date.Format("2006-01-02")
}
