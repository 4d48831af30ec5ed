package channel

import (
	"github.com/shopspring/decimal"

	"RestoLedger/api/ingest/salesdata"
)

// ChannelBreakdown is one channel's derived slice of a day's sales. It is
// computed from the committed record and the channel configuration, never
// stored on the record itself.
type ChannelBreakdown struct {
	ChannelID         string  `json:"channel_id"`
	ChannelName       string  `json:"channel_name"`
	GrossSales        float64 `json:"gross_sales"`
	OrderCount        int     `json:"order_count"`
	CommissionType    string  `json:"commission_type"`
	CommissionRate    float64 `json:"commission_rate,omitempty"`
	CommissionFees    float64 `json:"commission_fees"`
	NetSales          float64 `json:"net_sales"`
	PercentageOfTotal float64 `json:"percentage_of_total,omitempty"`
}

// Attribute maps a record's destination lines onto configured channels and
// computes commission. Destinations with no matching channel are skipped;
// the record is read only, so attribution can rerun after configuration
// changes without side effects.
func Attribute(rec *salesdata.SalesData, reg *Registry) []ChannelBreakdown {
	if rec == nil || reg == nil || len(rec.Destinations) == 0 {
		return nil
	}
	var out []ChannelBreakdown
	for _, dest := range rec.Destinations {
		ch, ok := reg.Match(rec.TeamID, dest.Name)
		if !ok {
			continue
		}
		fees := commissionFor(ch, dest.Total)
		gross := decimal.NewFromFloat(dest.Total)
		net, _ := gross.Sub(decimal.NewFromFloat(fees)).Float64()
		cb := ChannelBreakdown{
			ChannelID:      ch.ID,
			ChannelName:    ch.Name,
			GrossSales:     dest.Total,
			OrderCount:     dest.Quantity,
			CommissionType: ch.CommissionType,
			CommissionRate: ch.CommissionRate,
			CommissionFees: fees,
			NetSales:       net,
		}
		if rec.GrossSales > 0 {
			pct, _ := gross.Div(decimal.NewFromFloat(rec.GrossSales)).Mul(decimal.NewFromInt(100)).Float64()
			cb.PercentageOfTotal = pct
		}
		out = append(out, cb)
	}
	return out
}

// commissionFor computes the fee with decimal arithmetic so 646.32 at 20%
// comes out exactly 129.264 rather than a float artifact.
func commissionFor(ch Channel, amount float64) float64 {
	switch ch.CommissionType {
	case CommissionFlatFee:
		return ch.FlatFeeAmount
	default:
		fee, _ := decimal.NewFromFloat(amount).
			Mul(decimal.NewFromFloat(ch.CommissionRate)).
			Float64()
		return fee
	}
}
