package channel

import (
	"reflect"
	"testing"

	"RestoLedger/api/ingest/salesdata"
)

func testRegistry() *Registry {
	return NewRegistry(
		Channel{Name: "DoorDash", CommissionType: CommissionPercentage, CommissionRate: 0.20, Active: true},
		Channel{Name: "UberEats", Aliases: []string{"Uber Eats"}, CommissionType: CommissionPercentage, CommissionRate: 0.25, Active: true},
		Channel{Name: "ChowNow", CommissionType: CommissionFlatFee, FlatFeeAmount: 99, Active: true},
		Channel{Name: "Postmates", CommissionType: CommissionPercentage, CommissionRate: 0.30, Active: false},
	)
}

func TestAttributePercentageCommission(t *testing.T) {
	rec := &salesdata.SalesData{
		TeamID:     "team-1",
		GrossSales: 6018.78,
		Destinations: []salesdata.BreakdownItem{
			{Name: "EXT DoorDash", Quantity: 32, Total: 646.32},
		},
	}
	got := Attribute(rec, testRegistry())
	if len(got) != 1 {
		t.Fatalf("breakdowns = %d, want 1", len(got))
	}
	cb := got[0]
	if cb.ChannelName != "DoorDash" {
		t.Fatalf("channel = %s, want DoorDash", cb.ChannelName)
	}
	if cb.CommissionFees != 129.264 {
		t.Fatalf("fees = %v, want 129.264", cb.CommissionFees)
	}
	if cb.NetSales != 517.056 {
		t.Fatalf("net = %v, want 517.056", cb.NetSales)
	}
	if cb.GrossSales != 646.32 || cb.OrderCount != 32 {
		t.Fatalf("breakdown = %+v", cb)
	}
}

func TestAttributeFlatFee(t *testing.T) {
	rec := &salesdata.SalesData{
		TeamID:       "team-1",
		GrossSales:   1000,
		Destinations: []salesdata.BreakdownItem{{Name: "ChowNow", Total: 400}},
	}
	got := Attribute(rec, testRegistry())
	if len(got) != 1 {
		t.Fatalf("breakdowns = %d, want 1", len(got))
	}
	if got[0].CommissionFees != 99 {
		t.Fatalf("fees = %v, want flat 99", got[0].CommissionFees)
	}
	if got[0].NetSales != 301 {
		t.Fatalf("net = %v, want 301", got[0].NetSales)
	}
}

func TestAttributeSkipsUnmatchedAndInactive(t *testing.T) {
	rec := &salesdata.SalesData{
		TeamID:     "team-1",
		GrossSales: 1000,
		Destinations: []salesdata.BreakdownItem{
			{Name: "Dine In", Total: 600},
			{Name: "Postmates", Total: 150},
			{Name: "EXT DoorDash", Total: 250},
		},
	}
	got := Attribute(rec, testRegistry())
	if len(got) != 1 {
		t.Fatalf("breakdowns = %d, want only DoorDash", len(got))
	}
	if got[0].ChannelName != "DoorDash" {
		t.Fatalf("channel = %s", got[0].ChannelName)
	}
}

func TestAttributeDoesNotMutateRecord(t *testing.T) {
	rec := &salesdata.SalesData{
		TeamID:       "team-1",
		GrossSales:   1000,
		Destinations: []salesdata.BreakdownItem{{Name: "EXT DoorDash", Total: 250}},
	}
	before := *rec
	beforeDest := append([]salesdata.BreakdownItem(nil), rec.Destinations...)
	first := Attribute(rec, testRegistry())
	second := Attribute(rec, testRegistry())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("attribution not repeatable:\n%+v\n%+v", first, second)
	}
	if rec.GrossSales != before.GrossSales || !reflect.DeepEqual(rec.Destinations, beforeDest) {
		t.Fatal("record mutated by attribution")
	}
}

func TestMatchAliases(t *testing.T) {
	reg := testRegistry()
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"EXT DoorDash", "DoorDash", true},
		{"doordash", "DoorDash", true},
		{"EXT. DoorDash", "DoorDash", true},
		{"Uber Eats", "UberEats", true},
		{"UBEREATS", "UberEats", true},
		{"Dine In", "", false},
		{"Postmates", "", false},
	}
	for _, c := range cases {
		ch, ok := reg.Match("team-1", c.in)
		if ok != c.ok {
			t.Fatalf("Match(%q) ok = %v, want %v", c.in, ok, c.ok)
		}
		if ok && ch.Name != c.want {
			t.Fatalf("Match(%q) = %s, want %s", c.in, ch.Name, c.want)
		}
	}
}
