package models

import (
	"testing"
	"time"
)

func TestDecodeSaleListShapes(t *testing.T) {
	data := []byte(`[
		{"title":"2019 FORD F150","lotNr":"111","odometer":"41,565","conditionTitle":"SALVAGE","yardLocation":"Row 4","currentBid":"$100"},
		{"title":"2014 FORD E150","lotNr":"222","odometr":"90,000","condionTitle":"CLEAN","yeardLocation":"Row 9"},
		{"title":"2020 AUDI Q3","lotNumber":333,"year":"2020","make":"AUDI","model":"Q3","price":"$1,250.00 USD",
		 "buyItNowPrice":"$5,000","vin":"WA1","imageUrl":"q3.jpg","hasKey":"Yes","damage":"FRONT END","odometer":"12,000 mi"}
	]`)

	entries, err := DecodeSaleList(data)
	if err != nil {
		t.Fatalf("DecodeSaleList failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if entries[0].Odometer != "41,565" || entries[0].ConditionTitle != "SALVAGE" || entries[0].Details != nil {
		t.Fatalf("canonical entry mangled: %+v", entries[0])
	}

	legacy := entries[1]
	if legacy.Odometer != "90,000" || legacy.ConditionTitle != "CLEAN" || legacy.YardLocation != "Row 9" {
		t.Fatalf("misspelled keys not mapped: %+v", legacy)
	}

	car := entries[2]
	if car.LotNr != "333" || car.CurrentBid != "$1,250.00 USD" || car.BuyItNow != "$5,000" || car.Keys != "Yes" {
		t.Fatalf("scraped car top-level not mapped: %+v", car)
	}
	if car.Details == nil {
		t.Fatal("expected details built from scraped car")
	}
	d := car.Details
	if d.Year != 2020 || d.LotNumber != 333 || d.VIN != "WA1" || d.CurrentBid != 1250 || d.Odometer != 12000 {
		t.Fatalf("unexpected details: %+v", d)
	}
	if d.BuyItNow == nil || *d.BuyItNow != 5000 {
		t.Fatalf("expected buy it now 5000, got %v", d.BuyItNow)
	}
	if d.HasKey == nil || !*d.HasKey {
		t.Fatalf("expected hasKey true")
	}
	if len(d.Images) != 1 || d.Images[0] != "q3.jpg" || d.PrimaryDamage != "FRONT END" {
		t.Fatalf("unexpected details: %+v", d)
	}
}

func TestDecodeSaleListRejectsGarbage(t *testing.T) {
	if _, err := DecodeSaleList([]byte(`{"not":"a list"}`)); err == nil {
		t.Fatal("expected error for non-array input")
	}
}

func TestDecodeLegacyAuctions(t *testing.T) {
	data := []byte(`{
		"33": {"location":"FL - Miami North","viewSalesLink":"https://example.com/sale/33","numberOnSale":1,
		       "cars":[{"lotNumber":"444","title":"2016 HONDA CIVIC","price":"$300"}]},
		"empty": {"location":"TX - Dallas","viewSalesLink":"https://example.com/sale/1"}
	}`)
	auctions, err := DecodeLegacyAuctions(data)
	if err != nil {
		t.Fatalf("DecodeLegacyAuctions failed: %v", err)
	}
	a, ok := auctions["33"]
	if !ok || a.Location != "FL - Miami North" || len(a.Cars) != 1 || a.Cars[0].LotNr != "444" {
		t.Fatalf("unexpected auction: %+v", a)
	}
	if len(auctions["empty"].Cars) != 0 {
		t.Fatalf("expected no cars for empty auction")
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"$1,250.00 USD", 1250, true},
		{"41,565 mi", 41565, true},
		{"120", 120, true},
		{"N/A", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ParseNumber(%q) = %v,%v want %v,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestComputeDashboard(t *testing.T) {
	bin := 900.0
	month := &CalendarMonth{
		Month:     "February",
		Year:      2026,
		ScrapedAt: time.Now(),
		Auctions: []Auction{
			{ViewSalesLink: "a", SaleList: []SaleListEntry{{LotNr: "1", BuyItNow: "$500"}, {LotNr: "2", Details: &LotDetails{BuyItNow: &bin}}}},
			{ViewSalesLink: "b"},
		},
	}
	m := ComputeDashboard(month, 3)
	if m.AuctionsInMonth != 2 || m.AuctionsScraped != 1 || m.CarsAtAuction != 2 || m.BuyNowThisMonth != 2 || m.LotsWithDetails != 1 || m.MonthsPersisted != 3 {
		t.Fatalf("unexpected metrics: %+v", m)
	}

	empty := ComputeDashboard(nil, 0)
	if empty.CarsAtAuction != 0 || empty.Month != "" {
		t.Fatalf("expected zero metrics, got %+v", empty)
	}
}
