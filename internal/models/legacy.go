package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Sale list records arrive in three shapes: the canonical schema, an older
// variant with misspelled keys (odometr, condionTitle, yeardLocation), and the
// flat "car" records written by the scrapers to results/*.json. Everything is
// converted to SaleListEntry here so nothing past the boundary sees the others.

// FlexString accepts a JSON string or number
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = FlexString(n.String())
	return nil
}

type misspelledFields struct {
	Odometr       string `json:"odometr"`
	CondionTitle  string `json:"condionTitle"`
	YeardLocation string `json:"yeardLocation"`
}

// scrapedCar is the flat record shape produced by the sale list scrapers
type scrapedCar struct {
	LotNumber            FlexString `json:"lotNumber"`
	Year                 FlexString `json:"year"`
	Make                 string     `json:"make"`
	Model                string     `json:"model"`
	Price                FlexString `json:"price"`
	BuyItNowPrice        FlexString `json:"buyItNowPrice"`
	EstimatedRetailValue string     `json:"estimatedRetailValue"`
	VIN                  string     `json:"vin"`
	ImageURL             string     `json:"imageUrl"`
	Images               []string   `json:"images"`
	BodyType             string     `json:"bodyType"`
	Color                string     `json:"color"`
	Transmission         string     `json:"transmission"`
	TitleCode            string     `json:"titleCode"`
	EngineStarts         string     `json:"engineStarts"`
	TransmissionEngages  string     `json:"transmissionEngages"`
	HasKey               string     `json:"hasKey"`
	Highlights           []string   `json:"highlights"`
	Notes                string     `json:"notes"`
	SaleDate             string     `json:"saleDate"`
}

func (c *scrapedCar) empty() bool {
	return c.VIN == "" && c.Year == "" && c.Make == "" && c.Model == "" &&
		c.ImageURL == "" && len(c.Images) == 0 && len(c.Highlights) == 0 && c.Notes == ""
}

type rawSaleListEntry struct {
	SaleListEntry
	misspelledFields
	scrapedCar
}

func (r *rawSaleListEntry) canonical() SaleListEntry {
	e := r.SaleListEntry
	e.LotNr = firstNonEmpty(e.LotNr, string(r.LotNumber))
	e.Odometer = firstNonEmpty(e.Odometer, r.Odometr)
	e.ConditionTitle = firstNonEmpty(e.ConditionTitle, r.CondionTitle, r.TitleCode)
	e.YardLocation = firstNonEmpty(e.YardLocation, r.YeardLocation)
	e.EstimateRetail = firstNonEmpty(e.EstimateRetail, r.EstimatedRetailValue)
	e.CurrentBid = firstNonEmpty(e.CurrentBid, string(r.Price))
	e.BuyItNow = firstNonEmpty(e.BuyItNow, string(r.BuyItNowPrice))
	if e.Keys == "" && r.HasKey != "" {
		e.Keys = r.HasKey
	}

	if e.Details == nil && !r.scrapedCar.empty() {
		e.Details = r.scrapedCar.details(e)
	}
	return e
}

func (c *scrapedCar) details(e SaleListEntry) *LotDetails {
	d := &LotDetails{
		Title:            e.Title,
		Make:             c.Make,
		Model:            c.Model,
		VIN:              c.VIN,
		Color:            c.Color,
		Transmission:     c.Transmission,
		TitleCode:        c.TitleCode,
		VehicleType:      c.BodyType,
		EngineStatus:     c.EngineStarts,
		PrimaryDamage:    e.Damage,
		SaleDate:         c.SaleDate,
		Highlights:       c.Highlights,
		Notes:            c.Notes,
		HasKey:           parseYesNo(c.HasKey),
		AuctionCountdown: e.ActionCountDown,
	}
	d.Year, _ = strconv.Atoi(strings.TrimSpace(string(c.Year)))
	d.LotNumber, _ = strconv.Atoi(strings.TrimSpace(string(c.LotNumber)))
	d.TransmissionEngages = parseYesNo(c.TransmissionEngages)
	if odo, ok := ParseNumber(e.Odometer); ok {
		d.Odometer = int(odo)
	}
	if bid, ok := ParseNumber(string(c.Price)); ok {
		d.CurrentBid = bid
	}
	if bin, ok := ParseNumber(string(c.BuyItNowPrice)); ok {
		d.BuyItNow = &bin
	}
	switch {
	case len(c.Images) > 0:
		d.Images = c.Images
	case c.ImageURL != "":
		d.Images = []string{c.ImageURL}
	}
	return d
}

// DecodeSaleList parses a JSON array of sale list records in any of the known shapes
func DecodeSaleList(data []byte) ([]SaleListEntry, error) {
	var raw []rawSaleListEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode sale list: %w", err)
	}
	entries := make([]SaleListEntry, 0, len(raw))
	for i := range raw {
		entries = append(entries, raw[i].canonical())
	}
	return entries, nil
}

// LegacyAuction is one value of the old results/auctions.json map
type LegacyAuction struct {
	Location      string          `json:"location"`
	ViewSalesLink string          `json:"viewSalesLink"`
	ScrapedAt     string          `json:"scrapedAt"`
	Cars          []SaleListEntry `json:"-"`
}

// DecodeLegacyAuctions parses results/auctions.json, keyed by auction id
func DecodeLegacyAuctions(data []byte) (map[string]LegacyAuction, error) {
	var raw map[string]struct {
		LegacyAuction
		Cars json.RawMessage `json:"cars"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode auctions file: %w", err)
	}

	out := make(map[string]LegacyAuction, len(raw))
	for id, r := range raw {
		a := r.LegacyAuction
		if len(r.Cars) > 0 && !bytes.Equal(bytes.TrimSpace(r.Cars), []byte("null")) {
			cars, err := DecodeSaleList(r.Cars)
			if err != nil {
				return nil, fmt.Errorf("auction %s: %w", id, err)
			}
			a.Cars = cars
		}
		out[id] = a
	}
	return out, nil
}

// ParseNumber extracts a number from scraped text such as "$1,250.00 USD" or "41,565 mi"
func ParseNumber(s string) (float64, bool) {
	var b strings.Builder
	seenDigit := false
scan:
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			seenDigit = true
		case r == '.' && seenDigit:
			b.WriteRune(r)
		case r == ',':
		default:
			if seenDigit {
				break scan
			}
		}
	}
	if !seenDigit {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(b.String(), "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseYesNo(s string) *bool {
	var v bool
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		v = true
	case "no", "n", "false", "0":
		v = false
	default:
		return nil
	}
	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
