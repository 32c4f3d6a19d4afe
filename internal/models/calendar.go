package models

import (
	"slices"
	"time"
)

// CalendarMonth is one scraped auction calendar, stored as a single document per (month, year)
type CalendarMonth struct {
	Month         string    `json:"month" bson:"month"`
	Year          int       `json:"year" bson:"year"`
	ScrapedAt     time.Time `json:"scrapedAt" bson:"scrapedAt"`
	TotalAuctions int       `json:"totalAuctions" bson:"totalAuctions"`
	Auctions      []Auction `json:"auctions" bson:"auctions"`

	CreatedAt time.Time `json:"createdAt,omitempty" bson:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// FindAuction returns the index of the auction with the given sales link, or -1
func (m *CalendarMonth) FindAuction(viewSalesLink string) int {
	for i := range m.Auctions {
		if m.Auctions[i].ViewSalesLink == viewSalesLink {
			return i
		}
	}
	return -1
}

// Auction is one sale event listed on the calendar.
// ViewSalesLink is its identity within a month.
type Auction struct {
	Location      string          `json:"location" bson:"location"`
	SaleDate      string          `json:"saleDate" bson:"saleDate"` // ISO date, epoch ms or free text
	SaleTime      string          `json:"saleTime,omitempty" bson:"saleTime,omitempty"`
	ViewSalesLink string          `json:"viewSalesLink" bson:"viewSalesLink"`
	NumberOnSale  *int            `json:"numberOnSale,omitempty" bson:"numberOnSale,omitempty"`
	SaleList      []SaleListEntry `json:"saleList" bson:"saleList"`
}

// SaleListEntry is one lot inside an auction's sale list
type SaleListEntry struct {
	Title           string      `json:"title" bson:"title"`
	LotNr           string      `json:"lotNr" bson:"lotNr"`
	Odometer        string      `json:"odometer" bson:"odometer"`
	OdometerStatus  string      `json:"odometerStatus" bson:"odometerStatus"`
	EstimateRetail  string      `json:"EstimateRetail" bson:"EstimateRetail"`
	ConditionTitle  string      `json:"conditionTitle" bson:"conditionTitle"`
	Damage          string      `json:"damage" bson:"damage"`
	Keys            string      `json:"keys" bson:"keys"`
	Location        string      `json:"location" bson:"location"`
	YardLocation    string      `json:"yardLocation" bson:"yardLocation"`
	Item            string      `json:"item" bson:"item"`
	ActionCountDown string      `json:"actionCountDown" bson:"actionCountDown"`
	CurrentBid      string      `json:"currentBid" bson:"currentBid"` // e.g. "$1,250 USD"
	BuyItNow        string      `json:"buyItNow,omitempty" bson:"buyItNow,omitempty"`
	Details         *LotDetails `json:"details,omitempty" bson:"details,omitempty"`
}

// LotDetails holds the lot page attributes. Zero numbers and nil booleans mean "not scraped yet".
type LotDetails struct {
	Title               string   `json:"title,omitempty" bson:"title,omitempty"`
	Year                int      `json:"year,omitempty" bson:"year,omitempty"`
	Make                string   `json:"make,omitempty" bson:"make,omitempty"`
	Model               string   `json:"model,omitempty" bson:"model,omitempty"`
	Trim                string   `json:"trim,omitempty" bson:"trim,omitempty"`
	RunAndDrive         *bool    `json:"runAndDrive,omitempty" bson:"runAndDrive,omitempty"`
	VIN                 string   `json:"vin,omitempty" bson:"vin,omitempty"`
	LotNumber           int      `json:"lotNumber,omitempty" bson:"lotNumber,omitempty"`
	LaneItem            string   `json:"laneItem,omitempty" bson:"laneItem,omitempty"` // e.g. "-/-"
	SaleName            string   `json:"saleName,omitempty" bson:"saleName,omitempty"`
	Location            string   `json:"location,omitempty" bson:"location,omitempty"`
	EngineVerified      *bool    `json:"engineVerified,omitempty" bson:"engineVerified,omitempty"`
	EngineVerifiedNote  string   `json:"engineVerifiedNote,omitempty" bson:"engineVerifiedNote,omitempty"`
	EngineStatus        string   `json:"engineStatus,omitempty" bson:"engineStatus,omitempty"`
	TransmissionEngages *bool    `json:"transmissionEngages,omitempty" bson:"transmissionEngages,omitempty"`
	TransmissionNote    string   `json:"transmissionNote,omitempty" bson:"transmissionNote,omitempty"`
	TitleCode           string   `json:"titleCode,omitempty" bson:"titleCode,omitempty"`     // e.g. "PA - Cert Of Title"
	TitleStatus         string   `json:"titleStatus,omitempty" bson:"titleStatus,omitempty"` // e.g. "Title Absent"
	Odometer            int      `json:"odometer,omitempty" bson:"odometer,omitempty"`
	OdometerUnit        string   `json:"odometerUnit,omitempty" bson:"odometerUnit,omitempty"` // "mi" or "km"
	OdometerStatus      string   `json:"odometerStatus,omitempty" bson:"odometerStatus,omitempty"`
	PrimaryDamage       string   `json:"primaryDamage,omitempty" bson:"primaryDamage,omitempty"`
	Cylinders           int      `json:"cylinders,omitempty" bson:"cylinders,omitempty"`
	Color               string   `json:"color,omitempty" bson:"color,omitempty"`
	HasKey              *bool    `json:"hasKey,omitempty" bson:"hasKey,omitempty"`
	EngineType          string   `json:"engineType,omitempty" bson:"engineType,omitempty"`
	Transmission        string   `json:"transmission,omitempty" bson:"transmission,omitempty"`
	VehicleType         string   `json:"vehicleType,omitempty" bson:"vehicleType,omitempty"`
	Drivetrain          string   `json:"drivetrain,omitempty" bson:"drivetrain,omitempty"`
	Fuel                string   `json:"fuel,omitempty" bson:"fuel,omitempty"`
	SaleDate            string   `json:"saleDate,omitempty" bson:"saleDate,omitempty"`
	Highlights          []string `json:"highlights,omitempty" bson:"highlights,omitempty"`
	Notes               string   `json:"notes,omitempty" bson:"notes,omitempty"`
	LastUpdated         string   `json:"lastUpdated,omitempty" bson:"lastUpdated,omitempty"`

	// Live auction state
	CurrentBid       float64  `json:"currentBid,omitempty" bson:"currentBid,omitempty"`
	BuyItNow         *float64 `json:"buyItNow,omitempty" bson:"buyItNow,omitempty"`
	AuctionCountdown string   `json:"auctionCountdown,omitempty" bson:"auctionCountdown,omitempty"` // e.g. "0D 16H 10min"

	Images []string `json:"images,omitempty" bson:"images,omitempty"`
}

// Clone returns a deep copy so merged entries never alias caller-owned slices or pointers
func (e SaleListEntry) Clone() SaleListEntry {
	if e.Details != nil {
		d := e.Details.Clone()
		e.Details = &d
	}
	return e
}

// Clone returns a deep copy of the details record
func (d LotDetails) Clone() LotDetails {
	d.RunAndDrive = cloneBool(d.RunAndDrive)
	d.EngineVerified = cloneBool(d.EngineVerified)
	d.TransmissionEngages = cloneBool(d.TransmissionEngages)
	d.HasKey = cloneBool(d.HasKey)
	if d.BuyItNow != nil {
		v := *d.BuyItNow
		d.BuyItNow = &v
	}
	if d.Highlights != nil {
		d.Highlights = append([]string(nil), d.Highlights...)
	}
	if d.Images != nil {
		d.Images = append([]string(nil), d.Images...)
	}
	return d
}

func cloneBool(b *bool) *bool {
	if b == nil {
		return nil
	}
	v := *b
	return &v
}

// CalendarSummary is the listing view of a stored month
type CalendarSummary struct {
	Month         string    `json:"month" bson:"month"`
	Year          int       `json:"year" bson:"year"`
	ScrapedAt     time.Time `json:"scrapedAt" bson:"scrapedAt"`
	TotalAuctions int       `json:"totalAuctions" bson:"totalAuctions"`
}

// DashboardMetrics summarises stored auction data for the dashboard
type DashboardMetrics struct {
	Month           string `json:"month"`
	Year            int    `json:"year"`
	AuctionsInMonth int    `json:"auctionsInMonth"`
	AuctionsScraped int    `json:"auctionsScraped"` // auctions with a sale list
	CarsAtAuction   int    `json:"carsAtAuction"`
	BuyNowThisMonth int    `json:"buyNowThisMonth"`
	LotsWithDetails int    `json:"lotsWithDetails"`
	MonthsPersisted int    `json:"monthsPersisted"`
}

// ComputeDashboard derives dashboard figures from a stored month
func ComputeDashboard(month *CalendarMonth, monthsPersisted int) DashboardMetrics {
	m := DashboardMetrics{MonthsPersisted: monthsPersisted}
	if month == nil {
		return m
	}
	m.Month = month.Month
	m.Year = month.Year
	m.AuctionsInMonth = len(month.Auctions)
	for _, a := range month.Auctions {
		if len(a.SaleList) > 0 {
			m.AuctionsScraped++
		}
		for _, lot := range a.SaleList {
			m.CarsAtAuction++
			if lot.BuyItNow != "" || (lot.Details != nil && lot.Details.BuyItNow != nil) {
				m.BuyNowThisMonth++
			}
			if lot.Details != nil {
				m.LotsWithDetails++
			}
		}
	}
	return m
}

// SortSummaries orders summaries newest month first
func SortSummaries(summaries []CalendarSummary) {
	slices.SortFunc(summaries, func(a, b CalendarSummary) int {
		if a.Year != b.Year {
			return b.Year - a.Year
		}
		return int(MonthNumber(b.Month)) - int(MonthNumber(a.Month))
	})
}

// MonthNumber maps an English month name to its number, 0 when unknown
func MonthNumber(name string) time.Month {
	t, err := time.Parse("January", name)
	if err != nil {
		return 0
	}
	return t.Month()
}
