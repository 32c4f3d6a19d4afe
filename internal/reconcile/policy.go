package reconcile

import (
	"time"

	"profitradar/internal/models"
)

type stringField struct {
	name string
	get  func(*models.SaleListEntry) *string
}

// Live auction state: always take the latest non-empty value
var rollingFields = []stringField{
	{"currentBid", func(e *models.SaleListEntry) *string { return &e.CurrentBid }},
	{"buyItNow", func(e *models.SaleListEntry) *string { return &e.BuyItNow }},
	{"actionCountDown", func(e *models.SaleListEntry) *string { return &e.ActionCountDown }},
}

// Stable once known: only fill when nothing was captured before
var enrichmentFields = []stringField{
	{"odometer", func(e *models.SaleListEntry) *string { return &e.Odometer }},
	{"odometerStatus", func(e *models.SaleListEntry) *string { return &e.OdometerStatus }},
	{"EstimateRetail", func(e *models.SaleListEntry) *string { return &e.EstimateRetail }},
	{"conditionTitle", func(e *models.SaleListEntry) *string { return &e.ConditionTitle }},
	{"damage", func(e *models.SaleListEntry) *string { return &e.Damage }},
	{"keys", func(e *models.SaleListEntry) *string { return &e.Keys }},
	{"location", func(e *models.SaleListEntry) *string { return &e.Location }},
	{"yardLocation", func(e *models.SaleListEntry) *string { return &e.YardLocation }},
	{"item", func(e *models.SaleListEntry) *string { return &e.Item }},
}

// mergeEntry applies incoming onto existing in place and returns the number of field writes
func mergeEntry(existing, incoming *models.SaleListEntry, now time.Time) int {
	changes := 0

	for _, f := range rollingFields {
		ev, nv := f.get(existing), f.get(incoming)
		if *nv != "" && *nv != *ev {
			*ev = *nv
			changes++
		}
	}

	for _, f := range enrichmentFields {
		ev, nv := f.get(existing), f.get(incoming)
		if *ev == "" && *nv != "" {
			*ev = *nv
			changes++
		}
	}

	if incoming.Details != nil {
		if existing.Details == nil {
			existing.Details = &models.LotDetails{}
		}
		changes += mergeDetails(existing.Details, incoming.Details, now)
	}

	return changes
}

// mergeDetails fills missing lot attributes, refreshes rolling price/countdown fields,
// unions images and stamps lastUpdated. The stamp alone is not counted as a change.
func mergeDetails(dst, src *models.LotDetails, now time.Time) int {
	changes := 0

	changes += fillString(&dst.Title, src.Title)
	changes += fillInt(&dst.Year, src.Year)
	changes += fillString(&dst.Make, src.Make)
	changes += fillString(&dst.Model, src.Model)
	changes += fillString(&dst.Trim, src.Trim)
	changes += fillBool(&dst.RunAndDrive, src.RunAndDrive)
	changes += fillString(&dst.VIN, src.VIN)
	changes += fillInt(&dst.LotNumber, src.LotNumber)
	changes += fillString(&dst.LaneItem, src.LaneItem)
	changes += fillString(&dst.SaleName, src.SaleName)
	changes += fillString(&dst.Location, src.Location)
	changes += fillBool(&dst.EngineVerified, src.EngineVerified)
	changes += fillString(&dst.EngineVerifiedNote, src.EngineVerifiedNote)
	changes += fillString(&dst.EngineStatus, src.EngineStatus)
	changes += fillBool(&dst.TransmissionEngages, src.TransmissionEngages)
	changes += fillString(&dst.TransmissionNote, src.TransmissionNote)
	changes += fillString(&dst.TitleCode, src.TitleCode)
	changes += fillString(&dst.TitleStatus, src.TitleStatus)
	changes += fillInt(&dst.Odometer, src.Odometer)
	changes += fillString(&dst.OdometerUnit, src.OdometerUnit)
	changes += fillString(&dst.OdometerStatus, src.OdometerStatus)
	changes += fillString(&dst.PrimaryDamage, src.PrimaryDamage)
	changes += fillInt(&dst.Cylinders, src.Cylinders)
	changes += fillString(&dst.Color, src.Color)
	changes += fillBool(&dst.HasKey, src.HasKey)
	changes += fillString(&dst.EngineType, src.EngineType)
	changes += fillString(&dst.Transmission, src.Transmission)
	changes += fillString(&dst.VehicleType, src.VehicleType)
	changes += fillString(&dst.Drivetrain, src.Drivetrain)
	changes += fillString(&dst.Fuel, src.Fuel)
	changes += fillString(&dst.SaleDate, src.SaleDate)
	changes += fillStrings(&dst.Highlights, src.Highlights)
	changes += fillString(&dst.Notes, src.Notes)

	// Rolling
	if src.CurrentBid != 0 && src.CurrentBid != dst.CurrentBid {
		dst.CurrentBid = src.CurrentBid
		changes++
	}
	if src.BuyItNow != nil && (dst.BuyItNow == nil || *dst.BuyItNow != *src.BuyItNow) {
		v := *src.BuyItNow
		dst.BuyItNow = &v
		changes++
	}
	if src.AuctionCountdown != "" && src.AuctionCountdown != dst.AuctionCountdown {
		dst.AuctionCountdown = src.AuctionCountdown
		changes++
	}

	if images, added := unionImages(dst.Images, src.Images); added > 0 {
		dst.Images = images
		changes++
	}

	dst.LastUpdated = now.UTC().Format(time.RFC3339)
	return changes
}

func fillString(dst *string, src string) int {
	if *dst == "" && src != "" {
		*dst = src
		return 1
	}
	return 0
}

func fillInt(dst *int, src int) int {
	if *dst == 0 && src != 0 {
		*dst = src
		return 1
	}
	return 0
}

func fillBool(dst **bool, src *bool) int {
	if *dst == nil && src != nil {
		v := *src
		*dst = &v
		return 1
	}
	return 0
}

func fillStrings(dst *[]string, src []string) int {
	if len(*dst) == 0 && len(src) > 0 {
		*dst = append([]string(nil), src...)
		return 1
	}
	return 0
}

// unionImages keeps existing order and appends unseen incoming URLs; it never drops anything
func unionImages(existing, incoming []string) ([]string, int) {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	for _, img := range existing {
		seen[img] = struct{}{}
	}
	merged := append([]string(nil), existing...)
	added := 0
	for _, img := range incoming {
		if _, ok := seen[img]; ok {
			continue
		}
		seen[img] = struct{}{}
		merged = append(merged, img)
		added++
	}
	return merged, added
}
