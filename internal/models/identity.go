package models

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// IdentityKind says which field an entry's identity was derived from
type IdentityKind int

const (
	IdentityLotNumber  IdentityKind = iota + 1 // sale list lot number string
	IdentityVIN                                // details VIN
	IdentityNumericLot                         // details numeric lot number
	IdentityTitle                              // last resort, may collide
)

func (k IdentityKind) prefix() string {
	switch k {
	case IdentityLotNumber:
		return "lotNr"
	case IdentityVIN:
		return "vin"
	case IdentityNumericLot:
		return "lot"
	case IdentityTitle:
		return "title"
	}
	return "unknown"
}

// Identity is the in-memory match key for a sale list entry during one reconciliation pass.
// It is comparable and can be used directly as a map key.
type Identity struct {
	Kind  IdentityKind
	Value string
}

// String renders the identity as "<kind>:<value>", e.g. "lotNr:41234567"
func (id Identity) String() string {
	return id.Kind.prefix() + ":" + id.Value
}

// Weak reports whether the identity fell back to the title, where two distinct lots can collide
func (id Identity) Weak() bool {
	return id.Kind == IdentityTitle
}

// Identity derives the match key, first non-empty wins:
// lot number string, VIN, numeric lot number from details, then title.
func (e *SaleListEntry) Identity() Identity {
	if lotNr := strings.TrimSpace(e.LotNr); lotNr != "" {
		return Identity{Kind: IdentityLotNumber, Value: lotNr}
	}
	if e.Details != nil {
		if e.Details.VIN != "" {
			return Identity{Kind: IdentityVIN, Value: e.Details.VIN}
		}
		if e.Details.LotNumber != 0 {
			return Identity{Kind: IdentityNumericLot, Value: strconv.Itoa(e.Details.LotNumber)}
		}
	}
	return Identity{Kind: IdentityTitle, Value: NormalizeTitle(e.Title)}
}

// NormalizeTitle trims and NFC-normalizes a lot title
func NormalizeTitle(title string) string {
	return norm.NFC.String(strings.TrimSpace(title))
}
