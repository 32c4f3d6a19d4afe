package validation

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"profitradar/internal/models"
)

const (
	MinYear          = 2000
	MaxYear          = 2100
	MaxLinkLength    = 2048
	MaxSaleListItems = 5000
)

// NormalizeMonth accepts full or abbreviated English month names in any case and
// returns the canonical form used as the calendar key ("feb" -> "February")
func NormalizeMonth(month string) (string, error) {
	month = cases.Title(language.English).String(strings.ToLower(strings.TrimSpace(month)))
	if month == "" {
		return "", fmt.Errorf("month is required")
	}

	for _, layout := range []string{"January", "Jan"} {
		if t, err := time.Parse(layout, month); err == nil {
			return t.Month().String(), nil
		}
	}
	return "", fmt.Errorf("unknown month %q", month)
}

// ParseYear validates a year query value
func ParseYear(raw string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("year must be a number")
	}
	if err := ValidateYear(year); err != nil {
		return 0, err
	}
	return year, nil
}

func ValidateYear(year int) error {
	if year < MinYear || year > MaxYear {
		return fmt.Errorf("year must be between %d and %d", MinYear, MaxYear)
	}
	return nil
}

// ValidateSalesLink checks that an auction link is an absolute http(s) URL
func ValidateSalesLink(link string) error {
	if link == "" {
		return fmt.Errorf("viewSalesLink is required")
	}
	if len(link) > MaxLinkLength {
		return fmt.Errorf("viewSalesLink must be at most %d characters", MaxLinkLength)
	}

	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("viewSalesLink is not a valid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("viewSalesLink must be an absolute http(s) URL")
	}
	return nil
}

// ValidateSaleList bounds the batch size and rejects entries with no identity at all
func ValidateSaleList(entries []models.SaleListEntry) error {
	if len(entries) > MaxSaleListItems {
		return fmt.Errorf("sale list must have at most %d entries", MaxSaleListItems)
	}
	for i := range entries {
		if id := entries[i].Identity(); id.Value == "" {
			return fmt.Errorf("entry %d has no lot number, VIN or title", i)
		}
	}
	return nil
}

// ValidateAuctions checks a calendar payload before it replaces a stored month
func ValidateAuctions(auctions []models.Auction) error {
	seen := make(map[string]struct{}, len(auctions))
	for i, a := range auctions {
		if err := ValidateSalesLink(a.ViewSalesLink); err != nil {
			return fmt.Errorf("auction %d: %w", i, err)
		}
		if _, dup := seen[a.ViewSalesLink]; dup {
			return fmt.Errorf("auction %d: duplicate viewSalesLink %s", i, a.ViewSalesLink)
		}
		seen[a.ViewSalesLink] = struct{}{}
	}
	return nil
}
