package reconcile

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"profitradar/internal/models"
)

var (
	isoDatePattern   = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)
	epochMillisRegex = regexp.MustCompile(`^\d{10,}$`)
)

// Layouts seen in calendar and lot pages, tried in order
var saleDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Mon. Jan 02, 2006 03:04 PM MST", // lot page: "Thu. Feb 05, 2026 02:00 AM GMT"
	"Mon Jan 02, 2006 03:04 PM MST",
	"Jan 02, 2006",
	"January 2, 2006",
	"01/02/2006",
}

// InferYear scans auction sale dates for a YYYY-MM-DD date or an epoch-millisecond string.
// The first match wins; fallback is returned when no auction carries either.
func InferYear(auctions []models.Auction, fallback int) int {
	for _, a := range auctions {
		if m := isoDatePattern.FindStringSubmatch(a.SaleDate); m != nil {
			if year, err := strconv.Atoi(m[1]); err == nil {
				return year
			}
		}
		if epochMillisRegex.MatchString(a.SaleDate) {
			if ms, err := strconv.ParseInt(a.SaleDate, 10, 64); err == nil {
				return time.UnixMilli(ms).Year()
			}
		}
	}
	return fallback
}

// ParseSaleDate understands epoch milliseconds, ISO dates and the long forms used on lot pages
func ParseSaleDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if epochMillisRegex.MatchString(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.UnixMilli(ms), true
	}
	for _, layout := range saleDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	if m := isoDatePattern.FindString(s); m != "" {
		if t, err := time.ParseInLocation("2006-01-02", m, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// SameDay compares calendar days in a's location
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
