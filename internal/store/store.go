// Package store defines the persistence contract for calendar month documents.
// Implementations live in internal/database (SQLite) and internal/mongostore (MongoDB).
package store

import (
	"context"
	"errors"

	"profitradar/internal/models"
)

// ErrNotFound is returned when no document matches a lookup
var ErrNotFound = errors.New("document not found")

// UpdateResult reports what an update touched
type UpdateResult struct {
	Matched  int64
	Modified int64
	Upserted int64
}

// Affected is the modified count, or the upserted count when nothing was modified
func (r UpdateResult) Affected() int64 {
	if r.Modified > 0 {
		return r.Modified
	}
	return r.Upserted
}

// Store persists one document per (month, year), each embedding its auctions and their sale lists
type Store interface {
	// UpsertCalendarMonth fully replaces the document keyed by (month.Month, month.Year)
	UpsertCalendarMonth(ctx context.Context, month *models.CalendarMonth) (UpdateResult, error)

	// GetCalendarMonth returns ErrNotFound when the month has never been saved
	GetCalendarMonth(ctx context.Context, month string, year int) (*models.CalendarMonth, error)

	// FindMonthByAuctionLink returns the document whose auctions contain viewSalesLink, or ErrNotFound
	FindMonthByAuctionLink(ctx context.Context, viewSalesLink string) (*models.CalendarMonth, error)

	// ReplaceSaleList sets saleList and numberOnSale on the auction matching viewSalesLink.
	// It never creates documents; an unknown link yields a zero result.
	ReplaceSaleList(ctx context.Context, viewSalesLink string, saleList []models.SaleListEntry, numberOnSale int) (UpdateResult, error)

	// ListCalendarMonths returns summaries, newest first
	ListCalendarMonths(ctx context.Context) ([]models.CalendarSummary, error)

	Close(ctx context.Context) error
}
