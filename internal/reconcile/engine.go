// Package reconcile merges freshly scraped sale lists into stored auction calendars.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"profitradar/internal/models"
	"profitradar/internal/store"
)

// Observer is told about every incremental reconciliation (metrics, notifications)
type Observer interface {
	Reconciled(ctx context.Context, res *Result)
}

// Result describes one incremental attach.
// NumberOnSale is the size of the incoming batch and is what gets persisted;
// MergedTotal is the size of the stored list after the merge.
type Result struct {
	Link         string            `json:"viewSalesLink"`
	Affected     int64             `json:"affected"`
	Changes      int               `json:"changes"`
	Appended     int               `json:"appended"`
	Written      bool              `json:"written"`
	FellBack     bool              `json:"fellBack"`
	Missing      bool              `json:"missing,omitempty"` // month found but auction vanished from it
	NumberOnSale int               `json:"numberOnSale"`
	MergedTotal  int               `json:"mergedTotal"`
	WeakMatches  int               `json:"weakMatches"` // entries keyed by title only
	NewLots      []models.Identity `json:"-"`
}

// SaveResult is returned by SaveCalendarMonth
type SaveResult struct {
	Month string `json:"month"`
	Year  int    `json:"year"`
	Total int    `json:"total"`
}

// Reconciler owns no state between calls: every operation loads, mutates a local copy and writes back
type Reconciler struct {
	store     store.Store
	now       func() time.Time
	observers []Observer
}

type Option func(*Reconciler)

// WithClock overrides time.Now, used for lastUpdated stamps and year inference
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithObserver registers an observer; may be repeated
func WithObserver(o Observer) Option {
	return func(r *Reconciler) {
		if o != nil {
			r.observers = append(r.observers, o)
		}
	}
}

func New(s store.Store, opts ...Option) *Reconciler {
	r := &Reconciler{store: s, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SaveCalendarMonth fully replaces the (month, year) document with the scraped auctions
func (r *Reconciler) SaveCalendarMonth(ctx context.Context, month string, auctions []models.Auction) (*SaveResult, error) {
	now := r.now()
	year := InferYear(auctions, now.Year())
	if auctions == nil {
		auctions = []models.Auction{}
	}

	doc := &models.CalendarMonth{
		Month:         month,
		Year:          year,
		ScrapedAt:     now,
		TotalAuctions: len(auctions),
		Auctions:      auctions,
	}
	if _, err := r.store.UpsertCalendarMonth(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to save calendar %s %d: %w", month, year, err)
	}

	return &SaveResult{Month: month, Year: year, Total: len(auctions)}, nil
}

// AddAuction appends an auction to the (month, year) document, creating the month when it
// is not stored yet. An auction whose link is already in the month is left untouched.
func (r *Reconciler) AddAuction(ctx context.Context, month string, year int, auction models.Auction) (bool, error) {
	doc, err := r.store.GetCalendarMonth(ctx, month, year)
	if errors.Is(err, store.ErrNotFound) {
		doc = &models.CalendarMonth{Month: month, Year: year, ScrapedAt: r.now(), Auctions: []models.Auction{}}
	} else if err != nil {
		return false, fmt.Errorf("failed to load calendar %s %d: %w", month, year, err)
	}

	if doc.FindAuction(auction.ViewSalesLink) >= 0 {
		return false, nil
	}
	if auction.SaleList == nil {
		auction.SaleList = []models.SaleListEntry{}
	}
	doc.Auctions = append(doc.Auctions, auction)
	doc.TotalAuctions = len(doc.Auctions)

	if _, err := r.store.UpsertCalendarMonth(ctx, doc); err != nil {
		return false, fmt.Errorf("failed to save calendar %s %d: %w", month, year, err)
	}
	return true, nil
}

// GetCalendarMonth loads one stored month
func (r *Reconciler) GetCalendarMonth(ctx context.Context, month string, year int) (*models.CalendarMonth, error) {
	return r.store.GetCalendarMonth(ctx, month, year)
}

// ListCalendarMonths lists stored months, newest first
func (r *Reconciler) ListCalendarMonths(ctx context.Context) ([]models.CalendarSummary, error) {
	return r.store.ListCalendarMonths(ctx)
}

// FindAuction returns the auction with the given link and the month that holds it
func (r *Reconciler) FindAuction(ctx context.Context, viewSalesLink string) (*models.Auction, *models.CalendarMonth, error) {
	month, err := r.store.FindMonthByAuctionLink(ctx, viewSalesLink)
	if err != nil {
		return nil, nil, err
	}
	idx := month.FindAuction(viewSalesLink)
	if idx < 0 {
		return nil, nil, store.ErrNotFound
	}
	return &month.Auctions[idx], month, nil
}

// Dashboard computes dashboard figures for the given month
func (r *Reconciler) Dashboard(ctx context.Context, month string, year int) (models.DashboardMetrics, error) {
	summaries, err := r.store.ListCalendarMonths(ctx)
	if err != nil {
		return models.DashboardMetrics{}, err
	}
	doc, err := r.store.GetCalendarMonth(ctx, month, year)
	if errors.Is(err, store.ErrNotFound) {
		m := models.ComputeDashboard(nil, len(summaries))
		m.Month, m.Year = month, year
		return m, nil
	}
	if err != nil {
		return models.DashboardMetrics{}, err
	}
	return models.ComputeDashboard(doc, len(summaries)), nil
}

// AttachSaleList replaces the auction's sale list outright and sets numberOnSale to its length
func (r *Reconciler) AttachSaleList(ctx context.Context, viewSalesLink string, saleList []models.SaleListEntry) (int64, error) {
	if saleList == nil {
		saleList = []models.SaleListEntry{}
	}
	res, err := r.store.ReplaceSaleList(ctx, viewSalesLink, saleList, len(saleList))
	if err != nil {
		return 0, fmt.Errorf("failed to attach sale list to %s: %w", viewSalesLink, err)
	}
	return res.Affected(), nil
}

// IncrementalAttachSaleList merges incoming into the stored sale list of the auction at viewSalesLink.
// Unknown lots are appended, known lots are merged field by field. Nothing is written when the
// merge produced no changes. When no stored month holds the link it falls back to AttachSaleList.
func (r *Reconciler) IncrementalAttachSaleList(ctx context.Context, viewSalesLink string, incoming []models.SaleListEntry) (*Result, error) {
	res := &Result{Link: viewSalesLink, NumberOnSale: len(incoming)}

	month, err := r.store.FindMonthByAuctionLink(ctx, viewSalesLink)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[WARN] no calendar holds %s, falling back to full attach", viewSalesLink)
		affected, err := r.AttachSaleList(ctx, viewSalesLink, incoming)
		if err != nil {
			return nil, err
		}
		res.FellBack = true
		res.Affected = affected
		if affected > 0 {
			res.Written = true
			res.Changes = len(incoming)
			res.MergedTotal = len(incoming)
		}
		r.notify(ctx, res)
		return res, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load calendar for %s: %w", viewSalesLink, err)
	}

	idx := month.FindAuction(viewSalesLink)
	if idx < 0 {
		res.Missing = true
		r.notify(ctx, res)
		return res, nil
	}

	merged, stats := mergeSaleList(month.Auctions[idx].SaleList, incoming, r.now())
	res.Changes = stats.changes
	res.Appended = len(stats.appended)
	res.NewLots = stats.appended
	res.WeakMatches = stats.weak
	res.MergedTotal = len(merged)

	if stats.changes == 0 {
		r.notify(ctx, res)
		return res, nil
	}

	update, err := r.store.ReplaceSaleList(ctx, viewSalesLink, merged, len(incoming))
	if err != nil {
		return nil, fmt.Errorf("failed to write merged sale list for %s: %w", viewSalesLink, err)
	}
	res.Written = true
	res.Affected = update.Affected()
	r.notify(ctx, res)
	return res, nil
}

type mergeStats struct {
	changes  int
	appended []models.Identity
	weak     int
}

func mergeSaleList(existing, incoming []models.SaleListEntry, now time.Time) ([]models.SaleListEntry, mergeStats) {
	var stats mergeStats

	merged := make([]models.SaleListEntry, len(existing), len(existing)+len(incoming))
	for i := range existing {
		merged[i] = existing[i].Clone()
	}

	index := make(map[models.Identity]int, len(merged))
	for i := range merged {
		index[merged[i].Identity()] = i
	}

	for i := range incoming {
		n := &incoming[i]
		key := n.Identity()
		if key.Weak() {
			stats.weak++
			if key.Value == "" {
				log.Printf("[WARN] sale list entry %d has no lot number, VIN or title; matching on empty title", i)
			}
		}

		pos, ok := index[key]
		if !ok {
			merged = append(merged, n.Clone())
			index[key] = len(merged) - 1
			stats.changes++
			stats.appended = append(stats.appended, key)
			continue
		}
		stats.changes += mergeEntry(&merged[pos], n, now)
	}

	return merged, stats
}

func (r *Reconciler) notify(ctx context.Context, res *Result) {
	for _, o := range r.observers {
		o.Reconciled(ctx, res)
	}
}
