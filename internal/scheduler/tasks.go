package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"profitradar/internal/models"
	"profitradar/internal/reconcile"
	"profitradar/internal/scraper"
	"profitradar/internal/store"
)

const (
	TaskCalendar = "calendar"
	TaskSales    = "sales"
	TaskAll      = "all"
)

// Recorder is told about every finished task run
type Recorder interface {
	RecordScrape(task string, err error)
}

// Report summarises one task run
type Report struct {
	RunID      string `json:"runId"`
	Task       string `json:"task"`
	Month      string `json:"month"`
	Year       int    `json:"year"`
	Auctions   int    `json:"auctions"` // calendar: auctions saved
	Selected   int    `json:"selected"` // sales: auctions picked by date
	Reconciled int    `json:"reconciled"`
	Failed     int    `json:"failed"`
	Changes    int    `json:"changes"`
	Appended   int    `json:"appended"`
}

// Runner executes the calendar and sales scraping tasks
type Runner struct {
	rec      *reconcile.Reconciler
	src      scraper.Source
	recorder Recorder
	now      func() time.Time
}

func NewRunner(rec *reconcile.Reconciler, src scraper.Source, recorder Recorder) *Runner {
	return &Runner{rec: rec, src: src, recorder: recorder, now: time.Now}
}

// Run executes one task by name. upcoming widens the sales task from today's
// auctions to every auction from today on.
func (r *Runner) Run(ctx context.Context, task string, upcoming bool) ([]*Report, error) {
	switch task {
	case TaskCalendar:
		rep, err := r.RunCalendar(ctx)
		return []*Report{rep}, err
	case TaskSales:
		rep, err := r.RunSales(ctx, upcoming)
		return []*Report{rep}, err
	case TaskAll:
		cal, err := r.RunCalendar(ctx)
		if err != nil {
			return []*Report{cal}, err
		}
		sales, err := r.RunSales(ctx, upcoming)
		return []*Report{cal, sales}, err
	default:
		return nil, fmt.Errorf("unknown task %q", task)
	}
}

// RunCalendar scrapes the current month's calendar and replaces the stored month
func (r *Runner) RunCalendar(ctx context.Context) (rep *Report, err error) {
	now := r.now()
	rep = &Report{RunID: uuid.NewString(), Task: TaskCalendar, Month: now.Month().String(), Year: now.Year()}
	defer func() { r.record(TaskCalendar, err) }()

	log.Printf("[INFO] run %s: scraping calendar for %s %d", rep.RunID, rep.Month, rep.Year)
	auctions, err := r.src.Calendar(ctx, rep.Month, rep.Year)
	if err != nil {
		return rep, fmt.Errorf("failed to scrape calendar: %w", err)
	}

	saved, err := r.rec.SaveCalendarMonth(ctx, rep.Month, auctions)
	if err != nil {
		return rep, err
	}
	rep.Year = saved.Year
	rep.Auctions = saved.Total
	log.Printf("[INFO] run %s: saved %d auctions for %s %d", rep.RunID, saved.Total, saved.Month, saved.Year)
	return rep, nil
}

// RunSales reconciles the sale list of every selected auction in the current
// month, scraping the calendar first when the month is not stored yet.
// A failing auction is logged and skipped.
func (r *Runner) RunSales(ctx context.Context, upcoming bool) (rep *Report, err error) {
	now := r.now()
	rep = &Report{RunID: uuid.NewString(), Task: TaskSales, Month: now.Month().String(), Year: now.Year()}
	defer func() { r.record(TaskSales, err) }()

	doc, err := r.rec.GetCalendarMonth(ctx, rep.Month, rep.Year)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[INFO] run %s: no calendar stored for %s %d, scraping it first", rep.RunID, rep.Month, rep.Year)
		cal, calErr := r.RunCalendar(ctx)
		if calErr != nil {
			return rep, calErr
		}
		doc, err = r.rec.GetCalendarMonth(ctx, cal.Month, cal.Year)
	}
	if err != nil {
		return rep, fmt.Errorf("failed to load calendar: %w", err)
	}

	selected := SelectAuctions(doc.Auctions, now, upcoming)
	rep.Selected = len(selected)
	log.Printf("[INFO] run %s: %d of %d auctions selected", rep.RunID, len(selected), len(doc.Auctions))

	for _, a := range selected {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		entries, err := r.src.SaleList(ctx, a.ViewSalesLink)
		if err != nil {
			log.Printf("[ERROR] run %s: failed to scrape %s: %v", rep.RunID, a.ViewSalesLink, err)
			rep.Failed++
			continue
		}

		res, err := r.rec.IncrementalAttachSaleList(ctx, a.ViewSalesLink, entries)
		if err != nil {
			log.Printf("[ERROR] run %s: failed to reconcile %s: %v", rep.RunID, a.ViewSalesLink, err)
			rep.Failed++
			continue
		}
		rep.Reconciled++
		rep.Changes += res.Changes
		rep.Appended += res.Appended
	}

	log.Printf("[INFO] run %s: reconciled %d, failed %d, %d changes, %d new lots",
		rep.RunID, rep.Reconciled, rep.Failed, rep.Changes, rep.Appended)
	if rep.Selected > 0 && rep.Reconciled == 0 {
		return rep, fmt.Errorf("all %d selected auctions failed", rep.Selected)
	}
	return rep, nil
}

func (r *Runner) record(task string, err error) {
	if r.recorder != nil {
		r.recorder.RecordScrape(task, err)
	}
}

// SelectAuctions keeps auctions held on now's day, or from now's day on when
// upcoming is set. Auctions with unreadable sale dates are skipped.
func SelectAuctions(auctions []models.Auction, now time.Time, upcoming bool) []models.Auction {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var out []models.Auction
	for _, a := range auctions {
		date, ok := reconcile.ParseSaleDate(a.SaleDate)
		if !ok {
			continue
		}
		if reconcile.SameDay(now, date) || (upcoming && date.After(startOfDay)) {
			out = append(out, a)
		}
	}
	return out
}
