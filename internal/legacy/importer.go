// Package legacy imports the JSON results written by the old scraper scripts.
package legacy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"profitradar/internal/models"
	"profitradar/internal/reconcile"
	"profitradar/internal/store"
)

const (
	StatusKey       = "legacy_import_status"
	StatusCompleted = "completed"

	auctionsFile   = "auctions.json"
	saleFilePrefix = "copart_sale_"
)

// StatusStore persists whether the import already ran
type StatusStore interface {
	MigrationStatus(ctx context.Context, key string) (string, error)
	SetMigrationStatus(ctx context.Context, key, value string) error
}

// Summary reports what one import did
type Summary struct {
	Skipped    bool `json:"skipped"`
	Auctions   int  `json:"auctions"`
	Placed     int  `json:"placed"` // auctions added to a month because no stored month held them
	Reconciled int  `json:"reconciled"`
	Failed     int  `json:"failed"`
	Entries    int  `json:"entries"`
	Orphans    int  `json:"orphans"` // sale files with no matching auction
}

type Importer struct {
	rec    *reconcile.Reconciler
	status StatusStore
	now    func() time.Time
}

func NewImporter(rec *reconcile.Reconciler, status StatusStore) *Importer {
	return &Importer{rec: rec, status: status, now: time.Now}
}

// Import reads dir/auctions.json and dir/copart_sale_<id>.json and reconciles every
// auction's cars into storage. A completed import is skipped unless force is set.
func (im *Importer) Import(ctx context.Context, dir string, force bool) (*Summary, error) {
	summary := &Summary{}

	if !force {
		status, err := im.status.MigrationStatus(ctx, StatusKey)
		if err != nil {
			return nil, err
		}
		if status == StatusCompleted {
			fmt.Println("Legacy import already completed, skipping (use --force to rerun)")
			summary.Skipped = true
			return summary, nil
		}
	}

	auctions, err := readAuctions(dir)
	if err != nil {
		return nil, err
	}
	saleFiles, err := findSaleFiles(dir)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(auctions))
	for id := range auctions {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		a := auctions[id]
		summary.Auctions++

		if err := im.importAuction(ctx, id, a, saleFiles[id], summary); err != nil {
			log.Printf("[ERROR] legacy auction %s (%s): %v", id, a.ViewSalesLink, err)
			summary.Failed++
			continue
		}
		summary.Reconciled++
	}

	for id := range saleFiles {
		if _, ok := auctions[id]; !ok {
			log.Printf("[WARN] %s%s.json has no entry in %s, skipped", saleFilePrefix, id, auctionsFile)
			summary.Orphans++
		}
	}

	if summary.Failed > 0 {
		return summary, fmt.Errorf("%d of %d legacy auctions failed to import", summary.Failed, summary.Auctions)
	}
	if err := im.status.SetMigrationStatus(ctx, StatusKey, StatusCompleted); err != nil {
		return summary, err
	}
	return summary, nil
}

func (im *Importer) importAuction(ctx context.Context, id string, a models.LegacyAuction, saleFile string, summary *Summary) error {
	if a.ViewSalesLink == "" {
		return errors.New("no viewSalesLink")
	}

	entries := a.Cars
	if saleFile != "" {
		data, err := os.ReadFile(saleFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", filepath.Base(saleFile), err)
		}
		if entries, err = models.DecodeSaleList(data); err != nil {
			return err
		}
	}

	_, _, err := im.rec.FindAuction(ctx, a.ViewSalesLink)
	if errors.Is(err, store.ErrNotFound) {
		scrapedAt := im.scrapedAt(a)
		added, err := im.rec.AddAuction(ctx, scrapedAt.Month().String(), scrapedAt.Year(), models.Auction{
			Location:      a.Location,
			ViewSalesLink: a.ViewSalesLink,
		})
		if err != nil {
			return err
		}
		if added {
			summary.Placed++
		}
	} else if err != nil {
		return err
	}

	res, err := im.rec.IncrementalAttachSaleList(ctx, a.ViewSalesLink, entries)
	if err != nil {
		return err
	}
	summary.Entries += len(entries)
	fmt.Printf("✅ Auction %s: %d cars, %d changes, %d new\n", id, len(entries), res.Changes, res.Appended)
	return nil
}

func (im *Importer) scrapedAt(a models.LegacyAuction) time.Time {
	if t, err := time.Parse(time.RFC3339, a.ScrapedAt); err == nil {
		return t
	}
	if t, ok := reconcile.ParseSaleDate(a.ScrapedAt); ok {
		return t
	}
	return im.now()
}

func readAuctions(dir string) (map[string]models.LegacyAuction, error) {
	data, err := os.ReadFile(filepath.Join(dir, auctionsFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]models.LegacyAuction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", auctionsFile, err)
	}
	return models.DecodeLegacyAuctions(data)
}

// findSaleFiles maps auction id to the path of its copart_sale_<id>.json file
func findSaleFiles(dir string) (map[string]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, saleFilePrefix+"*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sale files: %w", err)
	}
	files := make(map[string]string, len(matches))
	for _, path := range matches {
		id := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), saleFilePrefix), ".json")
		if id != "" {
			files[id] = path
		}
	}
	return files, nil
}
