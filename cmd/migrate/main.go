package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"profitradar/internal/backend"
	"profitradar/internal/config"
	"profitradar/internal/database"
	"profitradar/internal/legacy"
	"profitradar/internal/reconcile"
)

func main() {
	dir := flag.String("dir", "results", "directory holding auctions.json and copart_sale_<id>.json")
	force := flag.Bool("force", false, "rerun the import even if it already completed")
	statusOnly := flag.Bool("status", false, "show the import status and exit")
	flag.Parse()

	fmt.Println("🗃️  Profit Radar Legacy Import Tool")
	fmt.Println("===================================")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	ctx := context.Background()
	store, err := backend.Open(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	defer store.Close(ctx)

	if *statusOnly {
		showStatus(ctx, store)
		return
	}

	if _, err := os.Stat(*dir); err != nil {
		log.Fatalf("Cannot read legacy results directory %s: %v", *dir, err)
	}

	if db, ok := store.(*database.Database); ok {
		if _, err := db.BackupCurrentData(*dir); err != nil {
			log.Fatal("Failed to back up legacy results:", err)
		}
	}

	fmt.Printf("📥 Importing legacy results from %s into %s storage...\n", *dir, cfg.StoreBackend)
	summary, err := legacy.NewImporter(reconcile.New(store), store).Import(ctx, *dir, *force)
	if summary != nil && !summary.Skipped {
		fmt.Printf("   Auctions read:      %d\n", summary.Auctions)
		fmt.Printf("   Reconciled:         %d\n", summary.Reconciled)
		fmt.Printf("   Placed into months: %d\n", summary.Placed)
		fmt.Printf("   Sale list entries:  %d\n", summary.Entries)
		if summary.Orphans > 0 {
			fmt.Printf("   ⚠️  Orphan sale files: %d\n", summary.Orphans)
		}
		if summary.Failed > 0 {
			fmt.Printf("   ❌ Failed:          %d\n", summary.Failed)
		}
	}
	if err != nil {
		fmt.Printf("❌ Import incomplete: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Import complete")
}

func showStatus(ctx context.Context, store backend.Backend) {
	status, err := store.MigrationStatus(ctx, legacy.StatusKey)
	if err != nil {
		log.Fatal("Failed to read import status:", err)
	}
	if status == "" {
		status = "pending"
	}
	fmt.Printf("📊 Legacy import status: %s\n", status)

	months, err := store.ListCalendarMonths(ctx)
	if err != nil {
		log.Fatal("Failed to list calendar months:", err)
	}
	fmt.Printf("📅 Stored calendar months: %d\n", len(months))
	for _, m := range months {
		fmt.Printf("   %s %d: %d auctions\n", m.Month, m.Year, m.TotalAuctions)
	}
}
