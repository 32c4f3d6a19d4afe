package database

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"profitradar/internal/models"
	"profitradar/internal/store"
)

//go:embed schema.sql
var schema string

// Database is the SQLite implementation of store.Store
type Database struct {
	db *sql.DB
}

var _ store.Store = (*Database)(nil)

// NewDatabase creates a new database connection
func NewDatabase(dbPath string) (*Database, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database connection with SQLite optimizations
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_cache_size=10000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	database := &Database{db: db}

	if err := database.initializeSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}

// Close closes the database connection
func (d *Database) Close(ctx context.Context) error {
	return d.db.Close()
}

func (d *Database) initializeSchema() error {
	if _, err := d.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return nil
}

// Ping checks the connection, used by the health endpoint
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// UpsertCalendarMonth replaces the whole (month, year) row, keeping its created_at
func (d *Database) UpsertCalendarMonth(ctx context.Context, month *models.CalendarMonth) (store.UpdateResult, error) {
	auctions := month.Auctions
	if auctions == nil {
		auctions = []models.Auction{}
	}
	payload, err := json.Marshal(auctions)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to encode auctions: %w", err)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM calendar_months WHERE month = ? AND year = ?`,
		month.Month, month.Year).Scan(&exists)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to check calendar month: %w", err)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO calendar_months (month, year, scraped_at, total_auctions, auctions_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(month, year) DO UPDATE SET
			scraped_at = excluded.scraped_at,
			total_auctions = excluded.total_auctions,
			auctions_json = excluded.auctions_json,
			updated_at = excluded.updated_at
	`
	_, err = tx.ExecContext(ctx, query, month.Month, month.Year, month.ScrapedAt.UTC(),
		month.TotalAuctions, string(payload), now, now)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to upsert calendar month: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if exists > 0 {
		return store.UpdateResult{Matched: 1, Modified: 1}, nil
	}
	return store.UpdateResult{Upserted: 1}, nil
}

// GetCalendarMonth loads one month, or store.ErrNotFound
func (d *Database) GetCalendarMonth(ctx context.Context, month string, year int) (*models.CalendarMonth, error) {
	query := `
		SELECT month, year, scraped_at, total_auctions, auctions_json, created_at, updated_at
		FROM calendar_months
		WHERE month = ? AND year = ?
	`
	return scanMonth(d.db.QueryRowContext(ctx, query, month, year))
}

const findByLinkQuery = `
	SELECT month, year, scraped_at, total_auctions, auctions_json, created_at, updated_at
	FROM calendar_months
	WHERE EXISTS (
		SELECT 1 FROM json_each(calendar_months.auctions_json)
		WHERE json_extract(json_each.value, '$.viewSalesLink') = ?
	)
	ORDER BY updated_at DESC
	LIMIT 1
`

// FindMonthByAuctionLink returns the most recently written month whose auctions contain viewSalesLink
func (d *Database) FindMonthByAuctionLink(ctx context.Context, viewSalesLink string) (*models.CalendarMonth, error) {
	return scanMonth(d.db.QueryRowContext(ctx, findByLinkQuery, viewSalesLink))
}

// ReplaceSaleList rewrites the sale list of one embedded auction inside a transaction
func (d *Database) ReplaceSaleList(ctx context.Context, viewSalesLink string, saleList []models.SaleListEntry, numberOnSale int) (store.UpdateResult, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	month, err := scanMonthRaw(tx.QueryRowContext(ctx, findByLinkQuery, viewSalesLink), &raw)
	if errors.Is(err, store.ErrNotFound) {
		return store.UpdateResult{}, nil
	}
	if err != nil {
		return store.UpdateResult{}, err
	}

	idx := month.FindAuction(viewSalesLink)
	if idx < 0 {
		return store.UpdateResult{}, nil
	}
	if saleList == nil {
		saleList = []models.SaleListEntry{}
	}
	n := numberOnSale
	month.Auctions[idx].SaleList = saleList
	month.Auctions[idx].NumberOnSale = &n

	payload, err := json.Marshal(month.Auctions)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to encode auctions: %w", err)
	}
	if bytes.Equal(payload, []byte(raw)) {
		return store.UpdateResult{Matched: 1}, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE calendar_months SET auctions_json = ?, updated_at = ? WHERE month = ? AND year = ?`,
		string(payload), time.Now().UTC(), month.Month, month.Year)
	if err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to update sale list: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return store.UpdateResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return store.UpdateResult{Matched: 1, Modified: 1}, nil
}

// ListCalendarMonths returns summaries, newest month first
func (d *Database) ListCalendarMonths(ctx context.Context) ([]models.CalendarSummary, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT month, year, scraped_at, total_auctions FROM calendar_months`)
	if err != nil {
		return nil, fmt.Errorf("failed to query calendar months: %w", err)
	}
	defer rows.Close()

	var summaries []models.CalendarSummary
	for rows.Next() {
		var s models.CalendarSummary
		if err := rows.Scan(&s.Month, &s.Year, &s.ScrapedAt, &s.TotalAuctions); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate calendar months: %w", err)
	}

	models.SortSummaries(summaries)
	return summaries, nil
}

func scanMonth(row *sql.Row) (*models.CalendarMonth, error) {
	var raw string
	return scanMonthRaw(row, &raw)
}

// scanMonthRaw also hands back the stored auctions JSON so callers can skip no-op writes
func scanMonthRaw(row *sql.Row, raw *string) (*models.CalendarMonth, error) {
	var m models.CalendarMonth
	err := row.Scan(&m.Month, &m.Year, &m.ScrapedAt, &m.TotalAuctions, raw, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get calendar month: %w", err)
	}
	if err := json.Unmarshal([]byte(*raw), &m.Auctions); err != nil {
		return nil, fmt.Errorf("failed to decode auctions for %s %d: %w", m.Month, m.Year, err)
	}
	return &m, nil
}
