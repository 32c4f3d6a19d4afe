package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Metadata keys
const (
	SchemaVersionKey      = "schema_version"
	LegacyImportStatusKey = "legacy_import_status"
)

// MigrationStatus reads a metadata value; unknown keys read as ""
func (d *Database) MigrationStatus(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM database_metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read metadata %s: %w", key, err)
	}
	return value, nil
}

// SetMigrationStatus writes a metadata value
func (d *Database) SetMigrationStatus(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO database_metadata (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update metadata %s: %w", key, err)
	}
	return nil
}

// BackupCurrentData copies the legacy JSON results in dataDir to a timestamped backup directory
func (d *Database) BackupCurrentData(dataDir string) (string, error) {
	backupDir := filepath.Join(dataDir, fmt.Sprintf("backup_%d", time.Now().UnixNano()))

	entries, err := os.ReadDir(dataDir)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", dataDir, err)
	}

	copied := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		if name != "auctions.json" && !strings.HasPrefix(name, "copart_sale_") {
			continue
		}
		if copied == 0 {
			if err := os.MkdirAll(backupDir, 0755); err != nil {
				return "", fmt.Errorf("failed to create backup directory: %w", err)
			}
		}
		if err := copyFile(filepath.Join(dataDir, name), filepath.Join(backupDir, name)); err != nil {
			return "", fmt.Errorf("failed to backup %s: %w", name, err)
		}
		copied++
	}

	if copied == 0 {
		return "", nil
	}
	fmt.Printf("📦 Backed up %d files to: %s\n", copied, backupDir)
	return backupDir, nil
}

// copyFile copies a file from src to dst
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}
