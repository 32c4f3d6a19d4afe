package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestMigrationStatus(t *testing.T) {
	db := newTestDatabase(t)
	ctx := context.Background()

	status, err := db.MigrationStatus(ctx, LegacyImportStatusKey)
	if err != nil {
		t.Fatalf("MigrationStatus failed: %v", err)
	}
	if status != "pending" {
		t.Fatalf("expected pending, got %q", status)
	}

	if err := db.SetMigrationStatus(ctx, LegacyImportStatusKey, "completed"); err != nil {
		t.Fatalf("SetMigrationStatus failed: %v", err)
	}
	status, _ = db.MigrationStatus(ctx, LegacyImportStatusKey)
	if status != "completed" {
		t.Fatalf("expected completed, got %q", status)
	}

	if v, err := db.MigrationStatus(ctx, "missing"); err != nil || v != "" {
		t.Fatalf("expected empty value for unknown key, got %q err=%v", v, err)
	}
	if v, _ := db.MigrationStatus(ctx, SchemaVersionKey); v != "1" {
		t.Fatalf("expected schema version 1, got %q", v)
	}
}

func TestBackupCurrentData(t *testing.T) {
	db := newTestDatabase(t)

	dataDir := t.TempDir()
	files := map[string]string{
		"auctions.json":         "{}",
		"copart_sale_123.json":  "[]",
		"unrelated.json":        "{}",
		"copart_sale_notes.txt": "skip",
	}
	for name, contents := range files {
		if err := os.WriteFile(filepath.Join(dataDir, name), []byte(contents), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	backupDir, err := db.BackupCurrentData(dataDir)
	if err != nil {
		t.Fatalf("BackupCurrentData failed: %v", err)
	}
	if backupDir == "" {
		t.Fatal("expected a backup directory")
	}
	for _, name := range []string{"auctions.json", "copart_sale_123.json"} {
		if _, err := os.Stat(filepath.Join(backupDir, name)); err != nil {
			t.Fatalf("expected %s to be backed up: %v", name, err)
		}
	}
	for _, name := range []string{"unrelated.json", "copart_sale_notes.txt"} {
		if _, err := os.Stat(filepath.Join(backupDir, name)); !os.IsNotExist(err) {
			t.Fatalf("did not expect %s in backup", name)
		}
	}

	empty, err := db.BackupCurrentData(t.TempDir())
	if err != nil || empty != "" {
		t.Fatalf("expected no backup for empty dir, got %q err=%v", empty, err)
	}
}
