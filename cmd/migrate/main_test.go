package main

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	infraBQ "github.com/dvloznov/finance-analytics/internal/infra/bigquery"
)

func TestMigrationFilenamePattern(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  string
		name     string
	}{
		{"0001_latest_report_snapshots.sql", true, "0001", "latest_report_snapshots"},
		{"001_invalid.sql", false, "", ""},       // wrong number format
		{"0001_test", false, "", ""},             // missing .sql
		{"0001.sql", false, "", ""},              // missing name
		{"invalid_0001_test.sql", false, "", ""}, // wrong order
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			m := migrationPattern.FindStringSubmatch(tt.filename)
			if (m != nil) != tt.valid {
				t.Fatalf("match = %v, want %v", m != nil, tt.valid)
			}
			if tt.valid && (m[1] != tt.version || m[2] != tt.name) {
				t.Errorf("got version %s name %s", m[1], m[2])
			}
		})
	}
}

func TestReadMigrations(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"0002_second.sql": "SELECT 2 FROM `{{PROJECT_ID}}.{{DATASET_ID}}.{{SNAPSHOT_TABLE}}`",
		"0001_first.sql":  "SELECT 1",
		"notes.txt":       "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ref := infraBQ.TableRef{ProjectID: "proj", DatasetID: "ds", Table: "snaps"}
	got, err := readMigrations(zerolog.Nop(), dir, ref)
	if err != nil {
		t.Fatalf("readMigrations() error = %v", err)
	}

	if len(got) != 2 || got[0].Version != 1 || got[1].Version != 2 {
		t.Fatalf("got %+v", got)
	}
	if got[1].SQL != "SELECT 2 FROM `proj.ds.snaps`" {
		t.Errorf("placeholders not replaced: %s", got[1].SQL)
	}

	// Checksum is taken before placeholder replacement.
	want := fmt.Sprintf("%x", sha256.Sum256([]byte(files["0002_second.sql"])))
	if got[1].Checksum != want {
		t.Errorf("checksum = %s, want %s", got[1].Checksum, want)
	}
}

func TestReadMigrationsMissingDir(t *testing.T) {
	got, err := readMigrations(zerolog.Nop(), filepath.Join(t.TempDir(), "absent"), infraBQ.TableRef{})
	if err != nil || got != nil {
		t.Errorf("got %v, %v; want nil, nil", got, err)
	}
}

func TestPendingMigrations(t *testing.T) {
	all := []Migration{{Version: 1, Name: "a"}, {Version: 2, Name: "b"}, {Version: 3, Name: "c"}}
	applied := []AppliedMigration{{Version: 1}, {Version: 3}}

	got := pendingMigrations(all, applied)
	if len(got) != 1 || got[0].Version != 2 {
		t.Errorf("pending = %+v, want only version 2", got)
	}
}

func TestChangedMigrations(t *testing.T) {
	all := []Migration{
		{Version: 1, Name: "same", Checksum: "aaa"},
		{Version: 2, Name: "edited", Checksum: "bbb"},
		{Version: 3, Name: "unrecorded", Checksum: "ccc"},
		{Version: 4, Name: "pending", Checksum: "ddd"},
	}
	applied := []AppliedMigration{
		{Version: 1, Checksum: "aaa"},
		{Version: 2, Checksum: "old"},
		{Version: 3},
	}

	got := changedMigrations(all, applied)
	if len(got) != 1 || got[0].Version != 2 {
		t.Errorf("changed = %+v, want only version 2", got)
	}
}

func TestMigrationsTable(t *testing.T) {
	got := migrationsTable(infraBQ.TableRef{ProjectID: "p", DatasetID: "d", Table: "t"})
	if !strings.HasPrefix(got, "`p.d.") || !strings.HasSuffix(got, "schema_migrations`") {
		t.Errorf("migrationsTable = %s", got)
	}
}
