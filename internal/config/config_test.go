package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var keys = []string{
	"PORT", "BACKEND_API_BASE", "BACKEND_TIMEOUT", "LOG_LEVEL", "ANALYTICS_MONTH_CAP",
	"ANALYTICS_DEFAULT_MONTHS", "GCP_PROJECT", "BQ_DATASET", "BQ_SNAPSHOT_TABLE", "SNAPSHOT_STORE",
	"DATABASE_URL", "GCS_EXPORT_BUCKET", "NOTION_TOKEN", "NOTION_REPORTS_DB_ID", "GEMINI_MODEL",
	"EXPORT_QUEUE_SIZE", "EXPORT_WORKERS",
}

// clearEnv unsets every key; t.Setenv restores the originals afterwards,
// including values godotenv writes during the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" || cfg.BackendBaseURL != "http://localhost:8000/api" {
		t.Errorf("server defaults = %q %q", cfg.Port, cfg.BackendBaseURL)
	}
	if cfg.BackendTimeout != 15*time.Second || cfg.MonthCap != 24 || cfg.DefaultMonths != 6 {
		t.Errorf("numeric defaults = %v %d %d", cfg.BackendTimeout, cfg.MonthCap, cfg.DefaultMonths)
	}
	if cfg.SnapshotStore != StoreNone || cfg.BQDataset != "finance" || cfg.BQSnapshotTable != "report_snapshots" {
		t.Errorf("store defaults = %q %q %q", cfg.SnapshotStore, cfg.BQDataset, cfg.BQSnapshotTable)
	}
	if cfg.ExportQueueSize != 100 || cfg.ExportWorkers != 5 || cfg.GeminiModel != "gemini-2.5-flash" {
		t.Errorf("export defaults = %d %d %q", cfg.ExportQueueSize, cfg.ExportWorkers, cfg.GeminiModel)
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	content := "PORT=9090\nANALYTICS_MONTH_CAP=36\nSNAPSHOT_STORE=BigQuery\nGCP_PROJECT=demo\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("Port = %q, want environment to win over .env", cfg.Port)
	}
	if cfg.MonthCap != 36 || cfg.SnapshotStore != StoreBigQuery || cfg.GCPProject != "demo" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad int", map[string]string{"ANALYTICS_MONTH_CAP": "many"}},
		{"bad duration", map[string]string{"BACKEND_TIMEOUT": "soon"}},
		{"unknown store", map[string]string{"SNAPSHOT_STORE": "redis"}},
		{"postgres without url", map[string]string{"SNAPSHOT_STORE": "postgres"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(filepath.Join(t.TempDir(), "none.env")); err == nil {
				t.Error("Load() error = nil, want error")
			}
		})
	}
}
