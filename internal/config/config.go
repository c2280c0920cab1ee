// Package config reads service settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Snapshot store backends.
const (
	StoreNone     = "none"
	StoreBigQuery = "bigquery"
	StorePostgres = "postgres"
)

// Config holds every setting the commands need.
type Config struct {
	Port           string
	BackendBaseURL string
	BackendTimeout time.Duration
	LogLevel       string

	MonthCap      int
	DefaultMonths int

	GCPProject      string
	BQDataset       string
	BQSnapshotTable string
	SnapshotStore   string
	DatabaseURL     string
	GCSExportBucket string

	NotionToken       string
	NotionReportsDBID string
	GeminiModel       string

	ExportQueueSize int
	ExportWorkers   int
}

// Load reads .env files (missing ones are ignored) and then the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("Load: read env file: %w", err)
	}

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		BackendBaseURL:    getEnv("BACKEND_API_BASE", "http://localhost:8000/api"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		GCPProject:        getEnv("GCP_PROJECT", ""),
		BQDataset:         getEnv("BQ_DATASET", "finance"),
		BQSnapshotTable:   getEnv("BQ_SNAPSHOT_TABLE", "report_snapshots"),
		SnapshotStore:     strings.ToLower(getEnv("SNAPSHOT_STORE", StoreNone)),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		GCSExportBucket:   getEnv("GCS_EXPORT_BUCKET", ""),
		NotionToken:       getEnv("NOTION_TOKEN", ""),
		NotionReportsDBID: getEnv("NOTION_REPORTS_DB_ID", ""),
		GeminiModel:       getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
	}

	var err error
	if cfg.BackendTimeout, err = getDuration("BACKEND_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.MonthCap, err = getInt("ANALYTICS_MONTH_CAP", 24); err != nil {
		return nil, err
	}
	if cfg.DefaultMonths, err = getInt("ANALYTICS_DEFAULT_MONTHS", 6); err != nil {
		return nil, err
	}
	if cfg.ExportQueueSize, err = getInt("EXPORT_QUEUE_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.ExportWorkers, err = getInt("EXPORT_WORKERS", 5); err != nil {
		return nil, err
	}

	switch cfg.SnapshotStore {
	case StoreNone, StoreBigQuery, StorePostgres:
	default:
		return nil, fmt.Errorf("Load: unknown SNAPSHOT_STORE %q", cfg.SnapshotStore)
	}
	if cfg.SnapshotStore == StorePostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("Load: DATABASE_URL is required for the postgres snapshot store")
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("Load: %s: %w", key, err)
	}
	return v, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("Load: %s: %w", key, err)
	}
	return v, nil
}
