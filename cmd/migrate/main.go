package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/finance-analytics/internal/config"
	infraBQ "github.com/dvloznov/finance-analytics/internal/infra/bigquery"
	"github.com/dvloznov/finance-analytics/internal/infra/postgres"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

func main() {
	log := logger.New()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	var (
		store         = flag.String("store", cfg.SnapshotStore, "Snapshot store: bigquery or postgres (or set SNAPSHOT_STORE env)")
		projectID     = flag.String("project", cfg.GCPProject, "GCP project ID (or set GCP_PROJECT env)")
		datasetID     = flag.String("dataset", cfg.BQDataset, "BigQuery dataset ID (or set BQ_DATASET env)")
		table         = flag.String("table", cfg.BQSnapshotTable, "BigQuery snapshot table (or set BQ_SNAPSHOT_TABLE env)")
		databaseURL   = flag.String("database-url", cfg.DatabaseURL, "Postgres connection string (or set DATABASE_URL env)")
		appliedBy     = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
		migrationsDir = flag.String("migrations", "migrations/bigquery", "Path to BigQuery migrations directory")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	switch *store {
	case config.StoreBigQuery:
		ref := infraBQ.TableRef{ProjectID: *projectID, DatasetID: *datasetID, Table: *table}
		if err := migrateBigQuery(ctx, log, ref, *migrationsDir, *appliedBy); err != nil {
			log.Fatal().Err(err).Msg("BigQuery migration failed")
		}
	case config.StorePostgres:
		if err := migratePostgres(ctx, *databaseURL); err != nil {
			log.Fatal().Err(err).Msg("Postgres migration failed")
		}
	default:
		log.Fatal().Str("store", *store).Msg("Error: -store must be bigquery or postgres")
	}

	log.Info().Str("store", *store).Msg("Migrations complete")
}

func migratePostgres(ctx context.Context, databaseURL string) error {
	pool, err := postgres.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	return postgres.NewSnapshotRepository(pool).EnsureSchema(ctx)
}

func migrateBigQuery(ctx context.Context, log zerolog.Logger, ref infraBQ.TableRef, dir, appliedBy string) error {
	repo, err := infraBQ.NewSnapshotRepository(ctx, ref)
	if err != nil {
		return err
	}
	defer repo.Close()

	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}
	log.Info().Str("table", ref.FullName()).Msg("Snapshot table ready")

	// Create BigQuery client
	client, err := bigquery.NewClient(ctx, ref.ProjectID)
	if err != nil {
		return fmt.Errorf("migrateBigQuery: create client: %w", err)
	}
	defer client.Close()

	// Ensure schema_migrations table exists
	if err := ensureSchemaMigrationsTable(ctx, client, ref); err != nil {
		return fmt.Errorf("migrateBigQuery: ensure schema_migrations: %w", err)
	}

	// Read migration files
	migrations, err := readMigrations(log, dir, ref)
	if err != nil {
		return fmt.Errorf("migrateBigQuery: %w", err)
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	// Get applied migrations
	appliedMigrations, err := getAppliedMigrations(ctx, client, ref)
	if err != nil {
		return fmt.Errorf("migrateBigQuery: %w", err)
	}

	for _, changed := range changedMigrations(migrations, appliedMigrations) {
		log.Warn().
			Int("version", changed.Version).
			Str("name", changed.Name).
			Str("checksum", changed.Checksum).
			Msg("Applied migration file has changed since it was run")
	}

	appliedCount := 0
	for _, migration := range pendingMigrations(migrations, appliedMigrations) {
		log.Info().Int("version", migration.Version).Str("name", migration.Name).Msg("Applying migration")

		if err := runStatement(ctx, client.Query(migration.SQL)); err != nil {
			return fmt.Errorf("migrateBigQuery: execute %04d_%s: %w", migration.Version, migration.Name, err)
		}

		// Record migration in schema_migrations
		if err := recordMigration(ctx, client, ref, migration, appliedBy); err != nil {
			return fmt.Errorf("migrateBigQuery: record %04d_%s: %w", migration.Version, migration.Name, err)
		}
		appliedCount++
	}

	if appliedCount == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("applied", appliedCount).Msg("Applied migrations")
	}
	return nil
}

// pendingMigrations returns migrations whose version is not yet recorded,
// in version order.
func pendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}

	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// changedMigrations returns applied migrations whose file checksum no
// longer matches the recorded one. Rows without a checksum are skipped.
func changedMigrations(all []Migration, applied []AppliedMigration) []Migration {
	recorded := make(map[int]string, len(applied))
	for _, am := range applied {
		recorded[am.Version] = am.Checksum
	}

	var changed []Migration
	for _, m := range all {
		sum, ok := recorded[m.Version]
		if ok && sum != "" && sum != m.Checksum {
			changed = append(changed, m)
		}
	}
	return changed
}

func migrationsTable(ref infraBQ.TableRef) string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", ref.ProjectID, ref.DatasetID)
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, ref infraBQ.TableRef) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, migrationsTable(ref))

	return runStatement(ctx, client.Query(sql))
}

// readMigrations reads migration files from dir. A missing directory means
// there are no versioned migrations.
func readMigrations(log zerolog.Logger, dir string, ref infraBQ.TableRef) ([]Migration, error) {
	files, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	replacer := strings.NewReplacer(
		"{{PROJECT_ID}}", ref.ProjectID,
		"{{DATASET_ID}}", ref.DatasetID,
		"{{SNAPSHOT_TABLE}}", ref.Table,
	)

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			log.Warn().Str("file", file.Name()).Msg("Skipping file with invalid format")
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			log.Warn().Str("file", file.Name()).Msg("Skipping file with invalid version")
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		// Checksum covers the file before placeholders are filled in.
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      replacer.Replace(string(content)),
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// getAppliedMigrations retrieves the list of already applied migrations
func getAppliedMigrations(ctx context.Context, client *bigquery.Client, ref infraBQ.TableRef) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, migrationsTable(ref))

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		// If table doesn't exist yet, return empty list
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		am := AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
		}
		if row.Checksum.Valid {
			am.Checksum = row.Checksum.StringVal
		}
		if row.AppliedBy.Valid {
			am.AppliedBy = row.AppliedBy.StringVal
		}

		applied = append(applied, am)
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func recordMigration(ctx context.Context, client *bigquery.Client, ref infraBQ.TableRef, migration Migration, appliedBy string) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, migrationsTable(ref))

	query := client.Query(sql)
	query.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}

	return runStatement(ctx, query)
}

func runStatement(ctx context.Context, query *bigquery.Query) error {
	job, err := query.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
