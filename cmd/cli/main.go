package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/api/handlers"
	"github.com/dvloznov/finance-analytics/internal/backend"
	"github.com/dvloznov/finance-analytics/internal/config"
	"github.com/dvloznov/finance-analytics/internal/export"
	infraBQ "github.com/dvloznov/finance-analytics/internal/infra/bigquery"
	"github.com/dvloznov/finance-analytics/internal/infra/postgres"
	"github.com/dvloznov/finance-analytics/internal/jobs"
	"github.com/dvloznov/finance-analytics/internal/loader"
	"github.com/dvloznov/finance-analytics/internal/logger"
	"github.com/dvloznov/finance-analytics/internal/narrative"
	"github.com/dvloznov/finance-analytics/internal/notionsync"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log = logger.WithLevel(log, cfg.LogLevel)

	switch os.Args[1] {
	case "report":
		runReport(log, cfg)
	case "export":
		runExport(log, cfg)
	case "sync-notion":
		runSyncNotion(log, cfg)
	case "narrate":
		runNarrate(log, cfg)
	case "snapshots":
		runSnapshots(log, cfg)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Finance Analytics CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  report       Compute a report and print it as JSON")
	fmt.Println("  export       Compute a report and send it to an export target")
	fmt.Println("  sync-notion  Publish report summaries to a Notion database")
	fmt.Println("  narrate      Print a Gemini narrative for a report")
	fmt.Println("  snapshots    List saved report snapshots")
	fmt.Println("  help         Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// reportFlags are shared by every command that computes a report.
type reportFlags struct {
	user    *string
	token   *string
	start   *string
	end     *string
	account *string
	backend *string
}

func addReportFlags(fs *flag.FlagSet, cfg *config.Config) *reportFlags {
	return &reportFlags{
		user:    fs.String("user", os.Getenv("FINANCE_USER_ID"), "User ID (or set FINANCE_USER_ID env)"),
		token:   fs.String("token", os.Getenv("FINANCE_TOKEN"), "Bearer token (or set FINANCE_TOKEN env)"),
		start:   fs.String("start", "", "First month, YYYY-MM"),
		end:     fs.String("end", "", "Last month, YYYY-MM"),
		account: fs.String("account", analytics.AllAccounts, "Account ID or 'all'"),
		backend: fs.String("backend", cfg.BackendBaseURL, "Finance backend base URL (or set BACKEND_API_BASE env)"),
	}
}

func (f *reportFlags) session() backend.SessionContext {
	return backend.SessionContext{UserID: *f.user, Token: *f.token}
}

func (f *reportFlags) query() (analytics.Query, error) {
	return handlers.ParseQuery(map[string][]string{
		"start":      {*f.start},
		"end":        {*f.end},
		"account_id": {*f.account},
	})
}

func newLoader(cfg *config.Config, baseURL string) *loader.Loader {
	engine := analytics.NewEngine(analytics.Options{
		MonthCap:      cfg.MonthCap,
		DefaultMonths: cfg.DefaultMonths,
	})
	return loader.New(backend.NewClient(baseURL, nil, cfg.BackendTimeout), engine)
}

// mustReport parses the shared flags and computes one report.
func mustReport(ctx context.Context, log zerolog.Logger, l *loader.Loader, f *reportFlags) *analytics.Report {
	q, err := f.query()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid range")
	}
	report, err := l.Report(ctx, f.session(), q)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute report")
	}
	return report
}

func printJSON(log zerolog.Logger, v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
}

func runReport(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	rf := addReportFlags(fs, cfg)
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	report := mustReport(ctx, log, newLoader(cfg, *rf.backend), rf)
	printJSON(log, report)
}

func runExport(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	rf := addReportFlags(fs, cfg)
	target := fs.String("target", "", "Export target: gcs, snapshot, notion or narrative")
	fs.Parse(os.Args[2:])

	t := jobs.ExportTarget(*target)
	if !t.Valid() {
		log.Fatal().Str("target", *target).Msg("Error: --target must be one of gcs, snapshot, notion, narrative")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	reports := newLoader(cfg, *rf.backend)
	dispatcher := export.NewDispatcher(reports)
	closeSinks, err := export.Configure(ctx, dispatcher, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to configure export targets")
	}
	defer closeSinks()

	if !dispatcher.Enabled(t) {
		log.Fatal().Str("target", *target).Msg("Export target is not configured")
	}

	report := mustReport(ctx, log, reports, rf)
	result, err := dispatcher.Export(ctx, t, *rf.user, report)
	if err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Println(result)
}

func runSyncNotion(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	rf := addReportFlags(fs, cfg)
	notionToken := fs.String("notion-token", cfg.NotionToken, "Notion API token (or set NOTION_TOKEN env)")
	notionDBID := fs.String("notion-db-id", cfg.NotionReportsDBID, "Notion database ID (or set NOTION_REPORTS_DB_ID env)")
	monthly := fs.Bool("monthly", false, "Publish one page per month of the range")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	fs.Parse(os.Args[2:])

	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id is required")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	q, err := rf.query()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid range")
	}

	reports := newLoader(cfg, *rf.backend)
	if q.Range.IsZero() {
		q.Range = reports.Engine().DefaultRange()
	}

	queries := []analytics.Query{q}
	if *monthly {
		queries = monthlyQueries(q)
	}

	log.Info().
		Time("start", q.Range.Start).
		Time("end", q.Range.End).
		Int("pages", len(queries)).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion sync")

	publisher := notionsync.NewReportPublisher(notionsync.NewNotionClient(*notionToken), *notionDBID, *dryRun)
	for _, mq := range queries {
		report, err := reports.Report(ctx, rf.session(), mq)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to compute report")
		}
		pageID, err := publisher.PublishReport(ctx, *rf.user, report)
		if err != nil {
			log.Fatal().Err(err).Msg("Sync failed")
		}
		fmt.Printf("%s\t%s\n", notionsync.ReportTitle(report), pageID)
	}

	fmt.Println("Sync completed successfully.")
}

// monthlyQueries splits q into one query per calendar month of its range.
func monthlyQueries(q analytics.Query) []analytics.Query {
	var out []analytics.Query
	for m := analytics.StartOfMonth(q.Range.Start); !m.After(q.Range.End); m = m.AddDate(0, 1, 0) {
		mq := q
		mq.Range = analytics.MonthRange(m, m)
		out = append(out, mq)
	}
	return out
}

func runNarrate(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("narrate", flag.ExitOnError)
	rf := addReportFlags(fs, cfg)
	model := fs.String("model", cfg.GeminiModel, "Gemini model name (or set GEMINI_MODEL env)")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	gen, err := narrative.NewGeminiGenerator(ctx, *model)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini client")
	}

	report := mustReport(ctx, log, newLoader(cfg, *rf.backend), rf)
	text, err := narrative.NewNarrator(gen).Narrate(ctx, *rf.user, report)
	if err != nil {
		log.Fatal().Err(err).Msg("Narration failed")
	}

	fmt.Println(text)
}

func runSnapshots(log zerolog.Logger, cfg *config.Config) {
	fs := flag.NewFlagSet("snapshots", flag.ExitOnError)
	user := fs.String("user", os.Getenv("FINANCE_USER_ID"), "User ID (or set FINANCE_USER_ID env)")
	store := fs.String("store", cfg.SnapshotStore, "Snapshot store: bigquery or postgres (or set SNAPSHOT_STORE env)")
	limit := fs.Int("limit", infraBQ.DefaultListLimit, "Maximum snapshots to list")
	fs.Parse(os.Args[2:])

	if *user == "" {
		log.Fatal().Msg("Error: --user is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	switch *store {
	case config.StoreBigQuery:
		repo, err := infraBQ.NewSnapshotRepository(ctx, infraBQ.TableRef{
			ProjectID: cfg.GCPProject,
			DatasetID: cfg.BQDataset,
			Table:     cfg.BQSnapshotTable,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery snapshot repository")
		}
		defer repo.Close()

		rows, err := repo.ListSnapshots(ctx, *user, *limit)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list snapshots")
		}
		for _, r := range rows {
			fmt.Printf("%s\t%s\t%s..%s\tnet=%.2f\thealth=%d\tcredit=%d\n",
				r.SnapshotID, r.AccountID, r.PeriodStart, r.PeriodEnd, r.Net, r.HealthScore, r.CreditScore)
		}
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Postgres")
		}
		defer pool.Close()

		rows, err := postgres.NewSnapshotRepository(pool).ListSnapshots(ctx, *user, *limit)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to list snapshots")
		}
		for _, r := range rows {
			fmt.Printf("%s\t%s\t%s..%s\tnet=%s\thealth=%d\tcredit=%d\n",
				r.SnapshotID, r.AccountID, r.PeriodStart.Format("2006-01-02"), r.PeriodEnd.Format("2006-01-02"),
				r.Net.StringFixed(2), r.HealthScore, r.CreditScore)
		}
	default:
		log.Fatal().Str("store", *store).Msg("Error: --store must be bigquery or postgres")
	}
}
