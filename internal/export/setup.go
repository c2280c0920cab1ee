package export

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-analytics/internal/config"
	"github.com/dvloznov/finance-analytics/internal/gcsexport"
	infraBQ "github.com/dvloznov/finance-analytics/internal/infra/bigquery"
	"github.com/dvloznov/finance-analytics/internal/infra/postgres"
	"github.com/dvloznov/finance-analytics/internal/jobs"
	"github.com/dvloznov/finance-analytics/internal/logger"
	"github.com/dvloznov/finance-analytics/internal/narrative"
	"github.com/dvloznov/finance-analytics/internal/notionsync"
)

// Closer releases the clients opened by Configure.
type Closer func() error

// Configure registers a sink for every target cfg has settings for.
// Targets without settings stay disabled.
func Configure(ctx context.Context, d *Dispatcher, cfg *config.Config) (Closer, error) {
	log := logger.FromContext(ctx)
	var closers []func() error

	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (Closer, error) {
		_ = closeAll()
		return nil, err
	}

	if cfg.GCSExportBucket != "" {
		w, err := gcsexport.NewWriter(ctx, cfg.GCSExportBucket)
		if err != nil {
			return fail(fmt.Errorf("Configure: gcs: %w", err))
		}
		closers = append(closers, w.Close)
		d.Register(jobs.TargetGCS, SinkFunc(w.WriteReport))
	}

	switch cfg.SnapshotStore {
	case config.StoreBigQuery:
		repo, err := infraBQ.NewSnapshotRepository(ctx, infraBQ.TableRef{
			ProjectID: cfg.GCPProject,
			DatasetID: cfg.BQDataset,
			Table:     cfg.BQSnapshotTable,
		})
		if err != nil {
			return fail(fmt.Errorf("Configure: bigquery snapshots: %w", err))
		}
		closers = append(closers, repo.Close)
		d.Register(jobs.TargetSnapshot, SinkFunc(repo.SaveSnapshot))
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(fmt.Errorf("Configure: postgres snapshots: %w", err))
		}
		closers = append(closers, func() error { pool.Close(); return nil })
		d.Register(jobs.TargetSnapshot, SinkFunc(postgres.NewSnapshotRepository(pool).SaveSnapshot))
	}

	if cfg.NotionToken != "" && cfg.NotionReportsDBID != "" {
		publisher := notionsync.NewReportPublisher(notionsync.NewNotionClient(cfg.NotionToken), cfg.NotionReportsDBID, false)
		d.Register(jobs.TargetNotion, SinkFunc(publisher.PublishReport))
	}

	if cfg.GeminiModel != "" {
		gen, err := narrative.NewGeminiGenerator(ctx, cfg.GeminiModel)
		if err != nil {
			// The genai client needs credentials; the other targets still work.
			log.Warn().Err(err).Msg("Narrative export disabled")
		} else {
			d.Register(jobs.TargetNarrative, SinkFunc(narrative.NewNarrator(gen).Narrate))
		}
	}

	for _, t := range jobs.Targets {
		log.Info().Str("target", string(t)).Bool("enabled", d.Enabled(t)).Msg("Export target")
	}

	return closeAll, nil
}
