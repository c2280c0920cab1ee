// Package loader keeps the last successfully fetched dataset per user and
// runs the analytics engine over it.
package loader

import (
	"context"
	"fmt"
	"sync"

	"github.com/dvloznov/finance-analytics/internal/analytics"
	"github.com/dvloznov/finance-analytics/internal/backend"
	"github.com/dvloznov/finance-analytics/internal/logger"
)

// Snapshot is the dataset a user's reports are computed from.
type Snapshot struct {
	Dataset *backend.Dataset
	// LastError is the message of the most recent failed reload, if any.
	LastError string
}

// Loader caches datasets and serves reports. It is safe for concurrent use.
type Loader struct {
	fetcher backend.Fetcher
	engine  *analytics.Engine

	mu        sync.RWMutex
	snapshots map[string]*Snapshot
}

// New creates a Loader.
func New(fetcher backend.Fetcher, engine *analytics.Engine) *Loader {
	return &Loader{
		fetcher:   fetcher,
		engine:    engine,
		snapshots: make(map[string]*Snapshot),
	}
}

// Reload fetches a fresh dataset. On failure the previous dataset is kept
// and the error is returned and recorded.
func (l *Loader) Reload(ctx context.Context, session backend.SessionContext) (*backend.Dataset, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	log := logger.WithSession(logger.FromContext(ctx), session.UserID)

	ds, err := l.fetcher.FetchAll(ctx, session)

	l.mu.Lock()
	defer l.mu.Unlock()

	snap, ok := l.snapshots[session.UserID]
	if !ok {
		snap = &Snapshot{}
		l.snapshots[session.UserID] = snap
	}
	if err != nil {
		snap.LastError = err.Error()
		log.Error().Err(err).Bool("has_previous", snap.Dataset != nil).Msg("Reload failed")
		return nil, err
	}

	snap.Dataset = ds
	snap.LastError = ""
	log.Info().
		Int("accounts", len(ds.Accounts)).
		Int("transactions", len(ds.Transactions)).
		Int("budgets", len(ds.Budgets)).
		Int("goals", len(ds.Goals)).
		Msg("Dataset reloaded")
	return ds, nil
}

// Snapshot returns a copy of the user's snapshot.
func (l *Loader) Snapshot(userID string) (Snapshot, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap, ok := l.snapshots[userID]
	if !ok {
		return Snapshot{}, false
	}
	return *snap, true
}

// Ensure returns the cached dataset, fetching it when none exists yet.
func (l *Loader) Ensure(ctx context.Context, session backend.SessionContext) (*backend.Dataset, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}
	if snap, ok := l.Snapshot(session.UserID); ok && snap.Dataset != nil {
		return snap.Dataset, nil
	}
	return l.Reload(ctx, session)
}

// Report computes analytics for the session from the cached dataset.
func (l *Loader) Report(ctx context.Context, session backend.SessionContext, q analytics.Query) (*analytics.Report, error) {
	ds, err := l.Ensure(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("Report: %w", err)
	}
	return l.engine.Run(Input(ds), q), nil
}

// Engine returns the engine reports are computed with.
func (l *Loader) Engine() *analytics.Engine {
	return l.engine
}

// Input converts a dataset into engine input.
func Input(ds *backend.Dataset) analytics.Input {
	if ds == nil {
		return analytics.Input{}
	}
	return analytics.Input{
		Accounts:     ds.Accounts,
		Transactions: ds.Transactions,
		Budgets:      ds.Budgets,
		Goals:        ds.Goals,
	}
}
