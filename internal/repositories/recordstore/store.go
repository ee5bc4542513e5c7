// Package recordstore composes the Postgres repositories into the record store
// used by scanning and merging.
package recordstore

import (
	"context"
	"database/sql"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/internal/repositories/dependent"
	"github.com/Ramsey-B/clover/internal/repositories/mergeaudit"
	"github.com/Ramsey-B/clover/internal/repositories/provider"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
)

var (
	_ store.Store      = (*Store)(nil)
	_ store.Transactor = (*Store)(nil)
)

// Store is the Postgres record store
type Store struct {
	db         database.DB
	logger     ectologger.Logger
	Providers  *provider.Repository
	Dependents *dependent.Repository
	Merges     *mergeaudit.Repository
}

// New creates a record store over an open database
func New(db database.DB, logger ectologger.Logger) *Store {
	return &Store{
		db:         db,
		logger:     logger,
		Providers:  provider.NewRepository(db, logger),
		Dependents: dependent.NewRepository(db, logger),
		Merges:     mergeaudit.NewRepository(db, logger),
	}
}

func (s *Store) ListActiveProviders(ctx context.Context) ([]models.ProviderSummary, error) {
	return s.Providers.ListActive(ctx)
}

func (s *Store) GetProviderFull(ctx context.Context, id string) (*models.ProviderWithCounts, error) {
	p, err := s.Providers.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.Dependents.Count(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.ProviderWithCounts{Provider: p, Counts: counts}, nil
}

func (s *Store) UpdateProviderFields(ctx context.Context, id string, fields models.ProviderFields, expectedVersion int) (*models.Provider, error) {
	return s.Providers.UpdateFields(ctx, id, fields, expectedVersion)
}

func (s *Store) ReparentDependents(ctx context.Context, fromID, toID string) (*models.Reparented, error) {
	return s.Dependents.Reparent(ctx, fromID, toID)
}

func (s *Store) RestoreDependents(ctx context.Context, receipt *models.Reparented) error {
	if receipt == nil {
		return nil
	}
	return s.Dependents.Restore(ctx, receipt)
}

func (s *Store) DeleteProvider(ctx context.Context, id string, expectedVersion int) error {
	return s.Providers.Delete(ctx, id, expectedVersion)
}

func (s *Store) RecordMerge(ctx context.Context, audit *models.MergeAudit) error {
	return s.Merges.Create(ctx, audit)
}

func (s *Store) ListMerges(ctx context.Context, providerID string) ([]models.MergeAudit, error) {
	return s.Merges.ListByProvider(ctx, providerID, 0)
}

// WithinTransaction runs fn with a context bound to a single transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	ctxTx, tx, err := s.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return errs.Persistence("failed to begin transaction")
	}
	defer tx.Rollback(ctxTx)

	if err := fn(ctxTx); err != nil {
		return err
	}

	if err := tx.Commit(ctxTx); err != nil {
		return errs.Persistence("failed to commit transaction")
	}
	return nil
}

// Ping reports whether the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
