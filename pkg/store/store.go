// Package store declares the record store consumed by duplicate detection and merging
package store

import (
	"context"

	"github.com/Ramsey-B/clover/pkg/models"
)

// ProviderLister lists the population scanned for duplicates
type ProviderLister interface {
	ListActiveProviders(ctx context.Context) ([]models.ProviderSummary, error)
}

// Store is the record store used by the merge resolvers
type Store interface {
	ProviderLister

	// GetProviderFull returns an errs.NotFound error when the id does not exist
	GetProviderFull(ctx context.Context, id string) (*models.ProviderWithCounts, error)
	// UpdateProviderFields writes every mergeable field and bumps the version.
	// A version mismatch fails with errs.Conflict.
	UpdateProviderFields(ctx context.Context, id string, fields models.ProviderFields, expectedVersion int) (*models.Provider, error)
	// ReparentDependents moves notes, history, prices and onboarding cards
	ReparentDependents(ctx context.Context, fromID, toID string) (*models.Reparented, error)
	// RestoreDependents moves the records listed in a receipt back to their original owner
	RestoreDependents(ctx context.Context, receipt *models.Reparented) error
	// DeleteProvider removes the row. A version mismatch fails with errs.Conflict.
	DeleteProvider(ctx context.Context, id string, expectedVersion int) error

	RecordMerge(ctx context.Context, audit *models.MergeAudit) error
	ListMerges(ctx context.Context, providerID string) ([]models.MergeAudit, error)
}

// Transactor is implemented by stores that can apply several writes atomically.
// Every store call made with the context passed to fn joins the transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
