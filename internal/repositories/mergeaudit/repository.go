package mergeaudit

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "provider_merges"

// Repository handles the merge audit trail
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new merge audit repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create records a merge
func (r *Repository) Create(ctx context.Context, audit *models.MergeAudit) error {
	ctx, span := tracing.StartSpan(ctx, "mergeaudit.Repository.Create")
	defer span.End()

	if audit.ID == "" {
		audit.ID = uuid.New().String()
	}
	if audit.PerformedAt.IsZero() {
		audit.PerformedAt = time.Now().UTC()
	}
	if len(audit.Reparented) == 0 {
		audit.Reparented = []byte("{}")
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols("id", "survivor_id", "merged_id", "mode", "resolutions", "merged_snapshot", "reparented", "performed_by", "performed_at")
	// lib/pq sends []byte as bytea, so JSONB columns are written as text
	ib.Values(audit.ID, audit.SurvivorID, audit.MergedID, string(audit.Mode), string(audit.Resolutions), string(audit.MergedSnapshot), string(audit.Reparented), audit.PerformedBy, audit.PerformedAt)

	query, args := ib.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to record provider merge")
		return errs.Persistence("failed to record provider merge")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"id":          audit.ID,
		"survivor_id": audit.SurvivorID,
		"merged_id":   audit.MergedID,
		"mode":        audit.Mode,
	}).Info("Recorded provider merge")
	return nil
}

// ListByProvider returns merges where the provider survived or was merged away,
// newest first. An empty providerID lists every merge.
func (r *Repository) ListByProvider(ctx context.Context, providerID string, limit int) ([]models.MergeAudit, error) {
	ctx, span := tracing.StartSpan(ctx, "mergeaudit.Repository.ListByProvider")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "survivor_id", "merged_id", "mode", "resolutions", "merged_snapshot", "reparented", "performed_by", "performed_at")
	sb.From(table)
	if providerID != "" {
		sb.Where(sb.Or(
			sb.Equal("survivor_id", providerID),
			sb.Equal("merged_id", providerID),
		))
	}
	sb.OrderBy("performed_at").Desc()
	if limit > 0 {
		sb.Limit(limit)
	}

	query, args := sb.Build()
	audits := []models.MergeAudit{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &audits, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list provider merges")
		return nil, errs.Persistence("failed to list provider merges")
	}
	return audits, nil
}
