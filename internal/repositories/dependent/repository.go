package dependent

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// tables maps each dependent kind to the table holding it
var tables = map[models.DependentKind]string{
	models.DependentNotes:           "provider_notes",
	models.DependentHistory:         "provider_history",
	models.DependentPrices:          "provider_prices",
	models.DependentOnboardingCards: "provider_onboarding_cards",
}

// Repository handles the records owned by a provider
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new dependent repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Count tallies each dependent kind owned by a provider
func (r *Repository) Count(ctx context.Context, providerID string) (models.DependentCounts, error) {
	ctx, span := tracing.StartSpan(ctx, "dependent.Repository.Count")
	defer span.End()

	var counts models.DependentCounts
	for _, kind := range models.AllDependentKinds {
		sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
		sb.Select("COUNT(*)")
		sb.From(tables[kind])
		sb.Where(sb.Equal("provider_id", providerID))

		query, args := sb.Build()
		var n int
		if err := r.db.Conn(ctx).GetContext(ctx, &n, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("kind", kind).Error("Failed to count dependents")
			return counts, errs.Persistence("failed to count %s for provider %s", kind, providerID)
		}
		counts.Add(kind, n)
	}

	return counts, nil
}

// Reparent moves every dependent of fromID to toID and returns the moved ids.
// Rows are locked before they are moved so the receipt matches what changed.
func (r *Repository) Reparent(ctx context.Context, fromID, toID string) (*models.Reparented, error) {
	ctx, span := tracing.StartSpan(ctx, "dependent.Repository.Reparent")
	defer span.End()

	receipt := &models.Reparented{FromID: fromID, ToID: toID}
	for _, kind := range models.AllDependentKinds {
		ids, err := r.lockIDs(ctx, kind, fromID)
		if err != nil {
			return nil, err
		}
		if err := r.move(ctx, kind, ids, fromID, toID); err != nil {
			return nil, err
		}
		receipt.Set(kind, ids)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"from_id": fromID,
		"to_id":   toID,
		"moved":   receipt.Counts().Total(),
	}).Info("Re-parented provider dependents")

	return receipt, nil
}

// Restore moves the records listed in a receipt back to their original provider
func (r *Repository) Restore(ctx context.Context, receipt *models.Reparented) error {
	ctx, span := tracing.StartSpan(ctx, "dependent.Repository.Restore")
	defer span.End()

	for _, kind := range models.AllDependentKinds {
		if err := r.move(ctx, kind, receipt.IDs(kind), receipt.ToID, receipt.FromID); err != nil {
			return err
		}
	}
	return nil
}

// Add attaches a minimal dependent record to a provider, used for seeding and tests
func (r *Repository) Add(ctx context.Context, kind models.DependentKind, providerID string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "dependent.Repository.Add")
	defer span.End()

	id := uuid.New().String()
	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(tables[kind])
	switch kind {
	case models.DependentNotes:
		ib.Cols("id", "provider_id", "body")
		ib.Values(id, providerID, "")
	case models.DependentHistory:
		ib.Cols("id", "provider_id", "event_type")
		ib.Values(id, providerID, "created")
	case models.DependentPrices:
		ib.Cols("id", "provider_id", "service", "amount_cents")
		ib.Values(id, providerID, "", 0)
	case models.DependentOnboardingCards:
		ib.Cols("id", "provider_id", "stage")
		ib.Values(id, providerID, "new")
	default:
		return "", errs.InvalidInput("unknown dependent kind %s", kind)
	}

	query, args := ib.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("kind", kind).Error("Failed to add dependent")
		return "", errs.Persistence("failed to add %s for provider %s", kind, providerID)
	}
	return id, nil
}

func (r *Repository) lockIDs(ctx context.Context, kind models.DependentKind, providerID string) ([]string, error) {
	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id")
	sb.From(tables[kind])
	sb.Where(sb.Equal("provider_id", providerID))
	sb.OrderBy("id")
	sb.ForUpdate()

	query, args := sb.Build()
	ids := []string{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &ids, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("kind", kind).Error("Failed to lock dependents")
		return nil, errs.Persistence("failed to read %s for provider %s", kind, providerID)
	}
	return ids, nil
}

func (r *Repository) move(ctx context.Context, kind models.DependentKind, ids []string, fromID, toID string) error {
	if len(ids) == 0 {
		return nil
	}

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(tables[kind])
	ub.Set(ub.Assign("provider_id", toID))
	ub.Where(
		ub.In("id", sqlbuilder.Flatten(ids)...),
		ub.Equal("provider_id", fromID),
	)

	query, args := ub.Build()
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("kind", kind).Error("Failed to move dependents")
		return errs.Persistence("failed to move %s from %s to %s", kind, fromID, toID)
	}
	if rows, _ := result.RowsAffected(); rows != int64(len(ids)) {
		return errs.Conflict("%s of provider %s changed while moving (%d of %d)", kind, fromID, rows, len(ids))
	}
	return nil
}
