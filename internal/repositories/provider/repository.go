package provider

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"
	"github.com/lib/pq"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const table = "providers"

var columns = []string{
	"id", "name", "email", "phone", "nif", "entity_type", "website", "services", "districts",
	"technician_count", "has_admin_team", "has_own_transport", "working_hours", "status",
	"relationship_owner_id", "created_at", "updated_at", "version",
}

// row mirrors the providers table; arrays need pq's scanner
type row struct {
	ID                  string         `db:"id"`
	Name                string         `db:"name"`
	Email               *string        `db:"email"`
	Phone               *string        `db:"phone"`
	NIF                 *string        `db:"nif"`
	EntityType          string         `db:"entity_type"`
	Website             *string        `db:"website"`
	Services            pq.StringArray `db:"services"`
	Districts           pq.StringArray `db:"districts"`
	TechnicianCount     *int           `db:"technician_count"`
	HasAdminTeam        bool           `db:"has_admin_team"`
	HasOwnTransport     bool           `db:"has_own_transport"`
	WorkingHours        *string        `db:"working_hours"`
	Status              string         `db:"status"`
	RelationshipOwnerID *string        `db:"relationship_owner_id"`
	CreatedAt           time.Time      `db:"created_at"`
	UpdatedAt           time.Time      `db:"updated_at"`
	Version             int            `db:"version"`
}

func (r row) toModel() *models.Provider {
	return &models.Provider{
		ID: r.ID,
		ProviderFields: models.ProviderFields{
			Name:                r.Name,
			Email:               r.Email,
			Phone:               r.Phone,
			NIF:                 r.NIF,
			EntityType:          models.EntityType(r.EntityType),
			Website:             r.Website,
			Services:            []string(r.Services),
			Districts:           []string(r.Districts),
			TechnicianCount:     r.TechnicianCount,
			HasAdminTeam:        r.HasAdminTeam,
			HasOwnTransport:     r.HasOwnTransport,
			WorkingHours:        r.WorkingHours,
			Status:              models.ProviderStatus(r.Status),
			RelationshipOwnerID: r.RelationshipOwnerID,
		},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
}

// Repository handles provider persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new provider repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a provider
func (r *Repository) Create(ctx context.Context, p *models.Provider) (*models.Provider, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.Repository.Create")
	defer span.End()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = p.CreatedAt
	p.Version = 1
	if p.Status == "" {
		p.Status = models.ProviderStatusNew
	}
	if p.EntityType == "" {
		p.EntityType = models.EntityTypeTechnician
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto(table)
	ib.Cols(columns...)
	ib.Values(
		p.ID, p.Name, p.Email, p.Phone, p.NIF, string(p.EntityType), p.Website,
		pq.StringArray(nonNil(p.Services)), pq.StringArray(nonNil(p.Districts)),
		p.TechnicianCount, p.HasAdminTeam, p.HasOwnTransport, p.WorkingHours, string(p.Status),
		p.RelationshipOwnerID, p.CreatedAt, p.UpdatedAt, p.Version,
	)

	query, args := ib.Build()
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to create provider")
		return nil, errs.Persistence("failed to create provider")
	}

	return p, nil
}

// ListActive returns the scan projection of every non-archived provider, oldest first
func (r *Repository) ListActive(ctx context.Context) ([]models.ProviderSummary, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.Repository.ListActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("id", "name", "email", "nif", "status", "created_at")
	sb.From(table)
	sb.Where(sb.NotEqual("status", string(models.ProviderStatusArchived)))
	sb.OrderBy("created_at", "id").Asc()

	query, args := sb.Build()
	summaries := []models.ProviderSummary{}
	if err := r.db.Conn(ctx).SelectContext(ctx, &summaries, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list active providers")
		return nil, errs.Persistence("failed to list active providers")
	}

	return summaries, nil
}

// Get retrieves a provider by ID
func (r *Repository) Get(ctx context.Context, id string) (*models.Provider, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.Repository.Get")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, errs.NotFound("provider %s not found", id)
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(columns...)
	sb.From(table)
	sb.Where(sb.Equal("id", id))

	query, args := sb.Build()
	var rec row
	if err := r.db.Conn(ctx).GetContext(ctx, &rec, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.NotFound("provider %s not found", id)
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get provider")
		return nil, errs.Persistence("failed to get provider")
	}

	return rec.toModel(), nil
}

// UpdateFields overwrites every mergeable column when the stored version matches
func (r *Repository) UpdateFields(ctx context.Context, id string, fields models.ProviderFields, expectedVersion int) (*models.Provider, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.Repository.UpdateFields")
	defer span.End()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update(table)
	ub.Set(
		ub.Assign("name", fields.Name),
		ub.Assign("email", fields.Email),
		ub.Assign("phone", fields.Phone),
		ub.Assign("nif", fields.NIF),
		ub.Assign("entity_type", string(fields.EntityType)),
		ub.Assign("website", fields.Website),
		ub.Assign("services", pq.StringArray(nonNil(fields.Services))),
		ub.Assign("districts", pq.StringArray(nonNil(fields.Districts))),
		ub.Assign("technician_count", fields.TechnicianCount),
		ub.Assign("has_admin_team", fields.HasAdminTeam),
		ub.Assign("has_own_transport", fields.HasOwnTransport),
		ub.Assign("working_hours", fields.WorkingHours),
		ub.Assign("status", string(fields.Status)),
		ub.Assign("relationship_owner_id", fields.RelationshipOwnerID),
		ub.Assign("updated_at", sqlbuilder.Raw("NOW()")),
		ub.Add("version", 1),
	)
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("version", expectedVersion),
	)

	query, args := ub.Build()
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("provider_id", id).Error("Failed to update provider")
		return nil, errs.Persistence("failed to update provider %s", id)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, r.missingOrStale(ctx, id, expectedVersion)
	}

	return r.Get(ctx, id)
}

// Delete removes a provider when the stored version matches. The dependent
// tables restrict deletes, so a provider still owning records cannot be removed.
func (r *Repository) Delete(ctx context.Context, id string, expectedVersion int) error {
	ctx, span := tracing.StartSpan(ctx, "provider.Repository.Delete")
	defer span.End()

	db := sqlbuilder.PostgreSQL.NewDeleteBuilder()
	db.DeleteFrom(table)
	db.Where(
		db.Equal("id", id),
		db.Equal("version", expectedVersion),
	)

	query, args := db.Build()
	result, err := r.db.Conn(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("provider_id", id).Error("Failed to delete provider")
		return errs.Persistence("failed to delete provider %s", id)
	}

	if rows, _ := result.RowsAffected(); rows == 0 {
		return r.missingOrStale(ctx, id, expectedVersion)
	}

	r.logger.WithContext(ctx).WithField("provider_id", id).Info("Deleted provider")
	return nil
}

func (r *Repository) missingOrStale(ctx context.Context, id string, expectedVersion int) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	return errs.Conflict("provider %s was modified concurrently (version %d, expected %d)", id, current.Version, expectedVersion)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
