// Package duplicates exposes duplicate detection and provider merging over HTTP
package duplicates

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// Scanner finds duplicate groups
type Scanner interface {
	Scan(ctx context.Context) (*models.ScanResult, error)
}

// QuickMerger merges exact duplicates in bulk
type QuickMerger interface {
	QuickMergeExactDuplicates(ctx context.Context) *models.QuickMergeResult
}

// Merger previews and applies operator merges
type Merger interface {
	GetProvidersForMerge(ctx context.Context, idA, idB string) (*models.MergePreview, error)
	MergeProviders(ctx context.Context, req models.MergeRequest) (*models.MergeOutcome, error)
}

// MergeHistory lists recorded merges
type MergeHistory interface {
	ListMerges(ctx context.Context, providerID string) ([]models.MergeAudit, error)
}

// Handler serves the duplicate and merge endpoints
type Handler struct {
	scanner Scanner
	quick   QuickMerger
	merger  Merger
	history MergeHistory
	logger  ectologger.Logger
}

// NewHandler creates a new Handler
func NewHandler(scanner Scanner, quick QuickMerger, merger Merger, history MergeHistory, logger ectologger.Logger) *Handler {
	return &Handler{
		scanner: scanner,
		quick:   quick,
		merger:  merger,
		history: history,
		logger:  logger,
	}
}

// Register registers the routes on an /api/v1 group
func (h *Handler) Register(g *echo.Group) {
	g.POST("/duplicates/scan", h.Scan)
	g.POST("/duplicates/quick-merge", h.QuickMerge)
	g.GET("/providers/merge-preview", h.MergePreview)
	g.POST("/providers/merge", h.Merge)
	g.GET("/merges", h.ListMerges)
}

// MergeListResponse wraps the merge audit trail
type MergeListResponse struct {
	Items []models.MergeAudit `json:"items"`
	Count int                 `json:"count"`
}

// Scan runs a full duplicate scan
// POST /api/v1/duplicates/scan
func (h *Handler) Scan(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "duplicates.Scan")
	defer span.End()

	result, err := h.scanner.Scan(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// QuickMerge merges every email and tax id group into its oldest member
// POST /api/v1/duplicates/quick-merge
func (h *Handler) QuickMerge(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "duplicates.QuickMerge")
	defer span.End()

	result := h.quick.QuickMergeExactDuplicates(ctx)
	if !result.Success {
		return c.JSON(http.StatusInternalServerError, result)
	}

	return c.JSON(http.StatusOK, result)
}

// MergePreview returns both providers with their dependent counts
// GET /api/v1/providers/merge-preview?provider_a_id=...&provider_b_id=...
func (h *Handler) MergePreview(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "duplicates.MergePreview")
	defer span.End()

	idA := c.QueryParam("provider_a_id")
	idB := c.QueryParam("provider_b_id")
	if idA == "" || idB == "" {
		return errs.InvalidInput("provider_a_id and provider_b_id are required")
	}

	preview, err := h.merger.GetProvidersForMerge(ctx, idA, idB)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, preview)
}

// Merge applies an operator's resolution map
// POST /api/v1/providers/merge
func (h *Handler) Merge(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "duplicates.Merge")
	defer span.End()

	req, err := utils.BindRequest[models.MergeRequest](c)
	if err != nil {
		return err
	}

	outcome, err := h.merger.MergeProviders(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"provider_a_id": req.ProviderAID,
			"provider_b_id": req.ProviderBID,
		}).Warn("Merge failed")
		return c.JSON(errs.StatusCode(err), models.MergeResponse{Success: false, Error: errs.Message(err)})
	}

	return c.JSON(http.StatusOK, models.MergeResponse{Success: true, Outcome: outcome})
}

// ListMerges returns the merge audit trail, optionally for one provider
// GET /api/v1/merges?provider_id=...
func (h *Handler) ListMerges(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "duplicates.ListMerges")
	defer span.End()

	providerID := c.QueryParam("provider_id")
	if providerID != "" {
		if err := utils.ValidateValue(providerID, "uuid"); err != nil {
			return errs.InvalidInput("provider_id must be a uuid")
		}
	}

	items, err := h.history.ListMerges(ctx, providerID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, MergeListResponse{Items: items, Count: len(items)})
}
