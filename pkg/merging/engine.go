// Package merging folds duplicate provider records into a single survivor
package merging

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// ErrLockNotAcquired is returned by a Locker when another merge holds the key
var ErrLockNotAcquired = errors.New("lock not acquired")

// Lock is a held distributed lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializes merges that touch the same providers
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lock, error)
}

// MergePublisher is notified after each committed merge
type MergePublisher interface {
	EmitProviderMerged(ctx context.Context, outcome *models.MergeOutcome) error
}

// EngineConfig contains configuration for the merge engine
type EngineConfig struct {
	LockTTL time.Duration
}

// DefaultEngineConfig returns default engine configuration
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{LockTTL: 30 * time.Second}
}

// Engine merges provider B into provider A
type Engine struct {
	logger    ectologger.Logger
	store     store.Store
	locker    Locker
	publisher MergePublisher
	config    EngineConfig
	now       func() time.Time
}

// NewEngine creates a new merge engine. locker and publisher may be nil.
func NewEngine(logger ectologger.Logger, st store.Store, locker Locker, publisher MergePublisher, config EngineConfig) *Engine {
	if config.LockTTL <= 0 {
		config.LockTTL = DefaultEngineConfig().LockTTL
	}
	return &Engine{
		logger:    logger,
		store:     st,
		locker:    locker,
		publisher: publisher,
		config:    config,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetProvidersForMerge loads both providers and their dependent counts for operator review
func (e *Engine) GetProvidersForMerge(ctx context.Context, idA, idB string) (*models.MergePreview, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.GetProvidersForMerge", tracing.ProviderPair(idA, idB)...)
	defer span.End()

	if err := validatePair(idA, idB); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	a, err := e.store.GetProviderFull(ctx, idA)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	b, err := e.store.GetProviderFull(ctx, idB)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	return &models.MergePreview{ProviderA: a, ProviderB: b}, nil
}

// MergeProviders applies an operator's resolution map: A takes the resolved
// values, B's dependents move to A and B is deleted. Either all of it happens
// or none of it does.
func (e *Engine) MergeProviders(ctx context.Context, req models.MergeRequest) (*models.MergeOutcome, error) {
	ctx, span := tracing.StartSpan(ctx, "merging.Engine.MergeProviders", tracing.ProviderPair(req.ProviderAID, req.ProviderBID)...)
	defer span.End()

	if req.Mode == "" {
		req.Mode = models.MergeModeManual
	}
	span.SetAttributes(tracing.AttrMergeMode.String(string(req.Mode)))
	if req.PerformedBy == "" {
		req.PerformedBy = appctx.GetUserID(ctx)
	}

	start := time.Now()
	outcome, err := e.merge(ctx, req)
	status := "success"
	switch {
	case err == nil:
	case errs.IsConflict(err):
		status = "conflict"
	case errs.IsNotFound(err), errs.IsInvalidInput(err):
		status = "rejected"
	default:
		status = "error"
	}
	metrics.RecordMerge(string(req.Mode), status, time.Since(start).Seconds())
	tracing.RecordError(span, err)
	return outcome, err
}

func (e *Engine) merge(ctx context.Context, req models.MergeRequest) (*models.MergeOutcome, error) {
	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"provider_a_id": req.ProviderAID,
		"provider_b_id": req.ProviderBID,
		"mode":          req.Mode,
	})

	if err := validatePair(req.ProviderAID, req.ProviderBID); err != nil {
		return nil, err
	}
	if err := req.Resolutions.Validate(); err != nil {
		return nil, err
	}

	if e.locker != nil {
		lock, err := e.locker.Acquire(ctx, lockKey(req.ProviderAID, req.ProviderBID), e.config.LockTTL)
		if err != nil {
			if errors.Is(err, ErrLockNotAcquired) {
				return nil, errs.Conflict("another merge involving these providers is in progress")
			}
			log.WithError(err).Error("Failed to acquire merge lock")
			return nil, errs.Persistence("failed to acquire merge lock")
		}
		defer func() {
			if err := lock.Release(ctx); err != nil {
				log.WithError(err).Warn("Failed to release merge lock")
			}
		}()
	}

	a, err := e.store.GetProviderFull(ctx, req.ProviderAID)
	if err != nil {
		return nil, err
	}
	b, err := e.store.GetProviderFull(ctx, req.ProviderBID)
	if err != nil {
		return nil, err
	}

	if req.ExpectedVersionA != nil && *req.ExpectedVersionA != a.Version {
		return nil, errs.Conflict("provider %s changed since it was loaded for merge", a.ID)
	}
	if req.ExpectedVersionB != nil && *req.ExpectedVersionB != b.Version {
		return nil, errs.Conflict("provider %s changed since it was loaded for merge", b.ID)
	}

	fields, err := ResolveFields(a.ProviderFields, b.ProviderFields, req.Resolutions)
	if err != nil {
		return nil, err
	}

	audit, err := buildAudit(req, b.Provider)
	if err != nil {
		log.WithError(err).Error("Failed to encode merge audit")
		return nil, errs.Persistence("failed to encode merge audit")
	}

	p := &plan{
		original: a.Provider,
		loser:    b.Provider,
		fields:   fields,
		audit:    audit,
	}

	if tx, ok := e.store.(store.Transactor); ok {
		err = tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return e.apply(ctx, p, true)
		})
	} else {
		err = e.applyWithCompensation(ctx, p, log)
	}
	if err != nil {
		log.WithError(err).Warn("Merge failed")
		return nil, err
	}

	outcome := &models.MergeOutcome{
		SurvivorID:  a.ID,
		MergedID:    b.ID,
		Mode:        req.Mode,
		Survivor:    p.updated,
		Reparented:  p.receipt.Counts(),
		AuditID:     p.audit.ID,
		CompletedAt: e.now(),
	}

	log.WithFields(map[string]any{
		"reparented": outcome.Reparented.Total(),
		"audit_id":   outcome.AuditID,
	}).Info("Merged providers")

	if e.publisher != nil {
		if err := e.publisher.EmitProviderMerged(ctx, outcome); err != nil {
			log.WithError(err).Warn("Failed to publish provider merged event")
		}
	}

	return outcome, nil
}

// plan carries one merge through its write steps
type plan struct {
	original *models.Provider
	loser    *models.Provider
	fields   models.ProviderFields
	audit    *models.MergeAudit

	updated *models.Provider
	receipt *models.Reparented
}

// apply runs the write steps in order: update survivor, move dependents,
// record the audit, delete the loser. With strictAudit an audit failure fails the merge.
func (e *Engine) apply(ctx context.Context, p *plan, strictAudit bool) error {
	updated, err := e.store.UpdateProviderFields(ctx, p.original.ID, p.fields, p.original.Version)
	if err != nil {
		return err
	}
	p.updated = updated

	receipt, err := e.store.ReparentDependents(ctx, p.loser.ID, p.original.ID)
	if err != nil {
		return err
	}
	p.receipt = receipt

	if strictAudit {
		if err := e.recordAudit(ctx, p); err != nil {
			return err
		}
	}

	return e.store.DeleteProvider(ctx, p.loser.ID, p.loser.Version)
}

// applyWithCompensation runs the write steps against a store without
// transactions and undoes completed steps when a later one fails
func (e *Engine) applyWithCompensation(ctx context.Context, p *plan, log ectologger.Logger) error {
	err := e.apply(ctx, p, false)
	if err == nil {
		if auditErr := e.recordAudit(ctx, p); auditErr != nil {
			log.WithError(auditErr).Error("Merge applied but audit could not be recorded")
		}
		return nil
	}
	if p.updated == nil {
		return err
	}

	log.WithError(err).Warn("Merge step failed, compensating")

	if p.receipt != nil {
		if restoreErr := e.store.RestoreDependents(ctx, p.receipt); restoreErr != nil {
			metrics.RecordCompensation("failed")
			log.WithError(restoreErr).Error("Failed to restore dependents after merge failure")
			return errs.Persistence("merge failed and dependents could not be restored")
		}
	}

	if _, revertErr := e.store.UpdateProviderFields(ctx, p.original.ID, p.original.ProviderFields, p.updated.Version); revertErr != nil {
		metrics.RecordCompensation("failed")
		log.WithError(revertErr).Error("Failed to revert survivor after merge failure")
		return errs.Persistence("merge failed and provider %s could not be reverted", p.original.ID)
	}

	metrics.RecordCompensation("success")
	return err
}

func (e *Engine) recordAudit(ctx context.Context, p *plan) error {
	reparented, err := json.Marshal(p.receipt.Counts())
	if err != nil {
		return errs.Persistence("failed to encode merge audit")
	}
	p.audit.Reparented = reparented
	p.audit.PerformedAt = e.now()
	return e.store.RecordMerge(ctx, p.audit)
}

func buildAudit(req models.MergeRequest, loser *models.Provider) (*models.MergeAudit, error) {
	resolutions, err := json.Marshal(req.Resolutions)
	if err != nil {
		return nil, err
	}
	snapshot, err := json.Marshal(loser)
	if err != nil {
		return nil, err
	}

	audit := &models.MergeAudit{
		SurvivorID:     req.ProviderAID,
		MergedID:       req.ProviderBID,
		Mode:           req.Mode,
		Resolutions:    resolutions,
		MergedSnapshot: snapshot,
	}
	if req.PerformedBy != "" {
		performedBy := req.PerformedBy
		audit.PerformedBy = &performedBy
	}
	return audit, nil
}

func validatePair(idA, idB string) error {
	if idA == "" || idB == "" {
		return errs.InvalidInput("both provider ids are required")
	}
	if idA == idB {
		return errs.InvalidInput("cannot merge provider %s with itself", idA)
	}
	return nil
}

// lockKey is independent of argument order so A->B and B->A contend for the same lock
func lockKey(idA, idB string) string {
	ids := []string{idA, idB}
	sort.Strings(ids)
	return "merge:" + ids[0] + ":" + ids[1]
}
