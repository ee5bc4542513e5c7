// Package events emits provider lifecycle events
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/matching"
	"github.com/Ramsey-B/clover/pkg/merging"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

const (
	EventProviderMerged    = "provider.merged"
	EventDuplicatesScanned = "duplicates.scanned"
)

var (
	_ merging.MergePublisher = (*Emitter)(nil)
	_ matching.ScanPublisher = (*Emitter)(nil)
)

// Publisher writes an event envelope
type Publisher interface {
	Publish(ctx context.Context, event *kafka.Event) error
}

// ProviderMerged is the payload of a provider.merged event
type ProviderMerged struct {
	SurvivorID string                 `json:"survivor_id"`
	MergedID   string                 `json:"merged_id"`
	Mode       models.MergeMode       `json:"mode"`
	AuditID    string                 `json:"audit_id,omitempty"`
	Version    int                    `json:"version"`
	Reparented models.DependentCounts `json:"reparented"`
	MergedAt   time.Time              `json:"merged_at"`
}

// DuplicatesScanned is the payload of a duplicates.scanned event
type DuplicatesScanned struct {
	ScannedProviders int                      `json:"scanned_providers"`
	TotalDuplicates  int                      `json:"total_duplicates"`
	Groups           int                      `json:"groups"`
	GroupsByType     map[models.MatchType]int `json:"groups_by_type"`
}

// Emitter turns merge outcomes and scan results into events
type Emitter struct {
	publisher Publisher
	logger    ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(publisher Publisher, logger ectologger.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		logger:    logger,
	}
}

// EmitProviderMerged emits a provider.merged event keyed by the survivor
func (e *Emitter) EmitProviderMerged(ctx context.Context, outcome *models.MergeOutcome) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitProviderMerged")
	defer span.End()

	payload := ProviderMerged{
		SurvivorID: outcome.SurvivorID,
		MergedID:   outcome.MergedID,
		Mode:       outcome.Mode,
		AuditID:    outcome.AuditID,
		Reparented: outcome.Reparented,
		MergedAt:   outcome.CompletedAt,
	}
	if outcome.Survivor != nil {
		payload.Version = outcome.Survivor.Version
	}

	return e.emit(ctx, EventProviderMerged, outcome.SurvivorID, payload)
}

// EmitDuplicatesScanned emits a duplicates.scanned event with the scan counters
func (e *Emitter) EmitDuplicatesScanned(ctx context.Context, result *models.ScanResult) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitDuplicatesScanned")
	defer span.End()

	payload := DuplicatesScanned{
		ScannedProviders: result.ScannedProviders,
		TotalDuplicates:  result.TotalDuplicates,
		Groups:           len(result.Groups),
		GroupsByType:     result.CountByMatchType(),
	}

	return e.emit(ctx, EventDuplicatesScanned, "", payload)
}

func (e *Emitter) emit(ctx context.Context, eventType, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if err := e.publisher.Publish(ctx, &kafka.Event{
		EventType: eventType,
		Key:       key,
		Data:      data,
	}); err != nil {
		e.logger.WithContext(ctx).WithError(err).Errorf("Failed to emit %s event", eventType)
		return err
	}
	return nil
}
