package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/models"
)

type capturePublisher struct {
	events []*kafka.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, event *kafka.Event) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func testLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestEmitter_ProviderMerged(t *testing.T) {
	pub := &capturePublisher{}
	e := NewEmitter(pub, testLogger())

	completed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	err := e.EmitProviderMerged(context.Background(), &models.MergeOutcome{
		SurvivorID:  "a",
		MergedID:    "b",
		Mode:        models.MergeModeQuickNIF,
		Survivor:    &models.Provider{ID: "a", Version: 4},
		Reparented:  models.DependentCounts{Notes: 2, Prices: 1},
		AuditID:     "audit-1",
		CompletedAt: completed,
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)

	event := pub.events[0]
	assert.Equal(t, EventProviderMerged, event.EventType)
	assert.Equal(t, "a", event.Key)

	var payload ProviderMerged
	require.NoError(t, json.Unmarshal(event.Data, &payload))
	assert.Equal(t, "b", payload.MergedID)
	assert.Equal(t, models.MergeModeQuickNIF, payload.Mode)
	assert.Equal(t, 4, payload.Version)
	assert.Equal(t, 2, payload.Reparented.Notes)
	assert.True(t, completed.Equal(payload.MergedAt))
}

func TestEmitter_DuplicatesScanned(t *testing.T) {
	pub := &capturePublisher{}
	e := NewEmitter(pub, testLogger())

	err := e.EmitDuplicatesScanned(context.Background(), &models.ScanResult{
		ScannedProviders: 10,
		TotalDuplicates:  3,
		Groups: []models.DuplicateGroup{
			{MatchType: models.MatchTypeEmail},
			{MatchType: models.MatchTypeEmail},
			{MatchType: models.MatchTypeName},
		},
	})
	require.NoError(t, err)
	require.Len(t, pub.events, 1)

	var payload DuplicatesScanned
	require.NoError(t, json.Unmarshal(pub.events[0].Data, &payload))
	assert.Equal(t, 10, payload.ScannedProviders)
	assert.Equal(t, 3, payload.Groups)
	assert.Equal(t, 2, payload.GroupsByType[models.MatchTypeEmail])
	assert.Equal(t, 1, payload.GroupsByType[models.MatchTypeName])
}

func TestEmitter_PublishFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("unavailable")}
	e := NewEmitter(pub, testLogger())

	err := e.EmitDuplicatesScanned(context.Background(), &models.ScanResult{})
	assert.Error(t, err)
}
