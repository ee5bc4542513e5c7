package memory

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
)

func TestListActiveProviders(t *testing.T) {
	s := New()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	late := s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "Late"}, CreatedAt: t0.Add(time.Hour)})
	early := s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "Early"}, CreatedAt: t0})
	s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "Gone", Status: models.ProviderStatusArchived}, CreatedAt: t0})

	summaries, err := s.ListActiveProviders(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, early.ID, summaries[0].ID)
	assert.Equal(t, late.ID, summaries[1].ID)
}

func TestAddProvider_Defaults(t *testing.T) {
	s := New()
	p := s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "Nova"}})

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, models.ProviderStatusNew, p.Status)
	assert.Equal(t, models.EntityTypeTechnician, p.EntityType)
	assert.False(t, p.CreatedAt.IsZero())

	sole := s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "Rui Pinto", EntityType: models.EntityTypeSoleProprietor}})
	assert.Equal(t, models.EntityTypeSoleProprietor, sole.EntityType)
}

func TestUpdateProviderFields(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "Old", Services: []string{"cleaning"}}})

	fields := p.ProviderFields.Clone()
	fields.Name = "New"
	updated, err := s.UpdateProviderFields(ctx, p.ID, fields, 1)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, 2, updated.Version)

	// returned values are copies
	updated.Services[0] = "mutated"
	full, err := s.GetProviderFull(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"cleaning"}, full.Services)

	_, err = s.UpdateProviderFields(ctx, p.ID, fields, 1)
	assert.True(t, errs.IsConflict(err))

	_, err = s.UpdateProviderFields(ctx, "missing", fields, 1)
	assert.True(t, errs.IsNotFound(err))
}

func TestReparentAndRestore(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "A"}})
	b := s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "B"}})

	s.AddDependent(models.DependentNotes, a.ID)
	n1 := s.AddDependent(models.DependentNotes, b.ID)
	p1 := s.AddDependent(models.DependentPrices, b.ID)

	receipt, err := s.ReparentDependents(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{n1}, receipt.Notes)
	assert.Equal(t, []string{p1}, receipt.Prices)
	assert.Equal(t, models.DependentCounts{Notes: 1, Prices: 1}, receipt.Counts())

	full, err := s.GetProviderFull(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, full.Counts.Notes)
	assert.Equal(t, 1, full.Counts.Prices)

	require.NoError(t, s.RestoreDependents(ctx, receipt))
	assert.Equal(t, []string{n1}, s.DependentIDs(models.DependentNotes, b.ID))
	assert.Equal(t, []string{p1}, s.DependentIDs(models.DependentPrices, b.ID))
	assert.Len(t, s.DependentIDs(models.DependentNotes, a.ID), 1)
}

func TestDeleteProvider(t *testing.T) {
	ctx := context.Background()
	s := New()
	p := s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "P"}})
	s.AddDependent(models.DependentHistory, p.ID)

	err := s.DeleteProvider(ctx, p.ID, 1)
	assert.Equal(t, http.StatusInternalServerError, errs.StatusCode(err))

	other := s.AddProvider(&models.Provider{ProviderFields: models.ProviderFields{Name: "Q"}})
	assert.True(t, errs.IsConflict(s.DeleteProvider(ctx, other.ID, 7)))
	require.NoError(t, s.DeleteProvider(ctx, other.ID, 1))
	assert.True(t, errs.IsNotFound(s.DeleteProvider(ctx, other.ID, 1)))
	assert.Equal(t, 1, s.ProviderCount())
}

func TestMergeAudit(t *testing.T) {
	ctx := context.Background()
	s := New()

	first := &models.MergeAudit{SurvivorID: "a", MergedID: "b", Mode: models.MergeModeManual, PerformedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	second := &models.MergeAudit{SurvivorID: "a", MergedID: "c", Mode: models.MergeModeQuickEmail, PerformedAt: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.RecordMerge(ctx, first))
	require.NoError(t, s.RecordMerge(ctx, second))
	assert.NotEmpty(t, first.ID)

	all, err := s.ListMerges(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "c", all[0].MergedID)

	forB, err := s.ListMerges(ctx, "b")
	require.NoError(t, err)
	require.Len(t, forB, 1)
	assert.Equal(t, first.ID, forB[0].ID)

	none, err := s.ListMerges(ctx, "z")
	require.NoError(t, err)
	assert.Empty(t, none)
}
