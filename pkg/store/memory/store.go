// Package memory is an in-process record store. It backs local runs with
// STORE_DRIVER=memory and the engine tests. Writes are applied one call at a
// time, so multi-step merges rely on compensation rather than a transaction.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/google/uuid"
)

type dependent struct {
	kind       models.DependentKind
	providerID string
}

// Store keeps providers, their dependents and merge audits in memory
type Store struct {
	mu         sync.RWMutex
	providers  map[string]*models.Provider
	dependents map[string]*dependent
	merges     []models.MergeAudit
	now        func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		providers:  map[string]*models.Provider{},
		dependents: map[string]*dependent{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// AddProvider inserts a provider, filling id, version and timestamps when unset
func (s *Store) AddProvider(p *models.Provider) *models.Provider {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := p.Clone()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Version == 0 {
		c.Version = 1
	}
	if c.Status == "" {
		c.Status = models.ProviderStatusNew
	}
	if c.EntityType == "" {
		c.EntityType = models.EntityTypeTechnician
	}
	s.providers[c.ID] = c
	return c.Clone()
}

// AddDependent attaches a dependent record to a provider and returns its id
func (s *Store) AddDependent(kind models.DependentKind, providerID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	s.dependents[id] = &dependent{kind: kind, providerID: providerID}
	return id
}

// DependentIDs lists the dependent ids of one kind owned by a provider, sorted
func (s *Store) DependentIDs(kind models.DependentKind, providerID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, d := range s.dependents {
		if d.kind == kind && d.providerID == providerID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ProviderCount returns the number of providers, archived included
func (s *Store) ProviderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.providers)
}

func (s *Store) ListActiveProviders(ctx context.Context) ([]models.ProviderSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]models.ProviderSummary, 0, len(s.providers))
	for _, p := range s.providers {
		if p.Status == models.ProviderStatusArchived {
			continue
		}
		summaries = append(summaries, p.Clone().Summary())
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID < summaries[j].ID
		}
		return summaries[i].CreatedAt.Before(summaries[j].CreatedAt)
	})
	return summaries, nil
}

func (s *Store) GetProviderFull(ctx context.Context, id string) (*models.ProviderWithCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, errs.NotFound("provider %s not found", id)
	}
	return &models.ProviderWithCounts{Provider: p.Clone(), Counts: s.countsLocked(id)}, nil
}

func (s *Store) UpdateProviderFields(ctx context.Context, id string, fields models.ProviderFields, expectedVersion int) (*models.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, errs.NotFound("provider %s not found", id)
	}
	if p.Version != expectedVersion {
		return nil, errs.Conflict("provider %s was modified concurrently (version %d, expected %d)", id, p.Version, expectedVersion)
	}
	p.ProviderFields = fields.Clone()
	p.UpdatedAt = s.now()
	p.Version++
	return p.Clone(), nil
}

func (s *Store) ReparentDependents(ctx context.Context, fromID, toID string) (*models.Reparented, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.providers[toID]; !ok {
		return nil, errs.NotFound("provider %s not found", toID)
	}

	receipt := &models.Reparented{FromID: fromID, ToID: toID}
	moved := map[models.DependentKind][]string{}
	for id, d := range s.dependents {
		if d.providerID == fromID {
			d.providerID = toID
			moved[d.kind] = append(moved[d.kind], id)
		}
	}
	for _, kind := range models.AllDependentKinds {
		ids := moved[kind]
		sort.Strings(ids)
		receipt.Set(kind, ids)
	}
	return receipt, nil
}

func (s *Store) RestoreDependents(ctx context.Context, receipt *models.Reparented) error {
	if receipt == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, kind := range models.AllDependentKinds {
		for _, id := range receipt.IDs(kind) {
			if d, ok := s.dependents[id]; ok && d.providerID == receipt.ToID {
				d.providerID = receipt.FromID
			}
		}
	}
	return nil
}

func (s *Store) DeleteProvider(ctx context.Context, id string, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.providers[id]
	if !ok {
		return errs.NotFound("provider %s not found", id)
	}
	if p.Version != expectedVersion {
		return errs.Conflict("provider %s was modified concurrently (version %d, expected %d)", id, p.Version, expectedVersion)
	}
	for _, d := range s.dependents {
		if d.providerID == id {
			return errs.Persistence("provider %s still owns dependent records", id)
		}
	}
	delete(s.providers, id)
	return nil
}

func (s *Store) RecordMerge(ctx context.Context, audit *models.MergeAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if audit.ID == "" {
		audit.ID = uuid.New().String()
	}
	if audit.PerformedAt.IsZero() {
		audit.PerformedAt = s.now()
	}
	s.merges = append(s.merges, *audit)
	return nil
}

func (s *Store) ListMerges(ctx context.Context, providerID string) ([]models.MergeAudit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merges := []models.MergeAudit{}
	for _, m := range s.merges {
		if providerID == "" || m.SurvivorID == providerID || m.MergedID == providerID {
			merges = append(merges, m)
		}
	}
	sort.SliceStable(merges, func(i, j int) bool {
		return merges[i].PerformedAt.After(merges[j].PerformedAt)
	})
	return merges, nil
}

func (s *Store) countsLocked(providerID string) models.DependentCounts {
	var counts models.DependentCounts
	for _, d := range s.dependents {
		if d.providerID == providerID {
			counts.Add(d.kind, 1)
		}
	}
	return counts
}
