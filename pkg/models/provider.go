package models

import "time"

// EntityType is the legal shape of a provider
type EntityType string

const (
	EntityTypeTechnician     EntityType = "technician"
	EntityTypeSoleProprietor EntityType = "sole-proprietor"
	EntityTypeCompany        EntityType = "company"
)

// ProviderStatus is the lifecycle stage of a provider in the pipeline
type ProviderStatus string

const (
	ProviderStatusNew        ProviderStatus = "new"
	ProviderStatusContacted  ProviderStatus = "contacted"
	ProviderStatusOnboarding ProviderStatus = "onboarding"
	ProviderStatusActive     ProviderStatus = "active"
	ProviderStatusSuspended  ProviderStatus = "suspended"
	ProviderStatusAbandoned  ProviderStatus = "abandoned"
	// ProviderStatusArchived providers are excluded from duplicate scans
	ProviderStatusArchived ProviderStatus = "archived"
)

// ProviderFields holds every attribute that can be chosen during a merge
type ProviderFields struct {
	Name                string         `json:"name" db:"name"`
	Email               *string        `json:"email,omitempty" db:"email"`
	Phone               *string        `json:"phone,omitempty" db:"phone"`
	NIF                 *string        `json:"nif,omitempty" db:"nif"`
	EntityType          EntityType     `json:"entity_type" db:"entity_type"`
	Website             *string        `json:"website,omitempty" db:"website"`
	Services            []string       `json:"services" db:"services"`
	Districts           []string       `json:"districts" db:"districts"`
	TechnicianCount     *int           `json:"technician_count,omitempty" db:"technician_count"`
	HasAdminTeam        bool           `json:"has_admin_team" db:"has_admin_team"`
	HasOwnTransport     bool           `json:"has_own_transport" db:"has_own_transport"`
	WorkingHours        *string        `json:"working_hours,omitempty" db:"working_hours"`
	Status              ProviderStatus `json:"status" db:"status"`
	RelationshipOwnerID *string        `json:"relationship_owner_id,omitempty" db:"relationship_owner_id"`
}

// Provider is a service provider record
type Provider struct {
	ID string `json:"id" db:"id"`
	ProviderFields
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	Version   int       `json:"version" db:"version"`
}

// Clone returns a deep copy so callers can keep a pre-merge snapshot
func (p *Provider) Clone() *Provider {
	if p == nil {
		return nil
	}
	c := *p
	c.ProviderFields = p.ProviderFields.Clone()
	return &c
}

// Clone returns a deep copy of the field values
func (f ProviderFields) Clone() ProviderFields {
	c := f
	c.Email = cloneString(f.Email)
	c.Phone = cloneString(f.Phone)
	c.NIF = cloneString(f.NIF)
	c.Website = cloneString(f.Website)
	c.WorkingHours = cloneString(f.WorkingHours)
	c.RelationshipOwnerID = cloneString(f.RelationshipOwnerID)
	if f.TechnicianCount != nil {
		n := *f.TechnicianCount
		c.TechnicianCount = &n
	}
	c.Services = append([]string(nil), f.Services...)
	c.Districts = append([]string(nil), f.Districts...)
	return c
}

// Summary projects the fields used by the matcher
func (p *Provider) Summary() ProviderSummary {
	return ProviderSummary{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		NIF:       p.NIF,
		Status:    p.Status,
		CreatedAt: p.CreatedAt,
	}
}

// ProviderSummary is the projection listed for duplicate scans
type ProviderSummary struct {
	ID        string         `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Email     *string        `json:"email,omitempty" db:"email"`
	NIF       *string        `json:"nif,omitempty" db:"nif"`
	Status    ProviderStatus `json:"status" db:"status"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// DependentCounts counts the records attached to a provider
type DependentCounts struct {
	Notes           int `json:"notes" db:"notes"`
	History         int `json:"history" db:"history"`
	Prices          int `json:"prices" db:"prices"`
	OnboardingCards int `json:"onboarding_cards" db:"onboarding_cards"`
}

// Total sums every dependent kind
func (c DependentCounts) Total() int {
	return c.Notes + c.History + c.Prices + c.OnboardingCards
}

// ProviderWithCounts is a full provider record plus its dependent counts
type ProviderWithCounts struct {
	*Provider
	Counts DependentCounts `json:"counts"`
}

// StringPtr is a helper for optional string fields
func StringPtr(s string) *string {
	return &s
}

// IntPtr is a helper for optional integer fields
func IntPtr(n int) *int {
	return &n
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// DependentKind names a record type owned by a provider
type DependentKind string

const (
	DependentNotes           DependentKind = "notes"
	DependentHistory         DependentKind = "history"
	DependentPrices          DependentKind = "prices"
	DependentOnboardingCards DependentKind = "onboarding_cards"
)

// AllDependentKinds lists every dependent record type re-parented by a merge
var AllDependentKinds = []DependentKind{
	DependentNotes,
	DependentHistory,
	DependentPrices,
	DependentOnboardingCards,
}

// IDs returns the receipt entries for one dependent kind
func (r *Reparented) IDs(kind DependentKind) []string {
	switch kind {
	case DependentNotes:
		return r.Notes
	case DependentHistory:
		return r.History
	case DependentPrices:
		return r.Prices
	case DependentOnboardingCards:
		return r.OnboardingCards
	}
	return nil
}

// Set records the moved ids for one dependent kind
func (r *Reparented) Set(kind DependentKind, ids []string) {
	switch kind {
	case DependentNotes:
		r.Notes = ids
	case DependentHistory:
		r.History = ids
	case DependentPrices:
		r.Prices = ids
	case DependentOnboardingCards:
		r.OnboardingCards = ids
	}
}

// Add increments the count for one dependent kind
func (c *DependentCounts) Add(kind DependentKind, n int) {
	switch kind {
	case DependentNotes:
		c.Notes += n
	case DependentHistory:
		c.History += n
	case DependentPrices:
		c.Prices += n
	case DependentOnboardingCards:
		c.OnboardingCards += n
	}
}
