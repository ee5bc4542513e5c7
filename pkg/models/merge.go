package models

import (
	"encoding/json"
	"time"
)

// MergeMode records how a merge was initiated
type MergeMode string

const (
	MergeModeManual     MergeMode = "manual"
	MergeModeQuickEmail MergeMode = "quick_email"
	MergeModeQuickNIF   MergeMode = "quick_nif"
)

// QuickMergeMode maps an exact match type to its merge mode
func QuickMergeMode(t MatchType) MergeMode {
	if t == MatchTypeNIF {
		return MergeModeQuickNIF
	}
	return MergeModeQuickEmail
}

// MergeRequest is an operator-driven merge of provider B into provider A
type MergeRequest struct {
	ProviderAID string        `json:"provider_a_id" validate:"required,uuid"`
	ProviderBID string        `json:"provider_b_id" validate:"required,uuid"`
	Resolutions ResolutionMap `json:"resolutions" validate:"required"`
	// Expected versions come from the merge preview. When absent the versions
	// read at the start of the merge are used.
	ExpectedVersionA *int      `json:"expected_version_a,omitempty"`
	ExpectedVersionB *int      `json:"expected_version_b,omitempty"`
	PerformedBy      string    `json:"performed_by,omitempty"`
	Mode             MergeMode `json:"-"`
}

// MergePreview is what an operator sees before choosing resolutions
type MergePreview struct {
	ProviderA *ProviderWithCounts `json:"provider_a"`
	ProviderB *ProviderWithCounts `json:"provider_b"`
}

// Reparented lists the dependent records moved from one provider to another.
// It is enough to undo the move.
type Reparented struct {
	FromID          string   `json:"from_id"`
	ToID            string   `json:"to_id"`
	Notes           []string `json:"notes"`
	History         []string `json:"history"`
	Prices          []string `json:"prices"`
	OnboardingCards []string `json:"onboarding_cards"`
}

// Counts summarizes the receipt
func (r *Reparented) Counts() DependentCounts {
	if r == nil {
		return DependentCounts{}
	}
	return DependentCounts{
		Notes:           len(r.Notes),
		History:         len(r.History),
		Prices:          len(r.Prices),
		OnboardingCards: len(r.OnboardingCards),
	}
}

// MergeOutcome describes a completed merge
type MergeOutcome struct {
	SurvivorID  string          `json:"survivor_id"`
	MergedID    string          `json:"merged_id"`
	Mode        MergeMode       `json:"mode"`
	Survivor    *Provider       `json:"survivor"`
	Reparented  DependentCounts `json:"reparented"`
	AuditID     string          `json:"audit_id"`
	CompletedAt time.Time       `json:"completed_at"`
}

// MergeAudit is the persisted trail of a merge
type MergeAudit struct {
	ID          string          `json:"id" db:"id"`
	SurvivorID  string          `json:"survivor_id" db:"survivor_id"`
	MergedID    string          `json:"merged_id" db:"merged_id"`
	Mode        MergeMode       `json:"mode" db:"mode"`
	Resolutions json.RawMessage `json:"resolutions" db:"resolutions"`
	// MergedSnapshot is the deleted provider as it was before the merge
	MergedSnapshot json.RawMessage `json:"merged_snapshot" db:"merged_snapshot"`
	Reparented     json.RawMessage `json:"reparented" db:"reparented"`
	PerformedBy    *string         `json:"performed_by,omitempty" db:"performed_by"`
	PerformedAt    time.Time       `json:"performed_at" db:"performed_at"`
}

// QuickMergeResult summarizes a quick-merge batch
type QuickMergeResult struct {
	Success     bool   `json:"success"`
	MergedCount int    `json:"merged_count"`
	FailedCount int    `json:"failed_count"`
	Error       string `json:"error,omitempty"`
}

// MergeResponse is the caller-facing result of an interactive merge
type MergeResponse struct {
	Success bool          `json:"success"`
	Error   string        `json:"error,omitempty"`
	Outcome *MergeOutcome `json:"outcome,omitempty"`
}
