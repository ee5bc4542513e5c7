package models

// MatchType names the rule that grouped providers together
type MatchType string

const (
	MatchTypeEmail MatchType = "email"
	MatchTypeNIF   MatchType = "nif"
	MatchTypeName  MatchType = "name"
)

// IsExact reports whether the match was on a normalized key rather than a score
func (m MatchType) IsExact() bool {
	return m == MatchTypeEmail || m == MatchTypeNIF
}

// DuplicateGroup is a set of providers believed to be the same real-world entity.
// Providers are ordered by creation time, oldest first.
type DuplicateGroup struct {
	MatchType  MatchType         `json:"match_type"`
	MatchValue string            `json:"match_value"`
	Similarity *int              `json:"similarity,omitempty"`
	Providers  []ProviderSummary `json:"providers"`
}

// MemberIDs returns the ids of the group members in order
func (g DuplicateGroup) MemberIDs() []string {
	ids := make([]string, len(g.Providers))
	for i, p := range g.Providers {
		ids[i] = p.ID
	}
	return ids
}

// ScanResult is the output of a duplicate scan
type ScanResult struct {
	ScannedProviders int              `json:"scanned_providers"`
	Groups           []DuplicateGroup `json:"groups"`
	TotalDuplicates  int              `json:"total_duplicates"`
}

// CountByMatchType tallies groups per match type
func (r *ScanResult) CountByMatchType() map[MatchType]int {
	counts := map[MatchType]int{}
	for _, g := range r.Groups {
		counts[g.MatchType]++
	}
	return counts
}
