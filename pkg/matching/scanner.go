// Package matching finds groups of provider records that describe the same business
package matching

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/metrics"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/normalizers"
	"github.com/Ramsey-B/clover/pkg/store"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// DefaultNameThreshold is the minimum name similarity, in percent, for two providers to be grouped
const DefaultNameThreshold = 85.0

// ScanPublisher is notified after each completed scan
type ScanPublisher interface {
	EmitDuplicatesScanned(ctx context.Context, result *models.ScanResult) error
}

// Config contains configuration for the scanner
type Config struct {
	NameThreshold float64
	Algorithm     Algorithm
}

// DefaultConfig returns default scanner configuration
func DefaultConfig() Config {
	return Config{
		NameThreshold: DefaultNameThreshold,
		Algorithm:     AlgorithmLevenshtein,
	}
}

// Scanner produces duplicate groups from the full active provider population
type Scanner struct {
	logger    ectologger.Logger
	lister    store.ProviderLister
	scorer    *Scorer
	threshold float64
	publisher ScanPublisher
}

// NewScanner creates a new Scanner. publisher may be nil.
func NewScanner(logger ectologger.Logger, lister store.ProviderLister, config Config, publisher ScanPublisher) *Scanner {
	if config.NameThreshold <= 0 {
		config.NameThreshold = DefaultNameThreshold
	}
	return &Scanner{
		logger:    logger,
		lister:    lister,
		scorer:    NewScorer(config.Algorithm),
		threshold: config.NameThreshold,
		publisher: publisher,
	}
}

// Threshold returns the configured name similarity threshold
func (s *Scanner) Threshold() float64 {
	return s.threshold
}

// Scan lists every active provider and groups them by email, tax id and name.
// A store failure aborts the scan with no partial result.
func (s *Scanner) Scan(ctx context.Context) (*models.ScanResult, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Scanner.Scan")
	defer span.End()

	start := time.Now()
	log := s.logger.WithContext(ctx)

	providers, err := s.lister.ListActiveProviders(ctx)
	if err != nil {
		metrics.RecordScan("error", time.Since(start).Seconds())
		log.WithError(err).Error("Failed to list providers for duplicate scan")
		tracing.RecordError(span, err)
		if errs.StatusCode(err) >= 500 {
			return nil, errs.Persistence("failed to list providers for duplicate scan")
		}
		return nil, err
	}

	byID := make(map[string]models.ProviderSummary, len(providers))
	for _, p := range providers {
		byID[p.ID] = p
	}

	emailGroups := s.exactGroups(providers, models.MatchTypeEmail, func(p models.ProviderSummary) string {
		return normalizers.Optional(p.Email, normalizers.NormalizeEmail)
	})
	nifGroups := s.exactGroups(providers, models.MatchTypeNIF, func(p models.ProviderSummary) string {
		return normalizers.Optional(p.NIF, normalizers.NormalizeNIF)
	})
	nameGroups := s.nameGroups(providers, byID, append(emailGroups, nifGroups...))

	groups := make([]models.DuplicateGroup, 0, len(emailGroups)+len(nifGroups)+len(nameGroups))
	groups = append(groups, emailGroups...)
	groups = append(groups, nifGroups...)
	groups = append(groups, nameGroups...)

	total := 0
	for _, g := range groups {
		total += len(g.Providers) - 1
	}

	result := &models.ScanResult{
		ScannedProviders: len(providers),
		Groups:           groups,
		TotalDuplicates:  total,
	}

	span.SetAttributes(tracing.AttrGroups.Int(len(result.Groups)))
	metrics.RecordScan("success", time.Since(start).Seconds())
	byType := map[string]int{}
	for t, n := range result.CountByMatchType() {
		byType[string(t)] = n
	}
	metrics.RecordScanResult(result.ScannedProviders, byType)

	log.WithFields(map[string]any{
		"scanned_providers": result.ScannedProviders,
		"groups":            len(result.Groups),
		"email_groups":      len(emailGroups),
		"nif_groups":        len(nifGroups),
		"name_groups":       len(nameGroups),
		"total_duplicates":  result.TotalDuplicates,
		"duration_ms":       time.Since(start).Milliseconds(),
	}).Info("Duplicate scan completed")

	if s.publisher != nil {
		if err := s.publisher.EmitDuplicatesScanned(ctx, result); err != nil {
			log.WithError(err).Warn("Failed to publish duplicate scan event")
		}
	}

	return result, nil
}

// exactGroups buckets providers by a normalized key, keeping buckets of two or more
func (s *Scanner) exactGroups(providers []models.ProviderSummary, matchType models.MatchType, key func(models.ProviderSummary) string) []models.DuplicateGroup {
	buckets := map[string][]models.ProviderSummary{}
	for _, p := range providers {
		k := key(p)
		if k == "" {
			continue
		}
		buckets[k] = append(buckets[k], p)
	}

	var groups []models.DuplicateGroup
	for value, members := range buckets {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, models.DuplicateGroup{
			MatchType:  matchType,
			MatchValue: value,
			Providers:  sortOldestFirst(members),
		})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].MatchValue < groups[j].MatchValue
	})
	return groups
}

// nameGroups scores every pair of names and unions matches into clusters. A
// cluster whose members exactly repeat an email or tax id group is dropped.
func (s *Scanner) nameGroups(providers []models.ProviderSummary, byID map[string]models.ProviderSummary, exact []models.DuplicateGroup) []models.DuplicateGroup {
	type named struct {
		id   string
		name string
	}

	candidates := make([]named, 0, len(providers))
	for _, p := range providers {
		n := normalizers.NormalizeName(p.Name)
		if n == "" {
			continue
		}
		candidates = append(candidates, named{id: p.ID, name: n})
	}

	var edges []Edge
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if !s.scorer.CanReach(a.name, b.name, s.threshold) {
				continue
			}
			score := s.scorer.Score(a.name, b.name)
			if score >= s.threshold {
				edges = append(edges, Edge{A: a.id, B: b.id, Weight: score})
			}
		}
	}

	covered := map[string]bool{}
	for _, g := range exact {
		covered[membershipKey(g.MemberIDs())] = true
	}

	var groups []models.DuplicateGroup
	for _, c := range BuildClusters(edges) {
		if covered[membershipKey(c.Members)] {
			continue
		}
		members := sortOldestFirst(ectolinq.Map(c.Members, func(id string) models.ProviderSummary {
			return byID[id]
		}))
		similarity := int(math.Round(c.MinWeight))
		groups = append(groups, models.DuplicateGroup{
			MatchType:  models.MatchTypeName,
			MatchValue: members[0].Name,
			Similarity: &similarity,
			Providers:  members,
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return lessOldest(groups[i].Providers[0], groups[j].Providers[0])
	})
	return groups
}

func sortOldestFirst(members []models.ProviderSummary) []models.ProviderSummary {
	sorted := append([]models.ProviderSummary(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return lessOldest(sorted[i], sorted[j])
	})
	return sorted
}

func lessOldest(a, b models.ProviderSummary) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func membershipKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
