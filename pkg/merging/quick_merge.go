package merging

import (
	"context"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/errs"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// DuplicateScanner produces the groups a quick-merge works through
type DuplicateScanner interface {
	Scan(ctx context.Context) (*models.ScanResult, error)
}

// QuickMerger folds every email and tax id duplicate into its oldest member
type QuickMerger struct {
	logger  ectologger.Logger
	scanner DuplicateScanner
	engine  *Engine
}

// NewQuickMerger creates a new QuickMerger
func NewQuickMerger(logger ectologger.Logger, scanner DuplicateScanner, engine *Engine) *QuickMerger {
	return &QuickMerger{
		logger:  logger,
		scanner: scanner,
		engine:  engine,
	}
}

// QuickMergeExactDuplicates merges exact-key groups without operator input.
// Name groups are never merged here. A failed pair is counted and the batch
// continues, leaving Success set and a partial-failure summary in Error.
// Only a failed scan fails the whole call.
func (q *QuickMerger) QuickMergeExactDuplicates(ctx context.Context) *models.QuickMergeResult {
	ctx, span := tracing.StartSpan(ctx, "merging.QuickMerger.QuickMergeExactDuplicates")
	defer span.End()

	log := q.logger.WithContext(ctx)

	scan, err := q.scanner.Scan(ctx)
	if err != nil {
		log.WithError(err).Error("Quick merge aborted: duplicate scan failed")
		tracing.RecordError(span, err)
		return &models.QuickMergeResult{Success: false, Error: errs.Message(err)}
	}

	groups := ectolinq.Filter(scan.Groups, func(g models.DuplicateGroup) bool {
		return g.MatchType.IsExact()
	})

	result := &models.QuickMergeResult{Success: true}
	// absorbed maps a merged-away provider to the survivor that took it in,
	// so overlapping email and tax id groups are not merged twice
	absorbed := map[string]string{}
	resolve := func(id string) string {
		for {
			next, ok := absorbed[id]
			if !ok {
				return id
			}
			id = next
		}
	}
	summaries := map[string]models.ProviderSummary{}
	for _, g := range groups {
		for _, p := range g.Providers {
			summaries[p.ID] = p
		}
	}

	for _, group := range groups {
		for _, member := range group.Providers[1:] {
			survivorID, mergedID := resolve(group.Providers[0].ID), resolve(member.ID)
			if survivorID == mergedID {
				continue
			}
			// a survivor from an earlier group may be older than this group's first member
			if olderThan(summaries[mergedID], summaries[survivorID]) {
				survivorID, mergedID = mergedID, survivorID
			}

			req := models.MergeRequest{
				ProviderAID: survivorID,
				ProviderBID: mergedID,
				Resolutions: models.DefaultResolution(),
				Mode:        models.QuickMergeMode(group.MatchType),
			}
			if _, err := q.engine.MergeProviders(ctx, req); err != nil {
				result.FailedCount++
				log.WithError(err).WithFields(map[string]any{
					"match_type":  group.MatchType,
					"match_value": group.MatchValue,
					"survivor_id": survivorID,
					"merged_id":   mergedID,
				}).Warn("Quick merge of provider failed")
				continue
			}

			absorbed[mergedID] = survivorID
			result.MergedCount++
		}
	}

	span.SetAttributes(
		tracing.AttrGroups.Int(len(groups)),
		tracing.AttrMergedCount.Int(result.MergedCount),
		tracing.AttrFailedCount.Int(result.FailedCount),
	)
	if result.FailedCount > 0 {
		result.Error = errs.Message(errs.PartialBatchFailure(result.FailedCount, result.MergedCount+result.FailedCount))
	}

	log.WithFields(map[string]any{
		"groups":       len(groups),
		"merged_count": result.MergedCount,
		"failed_count": result.FailedCount,
	}).Info("Quick merge completed")

	return result
}

func olderThan(a, b models.ProviderSummary) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID < b.ID
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
