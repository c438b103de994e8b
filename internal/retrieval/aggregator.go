package retrieval

import (
	"context"
	"sort"

	"github.com/samyotech/catalog-assistant/internal/observability"
)

// defaultTopK is the per-category recall depth.
const defaultTopK = 20

// Aggregator fans a question out across the available semantic indexes and
// merges the results into one ordered, temporally-filtered candidate list.
type Aggregator struct {
	logger *observability.Logger
	topK   int
}

// NewAggregator creates an aggregator with the given per-category depth.
func NewAggregator(logger *observability.Logger, topK int) *Aggregator {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Aggregator{
		logger: logger.WithComponent("aggregator"),
		topK:   topK,
	}
}

// Aggregate searches the planned category's index, or every index when the
// plan names none. Categories are processed in lexicographic order so the
// merged list is deterministic. A failing index contributes nothing and does
// not abort the rest; an empty result is valid and means nothing relevant.
func (a *Aggregator) Aggregate(ctx context.Context, question string, retrievers map[string]Searcher, plan Plan) []Candidate {
	categories := a.selectCategories(retrievers, plan)

	var merged []Candidate
	for _, category := range categories {
		candidates, err := retrievers[category].Search(ctx, question, a.topK)
		if err != nil {
			a.logger.Warn().Err(err).Str("category", category).Msg("index search failed, skipping category")
			continue
		}

		for _, c := range candidates {
			c.Category = category
			if plan.Temporal != nil {
				if c.CreatedAt == nil || !plan.Temporal(*c.CreatedAt) {
					continue
				}
			}
			merged = append(merged, c)
		}
	}

	a.logger.Debug().
		Int("categories", len(categories)).
		Int("candidates", len(merged)).
		Msg("aggregated retrieval results")

	return merged
}

func (a *Aggregator) selectCategories(retrievers map[string]Searcher, plan Plan) []string {
	if plan.Category != "" {
		if _, ok := retrievers[string(plan.Category)]; ok {
			return []string{string(plan.Category)}
		}
		// The planned category has no index; fall through to the full fan-out.
	}

	categories := make([]string, 0, len(retrievers))
	for category := range retrievers {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}
