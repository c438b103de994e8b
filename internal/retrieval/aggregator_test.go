package retrieval

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyotech/catalog-assistant/internal/observability"
)

// fakeSearcher returns canned candidates or an error.
type fakeSearcher struct {
	candidates []Candidate
	err        error
	gotK       int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.candidates, nil
}

func ts(day int) *time.Time {
	t := time.Date(2024, 3, day, 12, 0, 0, 0, time.UTC)
	return &t
}

func TestAggregator_ZeroIndexes(t *testing.T) {
	a := NewAggregator(observability.Nop(), 20)
	candidates := a.Aggregate(context.Background(), "q", map[string]Searcher{}, Plan{})
	assert.Empty(t, candidates)
}

func TestAggregator_MergesAndTagsCategories(t *testing.T) {
	a := NewAggregator(observability.Nop(), 20)

	retrievers := map[string]Searcher{
		"products": &fakeSearcher{candidates: []Candidate{{ID: "p1", Text: "food"}}},
		"orders":   &fakeSearcher{candidates: []Candidate{{ID: "o1", Text: "order"}}},
	}

	candidates := a.Aggregate(context.Background(), "q", retrievers, Plan{})
	require.Len(t, candidates, 2)

	// Lexicographic category order keeps the merge deterministic.
	assert.Equal(t, "orders", candidates[0].Category)
	assert.Equal(t, "products", candidates[1].Category)
}

func TestAggregator_PlannedCategoryOnly(t *testing.T) {
	a := NewAggregator(observability.Nop(), 20)

	products := &fakeSearcher{candidates: []Candidate{{ID: "p1"}}}
	orders := &fakeSearcher{candidates: []Candidate{{ID: "o1"}}}
	retrievers := map[string]Searcher{"products": products, "orders": orders}

	candidates := a.Aggregate(context.Background(), "q", retrievers, Plan{Category: "products"})
	require.Len(t, candidates, 1)
	assert.Equal(t, "p1", candidates[0].ID)
	assert.Zero(t, orders.gotK, "unplanned index must not be searched")
}

func TestAggregator_PlannedCategoryWithoutIndexFansOut(t *testing.T) {
	a := NewAggregator(observability.Nop(), 20)

	retrievers := map[string]Searcher{
		"orders": &fakeSearcher{candidates: []Candidate{{ID: "o1"}}},
	}

	candidates := a.Aggregate(context.Background(), "q", retrievers, Plan{Category: "products"})
	assert.Len(t, candidates, 1)
}

func TestAggregator_FailingIndexIsSkipped(t *testing.T) {
	a := NewAggregator(observability.Nop(), 20)

	retrievers := map[string]Searcher{
		"products": &fakeSearcher{err: errors.New("index corrupt")},
		"orders":   &fakeSearcher{candidates: []Candidate{{ID: "o1"}}},
	}

	candidates := a.Aggregate(context.Background(), "q", retrievers, Plan{})
	require.Len(t, candidates, 1)
	assert.Equal(t, "o1", candidates[0].ID)
}

func TestAggregator_TemporalFilter(t *testing.T) {
	a := NewAggregator(observability.Nop(), 20)

	retrievers := map[string]Searcher{
		"orders": &fakeSearcher{candidates: []Candidate{
			{ID: "today", CreatedAt: ts(13)},
			{ID: "yesterday", CreatedAt: ts(12)},
			{ID: "undated"},
		}},
	}

	day13 := time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)
	plan := Plan{Temporal: func(t time.Time) bool {
		return t.Year() == day13.Year() && t.YearDay() == day13.YearDay()
	}}

	candidates := a.Aggregate(context.Background(), "q", retrievers, plan)
	require.Len(t, candidates, 1)
	assert.Equal(t, "today", candidates[0].ID)
}

func TestAggregator_PassesRecallDepth(t *testing.T) {
	a := NewAggregator(observability.Nop(), 7)
	searcher := &fakeSearcher{}

	a.Aggregate(context.Background(), "q", map[string]Searcher{"products": searcher}, Plan{})
	assert.Equal(t, 7, searcher.gotK)
}
