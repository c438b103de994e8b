package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyotech/catalog-assistant/internal/cache"
	"github.com/samyotech/catalog-assistant/internal/catalog"
	"github.com/samyotech/catalog-assistant/internal/history"
	"github.com/samyotech/catalog-assistant/internal/intent"
	"github.com/samyotech/catalog-assistant/internal/observability"
	"github.com/samyotech/catalog-assistant/internal/retrieval"
	"github.com/samyotech/catalog-assistant/internal/synthesis"
)

type fakeExecutor struct {
	answer string
	err    error
	panics bool
	got    intent.Intent
}

func (f *fakeExecutor) Execute(ctx context.Context, it intent.Intent) (string, error) {
	f.got = it
	if f.panics {
		panic("executor exploded")
	}
	return f.answer, f.err
}

type fakeProvider struct {
	retrievers map[string]retrieval.Searcher
	err        error
}

func (f *fakeProvider) Retrievers(ctx context.Context) (map[string]retrieval.Searcher, error) {
	return f.retrievers, f.err
}

type fakeSearcher struct {
	candidates []retrieval.Candidate
}

func (f *fakeSearcher) Search(ctx context.Context, query string, k int) ([]retrieval.Candidate, error) {
	return f.candidates, nil
}

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectors[text]
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return f.vectors[text], nil
}

type fakeCompleter struct {
	answer string
	err    error
	calls  int
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	f.calls++
	return f.answer, f.err
}

type fakeRecorder struct {
	turns []history.Turn
	err   error
}

func (f *fakeRecorder) Append(ctx context.Context, turn history.Turn) error {
	if f.err != nil {
		return f.err
	}
	f.turns = append(f.turns, turn)
	return nil
}

type deps struct {
	executor  *fakeExecutor
	provider  *fakeProvider
	embedder  *fakeEmbedder
	completer *fakeCompleter
	recorder  *fakeRecorder
	cache     *cache.AnswerCache
}

func newTestOrchestrator(d deps) *Orchestrator {
	logger := observability.Nop()
	mapping := catalog.DefaultMapping()

	if d.executor == nil {
		d.executor = &fakeExecutor{}
	}
	if d.provider == nil {
		d.provider = &fakeProvider{}
	}
	if d.embedder == nil {
		d.embedder = &fakeEmbedder{}
	}
	if d.completer == nil {
		d.completer = &fakeCompleter{}
	}

	var recorder history.Recorder
	if d.recorder != nil {
		recorder = d.recorder
	}

	return NewOrchestrator(
		logger,
		intent.NewClassifier(catalog.NewNormalizer(mapping)),
		d.executor,
		retrieval.NewPlanner(mapping),
		d.provider,
		retrieval.NewAggregator(logger, 20),
		synthesis.NewSynthesizer(logger, d.embedder, d.completer, 4),
		recorder,
		d.cache,
	)
}

func TestOrchestrator_StructuredBranch(t *testing.T) {
	executor := &fakeExecutor{answer: "There are 12 products in the store."}
	recorder := &fakeRecorder{}
	o := newTestOrchestrator(deps{executor: executor, recorder: recorder})

	resp := o.Answer(context.Background(), "how many products?", "s1")

	assert.Equal(t, "There are 12 products in the store.", resp.Answer)
	assert.Equal(t, "Structured query: count products", resp.Detail)
	assert.Equal(t, intent.KindCount, executor.got.Kind)

	require.Len(t, recorder.turns, 1)
	assert.Equal(t, "s1", recorder.turns[0].SessionID)
	assert.Equal(t, "how many products?", recorder.turns[0].Question)
}

func TestOrchestrator_StructuredFailureDegrades(t *testing.T) {
	executor := &fakeExecutor{err: errors.New("store down")}
	o := newTestOrchestrator(deps{executor: executor})

	resp := o.Answer(context.Background(), "how many products?", "s1")

	assert.Equal(t, degradedEnglish, resp.Answer)
	assert.Contains(t, resp.Detail, "store down")
}

func TestOrchestrator_NoKnowledgeBase(t *testing.T) {
	o := newTestOrchestrator(deps{provider: &fakeProvider{}})

	resp := o.Answer(context.Background(), "which dog food is best?", "s1")

	assert.Equal(t, noKnowledgeBaseMessage, resp.Answer)
	assert.Equal(t, "No retrievers loaded.", resp.Detail)
}

func TestOrchestrator_RetrievalBranch(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"which dog food is best?": {1, 0},
		"premium dog food":        {1, 0},
	}}
	provider := &fakeProvider{retrievers: map[string]retrieval.Searcher{
		"products": &fakeSearcher{candidates: []retrieval.Candidate{
			{ID: "p1", Text: "premium dog food"},
		}},
	}}
	completer := &fakeCompleter{answer: "Try our premium dog food."}
	recorder := &fakeRecorder{}

	o := newTestOrchestrator(deps{
		provider:  provider,
		embedder:  embedder,
		completer: completer,
		recorder:  recorder,
	})

	resp := o.Answer(context.Background(), "which dog food is best?", "s1")

	assert.Equal(t, "Try our premium dog food.", resp.Answer)
	assert.Contains(t, resp.Detail, "premium dog food")
	assert.Equal(t, 1, completer.calls)
	require.Len(t, recorder.turns, 1)
	assert.Equal(t, "Try our premium dog food.", recorder.turns[0].Answer)
}

func TestOrchestrator_NoCandidates(t *testing.T) {
	provider := &fakeProvider{retrievers: map[string]retrieval.Searcher{
		"products": &fakeSearcher{},
	}}
	completer := &fakeCompleter{answer: "unused"}
	o := newTestOrchestrator(deps{provider: provider, completer: completer})

	resp := o.Answer(context.Background(), "do you sell unicorn saddles?", "s1")

	assert.Equal(t, synthesis.NoDocumentsMessage, resp.Answer)
	assert.Zero(t, completer.calls)
}

func TestOrchestrator_PanicRecovers(t *testing.T) {
	executor := &fakeExecutor{panics: true}
	o := newTestOrchestrator(deps{executor: executor})

	resp := o.Answer(context.Background(), "how many products?", "s1")

	assert.Equal(t, degradedEnglish, resp.Answer)
	assert.Contains(t, resp.Detail, "executor exploded")
}

func TestOrchestrator_RecorderFailureIsSwallowed(t *testing.T) {
	executor := &fakeExecutor{answer: "There are 3 users in the store."}
	recorder := &fakeRecorder{err: errors.New("history unavailable")}
	o := newTestOrchestrator(deps{executor: executor, recorder: recorder})

	resp := o.Answer(context.Background(), "how many users?", "s1")
	assert.Equal(t, "There are 3 users in the store.", resp.Answer)
}

func TestOrchestrator_CacheHitSkipsRetrieval(t *testing.T) {
	answerCache := cache.NewAnswerCache(cache.NewMemoryClient(10), observability.Nop(), time.Minute)
	answerCache.Set(context.Background(), "which dog food is best?", "Cached answer.", "ctx")

	// A provider failure would degrade the answer if the cache were bypassed.
	provider := &fakeProvider{err: errors.New("disk gone")}
	o := newTestOrchestrator(deps{provider: provider, cache: answerCache})

	resp := o.Answer(context.Background(), "which dog food is best?", "s1")

	assert.Equal(t, "Cached answer.", resp.Answer)
	assert.Contains(t, resp.Detail, "Cached")
}

func TestOrchestrator_DegradedLocalization(t *testing.T) {
	o := newTestOrchestrator(deps{})

	assert.Equal(t, degradedEnglish, o.degraded(false, "d").Answer)
	assert.Equal(t, degradedHindi, o.degraded(true, "d").Answer)
}
