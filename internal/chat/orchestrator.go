// Package chat wires classification, structured execution, and retrieval
// into the single entry point the transport layer calls.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/abadojack/whatlanggo"

	"github.com/samyotech/catalog-assistant/internal/cache"
	"github.com/samyotech/catalog-assistant/internal/history"
	"github.com/samyotech/catalog-assistant/internal/intent"
	"github.com/samyotech/catalog-assistant/internal/observability"
	"github.com/samyotech/catalog-assistant/internal/retrieval"
	"github.com/samyotech/catalog-assistant/internal/synthesis"
)

// Degraded fallback text, localized by the lazily computed language hint.
const (
	degradedEnglish = "I don't have this information."
	degradedHindi   = "Mujhe yeh information nahi hai."
)

// noKnowledgeBaseMessage is returned when not a single semantic index exists.
const noKnowledgeBaseMessage = "No knowledge base available."

// Response is the orchestrator's answer plus diagnostic detail. Detail is
// for operators and debug output, never shown as the answer.
type Response struct {
	Answer string
	Detail string
}

// Orchestrator routes each question down the structured or the retrieval
// branch and records the exchange. It holds no per-request state; one
// instance serves concurrent requests.
type Orchestrator struct {
	logger      *observability.Logger
	classifier  *intent.Classifier
	executor    StructuredExecutor
	planner     *retrieval.Planner
	provider    retrieval.Provider
	aggregator  *retrieval.Aggregator
	synthesizer *synthesis.Synthesizer
	recorder    history.Recorder
	answerCache *cache.AnswerCache
}

// StructuredExecutor is the structured branch's contract.
type StructuredExecutor interface {
	Execute(ctx context.Context, it intent.Intent) (string, error)
}

// NewOrchestrator assembles the orchestrator. recorder and answerCache may
// be nil; history recording and caching are then skipped.
func NewOrchestrator(
	logger *observability.Logger,
	classifier *intent.Classifier,
	executor StructuredExecutor,
	planner *retrieval.Planner,
	provider retrieval.Provider,
	aggregator *retrieval.Aggregator,
	synthesizer *synthesis.Synthesizer,
	recorder history.Recorder,
	answerCache *cache.AnswerCache,
) *Orchestrator {
	return &Orchestrator{
		logger:      logger.WithComponent("orchestrator"),
		classifier:  classifier,
		executor:    executor,
		planner:     planner,
		provider:    provider,
		aggregator:  aggregator,
		synthesizer: synthesizer,
		recorder:    recorder,
		answerCache: answerCache,
	}
}

// Answer produces the response for one question. It never panics and never
// returns an error; every failure degrades to a fixed apology localized by
// the question's language.
func (o *Orchestrator) Answer(ctx context.Context, question, sessionID string) (resp Response) {
	logger := o.logger.WithSession(sessionID)
	start := time.Now()

	// The language hint is computed at most once, and only when a fallback
	// or a generation prompt actually needs it.
	var langKnown, langHindi bool
	isHindi := func() bool {
		if !langKnown {
			info := whatlanggo.Detect(question)
			langHindi = info.Lang == whatlanggo.Hin
			langKnown = true
		}
		return langHindi
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprint(r)).Msg("recovered while answering")
			resp = o.degraded(isHindi(), fmt.Sprintf("panic: %v", r))
		}
		logger.Info().
			Str("question", question).
			Dur("elapsed", time.Since(start)).
			Msg("answered question")
	}()

	it := o.classifier.Classify(question)
	if it.Structured() {
		answer, err := o.executor.Execute(ctx, it)
		if err != nil {
			logger.Error().Err(err).Str("intent", string(it.Kind)).Msg("structured query failed")
			return o.degraded(isHindi(), err.Error())
		}
		o.record(ctx, logger, sessionID, question, answer)
		return Response{
			Answer: answer,
			Detail: fmt.Sprintf("Structured query: %s %s", it.Kind, it.Entity),
		}
	}

	if cached, ok := o.cachedAnswer(ctx, question); ok {
		o.record(ctx, logger, sessionID, question, cached.Answer)
		return Response{Answer: cached.Answer, Detail: "Cached: " + cached.Context}
	}

	retrievers, err := o.provider.Retrievers(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("loading semantic indexes failed")
		return o.degraded(isHindi(), err.Error())
	}
	if len(retrievers) == 0 {
		return Response{Answer: noKnowledgeBaseMessage, Detail: "No retrievers loaded."}
	}

	plan := o.planner.Plan(question)
	candidates := o.aggregator.Aggregate(ctx, question, retrievers, plan)

	answer, promptContext, err := o.synthesizer.Synthesize(ctx, question, candidates, isHindi())
	if err != nil {
		logger.Error().Err(err).Msg("answer synthesis failed")
		return o.degraded(isHindi(), err.Error())
	}

	if o.answerCache != nil && answer != synthesis.NoDocumentsMessage {
		o.answerCache.Set(ctx, question, answer, promptContext)
	}

	o.record(ctx, logger, sessionID, question, answer)
	return Response{Answer: answer, Detail: promptContext}
}

func (o *Orchestrator) cachedAnswer(ctx context.Context, question string) (*cache.CachedAnswer, bool) {
	if o.answerCache == nil {
		return nil, false
	}
	return o.answerCache.Get(ctx, question)
}

// record appends the turn to conversation history. Recording failures are
// logged and swallowed; the answer has already been produced.
func (o *Orchestrator) record(ctx context.Context, logger *observability.Logger, sessionID, question, answer string) {
	if o.recorder == nil {
		return
	}
	if err := o.recorder.Append(ctx, history.Turn{
		SessionID: sessionID,
		Question:  question,
		Answer:    answer,
	}); err != nil {
		logger.Warn().Err(err).Msg("failed to record conversation turn")
	}
}

func (o *Orchestrator) degraded(hindi bool, detail string) Response {
	answer := degradedEnglish
	if hindi {
		answer = degradedHindi
	}
	return Response{Answer: answer, Detail: detail}
}
