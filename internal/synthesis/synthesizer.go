// Package synthesis turns retrieved candidates into a final answer by
// re-ranking them against the literal question and running one
// retrieval-augmented generation call.
package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/samyotech/catalog-assistant/internal/llm"
	"github.com/samyotech/catalog-assistant/internal/observability"
	"github.com/samyotech/catalog-assistant/internal/retrieval"
)

// NoDocumentsMessage is returned when retrieval produced nothing to ground
// an answer on. The generation model is not consulted in that case.
const NoDocumentsMessage = "No relevant documents found."

// defaultRerankK is how many re-ranked candidates make it into the prompt.
const defaultRerankK = 4

const englishPrompt = `You are a helpful chatbot for a pet store. Answer in English, be polite, and always include product name, price, and discount if available. If you don't know the answer, say "I don't have this information, can I assist you with something else?"
Context: %s
Question: %s
Answer:`

const hindiPrompt = `You are a helpful chatbot for a pet store. Answer in Hindi, be polite, and always include product name, price, and discount if available. If you don't know the answer, say "Mujhe yeh information nahi hai, kya main aapki aur kisi tarah se madad kar sakta hoon?"
Context: %s
Question: %s
Answer:`

// Synthesizer builds an ephemeral index over the fanned-out candidates,
// re-ranks them against the question, and asks the generation model for the
// final text. The per-request index is discarded after the call.
type Synthesizer struct {
	logger    *observability.Logger
	embedder  retrieval.Embedder
	completer llm.Completer
	rerankK   int
}

// NewSynthesizer creates an answer synthesizer.
func NewSynthesizer(logger *observability.Logger, embedder retrieval.Embedder, completer llm.Completer, rerankK int) *Synthesizer {
	if rerankK <= 0 {
		rerankK = defaultRerankK
	}
	return &Synthesizer{
		logger:    logger.WithComponent("synthesis"),
		embedder:  embedder,
		completer: completer,
		rerankK:   rerankK,
	}
}

// Synthesize answers the question from the given candidates. The returned
// context string is the prompt context actually used, for diagnostics.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, candidates []retrieval.Candidate, hindi bool) (string, string, error) {
	if len(candidates) == 0 {
		return NoDocumentsMessage, "", nil
	}

	ranked, err := s.rerank(ctx, question, candidates)
	if err != nil {
		return "", "", fmt.Errorf("re-rank candidates: %w", err)
	}

	promptContext := buildContext(ranked)
	template := englishPrompt
	if hindi {
		template = hindiPrompt
	}
	prompt := fmt.Sprintf(template, promptContext, question)

	answer, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return "", "", fmt.Errorf("generate answer: %w", err)
	}

	s.logger.Debug().
		Int("candidates", len(candidates)).
		Int("ranked", len(ranked)).
		Bool("hindi", hindi).
		Msg("synthesized answer")

	return cleanAnswer(answer), promptContext, nil
}

// rerank embeds the candidate texts into a throwaway index and queries it
// with the literal question. The broad per-category recall was independent
// per index, so this is the step that makes ranks comparable.
func (s *Synthesizer) rerank(ctx context.Context, question string, candidates []retrieval.Candidate) ([]retrieval.Candidate, error) {
	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Text
	}

	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed candidates: %w", err)
	}

	entries := make([]retrieval.Entry, len(candidates))
	for i, c := range candidates {
		entries[i] = retrieval.Entry{
			ID:        fmt.Sprintf("%s/%s", c.Category, c.ID),
			Text:      c.Text,
			Fields:    c.Fields,
			CreatedAt: c.CreatedAt,
			Vector:    vectors[i],
		}
	}

	byID := make(map[string]retrieval.Candidate, len(candidates))
	for i, c := range candidates {
		byID[entries[i].ID] = c
	}

	index := retrieval.NewMemoryIndex("", s.embedder, entries)
	top, err := index.Search(ctx, question, s.rerankK)
	if err != nil {
		return nil, err
	}

	ranked := make([]retrieval.Candidate, 0, len(top))
	for i, t := range top {
		c := byID[t.ID]
		c.Rank = i
		c.Score = t.Score
		ranked = append(ranked, c)
	}
	return ranked, nil
}

// buildContext renders the ranked candidates into the prompt context block,
// one line per candidate with its source category and original fields.
func buildContext(candidates []retrieval.Candidate) string {
	if len(candidates) == 0 {
		return "No relevant context found."
	}
	lines := make([]string, len(candidates))
	for i, c := range candidates {
		lines[i] = fmt.Sprintf("Collection: %s, Text: %s, Details: %v", c.Category, c.Text, c.Fields)
	}
	return strings.Join(lines, "\n")
}

// cleanAnswer strips emphasis markup and collapses blank lines.
func cleanAnswer(answer string) string {
	answer = strings.ReplaceAll(answer, "**", "")
	answer = strings.ReplaceAll(answer, "*", "")
	answer = strings.ReplaceAll(answer, "\n\n", "\n")
	return strings.TrimSpace(answer)
}
