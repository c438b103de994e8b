// Package ingest builds the per-category semantic indexes from the record
// store. It runs offline; the serving path only reads what it writes.
package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samyotech/catalog-assistant/internal/observability"
	"github.com/samyotech/catalog-assistant/internal/retrieval"
	"github.com/samyotech/catalog-assistant/internal/store"
)

// excludedFields never contribute to the embedded text. Identifiers and
// bookkeeping fields add noise; image URLs are meaningless as text.
var excludedFields = map[string]bool{
	"_id":       true,
	"createdAt": true,
	"updatedAt": true,
	"__v":       true,
	"isDelete":  true,
	"image":     true,
}

// embedBatchSize caps how many texts go into one embedding request.
const embedBatchSize = 64

// Result summarizes one category's index build.
type Result struct {
	Category string
	Indexed  int
	Skipped  int
	Err      error
}

// Progress is invoked as a category build advances. done counts embedded
// records out of total. Used by the CLI to drive its progress bar.
type Progress func(category string, done, total int)

// Builder turns record collections into persisted semantic index files.
type Builder struct {
	logger   *observability.Logger
	reader   store.Reader
	embedder retrieval.Embedder
	dir      string
	model    string
	dim      int
	progress Progress
}

// Config holds index builder settings.
type Config struct {
	Dir       string
	Model     string
	Dimension int
	Progress  Progress
}

// NewBuilder creates an index builder.
func NewBuilder(logger *observability.Logger, reader store.Reader, embedder retrieval.Embedder, cfg Config) *Builder {
	progress := cfg.Progress
	if progress == nil {
		progress = func(string, int, int) {}
	}
	return &Builder{
		logger:   logger.WithComponent("ingest"),
		reader:   reader,
		embedder: embedder,
		dir:      cfg.Dir,
		model:    cfg.Model,
		dim:      cfg.Dimension,
		progress: progress,
	}
}

// BuildAll rebuilds the index for every known category. One category failing
// does not stop the rest; per-category outcomes land in the results.
func (b *Builder) BuildAll(ctx context.Context) ([]Result, error) {
	categories, err := b.reader.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}

	results := make([]Result, 0, len(categories))
	for _, category := range categories {
		result := b.Build(ctx, category)
		if result.Err != nil {
			b.logger.Error().Err(result.Err).Str("category", category).Msg("index build failed")
		} else {
			b.logger.Info().
				Str("category", category).
				Int("indexed", result.Indexed).
				Int("skipped", result.Skipped).
				Msg("index built")
		}
		results = append(results, result)
	}
	return results, nil
}

// Build rebuilds one category's index, replacing any previous file.
func (b *Builder) Build(ctx context.Context, category string) Result {
	result := Result{Category: category}

	records, err := b.reader.Find(ctx, category, store.Filter{})
	if err != nil {
		result.Err = fmt.Errorf("load records: %w", err)
		return result
	}
	if len(records) == 0 {
		result.Err = fmt.Errorf("no records in %s", category)
		return result
	}

	fields := embeddableFields(records[0])
	if len(fields) == 0 {
		result.Err = fmt.Errorf("no embeddable fields in %s", category)
		return result
	}

	entries := make([]retrieval.Entry, 0, len(records))
	for _, rec := range records {
		text := recordText(rec, fields)
		if text == "" {
			result.Skipped++
			continue
		}

		entry := retrieval.Entry{
			ID:     rec.ID,
			Text:   text,
			Fields: pickFields(rec, fields),
		}
		if ts, ok := rec.CreatedAt(); ok {
			entry.CreatedAt = &ts
		}
		entries = append(entries, entry)
	}
	if len(entries) == 0 {
		result.Err = fmt.Errorf("no embeddable records in %s", category)
		return result
	}

	b.progress(category, 0, len(entries))
	for offset := 0; offset < len(entries); offset += embedBatchSize {
		end := offset + embedBatchSize
		if end > len(entries) {
			end = len(entries)
		}

		texts := make([]string, end-offset)
		for i := offset; i < end; i++ {
			texts[i-offset] = entries[i].Text
		}

		vectors, err := b.embedder.Embed(ctx, texts)
		if err != nil {
			result.Err = fmt.Errorf("embed batch at %d: %w", offset, err)
			return result
		}
		for i := offset; i < end; i++ {
			entries[i].Vector = vectors[i-offset]
		}
		b.progress(category, end, len(entries))
	}

	file := &retrieval.IndexFile{
		Category:  category,
		Model:     b.model,
		Dimension: b.dim,
		BuiltAt:   time.Now().UTC(),
		Entries:   entries,
	}
	path := filepath.Join(b.dir, category+".json")
	if err := retrieval.SaveIndexFile(path, file); err != nil {
		result.Err = err
		return result
	}

	result.Indexed = len(entries)
	return result
}

// embeddableFields derives the field list from a sample record, preserving
// stored field order.
func embeddableFields(sample store.Record) []string {
	fields := make([]string, 0, len(sample.Order))
	for _, key := range sample.Order {
		if !excludedFields[key] {
			fields = append(fields, key)
		}
	}
	return fields
}

// recordText concatenates the record's field values into the embedded text.
func recordText(rec store.Record, fields []string) string {
	values := make([]string, 0, len(fields))
	for _, key := range fields {
		if v, ok := rec.Get(key); ok && v != nil {
			values = append(values, fmt.Sprintf("%v", v))
		}
	}
	return strings.TrimSpace(strings.Join(values, " "))
}

func pickFields(rec store.Record, fields []string) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for _, key := range fields {
		if v, ok := rec.Get(key); ok {
			out[key] = v
		}
	}
	return out
}
