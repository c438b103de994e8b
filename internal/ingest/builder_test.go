package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyotech/catalog-assistant/internal/observability"
	"github.com/samyotech/catalog-assistant/internal/retrieval"
	"github.com/samyotech/catalog-assistant/internal/store"
)

type fakeReader struct {
	categories []string
	records    map[string][]store.Record
}

func (f *fakeReader) ListCategories(ctx context.Context) ([]string, error) {
	return f.categories, nil
}

func (f *fakeReader) Count(ctx context.Context, category string) (int64, error) {
	return int64(len(f.records[category])), nil
}

func (f *fakeReader) Find(ctx context.Context, category string, filter store.Filter) ([]store.Record, error) {
	return f.records[category], nil
}

func (f *fakeReader) FindOne(ctx context.Context, category string, filter store.Filter) (*store.Record, error) {
	records := f.records[category]
	if len(records) == 0 {
		return nil, store.ErrNotFound
	}
	return &records[0], nil
}

type countingEmbedder struct {
	texts []string
}

func (e *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.texts = append(e.texts, texts...)
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (e *countingEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func productRecord(id, name string, price int, created time.Time) store.Record {
	return store.Record{
		ID: id,
		Fields: map[string]interface{}{
			"_id":         id,
			"productName": name,
			"price":       price,
			"image":       "https://cdn.example.com/" + id + ".jpg",
			"createdAt":   created,
			"__v":         0,
		},
		Order: []string{"_id", "productName", "price", "image", "createdAt", "__v"},
	}
}

func TestBuilder_Build(t *testing.T) {
	dir := t.TempDir()
	created := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

	reader := &fakeReader{
		categories: []string{"products"},
		records: map[string][]store.Record{
			"products": {
				productRecord("p1", "Premium Dog Food", 499, created),
				productRecord("p2", "Cat Tower", 1299, created),
			},
		},
	}
	embedder := &countingEmbedder{}

	builder := NewBuilder(observability.Nop(), reader, embedder, Config{
		Dir:       dir,
		Model:     "test-embedder",
		Dimension: 2,
	})

	result := builder.Build(context.Background(), "products")
	require.NoError(t, result.Err)
	assert.Equal(t, 2, result.Indexed)
	assert.Zero(t, result.Skipped)

	// Volatile fields stay out of the embedded text.
	require.Len(t, embedder.texts, 2)
	assert.Equal(t, "Premium Dog Food 499", embedder.texts[0])
	assert.NotContains(t, embedder.texts[0], "cdn.example.com")

	file, err := retrieval.LoadIndexFile(filepath.Join(dir, "products.json"))
	require.NoError(t, err)
	assert.Equal(t, "products", file.Category)
	assert.Equal(t, "test-embedder", file.Model)
	require.Len(t, file.Entries, 2)

	entry := file.Entries[0]
	assert.Equal(t, "p1", entry.ID)
	assert.Equal(t, []float32{1, 0}, entry.Vector)
	require.NotNil(t, entry.CreatedAt)
	assert.True(t, created.Equal(*entry.CreatedAt))
	assert.Contains(t, entry.Fields, "productName")
	assert.NotContains(t, entry.Fields, "image")
	assert.NotContains(t, entry.Fields, "_id")
}

func TestBuilder_SkipsBlankRecords(t *testing.T) {
	dir := t.TempDir()

	blank := store.Record{
		ID:     "b1",
		Fields: map[string]interface{}{"_id": "b1", "productName": nil, "price": nil},
		Order:  []string{"_id", "productName", "price"},
	}
	reader := &fakeReader{
		categories: []string{"products"},
		records: map[string][]store.Record{
			"products": {
				blank,
				productRecord("p1", "Leash", 199, time.Now()),
			},
		},
	}

	builder := NewBuilder(observability.Nop(), reader, &countingEmbedder{}, Config{Dir: dir})
	result := builder.Build(context.Background(), "products")

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Indexed)
	assert.Equal(t, 1, result.Skipped)
}

func TestBuilder_EmptyCollection(t *testing.T) {
	reader := &fakeReader{categories: []string{"products"}, records: map[string][]store.Record{}}
	builder := NewBuilder(observability.Nop(), reader, &countingEmbedder{}, Config{Dir: t.TempDir()})

	result := builder.Build(context.Background(), "products")
	assert.Error(t, result.Err)
}

func TestBuilder_BuildAllContinuesPastFailures(t *testing.T) {
	reader := &fakeReader{
		categories: []string{"empty", "products"},
		records: map[string][]store.Record{
			"products": {productRecord("p1", "Leash", 199, time.Now())},
		},
	}
	builder := NewBuilder(observability.Nop(), reader, &countingEmbedder{}, Config{Dir: t.TempDir()})

	results, err := builder.BuildAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, 1, results[1].Indexed)
}

func TestBuilder_ReportsProgress(t *testing.T) {
	var calls []int
	reader := &fakeReader{
		categories: []string{"products"},
		records: map[string][]store.Record{
			"products": {productRecord("p1", "Leash", 199, time.Now())},
		},
	}
	builder := NewBuilder(observability.Nop(), reader, &countingEmbedder{}, Config{
		Dir: t.TempDir(),
		Progress: func(category string, done, total int) {
			calls = append(calls, done)
		},
	})

	result := builder.Build(context.Background(), "products")
	require.NoError(t, result.Err)
	assert.Equal(t, []int{0, 1}, calls)
}
