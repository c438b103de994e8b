package retrieval

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samyotech/catalog-assistant/internal/observability"
)

// fakeEmbedder maps known texts to fixed vectors.
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

func TestMemoryIndex_Search_RanksByCosineSimilarity(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{
		"dog food": {1, 0, 0},
	}}

	idx := NewMemoryIndex("products", embedder, []Entry{
		{ID: "far", Text: "aquarium gravel", Vector: []float32{0, 1, 0}},
		{ID: "close", Text: "premium dog food", Vector: []float32{0.9, 0.1, 0}},
		{ID: "mid", Text: "dog leash", Vector: []float32{0.5, 0.5, 0}},
	})

	candidates, err := idx.Search(context.Background(), "dog food", 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "close", candidates[0].ID)
	assert.Equal(t, "mid", candidates[1].ID)
	assert.Equal(t, 0, candidates[0].Rank)
	assert.Equal(t, 1, candidates[1].Rank)
	assert.Equal(t, "products", candidates[0].Category)
	assert.Greater(t, candidates[0].Score, candidates[1].Score)
}

func TestMemoryIndex_Search_KLargerThanIndex(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	idx := NewMemoryIndex("products", embedder, []Entry{
		{ID: "only", Text: "t", Vector: []float32{1, 0}},
	})

	candidates, err := idx.Search(context.Background(), "q", 20)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}

func TestMemoryIndex_EmptyIndex(t *testing.T) {
	idx := NewMemoryIndex("products", &fakeEmbedder{}, nil)
	candidates, err := idx.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}

func TestMemoryIndex_SkipsVectorlessEntries(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	idx := NewMemoryIndex("products", embedder, []Entry{
		{ID: "a", Text: "t", Vector: []float32{1, 0}},
		{ID: "b", Text: "no vector"},
	})
	assert.Equal(t, 1, idx.Len())
}

func TestIndexFile_SaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.json")

	created := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	original := &IndexFile{
		Category:  "products",
		Model:     "test-embedder",
		Dimension: 3,
		BuiltAt:   time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC),
		Entries: []Entry{
			{
				ID:        "p1",
				Text:      "premium dog food",
				Fields:    map[string]interface{}{"productName": "premium dog food"},
				CreatedAt: &created,
				Vector:    []float32{0.1, 0.2, 0.3},
			},
		},
	}

	require.NoError(t, SaveIndexFile(path, original))

	loaded, err := LoadIndexFile(path)
	require.NoError(t, err)
	assert.Equal(t, original.Category, loaded.Category)
	require.Len(t, loaded.Entries, 1)
	assert.Equal(t, "p1", loaded.Entries[0].ID)
	require.NotNil(t, loaded.Entries[0].CreatedAt)
	assert.True(t, created.Equal(*loaded.Entries[0].CreatedAt))
}

func TestDiskProvider_MissingDirIsEmpty(t *testing.T) {
	p := NewDiskProvider(observability.Nop(), filepath.Join(t.TempDir(), "nope"), &fakeEmbedder{})

	retrievers, err := p.Retrievers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, retrievers)
}

func TestDiskProvider_SkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, SaveIndexFile(filepath.Join(dir, "products.json"), &IndexFile{
		Category: "products",
		Entries:  []Entry{{ID: "p1", Text: "t", Vector: []float32{1}}},
	}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("ignore me"), 0o644))

	p := NewDiskProvider(observability.Nop(), dir, &fakeEmbedder{})
	retrievers, err := p.Retrievers(context.Background())
	require.NoError(t, err)

	require.Len(t, retrievers, 1)
	_, ok := retrievers["products"]
	assert.True(t, ok)
}

func TestDiskProvider_CategoryFallsBackToFilename(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveIndexFile(filepath.Join(dir, "users.json"), &IndexFile{
		Entries: []Entry{{ID: "u1", Text: "t", Vector: []float32{1}}},
	}))

	p := NewDiskProvider(observability.Nop(), dir, &fakeEmbedder{})
	retrievers, err := p.Retrievers(context.Background())
	require.NoError(t, err)

	_, ok := retrievers["users"]
	assert.True(t, ok)
}
