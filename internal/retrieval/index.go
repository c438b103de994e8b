// Package retrieval plans and executes semantic search across the
// per-category indexes built by the offline indexer.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/samyotech/catalog-assistant/internal/observability"
)

// Candidate is one retrieved snippet: its text, the original record fields it
// was derived from, the source category, and its rank within that search.
type Candidate struct {
	ID        string
	Text      string
	Fields    map[string]interface{}
	Category  string
	Rank      int
	Score     float32
	CreatedAt *time.Time
}

// Embedder produces vector representations of text. Satisfied by the LLM
// embedding client; tests supply fakes.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the read contract of one category's semantic index.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]Candidate, error)
}

// Entry is one indexed document: the embedded text, the record fields it was
// built from, and the record's creation timestamp for temporal filtering.
type Entry struct {
	ID        string                 `json:"id"`
	Text      string                 `json:"text"`
	Fields    map[string]interface{} `json:"fields"`
	CreatedAt *time.Time             `json:"createdAt,omitempty"`
	Vector    []float32              `json:"vector"`
}

// IndexFile is the persisted shape of one category's index.
type IndexFile struct {
	Category  string    `json:"category"`
	Model     string    `json:"model"`
	Dimension int       `json:"dimension"`
	BuiltAt   time.Time `json:"builtAt"`
	Entries   []Entry   `json:"entries"`
}

// MemoryIndex is an in-memory cosine-similarity index over one category's
// entries. Vectors are normalized once at construction.
type MemoryIndex struct {
	category string
	embedder Embedder
	entries  []Entry
}

// NewMemoryIndex builds an index over the given entries.
func NewMemoryIndex(category string, embedder Embedder, entries []Entry) *MemoryIndex {
	normalized := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if len(e.Vector) == 0 {
			continue
		}
		e.Vector = normalizeVector(e.Vector)
		normalized = append(normalized, e)
	}
	return &MemoryIndex{
		category: category,
		embedder: embedder,
		entries:  normalized,
	}
}

// Len returns the number of indexed entries.
func (idx *MemoryIndex) Len() int {
	return len(idx.entries)
}

// Search embeds the query and returns up to k candidates ranked by cosine
// similarity descending.
func (idx *MemoryIndex) Search(ctx context.Context, query string, k int) ([]Candidate, error) {
	if len(idx.entries) == 0 || k <= 0 {
		return nil, nil
	}

	vector, err := idx.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vector = normalizeVector(vector)

	type scored struct {
		entry Entry
		score float32
	}
	results := make([]scored, 0, len(idx.entries))
	for _, e := range idx.entries {
		if len(e.Vector) != len(vector) {
			continue
		}
		results = append(results, scored{entry: e, score: dot(vector, e.Vector)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if k > len(results) {
		k = len(results)
	}

	candidates := make([]Candidate, k)
	for i := 0; i < k; i++ {
		candidates[i] = Candidate{
			ID:        results[i].entry.ID,
			Text:      results[i].entry.Text,
			Fields:    results[i].entry.Fields,
			Category:  idx.category,
			Rank:      i,
			Score:     results[i].score,
			CreatedAt: results[i].entry.CreatedAt,
		}
	}
	return candidates, nil
}

// Provider supplies the currently available per-category retrievers.
type Provider interface {
	Retrievers(ctx context.Context) (map[string]Searcher, error)
}

// DiskProvider loads persisted index files from a directory on each request,
// so indexes rebuilt or removed out-of-band are picked up without restarts.
type DiskProvider struct {
	logger   *observability.Logger
	dir      string
	embedder Embedder
}

// NewDiskProvider creates a provider over the given vector-store directory.
func NewDiskProvider(logger *observability.Logger, dir string, embedder Embedder) *DiskProvider {
	return &DiskProvider{
		logger:   logger.WithComponent("index-provider"),
		dir:      dir,
		embedder: embedder,
	}
}

// Retrievers scans the directory for index files. A missing directory or a
// malformed file is not an error; the affected category simply has no index.
func (p *DiskProvider) Retrievers(ctx context.Context) (map[string]Searcher, error) {
	dirents, err := os.ReadDir(p.dir)
	if os.IsNotExist(err) {
		return map[string]Searcher{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read index dir: %w", err)
	}

	retrievers := make(map[string]Searcher)
	for _, de := range dirents {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}

		path := filepath.Join(p.dir, de.Name())
		file, err := LoadIndexFile(path)
		if err != nil {
			p.logger.Warn().Err(err).Str("path", path).Msg("skipping unreadable index file")
			continue
		}

		category := file.Category
		if category == "" {
			category = strings.TrimSuffix(de.Name(), ".json")
		}
		retrievers[category] = NewMemoryIndex(category, p.embedder, file.Entries)
	}

	return retrievers, nil
}

// LoadIndexFile reads and decodes one persisted index file.
func LoadIndexFile(path string) (*IndexFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	var file IndexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode index file: %w", err)
	}
	return &file, nil
}

// SaveIndexFile persists an index file, replacing any previous build.
func SaveIndexFile(path string, file *IndexFile) error {
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode index file: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write index file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace index file: %w", err)
	}
	return nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	if sum > 1 {
		sum = 1
	} else if sum < -1 {
		sum = -1
	}
	return sum
}

func normalizeVector(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return v
	}

	normalized := make([]float32, len(v))
	for i, x := range v {
		normalized[i] = float32(float64(x) / norm)
	}
	return normalized
}
