// Package schemaindex retrieves the data dictionary entries most relevant to
// a question, by embedding similarity when a backend is available and by
// keyword overlap otherwise.
package schemaindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/kyleking/askdb/internal/dictionary"
	"github.com/kyleking/askdb/internal/logging"
)

// DefaultTopK is used when Search is called with k <= 0
const DefaultTopK = 5

// Mode is the retrieval strategy the index was built with
type Mode string

const (
	ModeEmbedding Mode = "embedding"
	ModeKeyword   Mode = "keyword"
)

// Embedder is the slice of an embedding backend the index needs
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	IsEnabled() bool
}

// Result is one retrieved dictionary entry with its score. Scores are
// cosine similarities in embedding mode and word hit counts in keyword mode.
type Result struct {
	dictionary.Entry
	Score float64 `json:"score"`
}

type item struct {
	entry  dictionary.Entry
	lower  string
	vector []float32
}

// Index is immutable after New and safe for concurrent Search calls
type Index struct {
	items    []item
	embedder Embedder
	mode     Mode
	topK     int
}

// Option configures an Index
type Option func(*Index)

// WithTopK sets the k used when Search gets k <= 0
func WithTopK(k int) Option {
	return func(ix *Index) {
		if k > 0 {
			ix.topK = k
		}
	}
}

// New embeds every dictionary entry up front. When the embedder is missing,
// disabled or fails, the index is built in keyword mode.
func New(ctx context.Context, dict *dictionary.Dictionary, embedder Embedder, opts ...Option) *Index {
	ix := &Index{mode: ModeKeyword, topK: DefaultTopK}
	for _, opt := range opts {
		opt(ix)
	}

	entries := dict.Entries()
	ix.items = make([]item, len(entries))
	texts := make([]string, len(entries))

	for i, e := range entries {
		text := EntryText(e)
		ix.items[i] = item{entry: e, lower: strings.ToLower(text)}
		texts[i] = text
	}

	if len(entries) == 0 || embedder == nil || !embedder.IsEnabled() {
		return ix
	}

	vectors, err := embedder.GenerateEmbeddings(ctx, texts)
	if err == nil && len(vectors) != len(texts) {
		err = fmt.Errorf("expected %d embeddings, got %d", len(texts), len(vectors))
	}

	if err != nil {
		logging.Warnf("schema index falling back to keyword search: %v", err)
		return ix
	}

	for i := range ix.items {
		ix.items[i].vector = vectors[i]
	}

	ix.embedder = embedder
	ix.mode = ModeEmbedding
	logging.Debugf("schema index built with %d embedded entries", len(ix.items))

	return ix
}

// EntryText is the text that represents an entry for both strategies
func EntryText(e dictionary.Entry) string {
	return e.Table + " " + e.Column + " " + e.Description
}

// Mode reports the strategy chosen at construction
func (ix *Index) Mode() Mode {
	return ix.mode
}

// Len returns the number of indexed entries
func (ix *Index) Len() int {
	return len(ix.items)
}

// Search returns at most k entries ranked by relevance, ties kept in
// dictionary order. It never fails: an embedding error degrades the call
// to keyword scoring.
func (ix *Index) Search(ctx context.Context, question string, k int) []Result {
	if k <= 0 {
		k = ix.topK
	}

	if len(ix.items) == 0 {
		return []Result{}
	}

	if ix.mode == ModeEmbedding {
		vector, err := ix.embedder.GenerateEmbedding(ctx, question)
		if err == nil {
			return ix.rankBySimilarity(vector, k)
		}

		logging.Warnf("question embedding failed, using keyword search: %v", err)
	}

	return ix.rankByKeywords(question, k)
}

func (ix *Index) rankBySimilarity(query []float32, k int) []Result {
	results := make([]Result, len(ix.items))
	for i, it := range ix.items {
		results[i] = Result{Entry: it.entry, Score: cosineSimilarity(query, it.vector)}
	}

	return topK(results, k)
}

func (ix *Index) rankByKeywords(question string, k int) []Result {
	words := strings.Fields(strings.ToLower(question))

	results := make([]Result, 0, len(ix.items))
	for _, it := range ix.items {
		hits := 0
		for _, w := range words {
			if strings.Contains(it.lower, w) {
				hits++
			}
		}

		if hits > 0 {
			results = append(results, Result{Entry: it.entry, Score: float64(hits)})
		}
	}

	return topK(results, k)
}

func topK(results []Result, k int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}

	return results
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dotProduct, normA, normB float64

	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// FormatContext renders results as "Table.Column: Description" lines
func FormatContext(results []Result) string {
	lines := make([]string, 0, len(results))
	for _, r := range results {
		lines = append(lines, r.Table+"."+r.Column+": "+r.Description)
	}

	return strings.Join(lines, "\n")
}
