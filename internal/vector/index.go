// Package vector provides the per-session vector index: an append-only set of
// (embedding, chunk) pairs with brute-force similarity search and a
// non-destructive merge for combined multi-session queries.
package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// pair couples one chunk with its embedding. Pairs are never mutated after append.
type pair struct {
	vec   []float32
	chunk *models.Chunk
}

// Index owns (embedding, chunk) pairs for one session and supports
// nearest-neighbor retrieval by inner product over normalized vectors.
// Add and Search are mutually exclusive; searches may run concurrently.
type Index struct {
	dimensions int
	pairs      []pair
	mu         sync.RWMutex
}

// SearchHit is a single retrieval result.
type SearchHit struct {
	Chunk *models.Chunk
	Score float64 // inner product; cosine similarity for normalized vectors
}

// NewIndex creates an empty index with the given embedding dimension.
func NewIndex(dimensions int) (*Index, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &Index{dimensions: dimensions}, nil
}

// Add appends chunks with their embeddings. The append is all-or-nothing:
// lengths and dimensions are validated before any pair is committed. Callers
// embed before calling Add, so no lock is held during a provider call.
func (idx *Index) Add(ctx context.Context, chunks []*models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks and vectors length mismatch: %d vs %d", len(chunks), len(vectors))
	}
	for i, vec := range vectors {
		if len(vec) != idx.dimensions {
			return fmt.Errorf("vector %d dimension mismatch: got %d, expected %d", i, len(vec), idx.dimensions)
		}
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, ch := range chunks {
		vec := make([]float32, idx.dimensions)
		copy(vec, vectors[i])
		idx.pairs = append(idx.pairs, pair{vec: vec, chunk: ch})
	}
	return nil
}

// Search returns the top-k chunks by descending similarity to query.
// Ties are broken by insertion order (earliest inserted wins), so results
// are deterministic. Returns min(k, size) hits.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]*SearchHit, error) {
	if len(query) != idx.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), idx.dimensions)
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if k <= 0 || len(idx.pairs) == 0 {
		return nil, nil
	}
	hits := make([]*SearchHit, len(idx.pairs))
	for i, p := range idx.pairs {
		hits[i] = &SearchHit{Chunk: p.chunk, Score: InnerProduct(query, p.vec)}
	}
	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// Merge returns a new index holding the union of idx's and other's pairs,
// idx's pairs first. Neither input is mutated. Pairs already present in idx
// (same chunk ID) are not duplicated, so merging an index with itself yields
// an equal index; logically-different chunks with distinct IDs always survive.
func (idx *Index) Merge(other *Index) (*Index, error) {
	if other == nil {
		return idx.clone(), nil
	}
	if other.dimensions != idx.dimensions {
		return nil, fmt.Errorf("merge dimension mismatch: %d vs %d", idx.dimensions, other.dimensions)
	}
	merged := idx.clone()
	seen := make(map[string]bool, len(merged.pairs))
	for _, p := range merged.pairs {
		seen[p.chunk.ID] = true
	}
	for _, p := range other.snapshot() {
		if seen[p.chunk.ID] {
			continue
		}
		seen[p.chunk.ID] = true
		merged.pairs = append(merged.pairs, p)
	}
	return merged, nil
}

// clone returns a new index sharing chunk values but with its own pair slice.
func (idx *Index) clone() *Index {
	return &Index{dimensions: idx.dimensions, pairs: idx.snapshot()}
}

// snapshot returns a copy of the pair slice under the read lock.
func (idx *Index) snapshot() []pair {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]pair, len(idx.pairs))
	copy(out, idx.pairs)
	return out
}

// Size returns the number of pairs in the index.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.pairs)
}

// Dimensions returns the embedding dimension the index was created with.
func (idx *Index) Dimensions() int {
	return idx.dimensions
}

// Chunks returns the chunks in insertion order.
func (idx *Index) Chunks() []*models.Chunk {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]*models.Chunk, len(idx.pairs))
	for i, p := range idx.pairs {
		out[i] = p.chunk
	}
	return out
}
