// Package vecindex implements a flat exact inner-product index over
// L2-normalized vectors. On unit vectors inner product equals cosine
// similarity, so normalization is applied identically at build and query
// time.
package vecindex

import (
	"fmt"
	"math"
	"sort"
)

// Index is a flat similarity-search structure. It is meaningless without
// the chunk list it was built from: position i maps to chunk i.
type Index struct {
	dim     int
	vectors [][]float32
}

// Hit is one nearest-neighbor result: a position into the paired chunk list
// and the inner-product score.
type Hit struct {
	Pos   int
	Score float32
}

// Build normalizes the given vectors and builds an index over them. All
// vectors must share one dimension. The input slices are not modified.
func Build(vectors [][]float32) (*Index, error) {
	ix := &Index{}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("vector %d is empty", i)
		}
		if ix.dim == 0 {
			ix.dim = len(v)
		}
		if len(v) != ix.dim {
			return nil, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), ix.dim)
		}
		ix.vectors = append(ix.vectors, normalize(v))
	}
	return ix, nil
}

// Dim returns the vector dimension, 0 for an empty index.
func (ix *Index) Dim() int { return ix.dim }

// Len returns the number of indexed vectors.
func (ix *Index) Len() int { return len(ix.vectors) }

// Search returns up to topK nearest vectors by inner product, best first.
// The query is normalized before scoring. Ties keep insertion order.
func (ix *Index) Search(query []float32, topK int) []Hit {
	if topK <= 0 || len(ix.vectors) == 0 {
		return nil
	}
	q := normalize(query)

	hits := make([]Hit, len(ix.vectors))
	for i, v := range ix.vectors {
		hits[i] = Hit{Pos: i, Score: dot(v, q)}
	}
	sort.SliceStable(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })

	if topK < len(hits) {
		hits = hits[:topK]
	}
	return hits
}

// normalize returns an L2-normalized copy. A zero vector is returned as a
// zero copy to avoid NaN scores.
func normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
