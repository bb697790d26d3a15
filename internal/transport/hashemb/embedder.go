// Package hashemb provides a deterministic local embedder for development
// and offline environments. Vectors are derived from a SHA-256 chain over
// the input text, so the same text always maps to the same vector.
package hashemb

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/clearbid/tenderdex/internal/domain"
)

// DefaultDimensions matches the footprint of common small embedding models.
const DefaultDimensions = 384

// Embedder implements domain.Embedder without any network dependency.
type Embedder struct {
	dim int
}

// New creates a hash embedder. dim <= 0 falls back to DefaultDimensions.
func New(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Embedder{dim: dim}
}

// Embed derives a deterministic vector with components in [0, 1).
func (e *Embedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	vals := make([]float32, 0, e.dim)
	pool := sha256.Sum256([]byte(text))
	for len(vals) < e.dim {
		pool = sha256.Sum256(pool[:])
		for i := 0; i+4 <= len(pool) && len(vals) < e.dim; i += 4 {
			chunk := binary.BigEndian.Uint32(pool[i : i+4])
			vals = append(vals, float32(chunk%100000)/100000.0)
		}
	}
	return domain.EmbeddingResult{Embedding: vals}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, len(texts))}
	for i, t := range texts {
		res, err := e.Embed(ctx, t)
		if err != nil {
			return domain.BatchEmbeddingResult{}, err
		}
		out.Embeddings[i] = res.Embedding
	}
	return out, nil
}

// HealthCheck always succeeds: there is nothing remote to reach.
func (e *Embedder) HealthCheck(_ context.Context) error {
	return nil
}
