// Package retrieval answers similarity queries against a per-document
// vector index, degrading to length-ranked chunks when embedding is down.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/domain"
	"github.com/clearbid/tenderdex/internal/metrics"
	"github.com/clearbid/tenderdex/internal/vecindex"
)

// IndexLoader loads the persisted chunk/index pair for a document.
type IndexLoader interface {
	Load(id string) ([]domain.Chunk, *vecindex.Index, error)
}

// Service retrieves the most relevant chunks for a query.
type Service struct {
	store    IndexLoader
	embedder domain.Embedder // nil forces the degraded path
	topK     int
	logger   *zap.Logger
}

// NewService creates a retrieval service. topK <= 0 defaults to 5.
func NewService(store IndexLoader, embedder domain.Embedder, topK int, logger *zap.Logger) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{store: store, embedder: embedder, topK: topK, logger: logger}
}

// Retrieve returns up to topK chunks ranked by similarity to the query.
// A missing index propagates domain.ErrIndexNotFound. An embedding failure
// does not fail the call: the longest chunks are returned with
// domain.DegradedScore instead.
func (s *Service) Retrieve(ctx context.Context, tenderID, query string) ([]domain.RankedChunk, error) {
	chunks, ix, err := s.store.Load(tenderID)
	if err != nil {
		return nil, fmt.Errorf("load index for %q: %w", tenderID, err)
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vec, err := s.embedQuery(ctx, query)
	if err != nil {
		s.logger.Warn("Query embedding failed, serving length-ranked fallback",
			zap.String("tender_id", tenderID), zap.Error(err))
		metrics.RetrievalDegradedTotal.Inc()
		return degraded(chunks, s.topK), nil
	}

	hits := ix.Search(vec, s.topK)
	out := make([]domain.RankedChunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.RankedChunk{Chunk: chunks[h.Pos], Score: h.Score})
	}
	return out, nil
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, domain.ErrEmbeddingProviderError
	}
	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return res.Embedding, nil
}

// degraded ranks chunks by text length, longest first, with ties kept in
// document order. Every result carries DegradedScore.
func degraded(chunks []domain.Chunk, topK int) []domain.RankedChunk {
	idx := make([]int, len(chunks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return len(chunks[idx[a]].Text) > len(chunks[idx[b]].Text)
	})
	if len(idx) > topK {
		idx = idx[:topK]
	}

	out := make([]domain.RankedChunk, 0, len(idx))
	for _, i := range idx {
		out = append(out, domain.RankedChunk{Chunk: chunks[i], Score: domain.DegradedScore})
	}
	return out
}
