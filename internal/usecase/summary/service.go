// Package summary serves the structured tender summary, cache-first with
// recompute on miss or on a cached-but-empty record.
package summary

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/domain"
	"github.com/clearbid/tenderdex/internal/metrics"
	"github.com/clearbid/tenderdex/internal/vecindex"
)

// Store is the persisted artifact access the service needs.
type Store interface {
	Load(id string) ([]domain.Chunk, *vecindex.Index, error)
	LoadSummary(id string) (domain.SummaryRecord, error)
	SaveSummary(id string, rec domain.SummaryRecord) error
}

// Extractor computes a summary from chunks.
type Extractor interface {
	Extract(ctx context.Context, chunks []domain.Chunk) (domain.SummaryRecord, []domain.Chunk)
}

// Service answers summary reads.
type Service struct {
	store     Store
	extractor Extractor
	logger    *zap.Logger
}

// NewService creates a summary service.
func NewService(store Store, extractor Extractor, logger *zap.Logger) *Service {
	return &Service{store: store, extractor: extractor, logger: logger}
}

// Get returns the summary and its citations. A cached non-empty record is
// served as-is; otherwise the record is recomputed from the indexed chunks
// and cached best-effort. A document with no index yields ErrIndexNotFound.
func (s *Service) Get(ctx context.Context, tenderID string) (domain.SummaryRecord, []domain.Citation, error) {
	chunks, _, err := s.store.Load(tenderID)
	if err != nil {
		return domain.SummaryRecord{}, nil, fmt.Errorf("load chunks for %q: %w", tenderID, err)
	}

	if rec, err := s.store.LoadSummary(tenderID); err == nil && !rec.IsEmpty() {
		metrics.ExtractionTotal.WithLabelValues("cache").Inc()
		return rec, citations(headChunks(chunks)), nil
	} else if err != nil && !errors.Is(err, domain.ErrSummaryNotFound) {
		s.logger.Warn("Failed to read cached summary", zap.String("tender_id", tenderID), zap.Error(err))
	}

	rec, cited := s.extractor.Extract(ctx, chunks)
	if !rec.IsEmpty() {
		if err := s.store.SaveSummary(tenderID, rec); err != nil {
			s.logger.Warn("Failed to cache summary", zap.String("tender_id", tenderID), zap.Error(err))
		}
	}
	return rec, citations(cited), nil
}

const citationLimit = 5

func headChunks(chunks []domain.Chunk) []domain.Chunk {
	if len(chunks) > citationLimit {
		chunks = chunks[:citationLimit]
	}
	return chunks
}

func citations(chunks []domain.Chunk) []domain.Citation {
	out := make([]domain.Citation, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, domain.Cite(c))
	}
	return out
}
