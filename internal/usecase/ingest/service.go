// Package ingest runs the document pipeline: fetch, parse, chunk, embed,
// index, and precompute the summary.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/assembler"
	"github.com/clearbid/tenderdex/internal/domain"
	"github.com/clearbid/tenderdex/internal/metrics"
	"github.com/clearbid/tenderdex/internal/vecindex"
)

// DocumentParser converts raw document bytes into a parsed layout tree.
type DocumentParser interface {
	Parse(ctx context.Context, document []byte) ([]byte, error)
}

// PageExtractor pulls plain page text out of a document for the
// window-chunking fallback.
type PageExtractor func(document []byte) ([]domain.PageText, error)

// BlobGetter fetches uploaded document bytes.
type BlobGetter interface {
	Get(path string) ([]byte, error)
}

// IndexSaver persists the chunk/index pair and the cached summary.
type IndexSaver interface {
	Save(id string, chunks []domain.Chunk, ix *vecindex.Index) error
	SaveSummary(id string, rec domain.SummaryRecord) error
}

// Summarizer precomputes the structured summary at ingest time.
type Summarizer interface {
	Extract(ctx context.Context, chunks []domain.Chunk) (domain.SummaryRecord, []domain.Chunk)
}

// Result reports what an ingestion produced.
type Result struct {
	ChunkCount int    `json:"chunk_count"`
	Mode       string `json:"mode"` // "tree" or "pages"
}

// Config holds chunking parameters for both paths.
type Config struct {
	Tree  assembler.Config
	Pages assembler.Config
}

// Service orchestrates the ingest pipeline.
type Service struct {
	blobs      BlobGetter
	parser     DocumentParser // nil skips straight to page extraction
	pages      PageExtractor
	embedder   domain.Embedder
	store      IndexSaver
	summarizer Summarizer // nil skips summary precompute
	cfg        Config
	logger     *zap.Logger
}

// NewService creates an ingest service.
func NewService(
	blobs BlobGetter,
	parser DocumentParser,
	pages PageExtractor,
	embedder domain.Embedder,
	store IndexSaver,
	summarizer Summarizer,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		blobs:      blobs,
		parser:     parser,
		pages:      pages,
		embedder:   embedder,
		store:      store,
		summarizer: summarizer,
		cfg:        cfg,
		logger:     logger,
	}
}

// Ingest builds and persists the retrieval artifacts for one document.
func (s *Service) Ingest(ctx context.Context, tenderID, docPath string) (Result, error) {
	document, err := s.blobs.Get(docPath)
	if err != nil {
		return Result{}, fmt.Errorf("fetch document %q: %w", docPath, err)
	}

	chunks, mode := s.chunk(ctx, document)
	if len(chunks) == 0 {
		metrics.IngestTotal.WithLabelValues(mode, "error").Inc()
		return Result{}, fmt.Errorf("document %q produced no chunks: %w", docPath, domain.ErrInvalidInput)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batch, err := s.batchEmbed(ctx, texts)
	if err != nil {
		metrics.IngestTotal.WithLabelValues(mode, "error").Inc()
		return Result{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(batch.Embeddings) != len(chunks) {
		metrics.IngestTotal.WithLabelValues(mode, "error").Inc()
		return Result{}, fmt.Errorf("%d vectors for %d chunks: %w",
			len(batch.Embeddings), len(chunks), domain.ErrVectorCountMismatch)
	}

	ix, err := vecindex.Build(batch.Embeddings)
	if err != nil {
		metrics.IngestTotal.WithLabelValues(mode, "error").Inc()
		return Result{}, fmt.Errorf("build index: %w", err)
	}

	if err := s.store.Save(tenderID, chunks, ix); err != nil {
		metrics.IngestTotal.WithLabelValues(mode, "error").Inc()
		return Result{}, fmt.Errorf("persist index: %w", err)
	}

	s.precomputeSummary(ctx, tenderID, chunks)

	metrics.IngestTotal.WithLabelValues(mode, "success").Inc()
	metrics.IngestChunks.Observe(float64(len(chunks)))
	s.logger.Info("Document ingested",
		zap.String("tender_id", tenderID),
		zap.String("mode", mode),
		zap.Int("chunks", len(chunks)),
		zap.Int("embedding_tokens", batch.TotalTokens),
	)
	return Result{ChunkCount: len(chunks), Mode: mode}, nil
}

// chunk tries the structural path first, then page windows, and finally
// feeds the raw bytes to the tree assembler, which degrades unparseable
// input to a single chunk.
func (s *Service) chunk(ctx context.Context, document []byte) ([]domain.Chunk, string) {
	if s.parser != nil {
		tree, err := s.parser.Parse(ctx, document)
		if err == nil {
			return assembler.AssembleTree(tree, s.cfg.Tree), "tree"
		}
		s.logger.Warn("Structural parse failed, falling back to page windows", zap.Error(err))
	}

	if s.pages != nil {
		pages, err := s.pages(document)
		if err == nil && len(pages) > 0 {
			return assembler.AssemblePages(pages, s.cfg.Pages), "pages"
		}
		if err != nil {
			s.logger.Warn("Page extraction failed, degrading to single chunk", zap.Error(err))
		}
	}

	return assembler.AssembleTree(document, s.cfg.Tree), "tree"
}

func (s *Service) batchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if be, ok := s.embedder.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, s.embedder, texts)
}

// precomputeSummary is best-effort: failures are logged, never fatal, and
// empty records are not cached so a later read can retry extraction.
func (s *Service) precomputeSummary(ctx context.Context, tenderID string, chunks []domain.Chunk) {
	if s.summarizer == nil {
		return
	}
	rec, _ := s.summarizer.Extract(ctx, chunks)
	if rec.IsEmpty() {
		return
	}
	if err := s.store.SaveSummary(tenderID, rec); err != nil {
		s.logger.Warn("Failed to cache summary", zap.String("tender_id", tenderID), zap.Error(err))
	}
}
