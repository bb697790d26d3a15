// Package extraction turns retrieved chunks into a fixed-schema tender
// summary. It never fails hard: a broken completion falls through JSON
// recovery, and a fully empty result falls back to rule-based extraction.
package extraction

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/domain"
	"github.com/clearbid/tenderdex/internal/metrics"
)

const (
	defaultPromptBudget = 8000
	defaultMaxTokens    = 600
	citationLimit       = 5
)

// Config holds extraction tuning knobs.
type Config struct {
	PromptBudget int     // max context characters in the prompt
	Temperature  float32 // completion temperature
	MaxTokens    int     // completion token cap
}

// Service runs prompt-bounded structured extraction with fallbacks.
type Service struct {
	completer domain.Completer // nil means heuristic-only operation
	cfg       Config
	logger    *zap.Logger
}

// NewService creates an extraction service. completer may be nil.
func NewService(completer domain.Completer, cfg Config, logger *zap.Logger) *Service {
	if cfg.PromptBudget <= 0 {
		cfg.PromptBudget = defaultPromptBudget
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	return &Service{completer: completer, cfg: cfg, logger: logger}
}

// Extract produces a summary record and the chunks cited for it.
// It never returns an error: provider failures degrade to rule-based
// extraction over the leading chunks.
func (s *Service) Extract(ctx context.Context, chunks []domain.Chunk) (domain.SummaryRecord, []domain.Chunk) {
	if len(chunks) == 0 {
		return domain.SummaryRecord{}, nil
	}

	raw := s.complete(ctx, chunks)
	record := recoverRecord(raw)

	if record.IsEmpty() {
		metrics.ExtractionTotal.WithLabelValues("heuristic").Inc()
		return extractByRules(chunks)
	}

	metrics.ExtractionTotal.WithLabelValues("llm").Inc()
	return record, headChunks(chunks)
}

func (s *Service) complete(ctx context.Context, chunks []domain.Chunk) string {
	if s.completer == nil {
		return ""
	}
	prompt := buildPrompt(chunks, s.cfg.PromptBudget)
	raw, err := s.completer.Complete(ctx, prompt, s.cfg.Temperature, s.cfg.MaxTokens)
	if err != nil {
		s.logger.Warn("Summary completion failed, falling back", zap.Error(err))
		return ""
	}
	return raw
}

// buildPrompt concatenates provenance-tagged chunk spans up to the character
// budget. A span is included whole or not at all; the first span that would
// overflow stops inclusion.
func buildPrompt(chunks []domain.Chunk, budget int) string {
	var ctx strings.Builder
	total := 0
	for _, c := range chunks {
		span := fmt.Sprintf("[page %d | %s | %s]\n%s\n\n", c.Page, c.ID, c.SectionHint, c.Text)
		if total+len(span) > budget {
			break
		}
		ctx.WriteString(span)
		total += len(span)
	}

	keys := strings.Join(append(append([]string{}, domain.SummaryFields...), "compliance_notes"), ", ")
	instructions := "You are a tender document analyzer. Extract the following fields as JSON with keys: " +
		keys + ".\n" +
		"- tender_name: Short name or title of the tender.\n" +
		"- issuer: The issuing organization.\n" +
		"- emd_amount: Earnest Money Deposit value (with currency in rupees).\n" +
		"- location: Primary location(s) of work.\n" +
		"- duration: Contract/project duration.\n" +
		"- scope_of_work: 1-3 sentence summary of key scope.\n" +
		"- compliance_notes: array of 3-8 short bullets for critical compliance/eligibility/financial terms.\n\n" +
		"Return ONLY valid JSON. If a value is not found, use null (or [] for arrays)."

	return instructions + "\n\nContext:\n" + ctx.String()
}

// headChunks returns the leading chunks used as coarse citations.
func headChunks(chunks []domain.Chunk) []domain.Chunk {
	if len(chunks) > citationLimit {
		chunks = chunks[:citationLimit]
	}
	return chunks
}
