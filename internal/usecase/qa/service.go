// Package qa answers free-form questions about an ingested document using
// the retrieved chunks as the only context.
package qa

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/domain"
)

// NotFoundAnswer is the fixed reply when the context does not contain an
// answer or the completion is unusable.
const NotFoundAnswer = "Not found in tender"

const (
	qaTemperature = 0
	qaMaxTokens   = 256
)

var (
	answerLabelRe = regexp.MustCompile(`(?i)^Answer\s*:\s*`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	pdfEchoRe     = regexp.MustCompile(`(?i)\.pdf\b`)
)

// Retriever finds the chunks most relevant to a question.
type Retriever interface {
	Retrieve(ctx context.Context, tenderID, query string) ([]domain.RankedChunk, error)
}

// Answer is one QA response.
type Answer struct {
	Text      string            `json:"answer"`
	Citations []domain.Citation `json:"citations"`
}

// Service runs retrieval-augmented question answering.
type Service struct {
	retriever Retriever
	completer domain.Completer // nil always answers NotFoundAnswer
	logger    *zap.Logger
}

// NewService creates a QA service.
func NewService(retriever Retriever, completer domain.Completer, logger *zap.Logger) *Service {
	return &Service{retriever: retriever, completer: completer, logger: logger}
}

// Ask retrieves context for the question and asks the completer for an
// answer grounded in that context alone. Completion failures degrade to
// NotFoundAnswer; a missing index propagates domain.ErrIndexNotFound.
func (s *Service) Ask(ctx context.Context, tenderID, question string) (Answer, error) {
	if strings.TrimSpace(question) == "" {
		return Answer{}, fmt.Errorf("empty question: %w", domain.ErrInvalidInput)
	}

	top, err := s.retriever.Retrieve(ctx, tenderID, question)
	if err != nil {
		return Answer{}, fmt.Errorf("retrieve context: %w", err)
	}

	answer := s.complete(ctx, tenderID, question, top)

	citations := make([]domain.Citation, 0, len(top))
	for _, rc := range top {
		citations = append(citations, domain.Cite(rc.Chunk))
	}
	return Answer{Text: answer, Citations: citations}, nil
}

func (s *Service) complete(ctx context.Context, tenderID, question string, top []domain.RankedChunk) string {
	if s.completer == nil || len(top) == 0 {
		return NotFoundAnswer
	}

	raw, err := s.completer.Complete(ctx, buildPrompt(question, top), qaTemperature, qaMaxTokens)
	if err != nil {
		s.logger.Warn("QA completion failed",
			zap.String("tender_id", tenderID), zap.Error(err))
		return NotFoundAnswer
	}
	return postProcess(raw, tenderID)
}

// buildPrompt joins bare chunk texts as context. Provenance headers are
// deliberately left out: models tend to echo them into answers.
func buildPrompt(question string, top []domain.RankedChunk) string {
	blocks := make([]string, 0, len(top))
	for _, rc := range top {
		blocks = append(blocks, rc.Chunk.Text)
	}
	context := strings.Join(blocks, "\n\n---\n\n")

	return "You are a helpful tender Q&A assistant.\n" +
		"- Answer strictly from the context. If the answer is not present, reply exactly: " + NotFoundAnswer + ".\n" +
		"- Return only the answer text. Do not include filenames, IDs, or any preamble.\n" +
		"- Be concise.\n\n" +
		"Context:\n" + context + "\n\nQuestion: " + question + "\nAnswer:"
}

// postProcess strips label echoes and rejects answers that are just the
// document id or a filename.
func postProcess(raw, tenderID string) string {
	ans := strings.TrimSpace(raw)
	ans = strings.TrimSpace(answerLabelRe.ReplaceAllString(ans, ""))
	ans = whitespaceRe.ReplaceAllString(ans, " ")
	if ans == "" || ans == tenderID || pdfEchoRe.MatchString(ans) {
		return NotFoundAnswer
	}
	return ans
}
