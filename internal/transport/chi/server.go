// Package chi exposes the tender pipeline over HTTP.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/domain"
	healthuc "github.com/clearbid/tenderdex/internal/usecase/health"
	ingestuc "github.com/clearbid/tenderdex/internal/usecase/ingest"
	qauc "github.com/clearbid/tenderdex/internal/usecase/qa"
)

// ErrorCode identifies an API error class.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest              ErrorCode = "bad_request"
	CodeIndexNotFound           ErrorCode = "index_not_found"
	CodeDocumentNotFound        ErrorCode = "document_not_found"
	CodeEmbeddingProviderError  ErrorCode = "embedding_provider_error"
	CodeCompletionProviderError ErrorCode = "completion_provider_error"
	CodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// BlobPutter stores uploaded documents.
type BlobPutter interface {
	Put(path string, data []byte) error
}

// Ingester runs the ingest pipeline.
type Ingester interface {
	Ingest(ctx context.Context, tenderID, docPath string) (ingestuc.Result, error)
}

// SummaryGetter serves structured summaries.
type SummaryGetter interface {
	Get(ctx context.Context, tenderID string) (domain.SummaryRecord, []domain.Citation, error)
}

// Asker answers questions about an ingested document.
type Asker interface {
	Ask(ctx context.Context, tenderID, question string) (qauc.Answer, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers.
type Server struct {
	blobs          BlobPutter
	ingest         Ingester
	summaries      SummaryGetter
	qa             Asker
	health         HealthChecker
	maxUploadBytes int64
	logger         *zap.Logger
	errorHandlers  []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	blobs BlobPutter,
	ingest Ingester,
	summaries SummaryGetter,
	qa Asker,
	health HealthChecker,
	maxUploadBytes int64,
	logger *zap.Logger,
) *Server {
	s := &Server{
		blobs:          blobs,
		ingest:         ingest,
		summaries:      summaries,
		qa:             qa,
		health:         health,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, CodeIndexNotFound),
		sentinelHandler(domain.ErrSummaryNotFound, http.StatusNotFound, CodeIndexNotFound),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeBadRequest),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrCompletionProviderError, http.StatusBadGateway, CodeCompletionProviderError),
	}
	return s
}

// Routes mounts all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/upload", s.Upload)
	r.Post("/tenders/{tenderID}/ingest", s.IngestTender)
	r.Get("/tenders/{tenderID}/summary", s.GetSummary)
	r.Post("/tenders/{tenderID}/ask", s.AskQuestion)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// UploadResponse is the POST /upload body.
type UploadResponse struct {
	TenderID string `json:"tender_id"`
	Filename string `json:"filename"`
}

// Upload handles POST /upload. The multipart "file" field is stored under a
// generated object path, which doubles as the tender id.
func (s *Server) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "multipart field \"file\" is required: "+err.Error())
		return
	}
	defer file.Close()

	filename := filepath.Base(header.Filename)
	if filename == "" || filename == "." {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "filename is required")
		return
	}
	if !strings.EqualFold(filepath.Ext(filename), ".pdf") {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "only PDF files are supported")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "read upload: "+err.Error())
		return
	}

	objectPath := fmt.Sprintf("tenders/%s_%s", uuid.New(), filename)
	if err := s.blobs.Put(objectPath, data); err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{TenderID: objectPath, Filename: filename})
}

// IngestResponse is the POST /tenders/{tenderID}/ingest body.
type IngestResponse struct {
	TenderID   string `json:"tender_id"`
	ChunkCount int    `json:"chunk_count"`
	Mode       string `json:"mode"`
}

// IngestTender handles POST /tenders/{tenderID}/ingest.
func (s *Server) IngestTender(w http.ResponseWriter, r *http.Request) {
	tenderID := normalizeTenderID(chi.URLParam(r, "tenderID"))

	res, err := s.ingest.Ingest(r.Context(), tenderID, tenderID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, IngestResponse{
		TenderID:   tenderID,
		ChunkCount: res.ChunkCount,
		Mode:       res.Mode,
	})
}

// SummarySheet is the GET /tenders/{tenderID}/summary body.
type SummarySheet struct {
	TenderName      string            `json:"tender_name"`
	Issuer          *string           `json:"issuer"`
	EMDAmount       *string           `json:"emd_amount"`
	Location        *string           `json:"location"`
	Duration        *string           `json:"duration"`
	ScopeOfWork     *string           `json:"scope_of_work"`
	ComplianceNotes []string          `json:"compliance_notes"`
	Citations       []domain.Citation `json:"citations"`
}

// GetSummary handles GET /tenders/{tenderID}/summary.
func (s *Server) GetSummary(w http.ResponseWriter, r *http.Request) {
	tenderID := normalizeTenderID(chi.URLParam(r, "tenderID"))

	rec, citations, err := s.summaries.Get(r.Context(), tenderID)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	sheet := SummarySheet{
		TenderName:      tenderID,
		Issuer:          rec.Issuer,
		EMDAmount:       rec.EMDAmount,
		Location:        rec.Location,
		Duration:        rec.Duration,
		ScopeOfWork:     rec.ScopeOfWork,
		ComplianceNotes: rec.ComplianceNotes,
		Citations:       citations,
	}
	if rec.TenderName != nil && *rec.TenderName != "" {
		sheet.TenderName = *rec.TenderName
	}
	if sheet.ComplianceNotes == nil {
		sheet.ComplianceNotes = []string{}
	}
	if sheet.Citations == nil {
		sheet.Citations = []domain.Citation{}
	}

	writeJSON(w, http.StatusOK, sheet)
}

// AskRequest is the POST /tenders/{tenderID}/ask body.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the QA answer body.
type AskResponse struct {
	Answer    string            `json:"answer"`
	Citations []domain.Citation `json:"citations"`
}

// AskQuestion handles POST /tenders/{tenderID}/ask.
func (s *Server) AskQuestion(w http.ResponseWriter, r *http.Request) {
	tenderID := normalizeTenderID(chi.URLParam(r, "tenderID"))

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	answer, err := s.qa.Ask(r.Context(), tenderID, req.Question)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := AskResponse{Answer: answer.Text, Citations: answer.Citations}
	if resp.Citations == nil {
		resp.Citations = []domain.Citation{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// normalizeTenderID maps a bare filename to its storage path. Upload returns
// paths under tenders/, but clients often pass just the file part back.
func normalizeTenderID(id string) string {
	if id != "" && !strings.Contains(id, "/") {
		return "tenders/" + id
	}
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrIndexNotFound,
		domain.ErrSummaryNotFound,
		domain.ErrDocumentNotFound,
		domain.ErrVectorCountMismatch,
		domain.ErrInvalidInput,
		domain.ErrParserUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrCompletionProviderError,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
