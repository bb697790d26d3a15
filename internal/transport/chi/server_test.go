package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chirouter "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/domain"
	healthuc "github.com/clearbid/tenderdex/internal/usecase/health"
	ingestuc "github.com/clearbid/tenderdex/internal/usecase/ingest"
	qauc "github.com/clearbid/tenderdex/internal/usecase/qa"
)

// --- Mocks ---

type mockBlobs struct {
	putPath string
	putData []byte
	err     error
}

func (m *mockBlobs) Put(path string, data []byte) error {
	if m.err != nil {
		return m.err
	}
	m.putPath = path
	m.putData = data
	return nil
}

type mockIngester struct {
	res      ingestuc.Result
	err      error
	lastID   string
	lastPath string
}

func (m *mockIngester) Ingest(_ context.Context, tenderID, docPath string) (ingestuc.Result, error) {
	m.lastID = tenderID
	m.lastPath = docPath
	if m.err != nil {
		return ingestuc.Result{}, m.err
	}
	return m.res, nil
}

type mockSummaries struct {
	rec   domain.SummaryRecord
	cites []domain.Citation
	err   error
}

func (m *mockSummaries) Get(_ context.Context, _ string) (domain.SummaryRecord, []domain.Citation, error) {
	if m.err != nil {
		return domain.SummaryRecord{}, nil, m.err
	}
	return m.rec, m.cites, nil
}

type mockAsker struct {
	answer       qauc.Answer
	err          error
	lastQuestion string
}

func (m *mockAsker) Ask(_ context.Context, _, question string) (qauc.Answer, error) {
	m.lastQuestion = question
	if m.err != nil {
		return qauc.Answer{}, m.err
	}
	return m.answer, nil
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report {
	return m.report
}

type serverMocks struct {
	blobs     *mockBlobs
	ingest    *mockIngester
	summaries *mockSummaries
	qa        *mockAsker
	health    *mockHealth
}

func newTestServer(t *testing.T) (*chirouter.Mux, *serverMocks) {
	t.Helper()
	m := &serverMocks{
		blobs:     &mockBlobs{},
		ingest:    &mockIngester{res: ingestuc.Result{ChunkCount: 4, Mode: "tree"}},
		summaries: &mockSummaries{},
		qa:        &mockAsker{},
		health:    &mockHealth{report: healthuc.Report{Status: healthuc.Healthy, Checks: map[string]healthuc.CheckResult{"blob_storage": healthuc.CheckOK}}},
	}
	s := NewServer(m.blobs, m.ingest, m.summaries, m.qa, m.health, 1<<20, zap.NewNop())
	r := chirouter.NewRouter()
	s.Routes(r)
	return r, m
}

func multipartPDF(t *testing.T, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

// --- Tests ---

func TestUpload_StoresAndReturnsID(t *testing.T) {
	r, m := newTestServer(t)
	body, contentType := multipartPDF(t, "notice.pdf", []byte("%PDF-fake"))

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}

	var resp UploadResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.HasPrefix(resp.TenderID, "tenders/") || !strings.HasSuffix(resp.TenderID, "_notice.pdf") {
		t.Errorf("tender_id = %q", resp.TenderID)
	}
	if m.blobs.putPath != resp.TenderID {
		t.Errorf("stored at %q, reported %q", m.blobs.putPath, resp.TenderID)
	}
	if string(m.blobs.putData) != "%PDF-fake" {
		t.Errorf("stored bytes = %q", m.blobs.putData)
	}
}

func TestUpload_RejectsNonPDF(t *testing.T) {
	r, _ := newTestServer(t)
	body, contentType := multipartPDF(t, "notes.txt", []byte("hello"))

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestUpload_MissingFileField(t *testing.T) {
	r, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/upload", strings.NewReader("not multipart"))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestIngestTender_NormalizesBareID(t *testing.T) {
	r, m := newTestServer(t)

	req := httptest.NewRequest("POST", "/tenders/abc_notice.pdf/ingest", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rr.Code, rr.Body.String())
	}
	if m.ingest.lastID != "tenders/abc_notice.pdf" {
		t.Errorf("tender id = %q", m.ingest.lastID)
	}
	if m.ingest.lastPath != m.ingest.lastID {
		t.Errorf("doc path = %q", m.ingest.lastPath)
	}

	var resp IngestResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ChunkCount != 4 || resp.Mode != "tree" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestIngestTender_MissingDocumentIs404(t *testing.T) {
	r, m := newTestServer(t)
	m.ingest.err = domain.ErrDocumentNotFound

	req := httptest.NewRequest("POST", "/tenders/ghost.pdf/ingest", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp.Code != CodeDocumentNotFound {
		t.Errorf("code = %q", errResp.Code)
	}
}

func TestGetSummary_DefaultsTenderName(t *testing.T) {
	r, m := newTestServer(t)
	issuer := "NMDC Limited"
	m.summaries.rec = domain.SummaryRecord{Issuer: &issuer}
	m.summaries.cites = []domain.Citation{{Page: 1, ChunkID: "c0_0", TextSnippet: "snippet"}}

	req := httptest.NewRequest("GET", "/tenders/abc.pdf/summary", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var sheet SummarySheet
	if err := json.NewDecoder(rr.Body).Decode(&sheet); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sheet.TenderName != "tenders/abc.pdf" {
		t.Errorf("tender_name = %q, want id fallback", sheet.TenderName)
	}
	if sheet.Issuer == nil || *sheet.Issuer != issuer {
		t.Errorf("issuer = %v", sheet.Issuer)
	}
	if sheet.ComplianceNotes == nil {
		t.Error("compliance_notes must be [] not null")
	}
	if len(sheet.Citations) != 1 {
		t.Errorf("citations = %+v", sheet.Citations)
	}
}

func TestGetSummary_MissingIndexIs404(t *testing.T) {
	r, m := newTestServer(t)
	m.summaries.err = domain.ErrIndexNotFound

	req := httptest.NewRequest("GET", "/tenders/ghost.pdf/summary", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestAskQuestion_ReturnsAnswer(t *testing.T) {
	r, m := newTestServer(t)
	m.qa.answer = qauc.Answer{
		Text:      "EMD is Rs. 50,000.",
		Citations: []domain.Citation{{Page: 1, ChunkID: "c0_0", TextSnippet: "EMD"}},
	}

	req := httptest.NewRequest("POST", "/tenders/abc.pdf/ask",
		strings.NewReader(`{"question": "What is the EMD?"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if m.qa.lastQuestion != "What is the EMD?" {
		t.Errorf("question = %q", m.qa.lastQuestion)
	}

	var resp AskResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Answer != "EMD is Rs. 50,000." || len(resp.Citations) != 1 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestAskQuestion_EmptyQuestionIs400(t *testing.T) {
	r, m := newTestServer(t)
	m.qa.err = domain.ErrInvalidInput

	req := httptest.NewRequest("POST", "/tenders/abc.pdf/ask", strings.NewReader(`{"question": ""}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestAskQuestion_BadBody(t *testing.T) {
	r, _ := newTestServer(t)

	req := httptest.NewRequest("POST", "/tenders/abc.pdf/ask", strings.NewReader(`{`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestAskQuestion_ProviderErrorIs502(t *testing.T) {
	r, m := newTestServer(t)
	m.qa.err = domain.ErrEmbeddingProviderError

	req := httptest.NewRequest("POST", "/tenders/abc.pdf/ask", strings.NewReader(`{"question": "q"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rr.Code)
	}
}

func TestHealthCheck_DegradedIs503(t *testing.T) {
	r, m := newTestServer(t)
	m.health.report = healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{"embedding": healthuc.CheckError},
	}

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "degraded" || resp.Checks["embedding"] != "error" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestHealthCheck_Healthy(t *testing.T) {
	r, _ := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}
