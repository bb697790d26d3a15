package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/domain"
)

type mockCompleter struct {
	response   string
	err        error
	lastPrompt string
}

func (m *mockCompleter) Complete(_ context.Context, prompt string, _ float32, _ int) (string, error) {
	m.lastPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func newTestService(c domain.Completer, cfg Config) *Service {
	return NewService(c, cfg, zap.NewNop())
}

func testChunks() []domain.Chunk {
	return []domain.Chunk{
		{ID: "c0_0", Page: 1, Text: "Tender for Road Construction\nEMD: Rs. 50,000 payable at submission.", SectionHint: "Tender Notice"},
		{ID: "c70_1", Page: 2, Text: "Scope of Work: Construct 12 km of rural road. Completion within 18 months.", SectionHint: "Scope"},
		{ID: "c150_2", Page: 3, Text: "Bidder must have annual turnover above 2 crore."},
	}
}

func strval(t *testing.T, p *string) string {
	t.Helper()
	if p == nil {
		t.Fatal("expected non-nil field")
	}
	return *p
}

func TestExtract_FencedJSON(t *testing.T) {
	c := &mockCompleter{response: "Here you go:\n```json\n{\"tender_name\": \"Road Tender\", \"issuer\": null, \"emd_amount\": \"Rs. 50,000\", \"location\": null, \"duration\": null, \"scope_of_work\": null, \"compliance_notes\": []}\n```\nThanks!"}
	s := newTestService(c, Config{})

	rec, cites := s.Extract(context.Background(), testChunks())

	if strval(t, rec.TenderName) != "Road Tender" {
		t.Errorf("tender_name = %q", *rec.TenderName)
	}
	if rec.Issuer != nil {
		t.Errorf("issuer should stay nil, got %q", *rec.Issuer)
	}
	if strval(t, rec.EMDAmount) != "Rs. 50,000" {
		t.Errorf("emd_amount = %q", *rec.EMDAmount)
	}
	if len(cites) != 3 {
		t.Errorf("expected 3 citations, got %d", len(cites))
	}
}

func TestExtract_BraceScanIgnoresBracesInStrings(t *testing.T) {
	c := &mockCompleter{response: `The summary is {"tender_name": "Bridge {Phase 2}", "scope_of_work": "Build a bridge."} as requested.`}
	s := newTestService(c, Config{})

	rec, _ := s.Extract(context.Background(), testChunks())

	if strval(t, rec.TenderName) != "Bridge {Phase 2}" {
		t.Errorf("tender_name = %q", *rec.TenderName)
	}
}

func TestExtract_CoercesTypes(t *testing.T) {
	c := &mockCompleter{response: `{"tender_name": 42, "emd_amount": 50000.50, "compliance_notes": [1, null, "turnover above 2 crore"]}`}
	s := newTestService(c, Config{})

	rec, _ := s.Extract(context.Background(), testChunks())

	if strval(t, rec.TenderName) != "42" {
		t.Errorf("tender_name = %q, want stringified number", *rec.TenderName)
	}
	if strval(t, rec.EMDAmount) != "50000.50" {
		t.Errorf("emd_amount = %q, want original number text", *rec.EMDAmount)
	}
	want := []string{"1", "turnover above 2 crore"}
	if len(rec.ComplianceNotes) != len(want) {
		t.Fatalf("compliance_notes = %v", rec.ComplianceNotes)
	}
	for i := range want {
		if rec.ComplianceNotes[i] != want[i] {
			t.Errorf("compliance_notes[%d] = %q, want %q", i, rec.ComplianceNotes[i], want[i])
		}
	}
}

func TestExtract_CompleterErrorFallsBackToRules(t *testing.T) {
	c := &mockCompleter{err: errors.New("provider down")}
	s := newTestService(c, Config{})

	rec, cites := s.Extract(context.Background(), testChunks())

	if strval(t, rec.TenderName) != "Tender for Road Construction" {
		t.Errorf("tender_name = %q", *rec.TenderName)
	}
	if strval(t, rec.EMDAmount) != "Rs. 50,000" {
		t.Errorf("emd_amount = %q", *rec.EMDAmount)
	}
	if sow := strval(t, rec.ScopeOfWork); !strings.HasPrefix(sow, "Construct 12 km") {
		t.Errorf("scope_of_work = %q", sow)
	}
	if len(rec.ComplianceNotes) == 0 {
		t.Error("expected turnover line in compliance notes")
	}
	if len(cites) != 3 {
		t.Errorf("expected 3 citations, got %d", len(cites))
	}
}

func TestExtract_EmptyJSONFallsBackToRules(t *testing.T) {
	c := &mockCompleter{response: `{"tender_name": null, "issuer": null, "emd_amount": null, "location": null, "duration": null, "scope_of_work": null, "compliance_notes": []}`}
	s := newTestService(c, Config{})

	rec, _ := s.Extract(context.Background(), testChunks())

	if rec.IsEmpty() {
		t.Fatal("heuristic fallback should have extracted fields")
	}
	if strval(t, rec.EMDAmount) != "Rs. 50,000" {
		t.Errorf("emd_amount = %q", *rec.EMDAmount)
	}
}

func TestExtract_GibberishFallsBackToRules(t *testing.T) {
	c := &mockCompleter{response: "I could not find any structured data, sorry."}
	s := newTestService(c, Config{})

	rec, _ := s.Extract(context.Background(), testChunks())

	if rec.IsEmpty() {
		t.Fatal("expected heuristic extraction")
	}
}

func TestExtract_NoChunks(t *testing.T) {
	s := newTestService(&mockCompleter{}, Config{})

	rec, cites := s.Extract(context.Background(), nil)

	if !rec.IsEmpty() {
		t.Errorf("record should be empty, got %+v", rec)
	}
	if cites != nil {
		t.Errorf("citations should be nil, got %v", cites)
	}
}

func TestExtract_CitationsCappedAtFive(t *testing.T) {
	chunks := make([]domain.Chunk, 8)
	for i := range chunks {
		chunks[i] = domain.Chunk{ID: "c" + string(rune('0'+i)), Page: i + 1, Text: "EMD: Rs. 1,000 for eligibility check."}
	}
	s := newTestService(&mockCompleter{response: `{"tender_name": "X"}`}, Config{})

	_, cites := s.Extract(context.Background(), chunks)

	if len(cites) != 5 {
		t.Errorf("expected 5 citations, got %d", len(cites))
	}
	if cites[0].ID != chunks[0].ID {
		t.Errorf("citations must start at the first chunk")
	}
}

func TestBuildPrompt_BudgetIsWholeSpan(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "a", Page: 1, Text: strings.Repeat("x", 100)},
		{ID: "b", Page: 1, Text: strings.Repeat("y", 100)},
		{ID: "c", Page: 1, Text: strings.Repeat("z", 100)},
	}

	// Budget fits two whole spans, the third would overflow.
	prompt := buildPrompt(chunks, 250)

	if !strings.Contains(prompt, strings.Repeat("x", 100)) {
		t.Error("first span missing")
	}
	if !strings.Contains(prompt, strings.Repeat("y", 100)) {
		t.Error("second span missing")
	}
	if strings.Contains(prompt, "zzz") {
		t.Error("third span should not be included partially")
	}
	if !strings.Contains(prompt, "[page 1 | a | ]") {
		t.Error("provenance tag missing")
	}
}

func TestBuildPrompt_ListsAllFieldKeys(t *testing.T) {
	prompt := buildPrompt(testChunks(), 8000)

	for _, field := range append(append([]string{}, domain.SummaryFields...), "compliance_notes") {
		if !strings.Contains(prompt, field) {
			t.Errorf("prompt missing field key %q", field)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	parts := splitSentences("First sentence. Second one! Third? Fourth continues")
	want := []string{"First sentence.", "Second one!", "Third?", "Fourth continues"}
	if len(parts) != len(want) {
		t.Fatalf("parts = %v", parts)
	}
	for i := range want {
		if parts[i] != want[i] {
			t.Errorf("parts[%d] = %q, want %q", i, parts[i], want[i])
		}
	}
}

func TestFindTenderName_SkipsPageMarkers(t *testing.T) {
	text := "Page 1 of 30\nTable of Contents\nTender for Water Supply Scheme\nmore text"
	got := findTenderName(text)
	if got == nil || *got != "Tender for Water Supply Scheme" {
		t.Fatalf("tender name = %v", got)
	}
}
