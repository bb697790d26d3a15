package extraction

import (
	"regexp"
	"strings"

	"github.com/clearbid/tenderdex/internal/domain"
)

var (
	skipHeaderRe = regexp.MustCompile(`(?i)\b(?:page\s*\d+|table of contents)\b`)
	issuerRe     = regexp.MustCompile(`(?i)\b(?:Corporation|Company|Department|Ministry|Government|Govt\.?|Ltd\.?|Limited|Authority|NMDC|BIOM)[:\s,\-]*[^\n]{3,80}`)
	emdRe        = regexp.MustCompile(`(?i)(?:EMD|Earnest Money(?: Deposit)?)[^\n:]*[:\-]?\s*(₹|INR|Rs\.?|RUPEES)?\s*([\d,]+(?:\.\d{1,2})?)`)
	durationRe   = regexp.MustCompile(`(?i)(?:Duration|Period)[^\n:]*[:\-]?\s*(\d+\s*(?:day|month|year)s?)`)
	locationRe   = regexp.MustCompile(`(?i)(?:Location|Place of work)[^\n:]*[:\-]?\s*([^\n]{3,80})`)
	scopeRe      = regexp.MustCompile(`(?is)Scope of Work[\s\-:]*(.{0,500})`)

	complianceTermsRe = regexp.MustCompile(
		`(?i)eligibility|turnover|experience|bid security|emd|bank guarantee|penalty|liquidated damages`)
)

const (
	scopeSentences  = 2
	scopeLimit      = 300
	complianceLimit = 6
	minNoteLen      = 6
	maxNoteLen      = 160
	minTitleLen     = 6
	maxTitleLen     = 140
)

// extractByRules is the rule-based safety net over the leading chunks.
// It mirrors the field schema of the prompt-based path.
func extractByRules(chunks []domain.Chunk) (domain.SummaryRecord, []domain.Chunk) {
	head := headChunks(chunks)

	var parts []string
	for _, c := range head {
		parts = append(parts, c.Text)
	}
	text := strings.Join(parts, "\n")

	rec := domain.SummaryRecord{
		TenderName:      findTenderName(text),
		Issuer:          findIssuer(text),
		EMDAmount:       findEMD(text),
		Location:        findLocation(text),
		Duration:        findDuration(text),
		ScopeOfWork:     findScope(text),
		ComplianceNotes: findComplianceNotes(text),
	}
	return rec, head
}

// findTenderName picks the first header-ish line: non-trivial length, not a
// page marker or table-of-contents line.
func findTenderName(text string) *string {
	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		if len(s) < minTitleLen || len(s) > maxTitleLen {
			continue
		}
		if skipHeaderRe.MatchString(s) {
			continue
		}
		return &s
	}
	return nil
}

func findIssuer(text string) *string {
	m := issuerRe.FindString(text)
	if m == "" {
		return nil
	}
	s := strings.TrimSpace(m)
	return &s
}

func findEMD(text string) *string {
	m := emdRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	s := strings.TrimSpace(m[1] + " " + m[2])
	return &s
}

func findDuration(text string) *string {
	m := durationRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return &m[1]
}

func findLocation(text string) *string {
	m := locationRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	s := strings.TrimSpace(m[1])
	return &s
}

// findScope grabs the text following a "Scope of Work" heading and keeps the
// first two sentences, capped at 300 characters.
func findScope(text string) *string {
	m := scopeRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	snippet := strings.TrimSpace(m[1])
	parts := splitSentences(snippet)
	if len(parts) > scopeSentences {
		parts = parts[:scopeSentences]
	}
	s := strings.TrimSpace(strings.Join(parts, " "))
	if len(s) > scopeLimit {
		s = strings.TrimSpace(s[:scopeLimit])
	}
	if s == "" {
		return nil
	}
	return &s
}

// splitSentences splits after sentence-ending punctuation followed by
// whitespace. RE2 has no lookbehind, so this is done by hand.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && isSpace(text[i+1]) {
			out = append(out, strings.TrimSpace(text[start:i+1]))
			// Skip the whitespace run.
			j := i + 1
			for j < len(text) && isSpace(text[j]) {
				j++
			}
			start = j
			i = j - 1
		}
	}
	if start < len(text) {
		if tail := strings.TrimSpace(text[start:]); tail != "" {
			out = append(out, tail)
		}
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// findComplianceNotes keeps bullet-like lines mentioning compliance,
// eligibility or financial terms, up to six of them.
func findComplianceNotes(text string) []string {
	var notes []string
	for _, line := range strings.Split(text, "\n") {
		s := strings.Trim(line, " -*•\t")
		if len(s) < minNoteLen || len(s) > maxNoteLen {
			continue
		}
		if !complianceTermsRe.MatchString(s) {
			continue
		}
		notes = append(notes, s)
		if len(notes) >= complianceLimit {
			break
		}
	}
	return notes
}
