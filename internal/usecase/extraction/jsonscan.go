package extraction

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/clearbid/tenderdex/internal/domain"
)

var fencedJSONRe = regexp.MustCompile("(?is)```json\\s*(\\{.*?\\})\\s*```")

// recoverRecord runs the recovery pipeline over raw completion text:
// fenced ```json block, then balanced-brace scan, then whole-text parse.
// Anything unusable yields the zero record.
func recoverRecord(raw string) domain.SummaryRecord {
	if block := extractJSONBlock(raw); block != "" {
		if rec, ok := coerceRecord(block); ok {
			return rec
		}
		return domain.SummaryRecord{}
	}
	if rec, ok := coerceRecord(raw); ok {
		return rec
	}
	return domain.SummaryRecord{}
}

// extractJSONBlock pulls the most likely JSON object out of arbitrary LLM
// output. Returns "" when no candidate is found.
func extractJSONBlock(text string) string {
	if text == "" {
		return ""
	}
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return scanBraces(text)
}

// scanBraces returns the first balanced {...} region. Braces inside JSON
// string literals do not count toward the depth.
func scanBraces(text string) string {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// coerceRecord parses candidate JSON and coerces it into the fixed schema:
// scalar fields become strings (null stays nil), compliance_notes keeps
// only non-null entries, stringified.
func coerceRecord(candidate string) (domain.SummaryRecord, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(candidate)))
	dec.UseNumber()

	var parsed map[string]any
	if err := dec.Decode(&parsed); err != nil {
		return domain.SummaryRecord{}, false
	}

	var rec domain.SummaryRecord
	rec.TenderName = coerceScalar(parsed["tender_name"])
	rec.Issuer = coerceScalar(parsed["issuer"])
	rec.EMDAmount = coerceScalar(parsed["emd_amount"])
	rec.Location = coerceScalar(parsed["location"])
	rec.Duration = coerceScalar(parsed["duration"])
	rec.ScopeOfWork = coerceScalar(parsed["scope_of_work"])

	if list, ok := parsed["compliance_notes"].([]any); ok {
		for _, item := range list {
			if item == nil {
				continue
			}
			rec.ComplianceNotes = append(rec.ComplianceNotes, stringify(item))
		}
	}
	return rec, true
}

func coerceScalar(v any) *string {
	if v == nil {
		return nil
	}
	s := stringify(v)
	return &s
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		// Containers: compact JSON is the closest stable string form.
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
