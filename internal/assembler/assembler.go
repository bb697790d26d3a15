// Package assembler converts parsed-document trees (or raw page text) into
// ordered, bounded chunks with page and section provenance.
package assembler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clearbid/tenderdex/internal/domain"
)

// Config bounds chunk sizes. Overlap seeds the next buffer with the tail of
// a length-flushed chunk to preserve local context across the boundary.
type Config struct {
	MaxChars int
	Overlap  int
}

// DefaultConfig returns the chunking defaults for structural trees.
func DefaultConfig() Config {
	return Config{MaxChars: 2500, Overlap: 200}
}

func (c Config) withDefaults() Config {
	if c.MaxChars <= 0 {
		c.MaxChars = 2500
	}
	if c.Overlap < 0 {
		c.Overlap = 0
	}
	if c.Overlap >= c.MaxChars {
		c.Overlap = c.MaxChars - 1
	}
	return c
}

// AssembleTree converts a JSON-like parsed-document tree into ordered
// chunks. If the input is not parseable as JSON, or yields no spans at all,
// the whole stringified input becomes a single chunk on page 1 so that
// non-empty input always produces at least one chunk.
func AssembleTree(raw []byte, cfg Config) []domain.Chunk {
	cfg = cfg.withDefaults()

	root, err := decodeOrdered(raw)
	if err != nil {
		return degenerate(raw)
	}

	var spans []domain.Span
	collect(root, nil, &spans)
	if len(spans) == 0 {
		return degenerate(raw)
	}

	return mergeSpans(spans, cfg.MaxChars, cfg.Overlap)
}

func degenerate(raw []byte) []domain.Chunk {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil
	}
	return []domain.Chunk{{ID: "c0_0", Page: 1, Text: text}}
}

// collect walks the tree in document order, emitting spans. The section path
// is passed by value (with a full-capacity slice so appends copy) to
// guarantee the path is restored on every exit.
func collect(v value, path []string, spans *[]domain.Span) {
	switch v.kind {
	case kindObject:
		nc := classify(v.members)
		if nc.Section != "" {
			path = append(path[:len(path):len(path)], nc.Section)
		}
		joined := strings.Join(path, " > ")

		if nc.Text != "" {
			*spans = append(*spans, domain.Span{Text: nc.Text, Page: nc.Page, Path: joined})
		}
		if len(nc.Table) > 0 {
			p := joined
			if p == "" {
				p = "Table"
			}
			*spans = append(*spans, domain.Span{Text: strings.Join(nc.Table, "\n"), Page: nc.Page, Path: p})
		}
		if nc.Figure != "" {
			p := joined
			if p == "" {
				p = "Figure"
			}
			*spans = append(*spans, domain.Span{Text: nc.Figure, Page: nc.Page, Path: p})
		}

		for _, m := range v.members {
			collect(m.val, path, spans)
		}
	case kindArray:
		for _, e := range v.elems {
			collect(e, path, spans)
		}
	}
}

// mergeSpans accumulates consecutive spans sharing a section path, flushing
// a chunk on path change or when the buffered length reaches maxChars. A
// length flush seeds the next buffer with the trailing overlap characters.
func mergeSpans(spans []domain.Span, maxChars, overlap int) []domain.Chunk {
	var chunks []domain.Chunk
	var buf []string
	start := 0
	curLen := 0
	var curPath string
	var curPage int

	flush := func() {
		if len(buf) == 0 {
			return
		}
		text := strings.TrimSpace(strings.Join(buf, "\n\n"))
		if text == "" {
			return
		}
		page := curPage
		if page < 1 {
			page = 1
		}
		chunks = append(chunks, domain.Chunk{
			ID:          fmt.Sprintf("c%d_%d", start, len(chunks)),
			Page:        page,
			Text:        text,
			SectionHint: curPath,
		})
	}

	for i, s := range spans {
		if len(buf) == 0 {
			start = i
			curPath = s.Path
			curPage = s.Page
		}
		if s.Path != curPath && len(buf) > 0 {
			flush()
			buf = nil
			start = i
			curLen = 0
			curPath = s.Path
			curPage = s.Page
		}

		buf = append(buf, s.Text)
		curLen += len(s.Text)

		if curLen >= maxChars {
			flush()
			if overlap > 0 {
				tail := overlapTail(strings.Join(buf, "\n\n"), overlap)
				buf = []string{tail}
				curLen = len(tail)
			} else {
				buf = nil
				curLen = 0
			}
			start = i
			curPath = s.Path
			curPage = s.Page
		}
	}

	flush()
	return chunks
}

// overlapTail returns the trailing n bytes of text, snapped forward to a
// rune boundary so a multi-byte character is never split.
func overlapTail(text string, n int) string {
	if len(text) <= n {
		return text
	}
	cut := len(text) - n
	for cut < len(text) && !utf8.RuneStart(text[cut]) {
		cut++
	}
	return text[cut:]
}
