package assembler

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/clearbid/tenderdex/internal/domain"
)

// DefaultPageConfig returns the windowing defaults for the page fallback.
func DefaultPageConfig() Config {
	return Config{MaxChars: 2000, Overlap: 200}
}

// AssemblePages slides a fixed window of maxChars over each page's raw text
// independently, stepping by maxChars-overlap and never crossing a page
// boundary. Used when no structural parse is available.
func AssemblePages(pages []domain.PageText, cfg Config) []domain.Chunk {
	cfg = cfg.withDefaults()

	var chunks []domain.Chunk
	for _, pg := range pages {
		page := pg.Page
		if page < 1 {
			page = 1
		}
		text := pg.Text
		n := len(text)
		start := 0
		for start < n {
			end := start + cfg.MaxChars
			if end > n {
				end = n
			}
			for end < n && !utf8.RuneStart(text[end]) {
				end++
			}
			window := text[start:end]
			if strings.TrimSpace(window) != "" {
				chunks = append(chunks, domain.Chunk{
					ID:   fmt.Sprintf("p%d_%d", page, start),
					Page: page,
					Text: window,
				})
			}
			if end == n {
				break
			}
			next := end - cfg.Overlap
			for next > 0 && !utf8.RuneStart(text[next]) {
				next--
			}
			if next <= start {
				next = end
			}
			start = next
		}
	}
	return chunks
}
