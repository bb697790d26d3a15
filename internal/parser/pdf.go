// Package parser extracts plain page text from PDFs. It backs the
// page-window chunking path used when structured parsing is unavailable.
package parser

import (
	"bytes"
	"fmt"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/clearbid/tenderdex/internal/domain"
)

// ExtractPages returns the plain text of each non-empty page, in order.
// Pages that cannot be decoded are skipped; page numbers are 1-based and
// preserved across skips.
func ExtractPages(data []byte) ([]domain.PageText, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var pages []domain.PageText
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, domain.PageText{Page: i, Text: text})
	}
	return pages, nil
}
