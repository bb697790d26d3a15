package domain

// Chunk is a bounded unit of extracted text with page and section provenance.
// It is the atomic unit of retrieval and citation. Chunks are immutable once
// produced by the assembler; identity is ID.
type Chunk struct {
	ID          string `json:"chunk_id"`
	Page        int    `json:"page"`
	Text        string `json:"text"`
	SectionHint string `json:"section_hint,omitempty"`
}

// Span is a transient (text, page, section path) triple produced while
// walking a parsed document tree. Spans are never persisted.
type Span struct {
	Text string
	Page int    // 0 when the source node carries no page number
	Path string // "A > B > C" breadcrumb, empty outside any section
}

// PageText is one page of raw extracted text, input to the windowing
// fallback when no structural parse is available.
type PageText struct {
	Page int
	Text string
}

// RankedChunk pairs a chunk with its retrieval score. Genuine results carry
// a cosine similarity; length-ranked fallback results carry DegradedScore.
type RankedChunk struct {
	Chunk Chunk
	Score float32
}

// DegradedScore marks results produced by the length-ranked fallback when
// no embedding capability is reachable. A real top hit never scores -1.
const DegradedScore float32 = -1

// Citation points back to the chunk an answer or summary was drawn from.
type Citation struct {
	Page        int    `json:"page"`
	ChunkID     string `json:"chunk_id"`
	SectionHint string `json:"section_hint,omitempty"`
	TextSnippet string `json:"text_snippet"`
}

const snippetLimit = 160

// Cite derives a citation from a chunk, truncating the snippet to 160 bytes.
func Cite(c Chunk) Citation {
	snippet := c.Text
	if len(snippet) > snippetLimit {
		snippet = snippet[:snippetLimit]
	}
	return Citation{
		Page:        c.Page,
		ChunkID:     c.ID,
		SectionHint: c.SectionHint,
		TextSnippet: snippet,
	}
}
