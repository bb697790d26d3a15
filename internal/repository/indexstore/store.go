// Package indexstore persists the per-document index/chunk pair and the
// cached summary on a filesystem root. The chunk list and the index are
// always written and read together: one is meaningless without the other.
package indexstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/clearbid/tenderdex/internal/domain"
	"github.com/clearbid/tenderdex/internal/vecindex"
)

const (
	chunksFile  = "chunks.json"
	indexFile   = "index.bin"
	summaryFile = "summary.json"
)

// Store keeps one directory per sanitized document id under root.
type Store struct {
	root   string
	logger *zap.Logger
}

// New creates a store rooted at dir.
func New(dir string, logger *zap.Logger) *Store {
	return &Store{root: dir, logger: logger}
}

// SafeID maps a document identifier to a filesystem-safe key. Path
// separators and any other unsafe characters collapse to underscores.
func SafeID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (s *Store) docDir(id string) string {
	return filepath.Join(s.root, SafeID(id))
}

// Save writes the chunk list and index as a full replace. The pair is
// validated before anything touches disk: persisting a misaligned pair
// would corrupt retrieval for the whole document.
func (s *Store) Save(id string, chunks []domain.Chunk, ix *vecindex.Index) error {
	if len(chunks) != ix.Len() {
		return fmt.Errorf("%d chunks vs %d vectors: %w",
			len(chunks), ix.Len(), domain.ErrVectorCountMismatch)
	}

	dir := s.docDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	chunkData, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshal chunks: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, chunksFile), chunkData); err != nil {
		return fmt.Errorf("write chunks: %w", err)
	}

	var buf bytes.Buffer
	if err := ix.Encode(&buf); err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, indexFile), buf.Bytes()); err != nil {
		return fmt.Errorf("write index: %w", err)
	}

	s.logger.Info("index saved",
		zap.String("document_id", id),
		zap.Int("chunks", len(chunks)),
		zap.Int("dim", ix.Dim()),
	)
	return nil
}

// Load reads the chunk list and index for a document as a unit. A missing
// artifact or a misaligned pair is ErrIndexNotFound, distinct from an empty
// retrieval result.
func (s *Store) Load(id string) ([]domain.Chunk, *vecindex.Index, error) {
	dir := s.docDir(id)

	chunkData, err := os.ReadFile(filepath.Join(dir, chunksFile))
	if err != nil {
		return nil, nil, notFoundOr(err, "read chunks")
	}
	indexData, err := os.ReadFile(filepath.Join(dir, indexFile))
	if err != nil {
		return nil, nil, notFoundOr(err, "read index")
	}

	var chunks []domain.Chunk
	if err := json.Unmarshal(chunkData, &chunks); err != nil {
		return nil, nil, fmt.Errorf("decode chunks: %w", err)
	}
	ix, err := vecindex.Decode(bytes.NewReader(indexData))
	if err != nil {
		return nil, nil, fmt.Errorf("decode index: %w", err)
	}

	if len(chunks) != ix.Len() {
		return nil, nil, fmt.Errorf("%d chunks vs %d vectors on disk: %w",
			len(chunks), ix.Len(), domain.ErrIndexNotFound)
	}
	return chunks, ix, nil
}

// SaveSummary caches the computed summary for a document.
func (s *Store) SaveSummary(id string, rec domain.SummaryRecord) error {
	dir := s.docDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := writeAtomic(filepath.Join(dir, summaryFile), data); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// LoadSummary returns the cached summary, or ErrSummaryNotFound.
func (s *Store) LoadSummary(id string) (domain.SummaryRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.docDir(id), summaryFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.SummaryRecord{}, domain.ErrSummaryNotFound
		}
		return domain.SummaryRecord{}, fmt.Errorf("read summary: %w", err)
	}
	var rec domain.SummaryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.SummaryRecord{}, fmt.Errorf("decode summary: %w", err)
	}
	return rec, nil
}

// Ping verifies the store root is usable.
func (s *Store) Ping(_ context.Context) error {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("index root: %w", err)
	}
	return nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return domain.ErrIndexNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// writeAtomic replaces path with data via a temp file and rename, so readers
// never observe a partial write.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
