package vecindex

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// File layout: 4-byte magic, uint32 dim, uint32 count, then count*dim
// little-endian float32 values (already normalized at build time).
var magic = [4]byte{'T', 'D', 'X', '1'}

// Encode writes the index in its binary form.
func (ix *Index) Encode(w io.Writer) error {
	if _, err := w.Write(magic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:], uint32(ix.dim))
	binary.LittleEndian.PutUint32(header[4:], uint32(len(ix.vectors)))
	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	buf := make([]byte, ix.dim*4)
	for _, v := range ix.vectors {
		for i, f := range v {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write vectors: %w", err)
		}
	}
	return nil
}

// Decode reads an index written by Encode.
func Decode(r io.Reader) (*Index, error) {
	var head [12]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if [4]byte(head[0:4]) != magic {
		return nil, fmt.Errorf("bad index magic %q", head[0:4])
	}
	dim := int(binary.LittleEndian.Uint32(head[4:]))
	count := int(binary.LittleEndian.Uint32(head[8:]))
	if dim < 0 || count < 0 {
		return nil, fmt.Errorf("invalid index header: dim=%d count=%d", dim, count)
	}

	ix := &Index{dim: dim}
	buf := make([]byte, dim*4)
	for n := 0; n < count; n++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector %d: %w", n, err)
		}
		v := make([]float32, dim)
		for i := range v {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		ix.vectors = append(ix.vectors, v)
	}
	return ix, nil
}
