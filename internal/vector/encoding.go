package vector

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/hyperjump/kotae/internal/models"
)

// Binary layout: dimensions (4), pair count (4), then per pair: chunk ID,
// document ID, session ID, content (each length-prefixed), chunk index (4),
// vector (dimensions*4 bytes, float32 LE). Little-endian throughout.
// Decoding trusts the input: only load files this process previously wrote.

// Encode writes the index contents to w. Callers streaming several indices
// into one file should pass a buffered writer and flush it once at the end.
func (idx *Index) Encode(w io.Writer) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if err := binary.Write(w, binary.LittleEndian, uint32(idx.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(idx.pairs))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, p := range idx.pairs {
		for _, s := range []string{p.chunk.ID, p.chunk.DocumentID, p.chunk.SessionID, p.chunk.Content} {
			if err := writeString(w, s); err != nil {
				return err
			}
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(p.chunk.ChunkIndex)); err != nil {
			return fmt.Errorf("write chunk index: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(p.vec)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// DecodeIndex reads an index previously written by Encode. It consumes exactly
// one encoded index from r, so several indices can be decoded from one stream.
func DecodeIndex(r io.Reader) (*Index, error) {
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	idx, err := NewIndex(int(dim))
	if err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	idx.pairs = make([]pair, 0, n)
	for i := uint32(0); i < n; i++ {
		ch := &models.Chunk{}
		for _, dst := range []*string{&ch.ID, &ch.DocumentID, &ch.SessionID, &ch.Content} {
			s, err := readString(r)
			if err != nil {
				return nil, err
			}
			*dst = s
		}
		var chunkIndex uint32
		if err := binary.Read(r, binary.LittleEndian, &chunkIndex); err != nil {
			return nil, fmt.Errorf("read chunk index: %w", err)
		}
		ch.ChunkIndex = int(chunkIndex)
		buf := make([]byte, int(dim)*4)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read vector: %w", err)
		}
		idx.pairs = append(idx.pairs, pair{vec: bytesToFloat32Slice(buf), chunk: ch})
	}
	return idx, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return fmt.Errorf("write string len: %w", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("read string len: %w", err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read string: %w", err)
	}
	return string(buf), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
