// Package ingest provides document chunking and the ingestion pipeline:
// extract, chunk, embed, index, persist.
package ingest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into Chunks with overlapping windows, tagged with the
// owning session and document.
func (c *Chunker) Chunk(sessionID, docID, text string) []*models.Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	chunks := make([]*models.Chunk, 0)
	chunkIndex := 0
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	for i := 0; i < len(words); i += step {
		end := i + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunkWords := words[i:end]
		chunkText := strings.Join(chunkWords, " ")
		chunk := &models.Chunk{
			ID:         fmt.Sprintf("%s_%s", docID, uuid.New().String()[:8]),
			DocumentID: docID,
			SessionID:  sessionID,
			Content:    chunkText,
			ChunkIndex: chunkIndex,
		}
		chunks = append(chunks, chunk)
		chunkIndex++
		if end >= len(words) {
			break
		}
	}
	return chunks
}
