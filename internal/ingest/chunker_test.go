package ingest

import (
	"strings"
	"testing"
)

func TestChunker_SplitsWithOverlap(t *testing.T) {
	c := NewChunker(4, 1)
	words := []string{"a", "b", "c", "d", "e", "f", "g"}
	chunks := c.Chunk("evt1", "doc1", strings.Join(words, " "))

	if len(chunks) != 2 {
		t.Fatalf("got %d chunks, want 2", len(chunks))
	}
	if chunks[0].Content != "a b c d" {
		t.Errorf("chunk 0 = %q", chunks[0].Content)
	}
	// Step is size-overlap = 3, so chunk 1 starts at word d.
	if chunks[1].Content != "d e f g" {
		t.Errorf("chunk 1 = %q", chunks[1].Content)
	}
	for i, ch := range chunks {
		if ch.ChunkIndex != i {
			t.Errorf("chunk %d index = %d", i, ch.ChunkIndex)
		}
		if ch.SessionID != "evt1" || ch.DocumentID != "doc1" {
			t.Errorf("chunk %d tags = %s/%s", i, ch.SessionID, ch.DocumentID)
		}
		if !strings.HasPrefix(ch.ID, "doc1_") {
			t.Errorf("chunk %d id = %q", i, ch.ID)
		}
	}
}

func TestChunker_ShortTextSingleChunk(t *testing.T) {
	c := NewChunker(300, 30)
	chunks := c.Chunk("evt1", "doc1", "just a few words")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Content != "just a few words" {
		t.Errorf("content = %q", chunks[0].Content)
	}
}

func TestChunker_EmptyText(t *testing.T) {
	c := NewChunker(10, 2)
	if chunks := c.Chunk("evt1", "doc1", "   \n\t "); chunks != nil {
		t.Errorf("whitespace-only text produced %d chunks", len(chunks))
	}
}

func TestChunker_OverlapAtLeastSizeStepsByOne(t *testing.T) {
	c := NewChunker(2, 2)
	chunks := c.Chunk("evt1", "doc1", "a b c")
	if len(chunks) == 0 {
		t.Fatal("no chunks")
	}
	// Degenerate overlap must still advance and terminate.
	if chunks[0].Content != "a b" {
		t.Errorf("chunk 0 = %q", chunks[0].Content)
	}
}

func TestChunker_UniqueIDs(t *testing.T) {
	c := NewChunker(2, 0)
	chunks := c.Chunk("evt1", "doc1", "a b c d e f")
	seen := make(map[string]bool)
	for _, ch := range chunks {
		if seen[ch.ID] {
			t.Errorf("duplicate chunk id %q", ch.ID)
		}
		seen[ch.ID] = true
	}
}
