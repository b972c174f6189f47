// Package models defines core data structures for documents, chunks, and chat exchanges.
package models

import "time"

// Document represents an ingested source document scoped to a session.
type Document struct {
	ID        string                 `json:"id" db:"id"`
	SessionID string                 `json:"session_id" db:"session_id"`
	Title     string                 `json:"title" db:"title"`
	Content   string                 `json:"content" db:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time              `json:"created_at" db:"created_at"`
}

// Chunk is a contiguous span of a source document. Immutable once created.
type Chunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	SessionID  string    `json:"session_id" db:"session_id"`
	Content    string    `json:"content" db:"content"`
	ChunkIndex int       `json:"chunk_index" db:"chunk_index"`
	CreatedAt  time.Time `json:"created_at,omitempty" db:"created_at"`
}
