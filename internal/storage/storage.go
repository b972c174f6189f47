// Package storage defines the persistence interface for ingested documents
// and their chunks, scoped by session.
package storage

import (
	"context"

	"github.com/hyperjump/kotae/internal/models"
)

// Storage defines document and chunk persistence operations.
type Storage interface {
	// Document operations
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsBySession(ctx context.Context, sessionID string, offset, limit int) ([]*models.Document, error)

	// Chunk operations
	BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error
	GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error)

	// Stats
	CountDocuments(ctx context.Context) (int64, error)
	CountChunks(ctx context.Context) (int64, error)
	CountDocumentsBySession(ctx context.Context, sessionID string) (int64, error)

	Close() error
}
