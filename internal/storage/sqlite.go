// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/kotae/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		title TEXT,
		content TEXT NOT NULL,
		metadata TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_documents_session_id ON documents(session_id);
	CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		content TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (document_id) REFERENCES documents(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON document_chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_session_id ON document_chunks(session_id);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateDocument inserts a document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *models.Document) error {
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	doc.CreatedAt = time.Now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, session_id, title, content, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.SessionID, doc.Title, doc.Content, string(metadataJSON), doc.CreatedAt,
	)
	return err
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	var doc models.Document
	var metadataJSON string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, title, content, metadata, created_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.SessionID, &doc.Title, &doc.Content, &metadataJSON, &doc.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", id)
	}
	if err != nil {
		return nil, err
	}

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}

	return &doc, nil
}

// ListDocumentsBySession returns a session's documents with offset and limit,
// newest first.
func (s *SQLiteStorage) ListDocumentsBySession(ctx context.Context, sessionID string, offset, limit int) ([]*models.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, title, content, metadata, created_at
		 FROM documents WHERE session_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var metadataJSON string
		if err := rows.Scan(&doc.ID, &doc.SessionID, &doc.Title, &doc.Content, &metadataJSON, &doc.CreatedAt); err != nil {
			return nil, err
		}
		if metadataJSON != "" {
			_ = json.Unmarshal([]byte(metadataJSON), &doc.Metadata)
		}
		docs = append(docs, &doc)
	}
	return docs, rows.Err()
}

// BatchCreateChunks inserts multiple chunks in a transaction.
func (s *SQLiteStorage) BatchCreateChunks(ctx context.Context, chunks []*models.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO document_chunks (id, document_id, session_id, content, chunk_index, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, chunk := range chunks {
		chunk.CreatedAt = now
		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.SessionID, chunk.Content, chunk.ChunkIndex, chunk.CreatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetChunksByDocumentID returns all chunks for a document ordered by chunk_index.
func (s *SQLiteStorage) GetChunksByDocumentID(ctx context.Context, docID string) ([]*models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, session_id, content, chunk_index, created_at
		 FROM document_chunks WHERE document_id = ? ORDER BY chunk_index`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.SessionID, &chunk.Content, &chunk.ChunkIndex, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountChunks returns the total number of chunks.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	return count, err
}

// CountDocumentsBySession returns the number of documents in one session.
func (s *SQLiteStorage) CountDocumentsBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE session_id = ?`, sessionID).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
