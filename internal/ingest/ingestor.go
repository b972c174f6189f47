package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/apperr"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
	"github.com/hyperjump/kotae/internal/storage"
	"go.uber.org/zap"
)

// Config holds chunking and embedding-call settings for ingestion.
type Config struct {
	ChunkSize    int           // words per chunk
	ChunkOverlap int           // overlapping words between consecutive chunks
	EmbedTimeout time.Duration // budget for one batch embedding call
	RetryBackoff time.Duration // pause before the single retry of a retryable failure
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 300
	}
	if c.ChunkOverlap <= 0 || c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = 30
	}
	if c.EmbedTimeout == 0 {
		c.EmbedTimeout = 30 * time.Second
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = 500 * time.Millisecond
	}
}

// Ingestor runs the ingestion pipeline for one document at a time: extract
// text, chunk, embed the chunks, append to the session's vector index, and
// persist document and chunks.
//
// An embedding failure aborts the whole call before any index or storage
// mutation, so a failed ingestion can be retried without duplicating pairs.
// Re-ingesting the same document in a LATER call is not deduplicated: the
// session's pair count grows accordingly. Within one call, byte-identical
// spans are dropped by content hash.
type Ingestor struct {
	registry  *registry.Registry
	embedder  embedding.Embedder
	storage   storage.Storage // optional; when nil, nothing is persisted
	extractor *extract.Extractor
	chunker   *Chunker
	cfg       Config
	logger    *zap.Logger // optional
}

// IngestorOption configures an Ingestor.
type IngestorOption func(*Ingestor)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) IngestorOption {
	return func(ing *Ingestor) { ing.logger = l }
}

// NewIngestor creates an ingestor with the given dependencies.
// store may be nil; extraction falls back to plain text when extractor is nil.
func NewIngestor(
	reg *registry.Registry,
	embedder embedding.Embedder,
	store storage.Storage,
	extractor *extract.Extractor,
	cfg Config,
	opts ...IngestorOption,
) *Ingestor {
	cfg.ApplyDefaults()
	ing := &Ingestor{
		registry:  reg,
		embedder:  embedder,
		storage:   store,
		extractor: extractor,
		chunker:   NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestFile reads the file at path and ingests it into sessionID's index.
func (ing *Ingestor) IngestFile(ctx context.Context, sessionID, path string) (*models.IngestResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, fmt.Sprintf("read file %s", path), err)
	}
	return ing.IngestBytes(ctx, sessionID, filepath.Base(path), content)
}

// IngestBytes extracts text from content (format chosen by fileName's
// extension), chunks and embeds it, and appends the pairs to sessionID's
// index, creating the session on first ingestion.
func (ing *Ingestor) IngestBytes(ctx context.Context, sessionID, fileName string, content []byte) (*models.IngestResult, error) {
	if sessionID == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "session id cannot be empty")
	}
	if len(content) == 0 {
		return nil, apperr.New(apperr.KindInvalidInput, "document is empty")
	}

	text, err := ing.extractText(content, fileName)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, fmt.Sprintf("extract %s", fileName), err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.New(apperr.KindInvalidInput, fmt.Sprintf("%s contains no extractable text", fileName))
	}

	docID := uuid.New().String()
	chunks := ing.chunker.Chunk(sessionID, docID, text)
	if len(chunks) == 0 {
		chunks = []*models.Chunk{{
			ID:         docID + "_0",
			DocumentID: docID,
			SessionID:  sessionID,
			Content:    text,
			ChunkIndex: 0,
		}}
	}
	chunks = dedupeByContent(chunks)

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}
	// Embed before touching the index or storage: a provider failure here
	// leaves the session exactly as it was.
	var vectors [][]float32
	err = ing.callWithRetry(ctx, func(cctx context.Context) error {
		vecs, embErr := ing.embedder.EmbedBatch(cctx, texts)
		if embErr != nil {
			return embErr
		}
		vectors = vecs
		return nil
	})
	if err != nil {
		return nil, err
	}

	idx, err := ing.registry.GetOrCreate(sessionID)
	if err != nil {
		return nil, err
	}
	if err := idx.Add(ctx, chunks, vectors); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "append to session index", err)
	}

	if ing.storage != nil {
		doc := &models.Document{
			ID:        docID,
			SessionID: sessionID,
			Title:     fileName,
			Content:   text,
		}
		if err := ing.storage.CreateDocument(ctx, doc); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "persist document", err)
		}
		if err := ing.storage.BatchCreateChunks(ctx, chunks); err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "persist chunks", err)
		}
	}

	if ing.logger != nil {
		ing.logger.Debug("document ingested",
			zap.String("session_id", sessionID),
			zap.String("document_id", docID),
			zap.String("file", fileName),
			zap.Int("chunks", len(chunks)),
		)
	}
	return &models.IngestResult{FileName: fileName, DocumentID: docID, Chunks: len(chunks)}, nil
}

func (ing *Ingestor) extractText(content []byte, fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ing.extractor == nil {
		return string(content), nil
	}
	return ing.extractor.ExtractBytes(content, ext)
}

// dedupeByContent drops byte-identical spans within one ingestion call,
// keeping the first occurrence. Cross-call duplicates are the caller's
// responsibility.
func dedupeByContent(chunks []*models.Chunk) []*models.Chunk {
	seen := make(map[string]bool, len(chunks))
	out := chunks[:0]
	for _, ch := range chunks {
		sum := sha256.Sum256([]byte(ch.Content))
		key := hex.EncodeToString(sum[:])
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ch)
	}
	return out
}

// callWithRetry runs fn under the embed budget, retrying once with backoff on
// a retryable failure.
func (ing *Ingestor) callWithRetry(ctx context.Context, fn func(context.Context) error) error {
	run := func() error {
		cctx, cancel := context.WithTimeout(ctx, ing.cfg.EmbedTimeout)
		defer cancel()
		return fn(cctx)
	}
	err := run()
	if err == nil || !apperr.IsRetryable(err) {
		return err
	}
	select {
	case <-time.After(ing.cfg.RetryBackoff):
	case <-ctx.Done():
		return apperr.Wrap(apperr.KindTimeout, "cancelled while backing off", ctx.Err())
	}
	return run()
}
