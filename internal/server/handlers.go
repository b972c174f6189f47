package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/hyperjump/kotae/internal/apperr"
	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
	"go.uber.org/zap"
)

const maxUploadBytes = 32 << 20

func (s *Server) handleUploadDocuments(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if sessionID == "" {
		s.respondError(w, http.StatusBadRequest, apperr.KindInvalidInput, "session id is required")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, apperr.KindInvalidInput, "invalid multipart body")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		s.respondError(w, http.StatusBadRequest, apperr.KindInvalidInput, "no files uploaded")
		return
	}

	results := make([]*models.IngestResult, 0, len(files))
	for _, hdr := range files {
		content, err := s.spoolUpload(hdr.Filename, func(dst io.Writer) error {
			f, err := hdr.Open()
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(dst, f)
			return err
		})
		if err != nil {
			s.logger.Error("upload spool failed", zap.String("file", hdr.Filename), zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, apperr.KindInternal, "failed to read upload")
			return
		}
		res, err := s.ingestor.IngestBytes(r.Context(), sessionID, hdr.Filename, content)
		if err != nil {
			s.logger.Error("ingestion failed",
				zap.String("session_id", sessionID),
				zap.String("file", hdr.Filename),
				zap.Error(err))
			s.respondAppError(w, err)
			return
		}
		results = append(results, res)
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"session_id": sessionID,
		"files":      results,
	})
}

// spoolUpload writes an uploaded part to a temp file under the configured
// upload dir, reads it back, and removes the temp file. Mirrors the
// temp-file handling the upload path has always used.
func (s *Server) spoolUpload(name string, write func(io.Writer) error) ([]byte, error) {
	dir := s.config.Storage.UploadDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(dir, "upload-*"+filepath.Ext(name))
	if err != nil {
		return nil, err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if err := write(tmp); err != nil {
		tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}
	return os.ReadFile(tmpPath)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, apperr.KindInvalidInput, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Chat.TopK, s.config.Chat.MaxTopK); err != nil {
		s.respondError(w, http.StatusBadRequest, apperr.KindInvalidInput, err.Error())
		return
	}
	s.logger.Debug("chat request",
		zap.String("session_id", req.SessionID),
		zap.String("conversation_id", req.ConversationID),
		zap.Int("top_k", req.TopK))

	conv, err := s.resolveConversation(&req)
	if err != nil {
		s.respondAppError(w, err)
		return
	}

	start := time.Now()
	answer, err := conv.session.Ask(r.Context(), req.Question, req.RegisteredSessions)
	if err != nil {
		s.logger.Error("chat failed", zap.String("conversation_id", req.ConversationID), zap.Error(err))
		s.respondAppError(w, err)
		return
	}

	resp := &models.ChatResponse{
		Answer:         answer.Text,
		ConversationID: req.ConversationID,
		SessionID:      conv.sessionID,
		QueryTime:      time.Since(start).Milliseconds(),
	}
	if req.IncludeSources {
		resp.Sources = answer.Sources
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// resolveConversation returns the conversation for the request, reusing an
// existing one when the id is known and opening a new session otherwise.
// A known conversation id combined with a session id other than the one the
// conversation was opened with is rejected; omitting the session id on a
// follow-up request continues the conversation as-is. When the request
// carries no conversation id a fresh uuid is minted and written back into
// req so the handler can echo it.
func (s *Server) resolveConversation(req *models.ChatRequest) (*conversation, error) {
	s.convMu.Lock()
	defer s.convMu.Unlock()
	if req.ConversationID != "" {
		if conv, ok := s.conversations[req.ConversationID]; ok {
			if req.SessionID != conv.sessionID && req.SessionID != "" {
				return nil, apperr.New(apperr.KindInvalidInput,
					"conversation_id is bound to a different session")
			}
			return conv, nil
		}
	}

	var (
		sess *chat.Session
		err  error
	)
	if req.SessionID != "" {
		sess, err = s.chat.Open(req.SessionID, req.TopK)
	} else {
		sess, err = s.chat.OpenCombined(req.TopK)
	}
	if err != nil {
		return nil, err
	}
	if req.ConversationID == "" {
		req.ConversationID = uuid.New().String()
	}
	conv := &conversation{session: sess, sessionID: req.SessionID}
	s.conversations[req.ConversationID] = conv
	return conv, nil
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, apperr.KindInvalidInput, "invalid multipart body")
		return
	}
	file, hdr, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, apperr.KindInvalidInput, "file is required")
		return
	}
	defer file.Close()
	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, apperr.KindInternal, "failed to read upload")
		return
	}
	text, err := s.extractor.ExtractBytes(content, filepath.Ext(hdr.Filename))
	if err != nil {
		s.logger.Error("extraction failed", zap.String("file", hdr.Filename), zap.Error(err))
		s.respondError(w, http.StatusBadRequest, apperr.KindInvalidInput, "could not extract text from file")
		return
	}
	details := extract.ExtractEventDetails(text)
	s.respondJSON(w, http.StatusOK, details)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	type sessionInfo struct {
		SessionID string `json:"session_id"`
		Chunks    int    `json:"chunks"`
		Documents int    `json:"documents,omitempty"`
	}
	ids := s.registry.IDs()
	sessions := make([]sessionInfo, 0, len(ids))
	for _, id := range ids {
		info := sessionInfo{SessionID: id}
		if idx, ok := s.registry.Get(id); ok {
			info.Chunks = idx.Size()
		}
		if s.storage != nil {
			if n, err := s.storage.CountDocumentsBySession(r.Context(), id); err == nil {
				info.Documents = int(n)
			}
		}
		sessions = append(sessions, info)
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	totalVectors := 0
	for _, idx := range s.registry.All() {
		totalVectors += idx.Size()
	}
	resp := map[string]interface{}{
		"sessions":      s.registry.Len(),
		"total_vectors": totalVectors,
	}
	if s.storage != nil {
		if n, err := s.storage.CountDocuments(r.Context()); err == nil {
			resp["documents"] = n
		}
		if n, err := s.storage.CountChunks(r.Context()); err == nil {
			resp["chunks"] = n
		}
	}
	resp["config"] = map[string]interface{}{
		"embedding_model":      s.config.Embedding.Model,
		"embedding_dimensions": s.config.Embedding.Dimensions,
		"chat_model":           s.config.Chat.Model,
		"chunk_size":           s.config.Ingest.ChunkSize,
		"chunk_overlap":        s.config.Ingest.ChunkOverlap,
		"database_path":        s.config.Storage.DatabasePath,
		"session_index_path":   s.config.Storage.SessionIndexPath,
	}
	if diskBytes, err := storage.DiskUsageBytes(
		s.config.Storage.DatabasePath,
		s.config.Storage.SessionIndexPath,
	); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// respondAppError maps an error from the domain layers to an HTTP status
// using its apperr kind.
func (s *Server) respondAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	var appErr *apperr.Error
	message := err.Error()
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	s.respondError(w, statusForKind(kind), kind, message)
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, kind apperr.Kind, message string) {
	s.respondJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"kind":    string(kind),
			"message": message,
		},
	})
}
