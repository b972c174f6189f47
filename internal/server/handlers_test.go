package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/registry"
	"go.uber.org/zap"
)

// scriptedAnswerer returns a fixed reply and records the prompts it saw.
type scriptedAnswerer struct {
	reply   string
	mu      sync.Mutex
	prompts []string
}

func (a *scriptedAnswerer) Generate(ctx context.Context, prompt string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.prompts = append(a.prompts, prompt)
	return a.reply, nil
}

func (a *scriptedAnswerer) lastPrompt() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.prompts) == 0 {
		return ""
	}
	return a.prompts[len(a.prompts)-1]
}

type testEnv struct {
	server   *Server
	handler  http.Handler
	ingestor *ingest.Ingestor
	registry *registry.Registry
	answerer *scriptedAnswerer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Embedding.Dimensions = 8
	cfg.Storage.DatabasePath = filepath.Join(dir, "documents.db")
	cfg.Storage.SessionIndexPath = filepath.Join(dir, "sessions.vec")
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")

	reg, err := registry.New(8)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	emb := embedding.NewMockEmbedder(8)
	ans := &scriptedAnswerer{reply: "The venue is Hall B."}
	chatMgr := chat.NewManager(reg, emb, ans, chat.Config{RetryBackoff: time.Millisecond})
	ing := ingest.NewIngestor(reg, emb, nil, extract.NewExtractor(), ingest.Config{
		ChunkSize:    8,
		ChunkOverlap: 1,
		RetryBackoff: time.Millisecond,
	})
	srv := NewServer(chatMgr, ing, nil, reg, extract.NewExtractor(), cfg, zap.NewNop())

	return &testEnv{
		server:   srv,
		handler:  srv.Router(),
		ingestor: ing,
		registry: reg,
		answerer: ans,
	}
}

func (e *testEnv) seed(t *testing.T, sessionID, text string) {
	t.Helper()
	if _, err := e.ingestor.IngestBytes(context.Background(), sessionID, "seed.txt", []byte(text)); err != nil {
		t.Fatalf("seed ingest: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postJSON(t *testing.T, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return e.do(t, http.MethodPost, path, &buf, "application/json")
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func errorKind(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	decodeJSON(t, w, &body)
	return body.Error.Kind
}

func TestUploadDocuments(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartBody(t, "files", map[string]string{
		"schedule.txt": "the hackathon starts on may first at nine in the morning",
		"rules.txt":    "teams of up to four members may register for the event",
	})

	w := env.do(t, http.MethodPost, "/api/v1/sessions/hackathon/documents", body, contentType)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		SessionID string                 `json:"session_id"`
		Files     []*models.IngestResult `json:"files"`
	}
	decodeJSON(t, w, &resp)
	if resp.SessionID != "hackathon" {
		t.Errorf("session_id = %q", resp.SessionID)
	}
	if len(resp.Files) != 2 {
		t.Fatalf("files = %d, want 2", len(resp.Files))
	}
	for _, f := range resp.Files {
		if f.Chunks == 0 || f.DocumentID == "" {
			t.Errorf("result = %+v", f)
		}
	}

	idx, ok := env.registry.Get("hackathon")
	if !ok {
		t.Fatal("session not registered after upload")
	}
	if idx.Size() == 0 {
		t.Error("index is empty after upload")
	}
}

func TestUploadDocuments_NoFiles(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartBody(t, "files", nil)

	w := env.do(t, http.MethodPost, "/api/v1/sessions/hackathon/documents", body, contentType)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if kind := errorKind(t, w); kind != "invalid_input" {
		t.Errorf("kind = %q", kind)
	}
}

func TestUploadDocuments_EmptyFileRejected(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartBody(t, "files", map[string]string{"empty.txt": ""})

	w := env.do(t, http.MethodPost, "/api/v1/sessions/hackathon/documents", body, contentType)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestChat_AnswersAndMintsConversationID(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "hackathon", "the hackathon venue is hall b on the main campus")

	w := env.postJSON(t, "/api/v1/chat", models.ChatRequest{
		Question:       "where is the venue?",
		SessionID:      "hackathon",
		IncludeSources: true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp models.ChatResponse
	decodeJSON(t, w, &resp)
	if resp.Answer != "The venue is Hall B." {
		t.Errorf("answer = %q", resp.Answer)
	}
	if resp.ConversationID == "" {
		t.Error("conversation_id not minted")
	}
	if resp.SessionID != "hackathon" {
		t.Errorf("session_id = %q", resp.SessionID)
	}
	if len(resp.Sources) == 0 {
		t.Error("sources requested but missing")
	}
}

func TestChat_ConversationCarriesMemory(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "hackathon", "the hackathon venue is hall b and it starts on may first")

	w := env.postJSON(t, "/api/v1/chat", models.ChatRequest{
		Question:  "where is the venue?",
		SessionID: "hackathon",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("first turn status = %d", w.Code)
	}
	var first models.ChatResponse
	decodeJSON(t, w, &first)

	w = env.postJSON(t, "/api/v1/chat", models.ChatRequest{
		Question:       "and when does it start?",
		SessionID:      "hackathon",
		ConversationID: first.ConversationID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("second turn status = %d", w.Code)
	}
	var second models.ChatResponse
	decodeJSON(t, w, &second)
	if second.ConversationID != first.ConversationID {
		t.Errorf("conversation_id changed: %q -> %q", first.ConversationID, second.ConversationID)
	}

	prompt := env.answerer.lastPrompt()
	if !strings.Contains(prompt, "Q: where is the venue?") {
		t.Errorf("second prompt missing first turn:\n%s", prompt)
	}
}

func TestChat_ConversationBoundToOtherSessionRejected(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "hackathon", "the hackathon venue is hall b")
	env.seed(t, "techfest", "techfest runs for three days in march")

	w := env.postJSON(t, "/api/v1/chat", models.ChatRequest{
		Question:  "where is the venue?",
		SessionID: "hackathon",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("first turn status = %d", w.Code)
	}
	var first models.ChatResponse
	decodeJSON(t, w, &first)

	// Same conversation, different session: explicit error instead of a
	// silently ignored session_id.
	w = env.postJSON(t, "/api/v1/chat", models.ChatRequest{
		Question:       "and when does it run?",
		SessionID:      "techfest",
		ConversationID: first.ConversationID,
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if kind := errorKind(t, w); kind != "invalid_input" {
		t.Errorf("kind = %q", kind)
	}

	// Omitting the session id continues the conversation.
	w = env.postJSON(t, "/api/v1/chat", models.ChatRequest{
		Question:       "and the schedule?",
		ConversationID: first.ConversationID,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("follow-up status = %d, body = %s", w.Code, w.Body.String())
	}
	var followUp models.ChatResponse
	decodeJSON(t, w, &followUp)
	if followUp.SessionID != "hackathon" {
		t.Errorf("session_id = %q, want the conversation's original session", followUp.SessionID)
	}
}

func TestChat_CombinedViewWithoutSessionID(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "hackathon", "the hackathon venue is hall b")
	env.seed(t, "techfest", "techfest runs for three days in march")

	w := env.postJSON(t, "/api/v1/chat", models.ChatRequest{Question: "what events are there?"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp models.ChatResponse
	decodeJSON(t, w, &resp)
	if resp.SessionID != "" {
		t.Errorf("combined view should have empty session_id, got %q", resp.SessionID)
	}
}

func TestChat_UnknownSession(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "hackathon", "some content")

	w := env.postJSON(t, "/api/v1/chat", models.ChatRequest{
		Question:  "anything?",
		SessionID: "ghost",
	})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if kind := errorKind(t, w); kind != "not_found" {
		t.Errorf("kind = %q", kind)
	}
}

func TestChat_EmptyQuestion(t *testing.T) {
	env := newTestEnv(t)
	w := env.postJSON(t, "/api/v1/chat", models.ChatRequest{SessionID: "hackathon"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestChat_InvalidBody(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodPost, "/api/v1/chat", bytes.NewBufferString("{not json"), "application/json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestExtract(t *testing.T) {
	env := newTestEnv(t)
	brochure := "TechVista Fest 2025\nOrganized By: CS Club\nDate: May 1, 2025 to May 3, 2025.\nEmail: fest@example.edu\n"
	body, contentType := multipartBody(t, "file", map[string]string{"brochure.txt": brochure})

	w := env.do(t, http.MethodPost, "/api/v1/extract", body, contentType)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var details extract.EventDetails
	decodeJSON(t, w, &details)
	if details.Name != "TechVista Fest 2025" {
		t.Errorf("name = %q", details.Name)
	}
	if details.Organizer != "CS Club" {
		t.Errorf("organizer = %q", details.Organizer)
	}
	if details.Contact.Email != "fest@example.edu" {
		t.Errorf("email = %q", details.Contact.Email)
	}
}

func TestExtract_MissingFile(t *testing.T) {
	env := newTestEnv(t)
	body, contentType := multipartBody(t, "wrong_field", map[string]string{"a.txt": "x"})

	w := env.do(t, http.MethodPost, "/api/v1/extract", body, contentType)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListSessions(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "hackathon", "content about the hackathon event and its venue")
	env.seed(t, "techfest", "content about techfest")

	w := env.do(t, http.MethodGet, "/api/v1/sessions", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Sessions []struct {
			SessionID string `json:"session_id"`
			Chunks    int    `json:"chunks"`
		} `json:"sessions"`
	}
	decodeJSON(t, w, &resp)
	if len(resp.Sessions) != 2 {
		t.Fatalf("sessions = %d, want 2", len(resp.Sessions))
	}
	if resp.Sessions[0].SessionID != "hackathon" || resp.Sessions[1].SessionID != "techfest" {
		t.Errorf("session order = %+v", resp.Sessions)
	}
	for _, s := range resp.Sessions {
		if s.Chunks == 0 {
			t.Errorf("session %q has no chunks", s.SessionID)
		}
	}
}

func TestStatus(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "hackathon", "some hackathon content")

	w := env.do(t, http.MethodGet, "/api/v1/status", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var resp struct {
		Sessions     int                    `json:"sessions"`
		TotalVectors int                    `json:"total_vectors"`
		Config       map[string]interface{} `json:"config"`
	}
	decodeJSON(t, w, &resp)
	if resp.Sessions != 1 {
		t.Errorf("sessions = %d", resp.Sessions)
	}
	if resp.TotalVectors == 0 {
		t.Error("total_vectors = 0")
	}
	if resp.Config["embedding_model"] == "" {
		t.Error("config echo missing embedding_model")
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(t, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp map[string]string
	decodeJSON(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("body = %v", resp)
	}
}
