package models

import "fmt"

// ChatRequest is the body of a chat query. SessionID is optional: when empty,
// the question is answered against the combined view of every session.
// ConversationID ties consecutive requests to one conversational memory;
// when empty the server mints one and returns it in the response.
type ChatRequest struct {
	Question           string   `json:"question"`
	SessionID          string   `json:"session_id,omitempty"`
	ConversationID     string   `json:"conversation_id,omitempty"`
	RegisteredSessions []string `json:"registered_sessions,omitempty"`
	TopK               int      `json:"top_k,omitempty"`
	IncludeSources     bool     `json:"include_sources,omitempty"`
}

// Validate checks required fields and normalizes TopK.
// maxK caps the requested number of retrieved chunks; defaultK is used when unset.
func (r *ChatRequest) Validate(defaultK, maxK int) error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = defaultK
	}
	if r.TopK > maxK {
		r.TopK = maxK
	}
	return nil
}

// Answer is the result of one conversational turn: the generated text plus
// the chunks retrieval fed into the prompt, in retrieval order.
type Answer struct {
	Text    string   `json:"answer"`
	Sources []*Chunk `json:"sources,omitempty"`
}

// ChatResponse is the response body for a chat query.
type ChatResponse struct {
	Answer         string   `json:"answer"`
	Sources        []*Chunk `json:"sources,omitempty"`
	ConversationID string   `json:"conversation_id"`
	SessionID      string   `json:"session_id,omitempty"`
	QueryTime      int64    `json:"query_time_ms"`
}

// IngestResult reports the outcome of ingesting one uploaded file.
type IngestResult struct {
	FileName   string `json:"file_name"`
	DocumentID string `json:"document_id"`
	Chunks     int    `json:"chunks"`
}
