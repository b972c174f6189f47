// Package cli provides CLI output utilities for kotae.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteAnswer writes a chat answer to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteAnswer(w io.Writer, answer *models.Answer, queryTimeMillis int64, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	default:
		writeAnswerText(w, answer, queryTimeMillis)
		return nil
	}
}

func writeAnswerText(w io.Writer, answer *models.Answer, queryTimeMillis int64) {
	fmt.Fprintf(w, "\n%s\n", answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintf(w, "\n--- Sources (%d chunks, %dms) ---\n", len(answer.Sources), queryTimeMillis)
		for i, chunk := range answer.Sources {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "[%d] Session: %s | Document: %s\n", i+1, chunk.SessionID, chunk.DocumentID)
			fmt.Fprintf(w, "%s\n", Truncate(chunk.Content, 200))
		}
	}
	fmt.Fprintln(w)
}

// SessionSummary is one row of the sessions listing.
type SessionSummary struct {
	SessionID string `json:"session_id"`
	Chunks    int    `json:"chunks"`
}

// WriteSessions writes the sessions listing to w in the given format.
func WriteSessions(w io.Writer, sessions []SessionSummary, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sessions)
	default:
		if len(sessions) == 0 {
			fmt.Fprintln(w, "No sessions.")
			return nil
		}
		for _, s := range sessions {
			fmt.Fprintf(w, "%s\t%d chunks\n", s.SessionID, s.Chunks)
		}
		return nil
	}
}

// WriteIngestResults writes per-file ingestion results to w in the given format.
func WriteIngestResults(w io.Writer, results []*models.IngestResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	default:
		for _, r := range results {
			fmt.Fprintf(w, "%s\t%d chunks\t(document %s)\n", r.FileName, r.Chunks, r.DocumentID)
		}
		return nil
	}
}

// Truncate truncates s to maxLen and appends "..." if truncated.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return s
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
