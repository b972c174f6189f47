package chat

import (
	"fmt"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
)

const promptHeader = "You are an assistant answering questions about event documents. " +
	"Answer using only the provided context and the conversation so far. " +
	"If the context does not contain the answer, say so."

// BuildPrompt assembles the prompt dispatched to the generative model:
// an optional personalization preamble, the conversation history oldest
// first with each turn's question and answer verbatim, the retrieved chunks
// in retrieval order, and finally the question.
func BuildPrompt(preamble string, history []Turn, chunks []*models.Chunk, question string) string {
	var b strings.Builder
	b.WriteString(promptHeader)
	b.WriteString("\n")
	if preamble != "" {
		b.WriteString("\n")
		b.WriteString(preamble)
		b.WriteString("\n")
	}
	if len(history) > 0 {
		b.WriteString("\nConversation so far:\n")
		for _, t := range history {
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", t.Question, t.Answer)
		}
	}
	if len(chunks) > 0 {
		b.WriteString("\nContext:\n")
		for i, ch := range chunks {
			fmt.Fprintf(&b, "[%d] %s\n", i+1, ch.Content)
		}
	}
	fmt.Fprintf(&b, "\nQuestion: %s\nAnswer:", question)
	return b.String()
}
