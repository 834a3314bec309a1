package service

import (
	"strings"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
)

const promptTemplate = `You are a helpful assistant for Delhi business owners seeking information about regulations and compliance.
Use the following pieces of context to answer the question at the end.
If you don't know the answer, just say that you don't know, don't try to make up an answer.
Keep your answer concise, factual, and to the point.

Context:
{context}

Question: {question}

Answer:`

// ComposePrompt joins the retrieved chunks in retrieval order into the
// grounded instruction template.
func ComposePrompt(result domain.RetrievalResult, question string) string {
	parts := make([]string, len(result))
	for i, sc := range result {
		parts[i] = sc.Chunk.Content
	}
	return strings.NewReplacer(
		"{context}", strings.Join(parts, "\n\n"),
		"{question}", question,
	).Replace(promptTemplate)
}
