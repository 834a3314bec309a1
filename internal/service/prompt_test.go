package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arturoeanton/bizreg-assistant/internal/domain"
)

func TestComposePrompt(t *testing.T) {
	result := domain.RetrievalResult{
		scored("gst.txt", "GST registration requires PAN.", 0.9),
		scored("fssai.txt", "Food businesses need FSSAI.", 0.5),
	}

	prompt := ComposePrompt(result, "What do I need for GST?")

	assert.Contains(t, prompt, "Context:\nGST registration requires PAN.\n\nFood businesses need FSSAI.\n")
	assert.Contains(t, prompt, "Question: What do I need for GST?")
	assert.Contains(t, prompt, "just say that you don't know")
	assert.True(t, strings.HasSuffix(prompt, "Answer:"))
	assert.Less(t, strings.Index(prompt, "GST registration"), strings.Index(prompt, "Food businesses"))
}

func TestComposePrompt_PlaceholdersInContentAreLiteral(t *testing.T) {
	result := domain.RetrievalResult{scored("odd.txt", "see {question} here", 1)}

	prompt := ComposePrompt(result, "real question")

	assert.Contains(t, prompt, "see {question} here")
	assert.Equal(t, 1, strings.Count(prompt, "real question"))
}
