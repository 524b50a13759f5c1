package analyses

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateDocumentCountsCharactersNotBytes(t *testing.T) {
	text := strings.Repeat("é", 5)

	assert.Equal(t, text, truncateDocument(text, 5))

	got := truncateDocument(text, 3)
	assert.True(t, strings.HasPrefix(got, "ééé\n\n[Document truncated"))
	assert.Contains(t, got, "first 3 of 5 characters")
}

func TestTruncateDocumentDefaultLimit(t *testing.T) {
	text := strings.Repeat("x", DefaultMaxDocumentChars)
	assert.Equal(t, text, truncateDocument(text, 0))
	assert.Contains(t, truncateDocument(text+"y", 0), "[Document truncated")
}

func TestBuildPromptPerType(t *testing.T) {
	q := "When does the lease end?"
	req := "Two parties, one year"

	assert.Contains(t, buildPrompt(Analysis{Type: TypeSummary}, "doc", 0), "comprehensive summary")
	assert.Contains(t, buildPrompt(Analysis{Type: TypeClauseExtraction}, "doc", 0), "JSON array")
	assert.Contains(t, buildPrompt(Analysis{Type: TypeQuestionAnswer, Prompt: &q}, "doc", 0), q)

	tmpl := buildPrompt(Analysis{Type: TypeTemplateGeneration, TemplateType: "Service Agreement", Prompt: &req}, "ignored", 0)
	assert.Contains(t, tmpl, "legal Service Agreement template")
	assert.Contains(t, tmpl, req)
	assert.NotContains(t, tmpl, "ignored")
}
