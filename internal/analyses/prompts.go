package analyses

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultMaxDocumentChars bounds how much document text is sent to the model.
const DefaultMaxDocumentChars = 100000

const summaryInstruction = `Please provide a comprehensive summary of the following legal document in plain English.
Focus on the main purpose, the key parties, important terms, and any significant obligations or rights.
Write it so that someone without legal training can follow it.

Document content:
`

const clausesInstruction = `Analyze the following legal document and extract its key clauses. For each clause provide:
1) the clause type (e.g. "Payment Terms", "Termination", "Liability", "Confidentiality")
2) the exact clause text
3) a plain English explanation
4) the importance level, one of LOW, MEDIUM, HIGH or CRITICAL

Respond only with a JSON array of objects with the fields clauseType, clauseText, explanation and importance.

Document content:
`

const questionInstruction = `Based on the following legal document, answer this question: %s

Give a clear, accurate answer using only the information in the document.
If the document does not contain the answer, say so clearly.

Document content:
`

const templateInstruction = `Generate a simple legal %s template based on these requirements:
%s

Mark every placeholder field in [BRACKETS], include the standard clauses such a document normally contains,
and end with a disclaimer that this is a basic template and that review by a qualified lawyer is recommended.`

// buildPrompt renders the model prompt for a.
func buildPrompt(a Analysis, documentText string, maxChars int) string {
	switch a.Type {
	case TypeSummary:
		return summaryInstruction + truncateDocument(documentText, maxChars)
	case TypeClauseExtraction:
		return clausesInstruction + truncateDocument(documentText, maxChars)
	case TypeQuestionAnswer:
		return fmt.Sprintf(questionInstruction, deref(a.Prompt)) + truncateDocument(documentText, maxChars)
	case TypeTemplateGeneration:
		return fmt.Sprintf(templateInstruction, a.TemplateType, deref(a.Prompt))
	}
	return ""
}

// truncateDocument keeps the first maxChars characters and says so.
func truncateDocument(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultMaxDocumentChars
	}
	total := utf8.RuneCountInString(text)
	if total <= maxChars {
		return text
	}
	var b strings.Builder
	n := 0
	for _, r := range text {
		if n == maxChars {
			break
		}
		b.WriteRune(r)
		n++
	}
	fmt.Fprintf(&b, "\n\n[Document truncated: only the first %d of %d characters were included.]", maxChars, total)
	return b.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
