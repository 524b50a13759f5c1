package analyses

import (
	"fmt"
	"strings"
	"time"
)

// AnalysisType identifies the kind of AI-backed operation.
type AnalysisType string

const (
	TypeSummary            AnalysisType = "SUMMARY"
	TypeClauseExtraction   AnalysisType = "CLAUSE_EXTRACTION"
	TypeQuestionAnswer     AnalysisType = "QUESTION_ANSWER"
	TypeTemplateGeneration AnalysisType = "TEMPLATE_GENERATION"
)

// ParseType normalizes and validates an analysis type string.
func ParseType(raw string) (AnalysisType, error) {
	switch t := AnalysisType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case TypeSummary, TypeClauseExtraction, TypeQuestionAnswer, TypeTemplateGeneration:
		return t, nil
	default:
		return "", fmt.Errorf("%w: unknown analysis type %q", ErrInvalidInput, raw)
	}
}

// Status is the lifecycle state of an analysis.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusRunning   Status = "RUNNING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Importance ranks extracted clauses.
type Importance string

const (
	ImportanceLow      Importance = "LOW"
	ImportanceMedium   Importance = "MEDIUM"
	ImportanceHigh     Importance = "HIGH"
	ImportanceCritical Importance = "CRITICAL"
)

// ParseImportance maps model output onto a level, defaulting to MEDIUM.
func ParseImportance(raw string) Importance {
	switch i := Importance(strings.ToUpper(strings.TrimSpace(raw))); i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh, ImportanceCritical:
		return i
	default:
		return ImportanceMedium
	}
}

func (i Importance) rank() int {
	switch i {
	case ImportanceCritical:
		return 4
	case ImportanceHigh:
		return 3
	case ImportanceMedium:
		return 2
	case ImportanceLow:
		return 1
	}
	return 0
}

// Analysis is one AI-backed request against a document, or a standalone
// template request when DocumentID is empty.
type Analysis struct {
	ID              string
	DocumentID      string
	OwnerID         string
	Type            AnalysisType
	Prompt          *string
	TemplateType    string
	Result          *string
	ConfidenceScore *float64
	Status          Status
	ErrorMessage    *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// Clause is one clause identified by a CLAUSE_EXTRACTION run.
type Clause struct {
	ID              string
	DocumentID      string
	AnalysisID      string
	ClauseType      string
	ClauseText      string
	Explanation     *string
	Importance      Importance
	ConfidenceScore float64
	Position        int
	CreatedAt       time.Time
}

// Transition moves an analysis from one status to another. The repository
// applies it only while the row is still in From.
type Transition struct {
	From       Status
	To         Status
	Result     *string
	Confidence *float64
	Error      *string
	At         time.Time
}

func (t Transition) startedAt() *time.Time {
	if t.To == StatusRunning {
		at := t.At
		return &at
	}
	return nil
}

func (t Transition) completedAt() *time.Time {
	if t.To.Terminal() {
		at := t.At
		return &at
	}
	return nil
}

func (t Transition) apply(a *Analysis) {
	a.Status = t.To
	a.Result = t.Result
	a.ConfidenceScore = t.Confidence
	a.ErrorMessage = t.Error
	a.UpdatedAt = t.At
	if s := t.startedAt(); s != nil {
		a.StartedAt = s
	}
	if c := t.completedAt(); c != nil {
		a.CompletedAt = c
	}
}
