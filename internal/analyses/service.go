package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KimiAn12/StartUpIdea/internal/documents"
	"github.com/KimiAn12/StartUpIdea/internal/llm"
	"github.com/KimiAn12/StartUpIdea/internal/shared/metrics"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

const (
	DefaultTimeout = 60 * time.Second

	maxQuestionChars     = 2000
	maxRequirementsChars = 10000
	maxTemplateTypeChars = 100
	maxErrorLength       = 500

	timedOutMessage = "analysis timed out"
)

// DocumentReader loads an owner's document including its extracted text.
type DocumentReader interface {
	Get(ctx context.Context, id, ownerID string) (documents.Document, error)
}

// Dispatcher hands a PENDING analysis to something that will run it later.
type Dispatcher interface {
	Dispatch(ctx context.Context, analysisID string) error
}

// Service contains business logic for analyses.
type Service struct {
	Repo      Repo
	Documents DocumentReader
	LLM       llm.Client

	// Dispatcher is nil in sync mode: requests wait for the terminal state.
	Dispatcher       Dispatcher
	MaxDocumentChars int
	Timeout          time.Duration
	Now              func() time.Time
}

// Summarize produces a plain-English summary of a document.
func (s *Service) Summarize(ctx context.Context, documentID, ownerID string) (Analysis, error) {
	doc, err := s.readyDocument(ctx, documentID, ownerID)
	if err != nil {
		return Analysis{}, err
	}
	a, err := s.start(ctx, ownerID, documentID, TypeSummary, nil, "")
	if err != nil {
		return Analysis{}, err
	}
	return s.run(ctx, a, deref(doc.ExtractedText))
}

// ExtractClauses identifies key clauses and replaces the document's clause
// set. Clauses are returned only when the analysis completed.
func (s *Service) ExtractClauses(ctx context.Context, documentID, ownerID string) ([]Clause, Analysis, error) {
	doc, err := s.readyDocument(ctx, documentID, ownerID)
	if err != nil {
		return nil, Analysis{}, err
	}
	a, err := s.start(ctx, ownerID, documentID, TypeClauseExtraction, nil, "")
	if err != nil {
		return nil, Analysis{}, err
	}
	a, err = s.run(ctx, a, deref(doc.ExtractedText))
	if err != nil || a.Status != StatusCompleted {
		return nil, a, err
	}
	clauses, err := s.Repo.ListClauses(ctx, documentID)
	if err != nil {
		return nil, a, fmt.Errorf("list clauses: %w", err)
	}
	return clauses, a, nil
}

// AskQuestion answers a question using only the document's text.
func (s *Service) AskQuestion(ctx context.Context, documentID, ownerID, question string) (Analysis, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Analysis{}, fmt.Errorf("%w: question is required", ErrInvalidInput)
	}
	if len([]rune(question)) > maxQuestionChars {
		return Analysis{}, fmt.Errorf("%w: question must be at most %d characters", ErrInvalidInput, maxQuestionChars)
	}
	doc, err := s.readyDocument(ctx, documentID, ownerID)
	if err != nil {
		return Analysis{}, err
	}
	a, err := s.start(ctx, ownerID, documentID, TypeQuestionAnswer, &question, "")
	if err != nil {
		return Analysis{}, err
	}
	return s.run(ctx, a, deref(doc.ExtractedText))
}

// GenerateTemplate drafts a legal template; it has no document.
func (s *Service) GenerateTemplate(ctx context.Context, ownerID, templateType, requirements string) (Analysis, error) {
	templateType = strings.TrimSpace(templateType)
	requirements = strings.TrimSpace(requirements)
	switch {
	case templateType == "":
		return Analysis{}, fmt.Errorf("%w: templateType is required", ErrInvalidInput)
	case requirements == "":
		return Analysis{}, fmt.Errorf("%w: requirements are required", ErrInvalidInput)
	case len([]rune(templateType)) > maxTemplateTypeChars:
		return Analysis{}, fmt.Errorf("%w: templateType must be at most %d characters", ErrInvalidInput, maxTemplateTypeChars)
	case len([]rune(requirements)) > maxRequirementsChars:
		return Analysis{}, fmt.Errorf("%w: requirements must be at most %d characters", ErrInvalidInput, maxRequirementsChars)
	}
	a, err := s.start(ctx, ownerID, "", TypeTemplateGeneration, &requirements, templateType)
	if err != nil {
		return Analysis{}, err
	}
	return s.run(ctx, a, "")
}

// ListAnalyses returns a document's analyses newest first.
func (s *Service) ListAnalyses(ctx context.Context, documentID, ownerID string, t AnalysisType) ([]Analysis, error) {
	if _, err := s.document(ctx, documentID, ownerID); err != nil {
		return nil, err
	}
	return s.Repo.ListByDocument(ctx, documentID, ownerID, t)
}

// ListClauses returns the latest clause set, most important first.
func (s *Service) ListClauses(ctx context.Context, documentID, ownerID string) ([]Clause, error) {
	if _, err := s.document(ctx, documentID, ownerID); err != nil {
		return nil, err
	}
	return s.Repo.ListClauses(ctx, documentID)
}

// ProcessAnalysis runs a PENDING analysis to a terminal state. Rows that are
// already past PENDING are skipped, so redelivered jobs are harmless.
func (s *Service) ProcessAnalysis(ctx context.Context, analysisID string) error {
	a, err := s.Repo.Get(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("load analysis %s: %w", analysisID, err)
	}
	if a.Status != StatusPending {
		telemetry.Info("analysis.skip", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"analysis_id": a.ID,
			"status":      string(a.Status),
		})
		return nil
	}

	var text string
	if a.DocumentID != "" {
		doc, err := s.Documents.Get(ctx, a.DocumentID, a.OwnerID)
		if err != nil {
			if errors.Is(err, documents.ErrNotFound) {
				s.fail(ctx, &a, StatusPending, "document is no longer available")
				return nil
			}
			return fmt.Errorf("load document %s: %w", a.DocumentID, err)
		}
		text = deref(doc.ExtractedText)
	}

	_, err = s.execute(ctx, a, text)
	return err
}

func (s *Service) document(ctx context.Context, documentID, ownerID string) (documents.Document, error) {
	if strings.TrimSpace(documentID) == "" {
		return documents.Document{}, ErrNotFound
	}
	doc, err := s.Documents.Get(ctx, documentID, ownerID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return documents.Document{}, ErrNotFound
		}
		return documents.Document{}, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

func (s *Service) readyDocument(ctx context.Context, documentID, ownerID string) (documents.Document, error) {
	doc, err := s.document(ctx, documentID, ownerID)
	if err != nil {
		return documents.Document{}, err
	}
	if doc.Status != documents.StatusCompleted || !doc.HasText {
		return documents.Document{}, ErrDocumentNotReady
	}
	return doc, nil
}

// start records the PENDING row.
func (s *Service) start(ctx context.Context, ownerID, documentID string, t AnalysisType, prompt *string, templateType string) (Analysis, error) {
	now := s.now()
	a := Analysis{
		ID:           uuid.NewString(),
		DocumentID:   documentID,
		OwnerID:      ownerID,
		Type:         t,
		Prompt:       prompt,
		TemplateType: templateType,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrConflict) {
			metrics.IncAnalysisConflict()
			telemetry.Info("analysis.conflict", map[string]any{
				"request_id":    RequestIDFromContext(ctx),
				"document_id":   documentID,
				"analysis_type": string(t),
			})
			return Analysis{}, ErrConflict
		}
		return Analysis{}, fmt.Errorf("create analysis: %w", err)
	}
	metrics.IncAnalysisStarted(string(t))
	telemetry.Info("analysis.status", map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           ownerID,
		"document_id":       documentID,
		"analysis_id":       a.ID,
		"analysis_type":     string(t),
		"status":            string(StatusPending),
		"status_transition": "->PENDING",
	})
	return a, nil
}

// run executes inline or hands the row to the dispatcher.
func (s *Service) run(ctx context.Context, a Analysis, documentText string) (Analysis, error) {
	if s.Dispatcher == nil {
		return s.execute(ctx, a, documentText)
	}
	if err := s.Dispatcher.Dispatch(ctx, a.ID); err != nil {
		s.fail(ctx, &a, StatusPending, "failed to queue analysis")
		return Analysis{}, fmt.Errorf("dispatch analysis %s: %w", a.ID, err)
	}
	return a, nil
}

// execute drives a PENDING analysis through RUNNING to a terminal state.
// Gateway and parse failures end as a FAILED row, not an error.
func (s *Service) execute(ctx context.Context, a Analysis, documentText string) (Analysis, error) {
	// The request may go away; the row must still reach a terminal state.
	bg := context.WithoutCancel(ctx)
	prompt := buildPrompt(a, documentText, s.MaxDocumentChars)

	if err := s.transition(bg, &a, Transition{From: StatusPending, To: StatusRunning}); err != nil {
		return s.current(bg, a, err)
	}
	if s.LLM == nil {
		s.fail(bg, &a, StatusRunning, "AI service is not configured")
		return a, nil
	}

	callCtx, cancel := context.WithTimeout(bg, s.timeout())
	defer cancel()
	client := newRetryingLLM(s.LLM, a.ID, RequestIDFromContext(ctx))
	output, err := client.Complete(callCtx, prompt)
	if err != nil {
		s.fail(bg, &a, StatusRunning, gatewayMessage(err))
		return a, nil
	}
	output = strings.TrimSpace(output)

	if a.Type != TypeClauseExtraction {
		if err := s.transition(bg, &a, Transition{From: StatusRunning, To: StatusCompleted, Result: &output}); err != nil {
			return s.current(bg, a, err)
		}
		s.completed(a)
		return a, nil
	}

	parsed, confidence, err := parseClauses(output)
	if err != nil {
		s.fail(bg, &a, StatusRunning, "Failed to parse clause extraction output: "+err.Error())
		return a, nil
	}
	t := Transition{From: StatusRunning, To: StatusCompleted, Result: &output, Confidence: &confidence, At: s.now()}
	clauses := make([]Clause, 0, len(parsed))
	for i, p := range parsed {
		c := Clause{
			ID:              uuid.NewString(),
			DocumentID:      a.DocumentID,
			AnalysisID:      a.ID,
			ClauseType:      p.ClauseType,
			ClauseText:      p.ClauseText,
			Importance:      p.Importance,
			ConfidenceScore: confidence,
			Position:        i,
			CreatedAt:       t.At,
		}
		if p.Explanation != "" {
			explanation := p.Explanation
			c.Explanation = &explanation
		}
		clauses = append(clauses, c)
	}
	if err := s.Repo.CompleteWithClauses(bg, a.ID, t, a.DocumentID, clauses); err != nil {
		return s.current(bg, a, err)
	}
	t.apply(&a)
	s.logTransition(bg, a, t)
	s.completed(a)
	return a, nil
}

// current resolves a failed write. A lost race is not an error: the row is
// returned as the other writer left it.
func (s *Service) current(ctx context.Context, a Analysis, err error) (Analysis, error) {
	if !errors.Is(err, ErrStaleStatus) {
		return Analysis{}, fmt.Errorf("analysis %s: %w", a.ID, err)
	}
	latest, getErr := s.Repo.Get(ctx, a.ID)
	if getErr != nil {
		return Analysis{}, fmt.Errorf("analysis %s: %w", a.ID, getErr)
	}
	telemetry.Warn("analysis.stale_status", map[string]any{
		"analysis_id": a.ID,
		"expected":    string(a.Status),
		"actual":      string(latest.Status),
	})
	return latest, nil
}

func (s *Service) transition(ctx context.Context, a *Analysis, t Transition) error {
	t.At = s.now()
	if err := s.Repo.Transition(ctx, a.ID, t); err != nil {
		return err
	}
	t.apply(a)
	s.logTransition(ctx, *a, t)
	return nil
}

// fail records a FAILED state. Write errors are logged; the caller already
// has a failure to report.
func (s *Service) fail(ctx context.Context, a *Analysis, from Status, reason string) {
	msg := sanitizeError(reason)
	if err := s.transition(context.WithoutCancel(ctx), a, Transition{From: from, To: StatusFailed, Error: &msg}); err != nil {
		telemetry.Error("analysis.fail_write_failed", map[string]any{
			"analysis_id": a.ID,
			"error":       err.Error(),
			"reason":      msg,
		})
		return
	}
	metrics.IncAnalysisFailed(string(a.Type))
	s.observeDuration(*a)
}

func (s *Service) completed(a Analysis) {
	metrics.IncAnalysisCompleted(string(a.Type))
	s.observeDuration(a)
}

func (s *Service) observeDuration(a Analysis) {
	if a.StartedAt != nil && a.CompletedAt != nil {
		metrics.ObserveAnalysisDurationMs(float64(a.CompletedAt.Sub(*a.StartedAt).Microseconds()) / 1000.0)
	}
}

func (s *Service) logTransition(ctx context.Context, a Analysis, t Transition) {
	fields := map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           a.OwnerID,
		"document_id":       a.DocumentID,
		"analysis_id":       a.ID,
		"analysis_type":     string(a.Type),
		"status":            string(t.To),
		"status_transition": string(t.From) + "->" + string(t.To),
	}
	if t.Error != nil {
		fields["error"] = *t.Error
	}
	if t.To.Terminal() && a.StartedAt != nil {
		fields["duration_ms"] = float64(t.At.Sub(*a.StartedAt).Microseconds()) / 1000.0
	}
	telemetry.Info("analysis.status", fields)
}

func (s *Service) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return DefaultTimeout
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func gatewayMessage(err error) string {
	switch {
	case errors.Is(err, llm.ErrTimeout):
		return "AI service timed out: " + err.Error()
	case errors.Is(err, llm.ErrNotImplemented):
		return "AI service is not configured: " + err.Error()
	case errors.Is(err, llm.ErrMalformedResponse):
		return "AI service returned an unusable response: " + err.Error()
	default:
		return "AI service error: " + err.Error()
	}
}

func sanitizeError(msg string) string {
	msg = strings.Join(strings.Fields(msg), " ")
	if len(msg) > maxErrorLength {
		msg = strings.ToValidUTF8(msg[:maxErrorLength], "")
	}
	return msg
}
