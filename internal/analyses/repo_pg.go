package analyses

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/KimiAn12/StartUpIdea/internal/shared/storage/db"
)

// inflightConstraint is the partial unique index allowing one PENDING or
// RUNNING analysis per (document, type).
const inflightConstraint = "document_analyses_inflight_key"

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const analysisColumns = `id, document_id, owner_id, analysis_type, prompt, template_type, result,
       confidence_score, status, error_message, created_at, updated_at, started_at, completed_at`

const clauseColumns = `id, document_id, analysis_id, clause_type, clause_text, plain_english_explanation,
       importance_level, confidence_score, position, created_at`

// Create inserts a new PENDING analysis.
func (r *PGRepo) Create(ctx context.Context, a Analysis) error {
	const query = `
INSERT INTO document_analyses (
    id,
    document_id,
    owner_id,
    analysis_type,
    prompt,
    template_type,
    status,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.ExecContext(ctx, query,
		a.ID,
		nullIfEmpty(a.DocumentID),
		a.OwnerID,
		string(a.Type),
		nullString(a.Prompt),
		nullIfEmpty(a.TemplateType),
		string(a.Status),
		a.CreatedAt,
		a.UpdatedAt,
	)
	if db.IsUniqueViolation(err, inflightConstraint) {
		return ErrConflict
	}
	return err
}

// Get returns an analysis by ID.
func (r *PGRepo) Get(ctx context.Context, id string) (Analysis, error) {
	query := `SELECT ` + analysisColumns + `
FROM document_analyses
WHERE id = $1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Analysis{}, ErrNotFound
	}
	return a, err
}

// ListByDocument returns the document's analyses newest first.
func (r *PGRepo) ListByDocument(ctx context.Context, documentID, ownerID string, t AnalysisType) ([]Analysis, error) {
	query := `SELECT ` + analysisColumns + `
FROM document_analyses
WHERE document_id = $1 AND owner_id = $2 AND ($3 = '' OR analysis_type = $3)
ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, query, documentID, ownerID, string(t))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Transition applies t only while the row is still in t.From.
func (r *PGRepo) Transition(ctx context.Context, id string, t Transition) error {
	return transitionWith(ctx, r.DB, id, t)
}

// CompleteWithClauses swaps the clause set and completes the analysis in
// one transaction; a lost race rolls both back.
func (r *PGRepo) CompleteWithClauses(ctx context.Context, id string, t Transition, documentID string, clauses []Clause) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := transitionWith(ctx, tx, id, t); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_clauses WHERE document_id = $1`, documentID); err != nil {
		return err
	}

	const insert = `
INSERT INTO extracted_clauses (
    id,
    document_id,
    analysis_id,
    clause_type,
    clause_text,
    plain_english_explanation,
    importance_level,
    confidence_score,
    position,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	for _, c := range clauses {
		if _, err := tx.ExecContext(ctx, insert,
			c.ID,
			c.DocumentID,
			c.AnalysisID,
			c.ClauseType,
			c.ClauseText,
			nullString(c.Explanation),
			string(c.Importance),
			c.ConfidenceScore,
			c.Position,
			c.CreatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListClauses returns the clause set by importance, then newest first.
func (r *PGRepo) ListClauses(ctx context.Context, documentID string) ([]Clause, error) {
	query := `SELECT ` + clauseColumns + `
FROM extracted_clauses
WHERE document_id = $1
ORDER BY CASE importance_level
             WHEN 'CRITICAL' THEN 4
             WHEN 'HIGH' THEN 3
             WHEN 'MEDIUM' THEN 2
             WHEN 'LOW' THEN 1
             ELSE 0
         END DESC,
         created_at DESC,
         position ASC`
	rows, err := r.DB.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Clause{}
	for rows.Next() {
		var c Clause
		var analysisID, explanation sql.NullString
		var importance string
		var confidence sql.NullFloat64
		if err := rows.Scan(
			&c.ID,
			&c.DocumentID,
			&analysisID,
			&c.ClauseType,
			&c.ClauseText,
			&explanation,
			&importance,
			&confidence,
			&c.Position,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		c.AnalysisID = analysisID.String
		if explanation.Valid {
			c.Explanation = &explanation.String
		}
		c.Importance = ParseImportance(importance)
		c.ConfidenceScore = confidence.Float64
		out = append(out, c)
	}
	return out, rows.Err()
}

// DeleteByDocument removes the document's clauses and analyses. The foreign
// keys already cascade; this serves callers that delete explicitly.
func (r *PGRepo) DeleteByDocument(ctx context.Context, documentID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM extracted_clauses WHERE document_id = $1`, documentID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM document_analyses WHERE document_id = $1`, documentID); err != nil {
		return err
	}
	return tx.Commit()
}

// SweepStuck fails in-flight rows not touched since cutoff.
func (r *PGRepo) SweepStuck(ctx context.Context, cutoff time.Time, message string, at time.Time) (int, error) {
	const query = `
UPDATE document_analyses
SET status = 'FAILED',
    error_message = $2,
    result = NULL,
    updated_at = $3,
    completed_at = $3
WHERE status IN ('PENDING', 'RUNNING') AND updated_at < $1`
	res, err := r.DB.ExecContext(ctx, query, cutoff, message, at)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func transitionWith(ctx context.Context, e execer, id string, t Transition) error {
	const query = `
UPDATE document_analyses
SET status = $3,
    result = $4,
    confidence_score = $5,
    error_message = $6,
    updated_at = $7,
    started_at = COALESCE($8, started_at),
    completed_at = COALESCE($9, completed_at)
WHERE id = $1 AND status = $2`

	res, err := e.ExecContext(ctx, query,
		id,
		string(t.From),
		string(t.To),
		nullString(t.Result),
		nullFloat(t.Confidence),
		nullString(t.Error),
		t.At,
		nullTime(t.startedAt()),
		nullTime(t.completedAt()),
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrStaleStatus
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var documentID, prompt, templateType, result, errMsg sql.NullString
	var analysisType, status string
	var confidence sql.NullFloat64
	var startedAt, completedAt sql.NullTime
	if err := row.Scan(
		&a.ID,
		&documentID,
		&a.OwnerID,
		&analysisType,
		&prompt,
		&templateType,
		&result,
		&confidence,
		&status,
		&errMsg,
		&a.CreatedAt,
		&a.UpdatedAt,
		&startedAt,
		&completedAt,
	); err != nil {
		return Analysis{}, err
	}
	a.DocumentID = documentID.String
	a.Type = AnalysisType(analysisType)
	a.TemplateType = templateType.String
	a.Status = Status(status)
	if prompt.Valid {
		a.Prompt = &prompt.String
	}
	if result.Valid {
		a.Result = &result.String
	}
	if errMsg.Valid {
		a.ErrorMessage = &errMsg.String
	}
	if confidence.Valid {
		a.ConfidenceScore = &confidence.Float64
	}
	if startedAt.Valid {
		a.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	return a, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
