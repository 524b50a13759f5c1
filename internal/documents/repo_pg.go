package documents

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const documentColumns = `id, owner_id, file_name, original_name, file_size, content_type, storage_key,
       processing_status, processing_error, created_at, updated_at,
       (extracted_text IS NOT NULL AND btrim(extracted_text) <> '') AS has_text`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (
    id,
    owner_id,
    file_name,
    original_name,
    file_size,
    content_type,
    storage_key,
    processing_status,
    processing_error,
    extracted_text,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		doc.ID,
		doc.OwnerID,
		doc.FileName,
		doc.OriginalName,
		doc.FileSize,
		doc.ContentType,
		doc.StorageKey,
		string(doc.Status),
		nullString(doc.ProcessingError),
		nullString(doc.ExtractedText),
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return err
}

// Get loads one document including its extracted text.
func (r *PGRepo) Get(ctx context.Context, id, ownerID string) (Document, error) {
	query := `SELECT ` + documentColumns + `, extracted_text
FROM documents
WHERE id = $1 AND owner_id = $2`

	var doc Document
	var text sql.NullString
	row := r.DB.QueryRowContext(ctx, query, id, ownerID)
	if err := scanDocument(row, &doc, &text); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	if text.Valid {
		doc.ExtractedText = &text.String
	}
	return doc, nil
}

// List returns one page of the owner's documents, newest first, without text.
func (r *PGRepo) List(ctx context.Context, ownerID string, q ListQuery) (Page, error) {
	pattern := "%" + escapeLike(strings.TrimSpace(q.Search)) + "%"

	const countQuery = `
SELECT count(*)
FROM documents
WHERE owner_id = $1 AND original_name ILIKE $2`
	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, ownerID, pattern).Scan(&total); err != nil {
		return Page{}, err
	}

	page := Page{Items: []Document{}, Total: total}
	offset := q.Page * q.Size
	if total == 0 || offset >= total {
		return page, nil
	}

	query := `SELECT ` + documentColumns + `
FROM documents
WHERE owner_id = $1 AND original_name ILIKE $2
ORDER BY created_at DESC, id DESC
LIMIT $3 OFFSET $4`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, pattern, q.Size, offset)
	if err != nil {
		return Page{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var doc Document
		if err := scanDocument(rows, &doc, nil); err != nil {
			return Page{}, err
		}
		page.Items = append(page.Items, doc)
	}
	if err := rows.Err(); err != nil {
		return Page{}, err
	}
	return page, nil
}

// Transition applies a status change only if the row is still in t.From.
func (r *PGRepo) Transition(ctx context.Context, id string, t Transition) error {
	const query = `
UPDATE documents
SET processing_status = $3,
    extracted_text = $4,
    processing_error = $5,
    updated_at = $6
WHERE id = $1 AND processing_status = $2`

	res, err := r.DB.ExecContext(ctx, query, id, string(t.From), string(t.To), nullString(t.Text), nullString(t.Error), t.At)
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

// Delete removes the document; analyses and clauses cascade.
func (r *PGRepo) Delete(ctx context.Context, id, ownerID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, doc *Document, text *sql.NullString) error {
	var status string
	var procErr sql.NullString
	dest := []any{
		&doc.ID,
		&doc.OwnerID,
		&doc.FileName,
		&doc.OriginalName,
		&doc.FileSize,
		&doc.ContentType,
		&doc.StorageKey,
		&status,
		&procErr,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.HasText,
	}
	if text != nil {
		dest = append(dest, text)
	}
	if err := row.Scan(dest...); err != nil {
		return err
	}
	doc.Status = ProcessingStatus(status)
	if procErr.Valid {
		doc.ProcessingError = &procErr.String
	}
	return nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

var _ Repo = (*PGRepo)(nil)
