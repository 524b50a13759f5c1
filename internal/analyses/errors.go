package analyses

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDocumentNotReady = errors.New("document text is not available")
	ErrConflict         = errors.New("analysis already in progress")
	// ErrStaleStatus means another writer moved the row first.
	ErrStaleStatus = errors.New("analysis status changed concurrently")
)
