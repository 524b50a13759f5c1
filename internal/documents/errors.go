package documents

import "errors"

var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrStaleStatus means a transition lost a race: the row was not in From.
	ErrStaleStatus = errors.New("document status changed concurrently")
)
