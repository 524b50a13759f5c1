package documents

import "time"

// ProcessingStatus is the extraction lifecycle state of a document.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// Document represents an uploaded legal document owned by a user.
// ExtractedText is non-nil iff Status is COMPLETED.
type Document struct {
	ID              string
	OwnerID         string
	FileName        string
	OriginalName    string
	FileSize        int64
	ContentType     string
	StorageKey      string
	Status          ProcessingStatus
	ProcessingError *string
	ExtractedText   *string
	// HasText is derived by repositories so listings need not load the text.
	HasText   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition is a compare-and-set status change.
type Transition struct {
	From  ProcessingStatus
	To    ProcessingStatus
	Text  *string
	Error *string
	At    time.Time
}

// ListQuery selects one page of an owner's documents. Page is zero-based.
type ListQuery struct {
	Page   int
	Size   int
	Search string
}

// Page is one slice of a listing plus the total number of matches.
type Page struct {
	Items []Document
	Total int
}
