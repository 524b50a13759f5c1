package documents

import "time"

// DocumentResponse is the outward-facing representation of a document.
type DocumentResponse struct {
	ID               string    `json:"id"`
	FileName         string    `json:"fileName"`
	OriginalName     string    `json:"originalName"`
	FileSize         int64     `json:"fileSize"`
	ContentType      string    `json:"contentType"`
	ProcessingStatus string    `json:"processingStatus"`
	ProcessingError  *string   `json:"processingError"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	HasExtractedText bool      `json:"hasExtractedText"`
}

// PageResponse is the paginated listing envelope the front-end expects.
type PageResponse struct {
	Content          []DocumentResponse `json:"content"`
	TotalPages       int                `json:"totalPages"`
	TotalElements    int                `json:"totalElements"`
	Number           int                `json:"number"`
	Size             int                `json:"size"`
	NumberOfElements int                `json:"numberOfElements"`
	First            bool               `json:"first"`
	Last             bool               `json:"last"`
	Empty            bool               `json:"empty"`
}

func toResponse(doc Document) DocumentResponse {
	return DocumentResponse{
		ID:               doc.ID,
		FileName:         doc.FileName,
		OriginalName:     doc.OriginalName,
		FileSize:         doc.FileSize,
		ContentType:      doc.ContentType,
		ProcessingStatus: string(doc.Status),
		ProcessingError:  doc.ProcessingError,
		CreatedAt:        doc.CreatedAt,
		UpdatedAt:        doc.UpdatedAt,
		HasExtractedText: doc.HasText,
	}
}

func toPageResponse(p Page, q ListQuery) PageResponse {
	content := make([]DocumentResponse, 0, len(p.Items))
	for _, doc := range p.Items {
		content = append(content, toResponse(doc))
	}
	totalPages := 0
	if q.Size > 0 {
		totalPages = (p.Total + q.Size - 1) / q.Size
	}
	return PageResponse{
		Content:          content,
		TotalPages:       totalPages,
		TotalElements:    p.Total,
		Number:           q.Page,
		Size:             q.Size,
		NumberOfElements: len(content),
		First:            q.Page == 0,
		Last:             q.Page >= totalPages-1,
		Empty:            len(content) == 0,
	}
}
