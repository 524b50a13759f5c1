package documents

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KimiAn12/StartUpIdea/internal/shared/server/middleware"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server/respond"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// Multipart framing on top of the file itself.
const multipartOverhead = 1 << 20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the /api/documents group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload", h.upload)
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.DELETE("/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+multipartOverhead)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "validation_error", "File size exceeds maximum allowed size of 50MB", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "Please select a file to upload", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	doc, err := h.Svc.Create(c.Request.Context(), userID, Upload{
		FileName:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Size:        fileHeader.Size,
		Body:        file,
	})
	if err != nil {
		writeError(c, err, "failed to upload document")
		return
	}
	c.Set("documentId", doc.ID)
	c.Set("statusTransition", "PENDING->"+string(doc.Status))

	respond.OK(c, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	q := ListQuery{
		Page:   queryInt(c, "page", 0),
		Size:   queryInt(c, "size", DefaultPageSize),
		Search: c.Query("search"),
	}
	page, err := h.Svc.List(c.Request.Context(), userID, q)
	if err != nil {
		writeError(c, err, "failed to list documents")
		return
	}
	// Echo the clamped values in the envelope.
	if q.Page < 0 {
		q.Page = 0
	}
	q.Size = clampSize(q.Size)

	respond.OK(c, toPageResponse(page, q))
}

func (h *Handler) get(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		writeError(c, err, "failed to fetch document")
		return
	}
	c.Set("documentId", doc.ID)
	respond.OK(c, toResponse(doc))
}

func (h *Handler) delete(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	id := c.Param("id")
	if err := h.Svc.Delete(c.Request.Context(), id, userID); err != nil {
		writeError(c, err, "failed to delete document")
		return
	}
	c.Set("documentId", id)
	respond.Message(c, http.StatusOK, "Document deleted successfully")
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
		respond.Error(c, http.StatusBadRequest, "validation_error", msg, nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	default:
		telemetry.Error("documents.internal_error", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"error":      err.Error(),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func clampSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	return min(size, MaxPageSize)
}
