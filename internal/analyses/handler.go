package analyses

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/KimiAn12/StartUpIdea/internal/shared/server/middleware"
	"github.com/KimiAn12/StartUpIdea/internal/shared/server/respond"
	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches analysis routes to the /api/ai group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents/:id/summarize", h.summarize)
	rg.POST("/documents/:id/extract-clauses", h.extractClauses)
	rg.POST("/documents/:id/question", h.askQuestion)
	rg.GET("/documents/:id/analyses", h.listAnalyses)
	rg.GET("/documents/:id/clauses", h.listClauses)
	rg.POST("/templates/generate", h.generateTemplate)
}

func (h *Handler) summarize(c *gin.Context) {
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	a, err := h.Svc.Summarize(requestContext(c), documentID, middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	writeAnalysis(c, a)
}

func (h *Handler) extractClauses(c *gin.Context) {
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	clauses, a, err := h.Svc.ExtractClauses(requestContext(c), documentID, middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if a.Status != StatusCompleted {
		writeAnalysis(c, a)
		return
	}
	markAnalysis(c, a)
	respond.OK(c, toClauseResponses(clauses))
}

func (h *Handler) askQuestion(c *gin.Context) {
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	var req questionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	a, err := h.Svc.AskQuestion(requestContext(c), documentID, middleware.UserIDFromContext(c), req.Question)
	if err != nil {
		writeError(c, err)
		return
	}
	writeAnalysis(c, a)
}

func (h *Handler) generateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid JSON body", nil)
		return
	}
	a, err := h.Svc.GenerateTemplate(requestContext(c), middleware.UserIDFromContext(c), req.TemplateType, req.Requirements)
	if err != nil {
		writeError(c, err)
		return
	}
	writeAnalysis(c, a)
}

func (h *Handler) listAnalyses(c *gin.Context) {
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	var filter AnalysisType
	if raw := strings.TrimSpace(c.Query("analysisType")); raw != "" {
		t, err := ParseType(raw)
		if err != nil {
			writeError(c, err)
			return
		}
		filter = t
	}
	items, err := h.Svc.ListAnalyses(c.Request.Context(), documentID, middleware.UserIDFromContext(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toAnalysisResponses(items))
}

func (h *Handler) listClauses(c *gin.Context) {
	documentID := c.Param("id")
	c.Set("documentId", documentID)

	clauses, err := h.Svc.ListClauses(c.Request.Context(), documentID, middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, toClauseResponses(clauses))
}

func requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

// writeAnalysis answers 202 while the analysis is still queued.
func writeAnalysis(c *gin.Context, a Analysis) {
	markAnalysis(c, a)
	if a.Status.Terminal() {
		respond.OK(c, toAnalysisResponse(a))
		return
	}
	location := ""
	if a.DocumentID != "" {
		location = "/api/ai/documents/" + a.DocumentID + "/analyses"
	}
	respond.Accepted(c, location, toAnalysisResponse(a))
}

func markAnalysis(c *gin.Context, a Analysis) {
	c.Set("analysisId", a.ID)
	c.Set("statusTransition", "PENDING->"+string(a.Status))
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
		respond.Error(c, http.StatusBadRequest, "validation_error", msg, nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "Document not found", nil)
	case errors.Is(err, ErrDocumentNotReady):
		respond.Error(c, http.StatusConflict, "document_not_ready", "Document text is not available yet", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "analysis_in_progress", "An analysis of this type is already running for this document", nil)
	default:
		telemetry.Error("analyses.internal_error", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process analysis request", nil)
	}
}
