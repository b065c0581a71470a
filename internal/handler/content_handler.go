package handler

import (
	"net/http"

	"fahndungsportal/internal/model"
	"fahndungsportal/internal/service"

	"github.com/rs/zerolog"
)

// ContentHandler serves structural CMS content.
type ContentHandler struct {
	service service.ContentService
	logger  zerolog.Logger
}

// NewContentHandler creates a new content handler.
func NewContentHandler(service service.ContentService, logger zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		service: service,
		logger:  logger.With().Str("handler", "content").Logger(),
	}
}

// Navigation handles GET /api/navigation.
func (h *ContentHandler) Navigation(w http.ResponseWriter, r *http.Request) {
	nav, err := h.service.Navigation(r.Context())
	if err != nil {
		writeCMSError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

// Page handles GET /api/pages/{slug}.
func (h *ContentHandler) Page(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "slug is required", h.logger)
		return
	}

	page, err := h.service.Page(r.Context(), slug)
	if err != nil {
		writeCMSError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CMSHealth handles GET /api/health/cms.
func (h *ContentHandler) CMSHealth(w http.ResponseWriter, r *http.Request) {
	health, err := h.service.Health(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("CMS health check failed")
		writeJSON(w, http.StatusServiceUnavailable, model.ErrorResponse{
			Error:   model.ErrCodeUnavailable,
			Message: err.Error(),
			Retry:   true,
		})
		return
	}
	writeJSON(w, http.StatusOK, health)
}
