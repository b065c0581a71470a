package handler

import (
	"net/http"
	"strconv"

	"fahndungsportal/internal/model"
	"fahndungsportal/internal/service"
	"fahndungsportal/internal/typo3"

	"github.com/rs/zerolog"
)

// ListResponse is the body of GET /api/fahndungen.
type ListResponse struct {
	Meta     model.Meta           `json:"meta"`
	Items    []model.FahndungItem `json:"items"`
	Fallback bool                 `json:"fallback"`
	Reason   string               `json:"reason,omitempty"`
}

// FahndungHandler handles notice-related HTTP requests.
type FahndungHandler struct {
	service service.FahndungService
	logger  zerolog.Logger
}

// NewFahndungHandler creates a new notice handler.
func NewFahndungHandler(service service.FahndungService, logger zerolog.Logger) *FahndungHandler {
	return &FahndungHandler{
		service: service,
		logger:  logger.With().Str("handler", "fahndung").Logger(),
	}
}

// List handles GET /api/fahndungen. A CMS outage yields the fallback
// listing, never an error status.
func (h *FahndungHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intParam(q.Get("page"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid page parameter", h.logger)
		return
	}
	pageSize, err := intParam(q.Get("pageSize"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid pageSize parameter", h.logger)
		return
	}

	res, err := h.service.List(r.Context(), typo3.ListParams{
		Page:     page,
		PageSize: pageSize,
		Status:   model.FahndungStatus(q.Get("status")),
		Type:     model.FahndungType(q.Get("type")),
		Delikt:   q.Get("delikt"),
		Query:    q.Get("q"),
	})
	if err != nil {
		writeCMSError(w, r, err, h.logger)
		return
	}

	items := res.Response.Items
	if items == nil {
		items = []model.FahndungItem{}
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Meta:     res.Response.Meta,
		Items:    items,
		Fallback: res.Fallback,
		Reason:   res.Reason,
	})
}

// Get handles GET /api/fahndungen/{slug}.
func (h *FahndungHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	if slug == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "slug is required", h.logger)
		return
	}

	item, err := h.service.GetBySlug(r.Context(), slug)
	if err != nil {
		writeCMSError(w, r, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
