package handler

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"time"

	"fahndungsportal/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// TokenHeader carries the revalidation secret.
const TokenHeader = "X-Revalidation-Token"

// Invalidator drops cached entries by tag.
type Invalidator interface {
	InvalidateTags(tags ...string) int
}

// RevalidateRequest is the body of POST /api/revalidate.
type RevalidateRequest struct {
	Tags []string `json:"tags" validate:"required,min=1,dive,required"`
}

// RevalidateResponse is returned after a successful revalidation.
type RevalidateResponse struct {
	Revalidated bool     `json:"revalidated"`
	Tags        []string `json:"tags"`
	Now         int64    `json:"now"`
}

// RevalidateHandler invalidates cached CMS content on request of the CMS.
type RevalidateHandler struct {
	secret   string
	cache    Invalidator
	validate *validator.Validate
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRevalidateHandler creates a revalidation handler. An empty secret makes
// every request fail with 500.
func NewRevalidateHandler(secret string, cache Invalidator, logger zerolog.Logger) *RevalidateHandler {
	return &RevalidateHandler{
		secret:   secret,
		cache:    cache,
		validate: validator.New(),
		logger:   logger.With().Str("handler", "revalidate").Logger(),
		now:      time.Now,
	}
}

// Revalidate handles POST /api/revalidate.
func (h *RevalidateHandler) Revalidate(w http.ResponseWriter, r *http.Request) {
	if h.secret == "" {
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "revalidation secret is not configured", h.logger)
		return
	}

	token := r.Header.Get(TokenHeader)
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.secret)) != 1 {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid revalidation token", h.logger)
		return
	}

	var req RevalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, "tags must be a non-empty list of strings", h.logger)
		return
	}

	removed := h.cache.InvalidateTags(req.Tags...)
	h.logger.Info().Strs("tags", req.Tags).Int("removed", removed).Msg("cache revalidated")

	writeJSON(w, http.StatusOK, RevalidateResponse{
		Revalidated: true,
		Tags:        req.Tags,
		Now:         h.now().UnixMilli(),
	})
}
