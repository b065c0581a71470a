package handler

import (
	"encoding/json"
	"net/http"

	"fahndungsportal/internal/model"
	"fahndungsportal/internal/requestid"

	"github.com/rs/zerolog"
)

const msgUnavailable = "service currently unavailable, retry later"

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{
		Error:     code,
		Message:   message,
		RequestID: requestid.FromContext(r.Context()),
	})
}

// writeCMSError renders a failed CMS call: 404 for missing content, 503 with a
// retry hint when the CMS is down, 500 otherwise.
func writeCMSError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	resp := model.ErrorResponse{RequestID: requestid.FromContext(r.Context())}
	if apiErr, ok := model.AsAPIError(err); ok && apiErr.RequestID != "" {
		resp.RequestID = apiErr.RequestID
	}

	var status int
	switch {
	case model.IsNotFound(err):
		status = http.StatusNotFound
		resp.Error = model.ErrCodeNotFound
		resp.Message = "not found"
		logger.Debug().Err(err).Msg("content not found")
	case model.IsServerSide(err):
		status = http.StatusServiceUnavailable
		resp.Error = model.ErrCodeUnavailable
		resp.Message = msgUnavailable
		resp.Retry = true
		logger.Warn().Err(err).Msg("CMS unavailable")
	default:
		status = http.StatusInternalServerError
		resp.Error = model.ErrCodeInternalError
		resp.Message = "unexpected error"
		resp.Retry = true
		logger.Error().Err(err).Msg("unexpected CMS error")
	}
	writeJSON(w, status, resp)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
