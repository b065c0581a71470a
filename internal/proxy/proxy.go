// Package proxy forwards browser requests under /api/typo3 to the CMS so the
// browser never talks to the CMS origin directly.
package proxy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"fahndungsportal/internal/requestid"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Prefix is the mount point of the proxy.
const Prefix = "/api/typo3"

const (
	allowMethods = "GET, POST, PUT, DELETE, OPTIONS"
	allowHeaders = "Content-Type, Authorization, Cookie, X-Request-Id"
)

// Envelope is the JSON body of every proxy-generated error.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  int    `json:"status,omitempty"`
	URL     string `json:"url,omitempty"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// Handler relays requests to the CMS base URL.
type Handler struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
}

// New creates a proxy for baseURL.
func New(baseURL string, httpClient *http.Client, logger zerolog.Logger) (*Handler, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid CMS base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Handler{
		baseURL:    u,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "typo3-proxy").Logger(),
	}, nil
}

// ServeHTTP forwards one request. It always answers with a JSON body or 204.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	setCORS(w, r)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		writeEnvelope(w, http.StatusMethodNotAllowed, Envelope{
			Error:  "method not allowed",
			Status: http.StatusMethodNotAllowed,
		})
		return
	}

	target := h.targetURL(r)
	log := h.logger.With().Str("method", r.Method).Str("target", target).Logger()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("proxy panic recovered")
			writeEnvelope(w, http.StatusInternalServerError, Envelope{
				Error:   "proxy error",
				Details: fmt.Sprint(rec),
			})
		}
	}()

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead && r.Body != nil {
		payload, err := io.ReadAll(r.Body)
		if err != nil {
			log.Warn().Err(err).Msg("failed to read request body, forwarding without body")
		} else if len(payload) > 0 {
			body = bytes.NewReader(payload)
		}
	}

	out, err := http.NewRequestWithContext(r.Context(), r.Method, target, body)
	if err != nil {
		log.Error().Err(err).Msg("failed to build upstream request")
		writeEnvelope(w, http.StatusInternalServerError, Envelope{Error: "proxy error", Details: err.Error()})
		return
	}
	out.Header.Set("Accept", "application/json")
	out.Header.Set("Content-Type", "application/json")
	out.Header.Set("Cache-Control", "no-store")
	if cookie := r.Header.Get("Cookie"); cookie != "" {
		out.Header.Set("Cookie", cookie)
	}
	if auth := r.Header.Get("Authorization"); auth != "" {
		out.Header.Set("Authorization", auth)
	}
	reqID := r.Header.Get(requestid.Header)
	if reqID == "" {
		reqID = requestid.FromContext(r.Context())
	}
	if reqID == "" {
		reqID = uuid.NewString()
	}
	out.Header.Set(requestid.Header, reqID)

	resp, err := h.httpClient.Do(out)
	if err != nil {
		if isNetworkError(err) {
			log.Warn().Err(err).Msg("CMS unreachable")
			writeEnvelope(w, http.StatusServiceUnavailable, Envelope{
				Error:   "backend unreachable",
				Details: err.Error(),
				URL:     target,
			})
			return
		}
		log.Error().Err(err).Msg("proxy request failed")
		writeEnvelope(w, http.StatusInternalServerError, Envelope{Error: "proxy error", Details: err.Error()})
		return
	}
	defer resp.Body.Close()

	for _, c := range resp.Header.Values("Set-Cookie") {
		w.Header().Add("Set-Cookie", c)
	}

	if resp.StatusCode == http.StatusNoContent {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Error().Err(err).Msg("failed to read upstream response")
		writeEnvelope(w, http.StatusInternalServerError, Envelope{Error: "proxy error", Details: err.Error()})
		return
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().Int("status", resp.StatusCode).Msg("CMS returned an error status")
		env := Envelope{
			Error:  upstreamMessage(raw, resp.StatusCode),
			Status: resp.StatusCode,
			URL:    target,
		}
		if resp.StatusCode == http.StatusNotFound {
			env.Hint = "the CMS has no route for this path; check TYPO3_BASE_URL and the requested page type"
		}
		writeEnvelope(w, resp.StatusCode, env)
		return
	}

	if !json.Valid(raw) {
		log.Error().Int("status", resp.StatusCode).Msg("CMS returned a non-JSON body")
		writeEnvelope(w, http.StatusInternalServerError, Envelope{
			Error:   "proxy error",
			Details: "upstream response is not valid JSON",
		})
		return
	}

	log.Debug().Int("status", resp.StatusCode).Msg("proxied request")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(raw)
}

// targetURL joins the base URL with the path below Prefix and copies the
// query string verbatim.
func (h *Handler) targetURL(r *http.Request) string {
	rest := strings.TrimPrefix(r.URL.EscapedPath(), Prefix)
	segments := make([]string, 0)
	for _, s := range strings.Split(rest, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}

	u := *h.baseURL
	base := strings.TrimRight(u.EscapedPath(), "/")
	joined := base + "/" + strings.Join(segments, "/")
	if p, err := url.PathUnescape(joined); err == nil {
		u.Path = p
		u.RawPath = joined
	} else {
		u.Path = joined
		u.RawPath = ""
	}
	u.RawQuery = r.URL.RawQuery
	return u.String()
}

func upstreamMessage(raw []byte, status int) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	if status == http.StatusNotFound {
		return "resource not found on CMS"
	}
	return fmt.Sprintf("CMS responded with status %d", status)
}

// isNetworkError reports dial, DNS and timeout failures, i.e. the CMS could
// not be reached at all.
func isNetworkError(err error) bool {
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(err, &opErr) || errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

func setCORS(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = "*"
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", allowMethods)
	h.Set("Access-Control-Allow-Headers", allowHeaders)
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Add("Vary", "Origin")
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	env.Success = false
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
