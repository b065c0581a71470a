// Package typo3 talks to the TYPO3 CMS that backs the portal.
//
// Transport issues single JSON requests and turns every failure into a
// *model.APIError. Client builds the CMS requests on top of it, normalizes the
// loosely typed responses and decides when listings fall back to the built-in
// dataset.
package typo3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fahndungsportal/internal/model"
	"fahndungsportal/internal/requestid"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultTimeout is applied when FetchOptions.Timeout is zero.
const DefaultTimeout = 8000 * time.Millisecond

// FetchOptions configures one request.
type FetchOptions struct {
	Method  string
	Headers map[string]string
	Query   url.Values
	// Body is marshalled to JSON when non-nil.
	Body      any
	Timeout   time.Duration
	RequestID string
	// ResponseHeader, when non-nil, receives the upstream response headers.
	ResponseHeader http.Header
}

// Transport sends JSON requests to the CMS base URL.
type Transport struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewTransport creates a transport for the given base URL.
// A nil httpClient uses a client without its own timeout; deadlines come from
// FetchOptions.Timeout.
func NewTransport(baseURL string, httpClient *http.Client, logger zerolog.Logger) (*Transport, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid CMS base URL %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Transport{
		baseURL:    u,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "typo3-transport").Logger(),
	}, nil
}

// BaseURL returns the configured CMS base URL.
func (t *Transport) BaseURL() string {
	return t.baseURL.String()
}

// Fetch performs a request and decodes the JSON response into a T.
func Fetch[T any](ctx context.Context, t *Transport, path string, opts FetchOptions) (T, error) {
	var out T
	if err := t.Do(ctx, path, opts, &out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

// Do performs exactly one request and decodes a 2xx JSON body into out.
// Every returned error is a *model.APIError.
func (t *Transport) Do(ctx context.Context, path string, opts FetchOptions, out any) error {
	requestID := opts.RequestID
	if requestID == "" {
		requestID = requestid.FromContext(ctx)
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}

	method, err := normalizeMethod(opts.Method)
	if err != nil {
		return model.NewAPIError(err.Error(), model.WithRequestID(requestID))
	}

	target, err := t.resolve(path, opts.Query)
	if err != nil {
		return model.NewAPIError(err.Error(), model.WithRequestID(requestID), model.WithCause(err))
	}

	var body io.Reader
	if opts.Body != nil {
		payload, err := json.Marshal(opts.Body)
		if err != nil {
			return model.NewAPIError("failed to encode request body",
				model.WithRequestID(requestID), model.WithURL(target), model.WithCause(err))
		}
		body = bytes.NewReader(payload)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return model.NewAPIError("failed to build request",
			model.WithRequestID(requestID), model.WithURL(target), model.WithCause(err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	req.Header.Set(requestid.Header, requestID)
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	log := t.logger.With().
		Str("method", method).
		Str("url", target).
		Str("request_id", requestID).
		Logger()

	apiErr := t.roundTrip(reqCtx, req, out, opts.ResponseHeader, requestID, target)
	if apiErr != nil {
		log.Warn().
			Str("code", string(apiErr.Code)).
			Int("status", apiErr.Status).
			Dur("duration", time.Since(start)).
			Msg(apiErr.Message)
		return apiErr
	}

	log.Debug().Dur("duration", time.Since(start)).Msg("cms request succeeded")
	return nil
}

func (t *Transport) roundTrip(ctx context.Context, req *http.Request, out any, header http.Header, requestID, target string) *model.APIError {
	common := []model.APIErrorOption{model.WithRequestID(requestID), model.WithURL(target)}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(ctx, err, common)
	}
	defer resp.Body.Close()

	if header != nil {
		for k, vs := range resp.Header {
			header[k] = append(header[k], vs...)
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return classifyTransportError(ctx, err, common)
		}
		return model.NewAPIError("failed to read response body",
			append(common, model.WithCode(model.CodeUnknown), model.WithStatus(resp.StatusCode), model.WithCause(err))...)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := string(raw)
		opts := append(common,
			model.WithCode(model.CodeHTTP),
			model.WithStatus(resp.StatusCode),
			model.WithCause(errors.New(text)),
		)
		message := fmt.Sprintf("CMS responded with status %d", resp.StatusCode)
		var detail any
		if len(raw) > 0 && json.Unmarshal(raw, &detail) == nil {
			opts = append(opts, model.WithDetails(detail))
			if m, ok := detail.(map[string]any); ok {
				if msg, ok := m["error"].(string); ok && msg != "" {
					message = fmt.Sprintf("%s: %s", message, msg)
				}
			}
		}
		return model.NewAPIError(message, opts...)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return model.NewAPIError("failed to parse CMS response as JSON",
			append(common, model.WithCode(model.CodeJSONParse), model.WithStatus(resp.StatusCode), model.WithCause(err))...)
	}
	return nil
}

// classifyTransportError maps errors raised before a response was available.
func classifyTransportError(ctx context.Context, err error, common []model.APIErrorOption) *model.APIError {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.NewAPIError("CMS request timed out",
			append(common, model.WithCode(model.CodeTimeout), model.WithStatus(http.StatusGatewayTimeout), model.WithCause(err))...)
	}

	// http.Client wraps everything in *url.Error, which itself satisfies
	// net.Error, so only the wrapped cause is inspected.
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}

	var netErr net.Error
	var opErr *net.OpError
	var dnsErr *net.DNSError
	if errors.As(cause, &opErr) || errors.As(cause, &dnsErr) || errors.As(cause, &netErr) ||
		errors.Is(cause, io.EOF) || errors.Is(cause, io.ErrUnexpectedEOF) {
		return model.NewAPIError("CMS is unreachable",
			append(common, model.WithCode(model.CodeNetwork), model.WithCause(err))...)
	}

	return model.NewAPIError("unexpected error calling CMS",
		append(common, model.WithCode(model.CodeUnknown), model.WithCause(err))...)
}

func (t *Transport) resolve(path string, query url.Values) (string, error) {
	var u *url.URL
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		parsed, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("invalid request URL %q: %w", path, err)
		}
		u = parsed
	} else {
		ref, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("invalid request path %q: %w", path, err)
		}
		u = &url.URL{
			Scheme:   t.baseURL.Scheme,
			User:     t.baseURL.User,
			Host:     t.baseURL.Host,
			Path:     joinPath(t.baseURL.Path, ref.Path),
			RawQuery: ref.RawQuery,
		}
	}

	if len(query) > 0 {
		merged := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		u.RawQuery = merged.Encode()
	}
	return u.String(), nil
}

func joinPath(base, p string) string {
	base = strings.TrimRight(base, "/")
	p = strings.TrimLeft(p, "/")
	if p == "" {
		if base == "" {
			return "/"
		}
		return base + "/"
	}
	return base + "/" + p
}

func normalizeMethod(m string) (string, error) {
	if m == "" {
		return http.MethodGet, nil
	}
	m = strings.ToUpper(m)
	switch m {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return m, nil
	}
	return "", fmt.Errorf("unsupported HTTP method %q", m)
}
