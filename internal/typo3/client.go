package typo3

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fahndungsportal/internal/model"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/spf13/cast"
)

// CMS page types. Each selects a predefined JSON rendering in the TYPO3 site.
const (
	pageTypeFahndungen = "10000"
	pageTypeNavigation = "834"
	pageTypePage       = "835"
	pageTypeSession    = "836"
	pageTypeHealth     = "837"
)

const (
	fahndungenPath = "/fahndungen"
	sessionPath    = "/api/session"
	actionParam    = "tx_fahndungen_api[action]"
	uidParam       = "tx_fahndungen_api[uid]"
)

// ListParams filters and paginates a listing. Zero values are not sent.
type ListParams struct {
	Page     int
	PageSize int
	Status   model.FahndungStatus
	Type     model.FahndungType
	Delikt   string
	Query    string
}

// ListResult is a listing together with how it was obtained.
type ListResult struct {
	Response model.FahndungenResponse
	// Fallback is true when Response holds the fallback dataset.
	Fallback bool
	// Reason explains why the fallback was used.
	Reason string
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// ForceMock serves the fallback dataset without contacting the CMS.
	ForceMock bool
	// Fallback is the dataset substituted for failed or empty listings.
	Fallback []model.FahndungItem
	// Timeout overrides the per-request timeout.
	Timeout time.Duration
}

// Client exposes the CMS capabilities as typed methods.
type Client struct {
	transport *Transport
	cfg       ClientConfig
	validate  *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewClient creates a CMS client.
func NewClient(transport *Transport, cfg ClientConfig, logger zerolog.Logger) *Client {
	return &Client{
		transport: transport,
		cfg:       cfg,
		validate:  validator.New(),
		logger:    logger.With().Str("component", "typo3-client").Logger(),
		now:       time.Now,
	}
}

// ListFahndungen returns a listing page. Upstream failures and empty results
// are not returned as errors: the fallback dataset is substituted instead.
func (c *Client) ListFahndungen(ctx context.Context, params ListParams) (*ListResult, error) {
	if c.cfg.ForceMock {
		c.logger.Info().Msg("mock mode enabled, serving fallback dataset")
		return c.fallbackResult("mock mode"), nil
	}

	query := buildQuery(map[string]any{
		"type":         pageTypeFahndungen,
		actionParam:    "list",
		"page":         params.Page,
		"pageSize":     params.PageSize,
		"status":       string(params.Status),
		"fahndungType": string(params.Type),
		"delikt":       params.Delikt,
		"q":            params.Query,
	})

	var raw any
	err := c.transport.Do(ctx, fahndungenPath, c.options(FetchOptions{Query: query}), &raw)

	var resp model.FahndungenResponse
	if err == nil {
		resp = normalizeResponse(raw, c.now())
	}

	if use, reason := fallbackPolicy(resp.Items, err); use {
		ev := c.logger.Warn().Str("reason", reason)
		if err != nil {
			ev = ev.Err(err)
		}
		ev.Msg("substituting fallback dataset for listing")
		return c.fallbackResult(reason), nil
	}

	c.logger.Debug().
		Int("count", len(resp.Items)).
		Int("total", resp.Meta.Total).
		Msg("listing retrieved")
	return &ListResult{Response: resp}, nil
}

// fallbackPolicy decides whether a listing is replaced by the fallback
// dataset. Failed calls and calls yielding no items both trigger it.
func fallbackPolicy(items []model.FahndungItem, err error) (bool, string) {
	if err != nil {
		return true, "upstream error"
	}
	if len(items) == 0 {
		return true, "empty listing"
	}
	return false, ""
}

func (c *Client) fallbackResult(reason string) *ListResult {
	items := make([]model.FahndungItem, len(c.cfg.Fallback))
	copy(items, c.cfg.Fallback)
	for i := range items {
		if items[i].Image != nil {
			img := *items[i].Image
			items[i].Image = &img
		}
	}
	return &ListResult{
		Response: model.FahndungenResponse{
			Meta: model.Meta{
				Total:       len(items),
				Page:        1,
				PageSize:    len(items),
				LastUpdated: c.now().Unix(),
			},
			Items: items,
		},
		Fallback: true,
		Reason:   reason,
	}
}

// GetFahndungBySlug loads a single notice for its detail page. Errors are
// returned to the caller; a response without an item is reported as a 404.
func (c *Client) GetFahndungBySlug(ctx context.Context, slug string) (*model.FahndungItem, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, model.NewAPIError("slug is required")
	}
	path := fahndungenPath + "/" + url.PathEscape(slug)
	return c.getItem(ctx, path, url.Values{"type": {pageTypeFahndungen}})
}

// GetFahndungByID loads a single notice by its numeric uid.
func (c *Client) GetFahndungByID(ctx context.Context, id int) (*model.FahndungItem, error) {
	if id <= 0 {
		return nil, model.NewAPIError("id must be positive")
	}
	query := buildQuery(map[string]any{
		"type":      pageTypeFahndungen,
		actionParam: "show",
		uidParam:    id,
	})
	return c.getItem(ctx, fahndungenPath, query)
}

func (c *Client) getItem(ctx context.Context, path string, query url.Values) (*model.FahndungItem, error) {
	var raw any
	if err := c.transport.Do(ctx, path, c.options(FetchOptions{Query: query}), &raw); err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("failed to load fahndung")
		return nil, err
	}

	m := unwrapItem(raw)
	if m == nil {
		c.logger.Info().Str("path", path).Msg("fahndung not found")
		return nil, model.NewAPIError("fahndung not found",
			model.WithCode(model.CodeHTTP), model.WithStatus(http.StatusNotFound))
	}
	item, ok := normalizeItem(m)
	if !ok {
		return nil, model.NewAPIError("fahndung has no valid id", model.WithCode(model.CodeSchemaParse))
	}
	return &item, nil
}

// unwrapItem accepts {item: {...}}, {data: {...}}, {data: [{...}]} or the item
// itself. An object with an error key and no id is treated as missing.
func unwrapItem(raw any) map[string]any {
	m := findItem(raw)
	if _, isError := m["error"]; isError && firstPresent(m, "id", "uid") == nil {
		return nil
	}
	return m
}

func findItem(raw any) map[string]any {
	switch v := raw.(type) {
	case map[string]any:
		for _, key := range []string{"item", "data"} {
			switch inner := v[key].(type) {
			case map[string]any:
				return inner
			case []any:
				if len(inner) > 0 {
					if m, ok := inner[0].(map[string]any); ok {
						return m
					}
				}
				return nil
			}
		}
		if items, ok := v["items"].([]any); ok {
			if len(items) == 0 {
				return nil
			}
			m, _ := items[0].(map[string]any)
			return m
		}
		if len(v) == 0 {
			return nil
		}
		return v
	case []any:
		if len(v) > 0 {
			m, _ := v[0].(map[string]any)
			return m
		}
	}
	return nil
}

// GetNavigation loads the main navigation.
func (c *Client) GetNavigation(ctx context.Context) (*model.Navigation, error) {
	var nav model.Navigation
	query := url.Values{"type": {pageTypeNavigation}}
	if err := c.fetchStructural(ctx, "/", query, &nav); err != nil {
		return nil, err
	}
	return &nav, nil
}

// GetPage loads a content page by its slug.
func (c *Client) GetPage(ctx context.Context, slug string) (*model.Page, error) {
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return nil, model.NewAPIError("page slug is required")
	}
	var page model.Page
	query := url.Values{"type": {pageTypePage}}
	if err := c.fetchStructural(ctx, "/"+slug, query, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Health reports the CMS health status.
func (c *Client) Health(ctx context.Context) (*model.Health, error) {
	var h model.Health
	if err := c.fetchStructural(ctx, "/", url.Values{"type": {pageTypeHealth}}, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// fetchStructural decodes into out and validates it. Decode failures and
// validation failures are both schema errors.
func (c *Client) fetchStructural(ctx context.Context, path string, query url.Values, out any) error {
	var raw json.RawMessage
	if err := c.transport.Do(ctx, path, c.options(FetchOptions{Query: query}), &raw); err != nil {
		c.logger.Error().Err(err).Str("path", path).Msg("failed to load structural content")
		return err
	}
	if len(raw) == 0 {
		return c.schemaError(path, errEmptyBody)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.schemaError(path, err)
	}
	if err := c.validate.Struct(out); err != nil {
		return c.schemaError(path, err)
	}
	return nil
}

func (c *Client) schemaError(path string, err error) error {
	c.logger.Error().Err(err).Str("path", path).Msg("CMS response does not match schema")
	return model.NewAPIError(fmt.Sprintf("invalid CMS response for %s", path),
		model.WithCode(model.CodeSchemaParse), model.WithCause(err))
}

// GetSession asks the CMS for the login state behind the given cookie header.
func (c *Client) GetSession(ctx context.Context, cookie string) (*model.SessionInfo, error) {
	return c.sessionCall(ctx, "session", http.MethodGet, cookie, nil, nil)
}

// Login submits credentials to the CMS. Besides the login state it returns
// the Cookie header that carries the CMS session afterwards: the cookies sent
// with the request updated by the Set-Cookie headers of the response.
func (c *Client) Login(ctx context.Context, creds model.Credentials, cookie string) (*model.SessionInfo, string, error) {
	if err := c.validate.Struct(creds); err != nil {
		return nil, "", model.NewAPIError("username and password are required", model.WithCause(err))
	}

	header := http.Header{}
	info, err := c.sessionCall(ctx, "login", http.MethodPost, cookie, creds, header)
	if err != nil {
		return nil, "", err
	}
	return info, mergeCookies(cookie, header), nil
}

// Logout ends the CMS session behind the cookie header.
func (c *Client) Logout(ctx context.Context, cookie string) error {
	_, err := c.sessionCall(ctx, "logout", http.MethodPost, cookie, nil, nil)
	return err
}

func (c *Client) sessionCall(ctx context.Context, action, method, cookie string, body any, header http.Header) (*model.SessionInfo, error) {
	opts := c.options(FetchOptions{
		Method: method,
		Query: url.Values{
			"type":      {pageTypeSession},
			actionParam: {action},
		},
		Body:           body,
		ResponseHeader: header,
	})
	if cookie != "" {
		opts.Headers = map[string]string{"Cookie": cookie}
	}

	var info model.SessionInfo
	if err := c.transport.Do(ctx, sessionPath, opts, &info); err != nil {
		c.logger.Warn().Err(err).Str("action", action).Msg("session call failed")
		return nil, err
	}
	return &info, nil
}

// mergeCookies applies the Set-Cookie headers in header to the cookie header
// sent with a request. Deleted cookies are dropped.
func mergeCookies(sent string, header http.Header) string {
	var names []string
	seen := map[string]bool{}
	values := map[string]string{}
	set := func(name, value string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
		values[name] = value
	}

	for _, ck := range (&http.Request{Header: http.Header{"Cookie": {sent}}}).Cookies() {
		set(ck.Name, ck.Value)
	}
	for _, ck := range (&http.Response{Header: header}).Cookies() {
		if ck.MaxAge < 0 || ck.Value == "" {
			delete(values, ck.Name)
			continue
		}
		set(ck.Name, ck.Value)
	}

	pairs := make([]string, 0, len(values))
	for _, name := range names {
		if v, ok := values[name]; ok {
			pairs = append(pairs, (&http.Cookie{Name: name, Value: v}).String())
		}
	}
	return strings.Join(pairs, "; ")
}

func (c *Client) options(opts FetchOptions) FetchOptions {
	if opts.Timeout == 0 {
		opts.Timeout = c.cfg.Timeout
	}
	return opts
}

// buildQuery encodes params, dropping nil, empty and zero values.
func buildQuery(params map[string]any) url.Values {
	q := url.Values{}
	for k, v := range params {
		if v == nil {
			continue
		}
		var s string
		switch tv := v.(type) {
		case int:
			if tv == 0 {
				continue
			}
			s = strconv.Itoa(tv)
		default:
			s = cast.ToString(v)
		}
		if s == "" {
			continue
		}
		q.Set(k, s)
	}
	return q
}

var errEmptyBody = errors.New("empty response body")
