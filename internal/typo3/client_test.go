package typo3

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fahndungsportal/internal/model"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFallback = []model.FahndungItem{
	{ID: 101, Title: "Fallback A", Status: model.StatusActive, Type: model.TypeWanted, Slug: "fallback-a",
		Image: &model.Image{URL: "/a.jpg"}},
	{ID: 102, Title: "Fallback B", Status: model.StatusActive, Type: model.TypeMissingPerson, Slug: "fallback-b"},
	{ID: 103, Title: "Fallback C", Status: model.StatusCompleted, Type: model.TypeWitnessAppeal, Slug: "fallback-c"},
}

func newTestClient(t *testing.T, baseURL string, cfg ClientConfig) *Client {
	t.Helper()
	if cfg.Fallback == nil {
		cfg.Fallback = testFallback
	}
	c := NewClient(newTestTransport(t, baseURL, nil), cfg, zerolog.Nop())
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func jsonServer(t *testing.T, status int, body string, inspect func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ListFahndungen(t *testing.T) {
	var gotQuery map[string][]string
	var gotPath string
	srv := jsonServer(t, http.StatusOK,
		`{"items":[{"id":"1","title":"X","status":"AKTIV"},{"id":2,"title":"Y","type":"vermisst"}],"meta":{"total":"12","page":"2","pageSize":"2"}}`,
		func(r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.Query()
		})

	c := newTestClient(t, srv.URL, ClientConfig{})

	res, err := c.ListFahndungen(context.Background(), ListParams{Page: 2, PageSize: 2, Status: model.StatusActive, Query: "Bahnhof"})
	require.NoError(t, err)

	assert.False(t, res.Fallback)
	assert.Equal(t, "/fahndungen", gotPath)
	assert.Equal(t, []string{"10000"}, gotQuery["type"])
	assert.Equal(t, []string{"list"}, gotQuery["tx_fahndungen_api[action]"])
	assert.Equal(t, []string{"2"}, gotQuery["page"])
	assert.Equal(t, []string{"active"}, gotQuery["status"])
	assert.Equal(t, []string{"Bahnhof"}, gotQuery["q"])
	assert.NotContains(t, gotQuery, "delikt")

	want := model.FahndungenResponse{
		Meta: model.Meta{Total: 12, Page: 2, PageSize: 2, LastUpdated: 1700000000},
		Items: []model.FahndungItem{
			{ID: 1, Title: "X", Status: model.StatusActive, Type: model.TypeWanted, Slug: "fahndung-1"},
			{ID: 2, Title: "Y", Status: model.StatusActive, Type: model.TypeMissingPerson, Slug: "fahndung-2"},
		},
	}
	if diff := cmp.Diff(want, res.Response); diff != "" {
		t.Errorf("ListFahndungen() mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_ListFahndungen_Fallback(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantReason string
	}{
		{
			name:       "Null items",
			status:     http.StatusOK,
			body:       `{"items":null,"meta":{"total":0}}`,
			wantReason: "empty listing",
		},
		{
			name:       "Empty items",
			status:     http.StatusOK,
			body:       `{"items":[],"meta":{"total":0}}`,
			wantReason: "empty listing",
		},
		{
			name:       "Items not an array",
			status:     http.StatusOK,
			body:       `{"items":"nope"}`,
			wantReason: "empty listing",
		},
		{
			name:       "Server error",
			status:     http.StatusInternalServerError,
			body:       `{"error":"database down"}`,
			wantReason: "upstream error",
		},
		{
			name:       "Malformed JSON",
			status:     http.StatusOK,
			body:       `{"items":[`,
			wantReason: "upstream error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := jsonServer(t, tt.status, tt.body, nil)
			c := newTestClient(t, srv.URL, ClientConfig{})

			res, err := c.ListFahndungen(context.Background(), ListParams{})
			require.NoError(t, err)

			assert.True(t, res.Fallback)
			assert.Equal(t, tt.wantReason, res.Reason)
			require.NotNil(t, res.Response.Items)
			assert.Len(t, res.Response.Items, len(testFallback))
			assert.Equal(t, len(testFallback), res.Response.Meta.Total)
			assert.Equal(t, 1, res.Response.Meta.Page)
		})
	}
}

func TestClient_ListFahndungen_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := newTestClient(t, base, ClientConfig{})

	res, err := c.ListFahndungen(context.Background(), ListParams{})
	require.NoError(t, err)

	assert.True(t, res.Fallback)
	assert.Equal(t, "upstream error", res.Reason)
	assert.Len(t, res.Response.Items, len(testFallback))
}

func TestClient_ListFahndungen_ForceMock(t *testing.T) {
	called := false
	srv := jsonServer(t, http.StatusOK, `{"items":[{"id":1}]}`, func(*http.Request) { called = true })

	c := newTestClient(t, srv.URL, ClientConfig{ForceMock: true})

	res, err := c.ListFahndungen(context.Background(), ListParams{})
	require.NoError(t, err)

	assert.False(t, called)
	assert.True(t, res.Fallback)
	assert.Equal(t, "mock mode", res.Reason)
}

func TestClient_ListFahndungen_FallbackIsCopied(t *testing.T) {
	c := newTestClient(t, "http://cms.invalid", ClientConfig{ForceMock: true})

	first, err := c.ListFahndungen(context.Background(), ListParams{})
	require.NoError(t, err)
	first.Response.Items[0].Title = "changed"
	first.Response.Items[0].Image.URL = "/changed.jpg"

	second, err := c.ListFahndungen(context.Background(), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, "Fallback A", second.Response.Items[0].Title)
	assert.Equal(t, "/a.jpg", second.Response.Items[0].Image.URL)
	assert.Equal(t, "Fallback A", testFallback[0].Title)
}

func TestFallbackPolicy(t *testing.T) {
	use, reason := fallbackPolicy(nil, model.NewAPIError("x"))
	assert.True(t, use)
	assert.Equal(t, "upstream error", reason)

	use, reason = fallbackPolicy([]model.FahndungItem{}, nil)
	assert.True(t, use)
	assert.Equal(t, "empty listing", reason)

	use, _ = fallbackPolicy([]model.FahndungItem{{ID: 1}}, nil)
	assert.False(t, use)
}

func TestClient_GetFahndungBySlug(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantID     int
		wantStatus int
		wantCode   model.ErrorCode
	}{
		{
			name:   "Item object",
			status: http.StatusOK,
			body:   `{"id":5,"title":"Gesucht","slug":"gesucht"}`,
			wantID: 5,
		},
		{
			name:   "Wrapped in data",
			status: http.StatusOK,
			body:   `{"data":{"uid":"6","title":"Vermisst"}}`,
			wantID: 6,
		},
		{
			name:   "Wrapped in items",
			status: http.StatusOK,
			body:   `{"items":[{"id":7}]}`,
			wantID: 7,
		},
		{
			name:       "Upstream 404",
			status:     http.StatusNotFound,
			body:       `{"error":"not found"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   model.CodeHTTP,
		},
		{
			name:       "Empty listing means not found",
			status:     http.StatusOK,
			body:       `{"items":[]}`,
			wantStatus: http.StatusNotFound,
			wantCode:   model.CodeHTTP,
		},
		{
			name:       "Error body with status 200",
			status:     http.StatusOK,
			body:       `{"error":"not found"}`,
			wantStatus: http.StatusNotFound,
			wantCode:   model.CodeHTTP,
		},
		{
			name:       "Error body wrapped in data",
			status:     http.StatusOK,
			body:       `{"data":{"error":"Fahndung nicht gefunden"}}`,
			wantStatus: http.StatusNotFound,
			wantCode:   model.CodeHTTP,
		},
		{
			name:     "Item without id",
			status:   http.StatusOK,
			body:     `{"title":"kaputt"}`,
			wantCode: model.CodeSchemaParse,
		},
		{
			name:       "Server error propagates",
			status:     http.StatusServiceUnavailable,
			body:       `{}`,
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   model.CodeHTTP,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath string
			srv := jsonServer(t, tt.status, tt.body, func(r *http.Request) { gotPath = r.URL.Path })
			c := newTestClient(t, srv.URL, ClientConfig{})

			item, err := c.GetFahndungBySlug(context.Background(), "raub-hbf")
			assert.Equal(t, "/fahndungen/raub-hbf", gotPath)

			if tt.wantCode != "" {
				apiErr := requireAPIError(t, err)
				assert.Nil(t, item)
				assert.Equal(t, tt.wantCode, apiErr.Code)
				assert.Equal(t, tt.wantStatus, apiErr.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, item.ID)
		})
	}
}

func TestClient_GetFahndungBySlug_EmptySlug(t *testing.T) {
	c := newTestClient(t, "http://cms.invalid", ClientConfig{})

	_, err := c.GetFahndungBySlug(context.Background(), "  ")
	apiErr := requireAPIError(t, err)
	assert.Empty(t, apiErr.Code)
	assert.Zero(t, apiErr.Status)
}

func TestClient_GetFahndungByID(t *testing.T) {
	var gotQuery map[string][]string
	srv := jsonServer(t, http.StatusOK, `{"item":{"id":42,"title":"X"}}`, func(r *http.Request) { gotQuery = r.URL.Query() })
	c := newTestClient(t, srv.URL, ClientConfig{})

	item, err := c.GetFahndungByID(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, 42, item.ID)
	assert.Equal(t, []string{"show"}, gotQuery["tx_fahndungen_api[action]"])
	assert.Equal(t, []string{"42"}, gotQuery["tx_fahndungen_api[uid]"])
}

func TestClient_GetNavigation(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		var gotType string
		srv := jsonServer(t, http.StatusOK, `{"items":[{"title":"Start","link":"/"},{"title":"Fahndungen","link":"/fahndungen"}]}`,
			func(r *http.Request) { gotType = r.URL.Query().Get("type") })
		c := newTestClient(t, srv.URL, ClientConfig{})

		nav, err := c.GetNavigation(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "834", gotType)
		assert.Len(t, nav.Items, 2)
	})

	t.Run("Schema mismatch", func(t *testing.T) {
		srv := jsonServer(t, http.StatusOK, `{"items":[{"title":"Ohne Link"}]}`, nil)
		c := newTestClient(t, srv.URL, ClientConfig{})

		_, err := c.GetNavigation(context.Background())
		apiErr := requireAPIError(t, err)
		assert.Equal(t, model.CodeSchemaParse, apiErr.Code)
	})

	t.Run("Wrong JSON type", func(t *testing.T) {
		srv := jsonServer(t, http.StatusOK, `{"items":"nope"}`, nil)
		c := newTestClient(t, srv.URL, ClientConfig{})

		_, err := c.GetNavigation(context.Background())
		apiErr := requireAPIError(t, err)
		assert.Equal(t, model.CodeSchemaParse, apiErr.Code)
	})

	t.Run("Empty body", func(t *testing.T) {
		srv := jsonServer(t, http.StatusOK, ``, nil)
		c := newTestClient(t, srv.URL, ClientConfig{})

		_, err := c.GetNavigation(context.Background())
		apiErr := requireAPIError(t, err)
		assert.Equal(t, model.CodeSchemaParse, apiErr.Code)
	})

	t.Run("Errors propagate without fallback", func(t *testing.T) {
		srv := jsonServer(t, http.StatusBadGateway, `{}`, nil)
		c := newTestClient(t, srv.URL, ClientConfig{})

		_, err := c.GetNavigation(context.Background())
		apiErr := requireAPIError(t, err)
		assert.Equal(t, model.CodeHTTP, apiErr.Code)
		assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	})
}

func TestClient_GetPage(t *testing.T) {
	var gotPath string
	srv := jsonServer(t, http.StatusOK,
		`{"id":3,"title":"Impressum","slug":"impressum","content":[{"id":1,"type":"text","content":"Polizei"}]}`,
		func(r *http.Request) { gotPath = r.URL.Path })
	c := newTestClient(t, srv.URL, ClientConfig{})

	page, err := c.GetPage(context.Background(), "/impressum/")
	require.NoError(t, err)
	assert.Equal(t, "/impressum", gotPath)
	assert.Equal(t, "Impressum", page.Title)
	require.Len(t, page.Content, 1)

	_, err = c.GetPage(context.Background(), "")
	assert.Error(t, err)
}

func TestClient_Health(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"status":"ok","timestamp":1700000000,"version":"12.4.1"}`, nil)
	c := newTestClient(t, srv.URL, ClientConfig{})

	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, "12.4.1", h.Version)
}

func TestClient_Session(t *testing.T) {
	var gotCookie, gotAction, gotMethod string
	var gotBody map[string]string
	srv := jsonServer(t, http.StatusOK, `{"authenticated":true,"user":{"id":7,"username":"redaktion"}}`,
		func(r *http.Request) {
			gotCookie = r.Header.Get("Cookie")
			gotAction = r.URL.Query().Get("tx_fahndungen_api[action]")
			gotMethod = r.Method
			gotBody = nil
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
		})
	c := newTestClient(t, srv.URL, ClientConfig{})

	info, cmsCookie, err := c.Login(context.Background(), model.Credentials{Username: "redaktion", Password: "geheim"}, "fe_typo_user=abc")
	require.NoError(t, err)
	assert.True(t, info.Authenticated)
	assert.Equal(t, "fe_typo_user=abc", cmsCookie)
	assert.Equal(t, "login", gotAction)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "fe_typo_user=abc", gotCookie)
	assert.Equal(t, map[string]string{"username": "redaktion", "password": "geheim"}, gotBody)

	info, err = c.GetSession(context.Background(), "fe_typo_user=abc")
	require.NoError(t, err)
	assert.Equal(t, "session", gotAction)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "redaktion", info.User.Username)

	require.NoError(t, c.Logout(context.Background(), "fe_typo_user=abc"))
	assert.Equal(t, "logout", gotAction)
}

func TestClient_Login_MissingCredentials(t *testing.T) {
	c := newTestClient(t, "http://cms.invalid", ClientConfig{})

	_, _, err := c.Login(context.Background(), model.Credentials{Username: "redaktion"}, "")
	apiErr := requireAPIError(t, err)
	assert.Empty(t, apiErr.Code)
}

func TestClient_LoginKeepsIssuedCookies(t *testing.T) {
	var logoutCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("tx_fahndungen_api[action]") {
		case "login":
			http.SetCookie(w, &http.Cookie{Name: "be_typo_user", Value: "cms-session-42", HttpOnly: true})
			http.SetCookie(w, &http.Cookie{Name: "fe_typo_user", Value: "", MaxAge: -1})
			io.WriteString(w, `{"authenticated":true,"user":{"id":7,"username":"redaktion"}}`)
		case "logout":
			logoutCookie = r.Header.Get("Cookie")
			io.WriteString(w, `{"authenticated":false}`)
		}
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, ClientConfig{})

	_, cmsCookie, err := c.Login(context.Background(),
		model.Credentials{Username: "redaktion", Password: "geheim"}, "fe_typo_user=abc; lang=de")
	require.NoError(t, err)
	assert.Equal(t, "lang=de; be_typo_user=cms-session-42", cmsCookie)

	require.NoError(t, c.Logout(context.Background(), cmsCookie))
	assert.Equal(t, "lang=de; be_typo_user=cms-session-42", logoutCookie)
}

func TestMergeCookies(t *testing.T) {
	tests := []struct {
		name   string
		sent   string
		issued []string
		want   string
	}{
		{name: "Nothing", want: ""},
		{name: "Only sent", sent: "a=1; b=2", want: "a=1; b=2"},
		{name: "Only issued", issued: []string{"be_typo_user=x; Path=/; HttpOnly"}, want: "be_typo_user=x"},
		{name: "Issued replaces sent", sent: "a=1; b=2", issued: []string{"a=3"}, want: "a=3; b=2"},
		{name: "Deleted", sent: "a=1; b=2", issued: []string{"a=; Max-Age=0"}, want: "b=2"},
		{name: "Deleted then set again", sent: "a=1", issued: []string{"a=; Max-Age=0", "a=9"}, want: "a=9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{"Set-Cookie": tt.issued}
			assert.Equal(t, tt.want, mergeCookies(tt.sent, header))
		})
	}
}
