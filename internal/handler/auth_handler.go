package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"fahndungsportal/internal/model"
	"fahndungsportal/internal/session"

	"github.com/rs/zerolog"
)

// SessionCMS is the part of the CMS client used by the login flow.
type SessionCMS interface {
	GetSession(ctx context.Context, cookie string) (*model.SessionInfo, error)
	Login(ctx context.Context, creds model.Credentials, cookie string) (*model.SessionInfo, string, error)
	Logout(ctx context.Context, cookie string) error
}

// AuthConfig configures the session cookie.
type AuthConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// AuthHandler implements the provisional dashboard login.
type AuthHandler struct {
	cms    SessionCMS
	store  session.Store
	cfg    AuthConfig
	logger zerolog.Logger
	now    func() time.Time
}

// NewAuthHandler creates a new auth handler. A nil store keeps no sessions.
func NewAuthHandler(cms SessionCMS, store session.Store, cfg AuthConfig, logger zerolog.Logger) *AuthHandler {
	if store == nil {
		store = session.NullStore{}
	}
	return &AuthHandler{
		cms:    cms,
		store:  store,
		cfg:    cfg,
		logger: logger.With().Str("handler", "auth").Logger(),
		now:    time.Now,
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var creds model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	info, cmsCookie, err := h.cms.Login(r.Context(), creds, h.cmsCookies(r))
	if err != nil {
		if apiErr, ok := model.AsAPIError(err); ok {
			switch {
			case apiErr.Code == "":
				writeError(w, r, http.StatusBadRequest, model.ErrCodeMissingField, apiErr.Message, h.logger)
				return
			case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
				writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid credentials", h.logger)
				return
			}
		}
		writeCMSError(w, r, err, h.logger)
		return
	}
	if !info.Authenticated || info.User == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorised, "invalid credentials", h.logger)
		return
	}

	sess := session.New(*info.User, cmsCookie, h.cfg.TTL, h.now())
	if err := h.store.Save(r.Context(), sess); err != nil {
		h.logger.Error().Err(err).Msg("failed to save session")
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to create session", h.logger)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	h.logger.Info().Str("username", info.User.Username).Msg("user logged in")
	writeJSON(w, http.StatusOK, model.SessionInfo{Authenticated: true, User: info.User})
}

// Logout handles POST /api/auth/logout. It always clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cmsCookie := h.cmsCookies(r)

	if c, err := r.Cookie(h.cfg.CookieName); err == nil && c.Value != "" {
		if sess, err := h.store.Get(r.Context(), c.Value); err == nil && sess.CMSCookie != "" {
			cmsCookie = sess.CMSCookie
		}
		if err := h.store.Delete(r.Context(), c.Value); err != nil {
			h.logger.Error().Err(err).Msg("failed to delete session")
		}
	}

	if err := h.cms.Logout(r.Context(), cmsCookie); err != nil {
		h.logger.Warn().Err(err).Msg("CMS logout failed")
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, model.SessionInfo{Authenticated: false})
}

// Session handles GET /api/auth/session. With an enabled store the local
// session answers, otherwise the CMS is asked.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	if h.store.Enabled() {
		sess, err := h.current(r)
		if err != nil {
			writeJSON(w, http.StatusOK, model.SessionInfo{Authenticated: false})
			return
		}
		user := sess.User
		writeJSON(w, http.StatusOK, model.SessionInfo{Authenticated: true, User: &user})
		return
	}

	info, err := h.cms.GetSession(r.Context(), h.cmsCookies(r))
	if err != nil {
		writeCMSError(w, r, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Dashboard handles GET /dashboard. The auth gate has already admitted the
// request.
func (h *AuthHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"dashboard": true}
	if sess, err := h.current(r); err == nil {
		resp["user"] = sess.User
	}
	writeJSON(w, http.StatusOK, resp)
}

// cmsCookies returns the request's cookies for the CMS. The portal session
// cookie stays in the portal.
func (h *AuthHandler) cmsCookies(r *http.Request) string {
	var pairs []string
	for _, c := range r.Cookies() {
		if c.Name == h.cfg.CookieName {
			continue
		}
		pairs = append(pairs, c.String())
	}
	return strings.Join(pairs, "; ")
}

func (h *AuthHandler) current(r *http.Request) (*model.Session, error) {
	c, err := r.Cookie(h.cfg.CookieName)
	if err != nil || c.Value == "" {
		return nil, session.ErrNotFound
	}
	sess, err := h.store.Get(r.Context(), c.Value)
	if err != nil && !errors.Is(err, session.ErrNotFound) {
		h.logger.Error().Err(err).Msg("session lookup failed")
	}
	return sess, err
}
