package middleware

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"fahndungsportal/internal/session"

	"github.com/rs/zerolog"
)

// GateConfig configures AuthGate.
type GateConfig struct {
	CookieName        string
	ProtectedPrefixes []string
	// LoginPath is where unauthenticated requests are sent, normally an
	// absolute URL on the public site.
	LoginPath string
}

// AuthGate redirects requests for protected paths to the login page when the
// session cookie is missing. With an enabled store the cookie must also name a
// live session.
func AuthGate(cfg GateConfig, store session.Store, logger zerolog.Logger) func(http.Handler) http.Handler {
	if store == nil {
		store = session.NullStore{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isProtected(r.URL.Path, cfg.ProtectedPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" {
				logger.Info().Str("path", r.URL.Path).Msg("missing session cookie, redirecting to login")
				redirectToLogin(w, r, cfg.LoginPath)
				return
			}

			if store.Enabled() {
				if _, err := store.Get(r.Context(), cookie.Value); err != nil {
					if !errors.Is(err, session.ErrNotFound) {
						logger.Error().Err(err).Msg("session lookup failed")
					}
					logger.Info().Str("path", r.URL.Path).Msg("unknown session, redirecting to login")
					redirectToLogin(w, r, cfg.LoginPath)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// redirectToLogin sends the client to loginURL, keeping any query it has.
func redirectToLogin(w http.ResponseWriter, r *http.Request, loginURL string) {
	u, err := url.Parse(loginURL)
	if err != nil {
		http.Error(w, "login page misconfigured", http.StatusInternalServerError)
		return
	}
	q := u.Query()
	q.Set("redirect", r.URL.RequestURI())
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}
