package router

import (
	"net/http"
	"strings"

	"fahndungsportal/internal/handler"
	"fahndungsportal/internal/middleware"
	"fahndungsportal/internal/proxy"
	"fahndungsportal/internal/session"

	"github.com/rs/zerolog"
)

// Handlers bundles the HTTP handlers served by the portal.
type Handlers struct {
	Fahndung   *handler.FahndungHandler
	Content    *handler.ContentHandler
	Revalidate *handler.RevalidateHandler
	Auth       *handler.AuthHandler
	Proxy      http.Handler
}

// Options configures the cross-cutting middleware.
type Options struct {
	// PublicOrigin is allowed by CORS on the portal's own API.
	PublicOrigin        string
	Gate                middleware.GateConfig
	Sessions            session.Store
	RevalidatePerMinute int
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, opts Options, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("GET /health", handler.Health)
	mux.HandleFunc("GET /api/health/cms", h.Content.CMSHealth)

	mux.HandleFunc("GET /api/fahndungen", h.Fahndung.List)
	mux.HandleFunc("GET /api/fahndungen/{slug}", h.Fahndung.Get)

	mux.HandleFunc("GET /api/navigation", h.Content.Navigation)
	mux.HandleFunc("GET /api/pages/{slug}", h.Content.Page)

	revalidate := middleware.RateLimit(opts.RevalidatePerMinute, logger)(http.HandlerFunc(h.Revalidate.Revalidate))
	mux.Handle("POST /api/revalidate", revalidate)

	mux.HandleFunc("POST /api/auth/login", h.Auth.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Auth.Logout)
	mux.HandleFunc("GET /api/auth/session", h.Auth.Session)
	mux.HandleFunc("GET /dashboard", h.Auth.Dashboard)

	// The proxy handles every method itself, including preflights.
	mux.Handle(proxy.Prefix, h.Proxy)
	mux.Handle(proxy.Prefix+"/", h.Proxy)

	// Apply middleware in order: Recovery -> Logging -> RequestID -> CORS -> AuthGate
	var handler http.Handler = mux
	handler = middleware.AuthGate(opts.Gate, opts.Sessions, logger)(handler)
	handler = siteCORS(opts.PublicOrigin, handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}

// siteCORS applies the site CORS policy to everything except the proxy.
func siteCORS(origin string, next http.Handler) http.Handler {
	cors := middleware.CORS(origin)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == proxy.Prefix || strings.HasPrefix(r.URL.Path, proxy.Prefix+"/") {
			next.ServeHTTP(w, r)
			return
		}
		cors.ServeHTTP(w, r)
	})
}
