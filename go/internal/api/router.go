// Package api exposes the HTTP endpoints: account forms, the timer JSON API,
// health and metrics, plus the websocket routes of the gateway.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/users"
)

// UsersApp defines what the handlers need from the users application
type UsersApp interface {
	SignUp(ctx context.Context, req users.SignUpRequest) (*models.User, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// SessionManager issues, resolves and ends login sessions
type SessionManager interface {
	Start(ctx context.Context, userID models.UserID) (*models.Session, error)
	Resolve(ctx context.Context, token string) (models.UserID, error)
	End(ctx context.Context, token string) error
}

// TimersApp defines what the handlers need from the timers application
type TimersApp interface {
	CreateTimer(ctx context.Context, userID models.UserID, description string) (*models.Timer, error)
	StopTimer(ctx context.Context, userID models.UserID, timerID string) (*models.Timer, error)
	ListTimers(ctx context.Context, userID models.UserID) ([]models.Timer, error)
}

// RouteRegistrar mounts extra routes, such as the websocket gateway.
type RouteRegistrar interface {
	RegisterRoutes(r chi.Router)
}

// Config holds the dependencies of the router
type Config struct {
	Users    UsersApp
	Sessions SessionManager
	Timers   TimersApp
	Gateway  RouteRegistrar
	Health   map[string]HealthChecker
	Metrics  http.Handler

	// AuthLimiter guards the account forms and the websocket handshake.
	AuthLimiter *IPRateLimiter
	// APILimiter guards the timer API.
	APILimiter *IPRateLimiter

	SecureCookies bool

	// TrustProxyHeaders takes the client address from X-Forwarded-For and
	// X-Real-IP. Only enable it behind a proxy that overwrites them.
	TrustProxyHeaders bool
}

// Handler serves the account and timer endpoints
type Handler struct {
	users         UsersApp
	sessions      SessionManager
	timers        TimersApp
	secureCookies bool
}

// NewRouter builds the HTTP routes
func NewRouter(cfg Config) http.Handler {
	h := &Handler{
		users:         cfg.Users,
		sessions:      cfg.Sessions,
		timers:        cfg.Timers,
		secureCookies: cfg.SecureCookies,
	}
	health := NewHealthHandler(cfg.Health)

	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(RequestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", health.Health)
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(RateLimit(cfg.AuthLimiter))
		r.Post("/signup", h.SignUp)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)
		r.Post("/logout", h.Logout)
		if cfg.Gateway != nil {
			cfg.Gateway.RegisterRoutes(r)
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(RateLimit(cfg.APILimiter))
		r.Use(RequireSession(cfg.Sessions))
		r.Get("/timers", h.ListTimers)
		r.Post("/timers", h.CreateTimer)
		r.Post("/timers/{id}/stop", h.StopTimer)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
