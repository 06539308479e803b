package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// contextWithUserID stores the authenticated user in ctx
func contextWithUserID(ctx context.Context, userID models.UserID) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserIDFromContext returns the user set by RequireSession
func UserIDFromContext(ctx context.Context) (models.UserID, bool) {
	userID, ok := ctx.Value(userIDContextKey).(models.UserID)
	return userID, ok
}

// RequestLogger logs every request with zerolog and puts a request scoped
// logger into the context.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := log.With().Str("request_id", chimiddleware.GetReqID(r.Context())).Logger()
		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context())))

		status := ww.Status()
		if status == 0 {
			// hijacked (websocket) or nothing written
			status = http.StatusOK
		}

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("remote_addr", r.RemoteAddr).
			Msg("http request")
	})
}

// RequireSession rejects requests without a valid session cookie
func RequireSession(resolver SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessions.CookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			userID, err := resolver.Resolve(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, sessions.ErrSessionNotFound) {
					writeError(w, http.StatusUnauthorized, "unauthorized")
					return
				}
				zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to resolve session")
				writeError(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(contextWithUserID(r.Context(), userID)))
		})
	}
}
