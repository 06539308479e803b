package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/mcdev12/timekeeper/go/internal/sessions"
	"github.com/rs/zerolog/log"
)

// SessionResolver maps a session token to its user.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (models.UserID, error)
}

// Handshake rejection reasons, used as close frame text and metric label.
const (
	rejectMissingToken   = "missing_token"
	rejectInvalidSession = "invalid_session"
	rejectResolveFailed  = "resolve_failed"
)

// WebSocketHandler authenticates and registers timer websocket connections
type WebSocketHandler struct {
	sessions    SessionResolver
	registry    *Registry
	broadcaster *Broadcaster
	upgrader    websocket.Upgrader
	config      ConnectionConfig
	clock       clockwork.Clock
	metrics     MetricsCollector
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(resolver SessionResolver, registry *Registry, broadcaster *Broadcaster, config ConnectionConfig, clock clockwork.Clock, metrics MetricsCollector) *WebSocketHandler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = NoOpMetricsCollector{}
	}
	return &WebSocketHandler{
		sessions:    resolver,
		registry:    registry,
		broadcaster: broadcaster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.checkOrigin,
		},
		config:  config,
		clock:   clock,
		metrics: metrics,
	}
}

// HandleConnection runs the handshake: read the token, resolve it, register
// the connection and send the initial snapshot. Connections that fail to
// authenticate are closed without any data message.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		log.Debug().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	if token == "" {
		h.reject(conn, websocket.ClosePolicyViolation, rejectMissingToken)
		return
	}

	userID, err := h.sessions.Resolve(r.Context(), token)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			h.reject(conn, websocket.ClosePolicyViolation, rejectInvalidSession)
			return
		}
		log.Error().Err(err).Msg("failed to resolve websocket session")
		h.reject(conn, websocket.CloseInternalServerErr, rejectResolveFailed)
		return
	}

	connection := newConnection(conn, userID, h.config, h.clock.Now())
	h.metrics.ConnectionOpened()

	// The snapshot is queued before the pumps start and before any heartbeat
	// for this user can reach the connection.
	if err := h.broadcaster.Attach(r.Context(), connection); err != nil {
		log.Error().
			Err(err).
			Str("connection_id", connection.ID).
			Int64("user_id", userID).
			Msg("failed to send initial timer snapshot")
	}

	go connection.writePump(h.broadcaster.Release)
	go connection.readPump(h.broadcaster.Release)

	log.Info().
		Str("connection_id", connection.ID).
		Int64("user_id", userID).
		Msg("WebSocket connection established")
}

// HandleConnectionStats returns statistics about active connections
func (h *WebSocketHandler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.registry.Stats()); err != nil {
		log.Error().Err(err).Msg("failed to encode connection stats")
	}
}

func (h *WebSocketHandler) reject(conn *websocket.Conn, code int, reason string) {
	h.metrics.HandshakeRejected(reason)
	log.Debug().Str("reason", reason).Msg("rejecting websocket connection")

	deadline := time.Now().Add(h.config.WriteTimeout)
	if err := conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline); err != nil {
		log.Debug().Err(err).Msg("failed to write close frame")
	}
	conn.Close()
}

// sessionToken reads the token from the query string, falling back to the session cookie.
func sessionToken(r *http.Request) string {
	if token := r.URL.Query().Get(sessions.CookieName); token != "" {
		return token
	}
	if cookie, err := r.Cookie(sessions.CookieName); err == nil {
		return cookie.Value
	}
	return ""
}
