package gateway

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mcdev12/timekeeper/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Connection represents a WebSocket connection to an authenticated user
type Connection struct {
	ID          string
	UserID      models.UserID
	ConnectedAt time.Time

	conn   *websocket.Conn
	config ConnectionConfig

	// send is drained by writePump. It is closed exactly once, under mu.
	send   chan []byte
	mu     sync.Mutex
	closed bool
}

func newConnection(conn *websocket.Conn, userID models.UserID, config ConnectionConfig, now time.Time) *Connection {
	return &Connection{
		ID:          uuid.New().String(),
		UserID:      userID,
		ConnectedAt: now,
		conn:        conn,
		config:      config,
		send:        make(chan []byte, config.SendQueueSize),
	}
}

// enqueue hands message to the write pump without blocking. It reports false
// when the connection is closed or its queue is full.
func (c *Connection) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Close stops the write pump and closes the socket. Safe to call repeatedly.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump(release func(*Connection)) {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		release(c)
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump keeps the read deadline moving and returns once the peer goes away
func (c *Connection) readPump(release func(*Connection)) {
	defer release(c)

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			return
		}

		// The protocol is server to client only.
		log.Debug().
			Str("connection_id", c.ID).
			Int64("user_id", c.UserID).
			Int("bytes", len(message)).
			Msg("ignoring client message")
		c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}
