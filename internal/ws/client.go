package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong before the connection is
	// considered dead.
	pongWait = 60 * time.Second

	// Ping interval. Must be shorter than pongWait.
	pingPeriod = 25 * time.Second

	maxMessageSize = 4096

	// Outbound buffer per connection. A client that cannot drain this is
	// disconnected instead of stalling broadcasts for everyone else.
	sendBufferSize = 64
)

// Client is one live websocket connection bound to an authenticated user.
// The identity is fixed at handshake time and never changes for the life
// of the connection.
type Client struct {
	id        string
	userID    int64
	userEmail string

	conn   *websocket.Conn
	send   chan Envelope
	closed chan struct{}
	once   sync.Once

	logger *zap.Logger
}

func NewClient(conn *websocket.Conn, userID int64, userEmail string, logger *zap.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		id:        id,
		userID:    userID,
		userEmail: userEmail,
		conn:      conn,
		send:      make(chan Envelope, sendBufferSize),
		closed:    make(chan struct{}),
		logger:    logger.With(zap.String("conn_id", id), zap.Int64("user_id", userID)),
	}
}

func (c *Client) ID() string        { return c.id }
func (c *Client) UserID() int64     { return c.userID }
func (c *Client) UserEmail() string { return c.userEmail }

// Send queues an envelope for the write pump. Non-blocking: a connection
// whose buffer is full is dropped, because a stalled reader must not hold
// up a room broadcast.
func (c *Client) Send(env Envelope) {
	select {
	case <-c.closed:
	case c.send <- env:
	default:
		c.logger.Warn("send buffer full, dropping connection")
		c.close()
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
}

// writePump serializes all writes to the websocket and keeps the
// connection alive with periodic pings. One writer per connection —
// gorilla/websocket allows at most one concurrent writer.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readPump reads inbound envelopes and dispatches them until the
// connection dies, then returns. The caller handles unregistration.
func (c *Client) readPump(dispatch func(Envelope)) {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.Send(NewEnvelope(EventError, ErrorPayload{
				Message: "malformed message",
				Code:    CodeInvalidMessage,
			}))
			continue
		}

		c.dispatchSafely(dispatch, env)
	}
}

// dispatchSafely isolates handler panics to the offending message: the
// connection survives, other connections are never affected.
func (c *Client) dispatchSafely(dispatch func(Envelope), env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("panic in event handler",
				zap.String("event", env.Event),
				zap.Any("panic", r),
			)
		}
	}()
	dispatch(env)
}
