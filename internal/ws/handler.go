package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/mparicahua/taskFlow3-server/internal/auth"
	"go.uber.org/zap"
)

// Handler upgrades authenticated HTTP requests to websocket connections
// and runs the per-connection event loop.
type Handler struct {
	hub          *Hub
	accessSecret string
	logger       *zap.Logger
	upgrader     websocket.Upgrader
}

func NewHandler(hub *Hub, accessSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		hub:          hub,
		accessSecret: accessSecret,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect from the SPA origin; CORS-style
			// origin policy is handled at the deployment edge.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws?token=<access token>.
//
// The credential travels out-of-band in the query string, not in any
// protocol payload: a browser WebSocket cannot set an Authorization
// header. Verification happens before the upgrade — a bad token is
// refused with 401 and no connection or room state ever exists.
func (h *Handler) Serve(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := auth.ParseToken(token, h.accessSecret)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := NewClient(conn, claims.UserID, claims.Email, h.logger)
	ctx := c.Request.Context()

	// Registration is synchronous: by the time the read loop starts the
	// connection is in its user room. The project auto-join queries the
	// store and runs concurrently, exactly like the rest of the
	// connection's lifetime events; it re-validates liveness on resume.
	h.hub.Register(client)
	go h.hub.AutoJoin(ctx, client)

	go client.writePump()
	client.readPump(func(env Envelope) {
		h.dispatch(ctx, client, env)
	})

	// Read loop ended: the transport is gone. Teardown always runs, even
	// if leave notifications fail to deliver.
	h.hub.Disconnect(client)
}

func (h *Handler) dispatch(ctx context.Context, client *Client, env Envelope) {
	switch env.Event {
	case EventJoinProject:
		var req JoinProjectRequest
		if !h.bind(client, env.Data, &req) {
			return
		}
		h.hub.JoinProject(ctx, client, req.ProjectID)

	case EventLeaveProject:
		var req LeaveProjectRequest
		if !h.bind(client, env.Data, &req) {
			return
		}
		h.hub.LeaveProject(client, req.ProjectID)

	case EventGetConnectedUsers:
		var req GetConnectedUsersRequest
		if !h.bind(client, env.Data, &req) {
			return
		}
		h.hub.ConnectedUsers(client, req.ProjectID)

	case EventJoinProjects:
		h.hub.JoinAllProjects(ctx, client)

	default:
		client.Send(NewEnvelope(EventError, ErrorPayload{
			Message: "unknown event: " + env.Event,
			Code:    CodeInvalidMessage,
		}))
	}
}

func (h *Handler) bind(client *Client, data json.RawMessage, dst any) bool {
	if len(data) == 0 {
		// Missing payloads surface as zero-value requests; the hub emits
		// the precise MISSING_* code per operation.
		return true
	}
	if err := json.Unmarshal(data, dst); err != nil {
		client.Send(NewEnvelope(EventError, ErrorPayload{
			Message: "malformed payload",
			Code:    CodeInvalidMessage,
		}))
		return false
	}
	return true
}
