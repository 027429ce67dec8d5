package ws

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"realtime-chat/internal/auth"
	"realtime-chat/internal/observability"
)

const wsRoutingKey = "ws_events.presence"

// TokenVerifier validates session tokens.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// Handler upgrades push-channel connections and drives their lifecycle.
type Handler struct {
	hub      *Hub
	verifier TokenVerifier
	upgrader websocket.Upgrader
}

// NewHandler constructs a Handler. allowedOrigin restricts browser origins;
// empty or "*" accepts any.
func NewHandler(hub *Hub, verifier TokenVerifier, allowedOrigin string) *Handler {
	return &Handler{
		hub:      hub,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
	}
}

// Handle upgrades the request and registers the connection. The connection is
// established even without a user id; such connections are not tracked as
// present.
func (h *Handler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("realtime-chat/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	userID := h.resolveUserID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     observability.TraceIDFromContext(ctx),
		ConnectedAt: time.Now(),
	}
	client := NewClient(conn, info)
	go client.WritePump()
	h.hub.Register(client)

	observability.IncWSEvent(wsKind, "ws_connect")
	publishWSEvent(ctx, "ws_connect", info, "")

	// The request context ends when Handle returns; lifecycle events outlive it.
	go h.readLoop(context.WithoutCancel(ctx), conn, client)
}

// readLoop discards inbound frames until the connection fails, then runs the
// disconnect transition.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, client *Client) {
	info := client.Info()
	var closeReason string
	defer func() {
		h.hub.Unregister(client)
		observability.IncWSEvent(wsKind, "ws_disconnect")
		publishWSEvent(ctx, "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent(wsKind, "ws_error")
				publishWSEvent(ctx, "ws_error", info, closeReason)
			}
			return
		}
	}
}

// resolveUserID prefers the identity of a valid session token and falls back
// to the unauthenticated userId query parameter.
func (h *Handler) resolveUserID(c *gin.Context) string {
	if token := sessionToken(c); token != "" && h.verifier != nil {
		if claims, err := h.verifier.VerifyToken(token); err == nil && claims.UserID != "" {
			return claims.UserID
		}
	}
	return strings.TrimSpace(c.Query("userId"))
}

func sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	if cookie, err := c.Cookie(auth.CookieName); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}

type lifecyclePayload struct {
	WS       lifecycleDetails  `json:"ws"`
	Identity lifecycleIdentity `json:"identity"`
}

type lifecycleDetails struct {
	Kind       string `json:"kind"`
	ConnID     string `json:"conn_id"`
	Anonymous  bool   `json:"anonymous"`
	DurationMS int64  `json:"duration_ms"`
	Reason     string `json:"reason,omitempty"`
}

type lifecycleIdentity struct {
	UserID   string `json:"user_id,omitempty"`
	DeviceID string `json:"device_id,omitempty"`
	IP       string `json:"ip"`
}

func publishWSEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	var durationMS int64
	if event != "ws_connect" {
		durationMS = time.Since(info.ConnectedAt).Milliseconds()
	}
	payload := lifecyclePayload{
		WS: lifecycleDetails{
			Kind:       wsKind,
			ConnID:     info.ConnID,
			Anonymous:  info.Anonymous(),
			DurationMS: durationMS,
			Reason:     reason,
		},
		Identity: lifecycleIdentity{
			UserID:   info.UserID,
			DeviceID: info.DeviceID,
			IP:       info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.NewEnvelope("ws_events", event, payload),
		observability.BuildHeaders(info.RequestID, info.TraceID))
}
