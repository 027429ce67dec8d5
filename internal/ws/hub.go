package ws

import (
	"log"
	"sync"

	"realtime-chat/internal/models"
	"realtime-chat/internal/observability"
	"realtime-chat/internal/presence"
)

const wsKind = "presence"

// Hub owns every live connection. It keeps the presence table in step with
// connect/disconnect churn, broadcasts presence snapshots, and relays persisted
// messages to online recipients.
type Hub struct {
	mu       sync.Mutex
	clients  map[string]*Client
	presence *presence.Table[*Client]
	closed   bool
}

// NewHub creates a hub backed by table.
func NewHub(table *presence.Table[*Client]) *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		presence: table,
	}
}

// Register marks the client as established. Clients carrying a user id are
// recorded in the presence table, replacing any older connection for that
// user, and trigger a presence broadcast. Anonymous clients only receive
// broadcasts.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		c.close()
		return
	}
	h.clients[c.info.ConnID] = c
	observability.IncWSActive(wsKind)

	if c.info.Anonymous() {
		return
	}
	h.presence.Record(c.info.UserID, c.info.ConnID, c)
	h.broadcastLocked()
}

// Unregister marks the client as closed. Calling it more than once is a no-op.
// The presence entry is only evicted when it still points at this client; a
// late disconnect from a superseded connection changes nothing and does not
// broadcast.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c.info.ConnID]; !ok {
		return
	}
	delete(h.clients, c.info.ConnID)
	c.close()
	observability.DecWSActive(wsKind)

	if c.info.Anonymous() {
		return
	}
	if h.presence.Remove(c.info.UserID, c.info.ConnID) {
		h.broadcastLocked()
	}
}

// BroadcastPresence pushes the current online user list to every client.
func (h *Hub) BroadcastPresence() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.broadcastLocked()
}

func (h *Hub) broadcastLocked() {
	ids := h.presence.OnlineUserIDs()
	observability.SetOnlineUsers(len(ids))
	observability.IncPresenceBroadcast()

	payload, err := models.EncodeEvent(models.PresenceUpdate{UserIDs: ids})
	if err != nil {
		log.Printf("presence encode error: %v", err)
		return
	}
	for _, c := range h.clients {
		if !c.enqueue(payload) {
			log.Printf("presence push dropped conn_id=%s user_id=%s", c.info.ConnID, c.info.UserID)
		}
	}
}

// Relay pushes a persisted message to its recipient when the recipient is
// online. Offline recipients fetch the message later from history. The sender
// never receives a push. It reports whether the push was queued.
func (h *Hub) Relay(msg models.Message) bool {
	if msg.ReceiverID == "" || msg.ReceiverID == msg.SenderID {
		return false
	}

	c, ok := h.presence.Lookup(msg.ReceiverID)
	if !ok {
		observability.IncRelayPush("offline")
		return false
	}

	payload, err := models.EncodeEvent(models.NewMessage{Message: msg})
	if err != nil {
		log.Printf("message encode error message_id=%s: %v", msg.ID, err)
		return false
	}
	if !c.enqueue(payload) {
		observability.IncRelayPush("dropped")
		return false
	}
	observability.IncRelayPush("delivered")
	return true
}

// OnlineUserIDs returns the users currently present.
func (h *Hub) OnlineUserIDs() []string {
	return h.presence.OnlineUserIDs()
}

// ConnectionCount returns the number of established connections, anonymous
// ones included.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client and clears presence. Later registrations are
// refused.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, c := range h.clients {
		c.close()
		delete(h.clients, id)
		observability.DecWSActive(wsKind)
	}
	h.presence.Reset()
	observability.SetOnlineUsers(0)
	log.Println("websocket hub closed")
}
