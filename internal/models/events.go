package models

import "encoding/json"

// Push-channel event names.
const (
	EventOnlineUsers = "getOnlineUsers"
	EventNewMessage  = "newMessage"
)

// Event is a server-to-client push. The set of implementations is closed.
type Event interface {
	Name() string
	payload() any
}

// PresenceUpdate carries the full list of online user ids.
type PresenceUpdate struct {
	UserIDs []string
}

func (PresenceUpdate) Name() string { return EventOnlineUsers }

func (e PresenceUpdate) payload() any {
	if e.UserIDs == nil {
		return []string{}
	}
	return e.UserIDs
}

// NewMessage carries a persisted message to its recipient.
type NewMessage struct {
	Message Message
}

func (NewMessage) Name() string { return EventNewMessage }

func (e NewMessage) payload() any { return e.Message }

type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// EncodeEvent renders an event as a websocket text frame.
func EncodeEvent(e Event) ([]byte, error) {
	return json.Marshal(frame{Event: e.Name(), Data: e.payload()})
}
