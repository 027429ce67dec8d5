package ws

import "time"

// ConnInfo describes one live websocket connection.
type ConnInfo struct {
	ConnID      string
	UserID      string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

// Anonymous reports whether the connection was opened without a user id.
func (i ConnInfo) Anonymous() bool {
	return i.UserID == ""
}
