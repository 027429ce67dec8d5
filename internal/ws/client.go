package ws

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"realtime-chat/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// Transport is the part of a websocket connection the writer needs.
type Transport interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Client is one registered connection. Outbound frames are queued and written
// by a single goroutine so concurrent pushes never interleave on the socket.
type Client struct {
	info ConnInfo
	conn Transport
	send chan []byte
	done chan struct{}

	closeOnce sync.Once
}

// NewClient wraps conn. Call WritePump to start delivering queued frames.
func NewClient(conn Transport, info ConnInfo) *Client {
	return &Client{
		info: info,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		done: make(chan struct{}),
	}
}

// Info returns the connection metadata.
func (c *Client) Info() ConnInfo {
	return c.info
}

// enqueue queues a frame without blocking. It returns false when the client is
// closed or its buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// WritePump drains the send queue and keeps the connection alive with pings.
// It returns when the client is closed or a write fails, closing the transport.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("websocket write error conn_id=%s user_id=%s: %v", c.info.ConnID, c.info.UserID, err)
				observability.IncWSEvent(wsKind, "ws_error")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
			return
		}
	}
}
