package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realtime-chat/internal/models"
	"realtime-chat/internal/presence"
)

type pushed struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func newTestHub() *Hub {
	return NewHub(presence.NewTable[*Client]())
}

func newTestClient(connID, userID string) *Client {
	return NewClient(&fakeTransport{}, ConnInfo{ConnID: connID, UserID: userID, ConnectedAt: time.Now()})
}

// drain returns every frame queued for c so far.
func drain(t *testing.T, c *Client) []pushed {
	t.Helper()
	var out []pushed
	for {
		select {
		case payload := <-c.send:
			var p pushed
			require.NoError(t, json.Unmarshal(payload, &p))
			out = append(out, p)
		default:
			return out
		}
	}
}

func presenceIDs(t *testing.T, p pushed) []string {
	t.Helper()
	require.Equal(t, models.EventOnlineUsers, p.Event)
	var ids []string
	require.NoError(t, json.Unmarshal(p.Data, &ids))
	return ids
}

func TestHubScenario(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("conn-a", "A")
	b := newTestClient("conn-b", "B")

	hub.Register(a)
	assert.Equal(t, []string{"A"}, hub.OnlineUserIDs())

	hub.Register(b)
	assert.Equal(t, []string{"A", "B"}, hub.OnlineUserIDs())

	framesA := drain(t, a)
	require.Len(t, framesA, 2)
	assert.Equal(t, []string{"A"}, presenceIDs(t, framesA[0]))
	assert.Equal(t, []string{"A", "B"}, presenceIDs(t, framesA[1]))

	framesB := drain(t, b)
	require.Len(t, framesB, 1)
	assert.Equal(t, []string{"A", "B"}, presenceIDs(t, framesB[0]))

	msg := models.Message{ID: "m1", SenderID: "A", ReceiverID: "B", Text: "hello"}
	assert.True(t, hub.Relay(msg))

	framesB = drain(t, b)
	require.Len(t, framesB, 1)
	assert.Equal(t, models.EventNewMessage, framesB[0].Event)
	var got models.Message
	require.NoError(t, json.Unmarshal(framesB[0].Data, &got))
	assert.Equal(t, "m1", got.ID)
	assert.Empty(t, drain(t, a))

	hub.Unregister(b)
	assert.Equal(t, []string{"A"}, hub.OnlineUserIDs())
	framesA = drain(t, a)
	require.Len(t, framesA, 1)
	assert.Equal(t, []string{"A"}, presenceIDs(t, framesA[0]))
}

func TestHubAnonymousConnection(t *testing.T) {
	hub := newTestHub()
	anon := newTestClient("conn-anon", "")
	hub.Register(anon)

	assert.Empty(t, hub.OnlineUserIDs())
	assert.Equal(t, 1, hub.ConnectionCount())
	assert.Empty(t, drain(t, anon), "anonymous connect must not broadcast")

	a := newTestClient("conn-a", "A")
	hub.Register(a)
	frames := drain(t, anon)
	require.Len(t, frames, 1, "anonymous clients still receive broadcasts")
	assert.Equal(t, []string{"A"}, presenceIDs(t, frames[0]))

	hub.Unregister(anon)
	assert.Empty(t, drain(t, a), "anonymous disconnect must not broadcast")
	assert.Equal(t, 1, hub.ConnectionCount())
}

func TestHubLastConnectWins(t *testing.T) {
	hub := newTestHub()
	first := newTestClient("conn-1", "A")
	second := newTestClient("conn-2", "A")
	sender := newTestClient("conn-s", "S")

	hub.Register(first)
	hub.Register(second)
	hub.Register(sender)
	drain(t, first)
	drain(t, second)

	require.True(t, hub.Relay(models.Message{ID: "m1", SenderID: "S", ReceiverID: "A"}))
	assert.Empty(t, drain(t, first))
	frames := drain(t, second)
	require.Len(t, frames, 1)
	assert.Equal(t, models.EventNewMessage, frames[0].Event)
}

func TestHubStaleDisconnectKeepsPresence(t *testing.T) {
	hub := newTestHub()
	first := newTestClient("conn-1", "A")
	second := newTestClient("conn-2", "A")

	hub.Register(first)
	hub.Register(second)
	drain(t, second)

	hub.Unregister(first)

	assert.Equal(t, []string{"A"}, hub.OnlineUserIDs())
	assert.Empty(t, drain(t, second), "stale disconnect must not broadcast")

	hub.Unregister(second)
	assert.Empty(t, hub.OnlineUserIDs())
}

func TestHubBroadcastCounts(t *testing.T) {
	hub := newTestHub()
	observer := newTestClient("conn-o", "")
	hub.Register(observer)

	users := []*Client{
		newTestClient("c1", "u1"),
		newTestClient("c2", "u2"),
		newTestClient("c3", "u3"),
	}
	for _, c := range users {
		hub.Register(c)
	}
	for _, c := range users {
		hub.Unregister(c)
	}
	// Unregistering twice is a no-op.
	hub.Unregister(users[0])

	frames := drain(t, observer)
	require.Len(t, frames, 6)
	assert.Empty(t, presenceIDs(t, frames[5]))
}

func TestHubRelayOfflineRecipient(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("conn-a", "A")
	hub.Register(a)
	drain(t, a)

	assert.False(t, hub.Relay(models.Message{ID: "m1", SenderID: "A", ReceiverID: "B"}))
	assert.Empty(t, drain(t, a))
}

func TestHubRelayNeverPushesToSender(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("conn-a", "A")
	hub.Register(a)
	drain(t, a)

	assert.False(t, hub.Relay(models.Message{ID: "m1", SenderID: "A", ReceiverID: "A"}))
	assert.Empty(t, drain(t, a))
}

func TestHubRelayDropsWhenBufferFull(t *testing.T) {
	hub := newTestHub()
	b := newTestClient("conn-b", "B")
	hub.Register(b)

	for i := 0; i < sendBufferSize; i++ {
		hub.Relay(models.Message{ID: "fill", SenderID: "A", ReceiverID: "B"})
	}
	assert.False(t, hub.Relay(models.Message{ID: "overflow", SenderID: "A", ReceiverID: "B"}))
}

func TestHubCloseClearsPresence(t *testing.T) {
	hub := newTestHub()
	a := newTestClient("conn-a", "A")
	hub.Register(a)
	hub.Close()

	assert.Empty(t, hub.OnlineUserIDs())
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, a.enqueue([]byte("late")))

	late := newTestClient("conn-late", "L")
	hub.Register(late)
	assert.Empty(t, hub.OnlineUserIDs())
}

func TestHubConcurrentChurn(t *testing.T) {
	hub := newTestHub()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := newTestClient(newConnID(), "user")
			hub.Register(c)
			hub.Relay(models.Message{ID: "m", SenderID: "x", ReceiverID: "user"})
			hub.Unregister(c)
		}(i)
	}
	wg.Wait()
	assert.Empty(t, hub.OnlineUserIDs())
	assert.Equal(t, 0, hub.ConnectionCount())
}

type fakeTransport struct {
	mu     sync.Mutex
	frames [][]byte
	closed bool
	fail   bool
}

func (f *fakeTransport) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("write failed")
	}
	if messageType == websocket.TextMessage {
		f.frames = append(f.frames, data)
	}
	return nil
}

func (f *fakeTransport) SetWriteDeadline(time.Time) error { return nil }

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeTransport) snapshot() ([][]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.frames...), f.closed
}

func TestWritePumpDeliversAndCloses(t *testing.T) {
	transport := &fakeTransport{}
	c := NewClient(transport, ConnInfo{ConnID: "c1", UserID: "A"})
	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()

	require.True(t, c.enqueue([]byte(`{"event":"x"}`)))
	require.Eventually(t, func() bool {
		frames, _ := transport.snapshot()
		return len(frames) == 1
	}, time.Second, 5*time.Millisecond)

	c.close()
	<-done
	_, closed := transport.snapshot()
	assert.True(t, closed)
}

func TestWritePumpStopsOnWriteError(t *testing.T) {
	transport := &fakeTransport{fail: true}
	c := NewClient(transport, ConnInfo{ConnID: "c1", UserID: "A"})
	done := make(chan struct{})
	go func() {
		c.WritePump()
		close(done)
	}()

	require.True(t, c.enqueue([]byte("x")))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("write pump did not stop after write error")
	}
	_, closed := transport.snapshot()
	assert.True(t, closed)
}
