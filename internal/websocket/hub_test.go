package websocket

import (
	"testing"

	wstypes "calvino-service/internal/domain/websocket"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, userID int64, sessionID string) *Client {
	c := NewClient(h, nil, &ClientAuth{UserID: userID, SessionID: sessionID, Role: "user"})
	h.registerClient(c)
	return c
}

// drain applies every queued broadcast synchronously.
func drain(h *Hub) {
	for len(h.broadcast) > 0 {
		h.BroadcastMessage(<-h.broadcast)
	}
}

// received returns the event types queued for c, skipping the welcome message.
func received(t *testing.T, c *Client) []wstypes.EventType {
	t.Helper()
	var types []wstypes.EventType
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				return types
			}
			msg, err := wstypes.ParseMessage(data)
			require.NoError(t, err)
			if msg.Type != wstypes.EventTypeConnected {
				types = append(types, msg.Type)
			}
		default:
			return types
		}
	}
}

func TestHub_SessionRevoked(t *testing.T) {
	h := NewHub(nil, nil)
	revoked := newTestClient(h, 1, "s1")
	sibling := newTestClient(h, 1, "s2")
	stranger := newTestClient(h, 2, "s3")

	h.SessionRevoked(1, "s1", "logout")
	drain(h)

	assert.Equal(t, []wstypes.EventType{wstypes.EventTypeForceLogout}, received(t, revoked))
	assert.True(t, revoked.closed)
	assert.Equal(t, []wstypes.EventType{wstypes.EventTypeSessionRevoked}, received(t, sibling))
	assert.False(t, sibling.closed)
	assert.Empty(t, received(t, stranger))

	assert.Equal(t, 1, h.GetConnectedClients(1))
	assert.Equal(t, Stats{TotalConnections: 2, ConnectedUsers: 2}, h.Stats())
}

func TestHub_ForceLogoutAllSessions(t *testing.T) {
	h := NewHub(nil, nil)
	a := newTestClient(h, 1, "s1")
	b := newTestClient(h, 1, "s2")

	h.ForceLogout(1, "", "account disabled")
	drain(h)

	assert.Equal(t, []wstypes.EventType{wstypes.EventTypeForceLogout}, received(t, a))
	assert.Equal(t, []wstypes.EventType{wstypes.EventTypeForceLogout}, received(t, b))
	assert.False(t, h.IsUserConnected(1))
}

func TestHub_ChannelFilter(t *testing.T) {
	h := NewHub(nil, nil)
	c := newTestClient(h, 1, "s1")

	msg := wstypes.NewMessage(wstypes.EventTypePong, nil)
	h.BroadcastMessage(&BroadcastMessage{Channel: wstypes.ChannelSystem, Message: msg})
	assert.Empty(t, received(t, c))

	require.True(t, c.Subscribe(wstypes.ChannelSystem))
	h.BroadcastMessage(&BroadcastMessage{Channel: wstypes.ChannelSystem, Message: msg})
	assert.Equal(t, []wstypes.EventType{wstypes.EventTypePong}, received(t, c))

	assert.False(t, c.Subscribe("audit"))
}

func TestHub_ShutdownNotifiesSystemSubscribers(t *testing.T) {
	h := NewHub(nil, nil)
	listening := newTestClient(h, 1, "s1")
	quiet := newTestClient(h, 2, "s2")
	require.True(t, listening.Subscribe(wstypes.ChannelSystem))

	h.shutdown()

	assert.Equal(t, []wstypes.EventType{wstypes.EventTypeDisconnected}, received(t, listening))
	assert.Empty(t, received(t, quiet))
	assert.True(t, listening.closed)
	assert.True(t, quiet.closed)
	assert.Equal(t, Stats{}, h.Stats())
}

func TestClient_SendAfterClose(t *testing.T) {
	h := NewHub(nil, nil)
	c := newTestClient(h, 1, "s1")

	c.Close()
	c.Close()
	assert.NotPanics(t, func() {
		c.SendMessage(wstypes.NewMessage(wstypes.EventTypePing, nil))
	})
}
