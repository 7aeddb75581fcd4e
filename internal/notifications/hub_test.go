package notifications

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) []string {
	var out []string
	for {
		select {
		case msg := <-c.Outbox():
			out = append(out, string(msg))
		default:
			return out
		}
	}
}

func isDone(c *Client) bool {
	select {
	case <-c.Done():
		return true
	default:
		return false
	}
}

func TestHub_SendToUserTargetsOnlyThatUser(t *testing.T) {
	hub := NewHub()
	a, err := hub.Register(1, nil)
	require.NoError(t, err)
	b, err := hub.Register(2, nil)
	require.NoError(t, err)

	hub.SendToUser(1, "hello")
	hub.SendToUser(3, "nobody")

	assert.Equal(t, []string{"hello"}, drain(a))
	assert.Empty(t, drain(b))
}

func TestHub_SendToAllReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	a1, _ := hub.Register(1, nil)
	a2, _ := hub.Register(1, nil)
	b, _ := hub.Register(2, nil)

	hub.SendToAll("news")

	for _, c := range []*Client{a1, a2, b} {
		assert.Equal(t, []string{"news"}, drain(c))
	}
	assert.Equal(t, 3, hub.ConnectionCount())
}

func TestHub_PerUserLimit(t *testing.T) {
	hub := NewHub()
	for i := 0; i < maxConnsPerUser; i++ {
		_, err := hub.Register(9, nil)
		require.NoError(t, err)
	}
	_, err := hub.Register(9, nil)
	assert.ErrorIs(t, err, ErrUserTooMany)

	_, err = hub.Register(10, nil)
	assert.NoError(t, err)
}

func TestHub_UnregisterIsIdempotent(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(3, nil)
	require.NoError(t, err)

	hub.Unregister(c)
	hub.Unregister(c)

	assert.Equal(t, 0, hub.ConnectionCount())
	assert.True(t, isDone(c))
	assert.False(t, c.Deliver([]byte("late")))
	assert.Empty(t, drain(c))
}

func TestHub_FullOutboxDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(4, nil)
	require.NoError(t, err)

	for i := 0; i < outboxSize+5; i++ {
		hub.SendToUser(4, "x")
	}
	assert.Len(t, drain(c), outboxSize)
	assert.True(t, c.Deliver([]byte("room again")))
}

func TestHub_Dispatch(t *testing.T) {
	hub := NewHub()
	a, _ := hub.Register(5, nil)
	b, _ := hub.Register(6, nil)

	hub.Dispatch(UserChannel(5), "for-five")
	hub.Dispatch(BroadcastChannel, "for-all")
	hub.Dispatch("notifications:user:abc", "ignored")
	hub.Dispatch("notifications:user:5x", "ignored")
	hub.Dispatch("notifications:user:0", "ignored")
	hub.Dispatch("other:channel", "ignored")

	assert.Equal(t, []string{"for-five", "for-all"}, drain(a))
	assert.Equal(t, []string{"for-all"}, drain(b))
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	c, _ := hub.Register(7, nil)

	require.NoError(t, hub.Shutdown(context.Background()))
	require.NoError(t, hub.Shutdown(context.Background()))

	assert.True(t, isDone(c))
	assert.Equal(t, 0, hub.ConnectionCount())
	_, err := hub.Register(7, nil)
	assert.ErrorIs(t, err, ErrHubShutdown)

	// A pump exiting after shutdown still unregisters cleanly.
	assert.NotPanics(t, func() { hub.Unregister(c) })
}
