package ws

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Send:   make(chan []byte, 8),
		UserID: userID,
		Log:    zerolog.Nop(),
	}
}

func register(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.Register <- c
	require.Eventually(t, func() bool {
		return hub.IsUserOnline(c.UserID)
	}, time.Second, 5*time.Millisecond)
}

func TestPublishReachesOnlyJoinedClients(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	alice := newTestClient(hub, 1)
	bob := newTestClient(hub, 2)
	carol := newTestClient(hub, 3)
	register(t, hub, alice)
	register(t, hub, bob)
	register(t, hub, carol)

	hub.JoinRoom(alice, 7)
	hub.JoinRoom(bob, 7)
	hub.JoinRoom(carol, 8)

	hub.PublishToRoom(7, []byte("hello"))

	require.Equal(t, []byte("hello"), <-alice.Send)
	require.Equal(t, []byte("hello"), <-bob.Send)
	select {
	case msg := <-carol.Send:
		t.Fatalf("client outside the room received %q", msg)
	default:
	}
}

func TestLeaveRoomStopsDelivery(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	alice := newTestClient(hub, 1)
	register(t, hub, alice)

	hub.JoinRoom(alice, 7)
	hub.LeaveRoom(alice, 7)
	hub.PublishToRoom(7, []byte("hello"))

	select {
	case msg := <-alice.Send:
		t.Fatalf("client received %q after leaving the room", msg)
	default:
	}
}

func TestNoReplayForLateJoiners(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	alice := newTestClient(hub, 1)
	register(t, hub, alice)

	hub.PublishToRoom(7, []byte("early"))
	hub.JoinRoom(alice, 7)

	select {
	case msg := <-alice.Send:
		t.Fatalf("late joiner received %q", msg)
	default:
	}

	hub.PublishToRoom(7, []byte("late"))
	require.Equal(t, []byte("late"), <-alice.Send)
}

func TestUsersInRoomDeduplicatesConnections(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	first := newTestClient(hub, 1)
	second := newTestClient(hub, 1) // same user, second tab
	other := newTestClient(hub, 2)
	register(t, hub, first)
	register(t, hub, second)
	register(t, hub, other)

	hub.JoinRoom(first, 7)
	hub.JoinRoom(second, 7)
	hub.JoinRoom(other, 7)

	users := hub.UsersInRoom(7)
	require.ElementsMatch(t, []uint{1, 2}, users)
}

func TestUnregisterCleansUpRoomsAndPresence(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	alice := newTestClient(hub, 1)
	register(t, hub, alice)
	hub.JoinRoom(alice, 7)

	hub.Unregister <- alice
	require.Eventually(t, func() bool {
		return !hub.IsUserOnline(1)
	}, time.Second, 5*time.Millisecond)

	require.Empty(t, hub.UsersInRoom(7))

	// Send channel is closed on unregister.
	_, open := <-alice.Send
	require.False(t, open)
}

func TestSlowConsumerDropCleansEveryRoom(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	slow := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 1, Log: zerolog.Nop()}
	register(t, hub, slow)

	hub.JoinRoom(slow, 7)
	hub.JoinRoom(slow, 8)

	// Second publish overflows the buffer and drops the connection.
	hub.PublishToRoom(7, []byte("first"))
	hub.PublishToRoom(7, []byte("second"))

	// The dropped connection must be gone from every room, not just the one
	// it overflowed in; publishing to the other room used to hit its closed
	// Send channel.
	hub.PublishToRoom(8, []byte("third"))

	require.False(t, hub.IsUserOnline(1))
	require.Empty(t, hub.UsersInRoom(7))
	require.Empty(t, hub.UsersInRoom(8))

	// Only the message that fit the buffer was delivered before the close.
	msg, open := <-slow.Send
	require.True(t, open)
	require.Equal(t, []byte("first"), msg)
	_, open = <-slow.Send
	require.False(t, open)
}

func TestSlowConsumerDropOnDirectSend(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	slow := &Client{Hub: hub, Send: make(chan []byte, 1), UserID: 1, Log: zerolog.Nop()}
	register(t, hub, slow)
	hub.JoinRoom(slow, 7)

	hub.SendToUser(1, []byte("first"))
	hub.SendToUser(1, []byte("second"))

	// Room publish after the drop must not reach the closed channel.
	hub.PublishToRoom(7, []byte("third"))

	require.False(t, hub.IsUserOnline(1))
	require.Empty(t, hub.UsersInRoom(7))
}

func TestSendToUserReachesAllConnections(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	first := newTestClient(hub, 1)
	second := newTestClient(hub, 1)
	register(t, hub, first)
	register(t, hub, second)

	hub.SendToUser(1, []byte("ping"))

	require.Equal(t, []byte("ping"), <-first.Send)
	require.Equal(t, []byte("ping"), <-second.Send)
}
