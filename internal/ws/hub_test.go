package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
)

func drain(t *testing.T, c *Client) []models.ChannelEvent {
	t.Helper()
	var out []models.ChannelEvent
	for {
		select {
		case data, ok := <-c.Send():
			if !ok {
				return out
			}
			var event models.ChannelEvent
			require.NoError(t, json.Unmarshal(data, &event))
			out = append(out, event)
		default:
			return out
		}
	}
}

func TestHubBroadcastReachesRoomMembers(t *testing.T) {
	hub := NewHub()
	alice := NewClient("alice", 4)
	bob := NewClient("bob", 4)
	carol := NewClient("carol", 4)

	hub.Join("alice_bob", alice)
	hub.Join("alice_bob", bob)
	hub.Join("carol_dave", carol)

	hub.Broadcast(models.ChannelEvent{Channel: "alice_bob", Name: models.EventMessageCreated})

	assert.Len(t, drain(t, alice), 1)
	assert.Len(t, drain(t, bob), 1)
	assert.Empty(t, drain(t, carol))
}

func TestHubLeaveStopsDelivery(t *testing.T) {
	hub := NewHub()
	alice := NewClient("alice", 4)

	hub.Join("alice_bob", alice)
	hub.Leave("alice_bob", alice)

	hub.Broadcast(models.ChannelEvent{Channel: "alice_bob", Name: models.EventMessageCreated})
	assert.Empty(t, drain(t, alice))
}

func TestHubChannelSwitch(t *testing.T) {
	hub := NewHub()
	alice := NewClient("alice", 4)

	// switching conversations leaves the old room before joining the new
	// one, so nothing from the old channel can arrive afterwards
	hub.Join("alice_bob", alice)
	hub.Leave("alice_bob", alice)
	hub.Join("alice_carol", alice)

	hub.Broadcast(models.ChannelEvent{Channel: "alice_bob", Name: models.EventMessageCreated})
	hub.Broadcast(models.ChannelEvent{Channel: "alice_carol", Name: models.EventMessageCreated})

	events := drain(t, alice)
	require.Len(t, events, 1)
	assert.Equal(t, "alice_carol", events[0].Channel)
}

func TestHubCloseIsIdempotent(t *testing.T) {
	hub := NewHub()
	alice := NewClient("alice", 4)
	hub.Join("alice_bob", alice)
	hub.Join("user_alice", alice)

	hub.Close(alice)
	hub.Close(alice)

	// closed channel, no deliveries
	hub.Broadcast(models.ChannelEvent{Channel: "alice_bob", Name: models.EventMessageCreated})
	_, ok := <-alice.Send()
	assert.False(t, ok)

	// joining after close is a no-op
	hub.Join("alice_bob", alice)
	hub.Broadcast(models.ChannelEvent{Channel: "alice_bob", Name: models.EventMessageCreated})
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := NewClient("slow", 1)
	hub.Join("room", slow)

	hub.Broadcast(models.ChannelEvent{Channel: "room", Name: "a"})
	// queue full now, the second broadcast detaches the client instead of
	// blocking the sender
	hub.Broadcast(models.ChannelEvent{Channel: "room", Name: "b"})

	data, ok := <-slow.Send()
	require.True(t, ok)
	var event models.ChannelEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "a", event.Name)

	_, ok = <-slow.Send()
	assert.False(t, ok)
}
