package ws

import (
	"encoding/json"
	"sync"

	"github.com/Ahnaf-Tariq/echochat-server/internal/models"
)

// Hub fans channel events out to subscribed clients. A client joins the
// rooms it wants (direct channel ids, group rooms, per-user presence rooms)
// and leaves them on channel switch; leaving or closing stops all further
// delivery to that client, so a stale subscription can never race events
// into a newly selected channel.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Join(channel string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	if h.rooms[channel] == nil {
		h.rooms[channel] = make(map[*Client]bool)
	}
	h.rooms[channel][c] = true
	c.channels[channel] = true
}

func (h *Hub) Leave(channel string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(channel, c)
}

func (h *Hub) leaveLocked(channel string, c *Client) {
	if clients, ok := h.rooms[channel]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, channel)
		}
	}
	delete(c.channels, channel)
}

// Close detaches the client from every room and closes its send queue.
// Idempotent; delivery after Close is impossible.
func (h *Hub) Close(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for channel := range c.channels {
		h.leaveLocked(channel, c)
	}
	c.closed = true
	close(c.send)
}

// Broadcast delivers the event to every subscriber of its channel. Clients
// whose send queue is full are dropped rather than blocking the sender.
func (h *Hub) Broadcast(event models.ChannelEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.rooms[event.Channel] {
		select {
		case c.send <- data:
		default:
			for channel := range c.channels {
				h.leaveLocked(channel, c)
			}
			c.closed = true
			close(c.send)
		}
	}
}
