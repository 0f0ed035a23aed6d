// Package ws keeps authenticated websocket connections grouped into rooms so
// events can be routed to one identity or one role at a time.
package ws

import (
	"encoding/json"
	"sync"
)

// Event is the wire format in both directions.
type Event struct {
	Event string                 `json:"event"`
	Data  map[string]interface{} `json:"data,omitempty"`
}

func (e Event) encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]struct{})}
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
	c.joined[room] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, c)
}

// LeaveAll detaches a disconnecting client from every room it joined.
func (h *Hub) LeaveAll(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room := range c.joined {
		h.leaveLocked(room, c)
	}
}

func (h *Hub) leaveLocked(room string, c *Client) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	delete(c.joined, room)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast sends evt to every member of room except the sender. A member
// whose send buffer is full is skipped rather than blocking the hub.
func (h *Hub) Broadcast(room string, evt Event, except *Client) {
	payload := evt.encode()

	h.mu.RLock()
	defer h.mu.RUnlock()

	for member := range h.rooms[room] {
		if member == except {
			continue
		}
		select {
		case member.send <- payload:
		default:
		}
	}
}

func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
