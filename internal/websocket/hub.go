package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire frame for every live-channel event, both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Server-to-client event names.
const (
	EventNewMessage       = "new-message"
	EventNewNotification  = "new-notification"
	EventMessageRead      = "message-read"
	EventMessageDelivered = "message-delivered"
	EventError            = "error"
)

// Client-to-server event names.
const (
	EventJoinChat    = "join-chat"
	EventLeaveChat   = "leave-chat"
	EventSendMessage = "send-message"
	EventMarkRead    = "mark-read"
)

type roomChange struct {
	client *Client
	room   string
}

type emitRequest struct {
	room    string
	payload []byte
}

// Hub is the room registry: it owns every live connection and all room
// membership. Rooms are named multicast groups: conversation ids for chat
// rooms, "user:<id>" for personal notification rooms. Membership is only
// mutated inside Run's loop; membership is process-local and not preserved
// across reconnects.
type Hub struct {
	// rooms maps room name to the set of member connections.
	rooms map[string]map[*Client]bool

	// clients is the set of all registered connections.
	clients map[*Client]bool

	Register   chan *Client
	Unregister chan *Client

	joins  chan roomChange
	leaves chan roomChange
	emits  chan emitRequest

	// Mutex to protect reads of the maps from outside the run loop.
	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		joins:      make(chan roomChange),
		leaves:     make(chan roomChange),
		emits:      make(chan emitRequest, 64),
	}
}

// PersonalRoom is the room a user's notifications are delivered to.
// Authenticated connections are auto-joined on register.
func PersonalRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// Run starts the hub's processing loop.
func (h *Hub) Run() {
	slog.Info("websocket hub started")
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			if client.UserID != uuid.Nil {
				h.join(client, PersonalRoom(client.UserID))
				slog.Debug("client registered", "user", client.UserID)
			} else {
				slog.Debug("unauthenticated client registered")
			}

		case client := <-h.Unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				for room := range client.rooms {
					h.removeFromRoom(client, room)
				}
				client.rooms = make(map[string]bool)
			}
			h.mu.Unlock()
			slog.Debug("client unregistered", "user", client.UserID)

		case change := <-h.joins:
			h.join(change.client, change.room)

		case change := <-h.leaves:
			h.mu.Lock()
			h.removeFromRoom(change.client, change.room)
			delete(change.client.rooms, change.room)
			h.mu.Unlock()

		case emit := <-h.emits:
			h.mu.RLock()
			members := h.rooms[emit.room]
			if len(members) == 0 {
				// Live-only channel: no member, no delivery. The durable
				// store is the fallback clients re-sync from.
				slog.Debug("no members in room, event dropped", "room", emit.room)
			}
			for client := range members {
				select {
				case client.Send <- emit.payload:
				default:
					slog.Warn("send buffer full, event dropped for client", "user", client.UserID, "room", emit.room)
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.clients[client] {
		return
	}
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.rooms[room] = true
}

// removeFromRoom must be called with h.mu held.
func (h *Hub) removeFromRoom(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// JoinRoom adds the client to a named room. Required before the client
// receives live events for that room; re-issued by clients after reconnect.
func (h *Hub) JoinRoom(client *Client, room string) {
	h.joins <- roomChange{client: client, room: room}
}

// LeaveRoom removes the client from a named room.
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.leaves <- roomChange{client: client, room: room}
}

// Emit broadcasts an event to every current member of a room. Fire and
// forget: callers have already committed the durable write, delivery failure
// is logged, never surfaced.
func (h *Hub) Emit(room string, event string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("failed to marshal event payload", "event", event, "err", err)
		return
	}
	payload, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		slog.Error("failed to marshal event envelope", "event", event, "err", err)
		return
	}

	select {
	case h.emits <- emitRequest{room: room, payload: payload}:
	case <-time.After(1 * time.Second):
		slog.Warn("timeout queuing event, hub busy", "event", event, "room", room)
	}
}

// EmitToUser broadcasts an event to a user's personal room.
func (h *Hub) EmitToUser(userID uuid.UUID, event string, data interface{}) {
	h.Emit(PersonalRoom(userID), event, data)
}

// RoomSize returns the number of connections currently joined to a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of rooms with at least one member.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
