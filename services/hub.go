package services

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Hub fans room events out to connected websocket clients. It implements
// game.EventSink. One client per player per room; a reconnect replaces the
// old connection.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Client // room code -> player id -> client
	log   *zap.SugaredLogger
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		rooms: make(map[string]map[string]*Client),
		log:   log,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	clients, ok := h.rooms[c.roomCode]
	if !ok {
		clients = make(map[string]*Client)
		h.rooms[c.roomCode] = clients
	}
	old := clients[c.playerID]
	clients[c.playerID] = c
	h.mu.Unlock()

	if old != nil {
		old.Close()
	}
}

// unregister drops c unless the player has already reconnected with a newer
// client.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if clients, ok := h.rooms[c.roomCode]; ok && clients[c.playerID] == c {
		delete(clients, c.playerID)
		if len(clients) == 0 {
			delete(h.rooms, c.roomCode)
		}
	}
	h.mu.Unlock()
}

// Broadcast sends an event to every client in a room.
func (h *Hub) Broadcast(roomCode string, event any) {
	b, err := json.Marshal(event)
	if err != nil {
		h.log.Errorf("[Hub] marshal broadcast for room %s: %v", roomCode, err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[roomCode]))
	for _, c := range h.rooms[roomCode] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.enqueue(b)
	}
}

// Notify sends an event to a single player in a room. Unknown players are
// ignored; they may have disconnected already.
func (h *Hub) Notify(roomCode, playerID string, event any) {
	b, err := json.Marshal(event)
	if err != nil {
		h.log.Errorf("[Hub] marshal notify for room %s: %v", roomCode, err)
		return
	}

	h.mu.RLock()
	c := h.rooms[roomCode][playerID]
	h.mu.RUnlock()

	if c != nil {
		c.enqueue(b)
	}
}
