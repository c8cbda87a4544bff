package http

import (
	"log"
	"sync"

	"quizbuzz-service/internal/domain"
)

const sendQueueSize = 64

// Hub owns the outbound queue of every live websocket connection and
// implements app.Sender on top of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]chan domain.Event
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]chan domain.Event),
	}
}

func (h *Hub) attach(connID string) <-chan domain.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan domain.Event, sendQueueSize)
	h.clients[connID] = ch
	log.Printf("ws: client %s connected (total: %d)", connID, len(h.clients))
	return ch
}

// detach closes the connection's queue; the writer drains it and exits.
func (h *Hub) detach(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.clients[connID]; ok {
		delete(h.clients, connID)
		close(ch)
		log.Printf("ws: client %s disconnected", connID)
	}
}

// Send enqueues ev for connID without blocking. A full queue drops the event.
func (h *Hub) Send(connID string, ev domain.Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ch, ok := h.clients[connID]
	if !ok {
		return false
	}
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}

// Len reports the number of live connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
