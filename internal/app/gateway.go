package app

import (
	"log"

	"quizbuzz-service/internal/domain"
)

// Sender delivers an event to one live connection. Send reports false when
// the connection is gone or its queue is full.
type Sender interface {
	Send(connID string, ev domain.Event) bool
}

// Gateway fans events out to the connections registered at call time.
// Delivery is best-effort: nothing is retried or replayed.
type Gateway struct {
	registry *Registry
	sender   Sender
}

func NewGateway(registry *Registry, sender Sender) *Gateway {
	return &Gateway{registry: registry, sender: sender}
}

// Broadcast sends ev to every connection in the room except exceptConnID.
func (g *Gateway) Broadcast(roomID string, ev domain.Event, exceptConnID string) int {
	delivered := 0
	for _, connID := range g.registry.Connections(roomID) {
		if connID == exceptConnID {
			continue
		}
		if g.sender.Send(connID, ev) {
			delivered++
		} else {
			log.Printf("gateway: dropped %s for conn %s in room %s", ev.Type, connID, roomID)
		}
	}
	return delivered
}

// Notify sends ev to a single connection.
func (g *Gateway) Notify(connID string, ev domain.Event) bool {
	return g.sender.Send(connID, ev)
}

type noopSender struct{}

func (noopSender) Send(string, domain.Event) bool { return false }
