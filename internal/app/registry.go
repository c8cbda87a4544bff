package app

import (
	"sort"
	"sync"

	"quizbuzz-service/internal/domain"
)

// Registry maps live connections to room participants. It is independent
// from session state so joins and leaves never block submissions.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]domain.Registration
	rooms map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]domain.Registration),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register binds a connection to a room, replacing any previous binding.
// It returns the replaced registration, if there was one.
func (r *Registry) Register(reg domain.Registration) (domain.Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev, replaced := r.conns[reg.ConnectionID]
	if replaced {
		r.detachLocked(prev)
	}
	r.conns[reg.ConnectionID] = reg
	members, ok := r.rooms[reg.RoomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[reg.RoomID] = members
	}
	members[reg.ConnectionID] = struct{}{}
	return prev, replaced
}

// Unregister removes a connection and returns what it was bound to.
func (r *Registry) Unregister(connID string) (domain.Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.conns[connID]
	if !ok {
		return domain.Registration{}, false
	}
	delete(r.conns, connID)
	r.detachLocked(reg)
	return reg, true
}

// Lookup returns the registration for a connection.
func (r *Registry) Lookup(connID string) (domain.Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.conns[connID]
	return reg, ok
}

// Connections lists the connection ids registered to a room, sorted.
func (r *Registry) Connections(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) detachLocked(reg domain.Registration) {
	members, ok := r.rooms[reg.RoomID]
	if !ok {
		return
	}
	delete(members, reg.ConnectionID)
	if len(members) == 0 {
		delete(r.rooms, reg.RoomID)
	}
}
