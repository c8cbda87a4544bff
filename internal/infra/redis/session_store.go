package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"quizbuzz-service/internal/app"
)

// markerTimeout bounds each liveness marker write.
const markerTimeout = 2 * time.Second

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Session state stays in process memory; Redis only carries a liveness
// marker per room so operators can see which rooms have an open session.
// Redis is never called while the arena lock is held.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

// GetOrCreate returns the room's session and refreshes its marker, so a room
// that keeps advancing never looks idle.
func (s *SessionStore) GetOrCreate(roomID string) *app.Session {
	s.mu.Lock()
	session, ok := s.sessions[roomID]
	if !ok {
		session = app.NewSession(roomID)
		s.sessions[roomID] = session
	}
	s.mu.Unlock()

	s.mark(roomID, session)
	return session
}

func (s *SessionStore) Get(roomID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[roomID]
	return session, ok
}

func (s *SessionStore) Delete(roomID string) {
	s.mu.Lock()
	_, ok := s.sessions[roomID]
	delete(s.sessions, roomID)
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), markerTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(roomID)).Err(); err != nil {
		log.Printf("redis: clear session %s: %v", roomID, err)
	}
}

// best-effort liveness marker
func (s *SessionStore) mark(roomID string, session *app.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), markerTimeout)
	defer cancel()
	if err := s.client.Set(ctx, s.key(roomID), session.CreatedAt().UTC().Format(time.RFC3339), s.ttl).Err(); err != nil {
		log.Printf("redis: mark session %s: %v", roomID, err)
	}
}

func (s *SessionStore) key(roomID string) string {
	return "room:session:" + roomID
}
