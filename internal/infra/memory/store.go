package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"quizbuzz-service/internal/domain"
)

type eventKey struct {
	participantID string
	questionID    string
}

// Store is an in-memory implementation of app.Store (useful for tests/demos).
// It also serves as a QuestionLoader.
type Store struct {
	mu           sync.RWMutex
	rooms        map[string]domain.Room
	questions    map[string]domain.Question
	questionIDs  []string
	links        map[string]map[string]domain.RoomQuestion
	participants map[string]domain.RoomParticipant
	sessions     map[string]string
	events       map[eventKey]domain.ScoringEvent
	newID        func() string
}

func NewStore() *Store {
	return &Store{
		rooms:        make(map[string]domain.Room),
		questions:    make(map[string]domain.Question),
		links:        make(map[string]map[string]domain.RoomQuestion),
		participants: make(map[string]domain.RoomParticipant),
		sessions:     make(map[string]string),
		events:       make(map[eventKey]domain.ScoringEvent),
		newID:        uuid.NewString,
	}
}

// AddRoom seeds a room. Missing ids and statuses are filled in.
func (s *Store) AddRoom(room domain.Room) domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room.ID == "" {
		room.ID = s.newID()
	}
	if room.Status == "" {
		room.Status = domain.RoomCreated
	}
	s.rooms[room.ID] = room
	return room
}

// AddQuestion seeds a question-bank entry.
func (s *Store) AddQuestion(q domain.Question) domain.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	if q.ID == "" {
		q.ID = s.newID()
	}
	for i := range q.Choices {
		if q.Choices[i].ID == "" {
			q.Choices[i].ID = s.newID()
		}
	}
	if _, exists := s.questions[q.ID]; !exists {
		s.questionIDs = append(s.questionIDs, q.ID)
	}
	s.questions[q.ID] = q
	return q
}

// AddSession maps an authentication session to a user.
func (s *Store) AddSession(sessionID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = userID
}

// AddParticipant registers a user in a room under a nickname unique to that room.
func (s *Store) AddParticipant(roomID, userID, nickname string) (domain.RoomParticipant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return domain.RoomParticipant{}, domain.ErrRoomNotFound
	}
	for _, p := range s.participants {
		if p.RoomID != roomID {
			continue
		}
		if p.UserID == userID {
			return p, nil
		}
		if p.Nickname == nickname {
			return domain.RoomParticipant{}, fmt.Errorf("nickname %q already taken in room %s", nickname, roomID)
		}
	}
	p := domain.RoomParticipant{ID: s.newID(), RoomID: roomID, UserID: userID, Nickname: nickname}
	s.participants[p.ID] = p
	return p, nil
}

func (s *Store) GetRoom(_ context.Context, roomID string) (domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return room, nil
}

func (s *Store) StartRoom(_ context.Context, roomID string, at time.Time) (domain.Room, error) {
	return s.transition(roomID, domain.RoomCreated, domain.RoomOngoing, func(r *domain.Room) {
		r.StartedAt = &at
	})
}

func (s *Store) EndRoom(_ context.Context, roomID string, at time.Time) (domain.Room, error) {
	return s.transition(roomID, domain.RoomOngoing, domain.RoomEnded, func(r *domain.Room) {
		r.EndedAt = &at
	})
}

func (s *Store) transition(roomID string, from, to domain.RoomStatus, stamp func(*domain.Room)) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if room.Status != from {
		return domain.Room{}, domain.ErrInvalidRoomState
	}
	room.Status = to
	stamp(&room)
	s.rooms[roomID] = room
	return room, nil
}

func (s *Store) SampleUnusedQuestions(_ context.Context, roomID string, limit int) ([]string, error) {
	s.mu.RLock()
	used := s.links[roomID]
	unused := make([]string, 0, len(s.questionIDs))
	for _, id := range s.questionIDs {
		if _, ok := used[id]; !ok {
			unused = append(unused, id)
		}
	}
	s.mu.RUnlock()

	rand.Shuffle(len(unused), func(i, j int) { unused[i], unused[j] = unused[j], unused[i] })
	if limit > 0 && len(unused) > limit {
		unused = unused[:limit]
	}
	return unused, nil
}

func (s *Store) LinkQuestion(_ context.Context, roomID, questionID string, at time.Time) (domain.RoomQuestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return domain.RoomQuestion{}, domain.ErrRoomNotFound
	}
	if _, ok := s.questions[questionID]; !ok {
		return domain.RoomQuestion{}, domain.ErrQuestionNotFound
	}
	used, ok := s.links[roomID]
	if !ok {
		used = make(map[string]domain.RoomQuestion)
		s.links[roomID] = used
	}
	if _, ok := used[questionID]; ok {
		return domain.RoomQuestion{}, domain.ErrQuestionAlreadyUsed
	}
	link := domain.RoomQuestion{ID: s.newID(), RoomID: roomID, QuestionID: questionID, CreatedAt: at}
	used[questionID] = link
	return link, nil
}

func (s *Store) CountRoomQuestions(_ context.Context, roomID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.links[roomID]), nil
}

// RoomQuestions returns the question ids linked to a room.
func (s *Store) RoomQuestions(roomID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.links[roomID]))
	for id := range s.links[roomID] {
		out = append(out, id)
	}
	return out
}

func (s *Store) ResolveParticipant(_ context.Context, sessionID, roomID string) (domain.RoomParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.sessions[sessionID]
	if !ok {
		return domain.RoomParticipant{}, domain.ErrParticipantNotFound
	}
	for _, p := range s.participants {
		if p.RoomID == roomID && p.UserID == userID {
			return p, nil
		}
	}
	return domain.RoomParticipant{}, domain.ErrParticipantNotFound
}

func (s *Store) ListRoomParticipants(_ context.Context, roomID string) ([]domain.RoomParticipant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.RoomParticipant, 0)
	for _, p := range s.participants {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) UpsertScoringEvents(_ context.Context, events []domain.ScoringEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		s.events[eventKey{participantID: ev.ParticipantID, questionID: ev.QuestionID}] = ev
	}
	return nil
}

func (s *Store) SumScores(_ context.Context, roomID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := make(map[string]int)
	for _, ev := range s.events {
		if ev.RoomID == roomID {
			totals[ev.ParticipantID] += ev.Points
		}
	}
	return totals, nil
}

// ScoringEvents returns the events recorded for a question.
func (s *Store) ScoringEvents(questionID string) []domain.ScoringEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ScoringEvent
	for _, ev := range s.events {
		if ev.QuestionID == questionID {
			out = append(out, ev)
		}
	}
	return out
}

func (s *Store) LoadQuestion(_ context.Context, questionID string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.questions[questionID]
	if !ok {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, nil
}
