package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizbuzz-service/internal/app"
	"quizbuzz-service/internal/auth"
	"quizbuzz-service/internal/domain"
	"quizbuzz-service/internal/infra/memory"
)

const testSecret = "test-secret"

type recorder struct {
	mu     sync.Mutex
	events map[string][]domain.Event
}

func newRecorder() *recorder {
	return &recorder{events: make(map[string][]domain.Event)}
}

func (r *recorder) Send(connID string, ev domain.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[connID] = append(r.events[connID], ev)
	return true
}

func (r *recorder) of(connID string) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events[connID]...)
}

func (r *recorder) last(t *testing.T, connID string, typ domain.EventType) domain.Event {
	t.Helper()
	events := r.of(connID)
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type == typ {
			return events[i]
		}
	}
	t.Fatalf("no %s event delivered to %s (got %v)", typ, connID, events)
	return domain.Event{}
}

func (r *recorder) count(connID string, typ domain.EventType) int {
	n := 0
	for _, ev := range r.of(connID) {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// at sets the clock to the base time plus the given offset in milliseconds.
func (c *fakeClock) at(ms int) {
	c.Set(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC).Add(time.Duration(ms) * time.Millisecond))
}

type fixture struct {
	engine   *app.Engine
	store    *memory.Store
	sessions *memory.SessionStore
	tokens   *auth.Tokens
	sent     *recorder
	clock    *fakeClock
	room     domain.Room
}

func newFixture(t *testing.T, opts ...app.Option) *fixture {
	t.Helper()
	store := memory.NewStore()
	sessions := memory.NewSessionStore()
	tokens := auth.NewTokens(testSecret, time.Hour)
	sent := newRecorder()
	clock := newFakeClock()

	opts = append([]app.Option{app.WithClock(clock.Now), app.WithPicker(func(int) int { return 0 })}, opts...)
	engine := app.NewEngine(app.Deps{
		Sessions:  sessions,
		Store:     store,
		Questions: memory.NewQuestionRepository(store, time.Minute),
		Tokens:    tokens,
		Sender:    sent,
	}, opts...)

	room := store.AddRoom(domain.Room{ID: "room-1", Title: "Trivia night", MaxPlayers: 10, Status: domain.RoomOngoing})
	return &fixture{
		engine:   engine,
		store:    store,
		sessions: sessions,
		tokens:   tokens,
		sent:     sent,
		clock:    clock,
		room:     room,
	}
}

func (f *fixture) participant(t *testing.T, nickname string) domain.RoomParticipant {
	t.Helper()
	p, err := f.store.AddParticipant(f.room.ID, "user-"+nickname, nickname)
	if err != nil {
		t.Fatalf("add participant %s: %v", nickname, err)
	}
	f.store.AddSession("sess-"+nickname, "user-"+nickname)
	return p
}

// join connects a participant over connection connID.
func (f *fixture) join(t *testing.T, connID, nickname string) domain.Registration {
	t.Helper()
	token, err := f.tokens.Issue("sess-"+nickname, f.room.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	reg, err := f.engine.Join(context.Background(), connID, f.room.ID, token)
	if err != nil {
		t.Fatalf("join %s: %v", nickname, err)
	}
	return reg
}

func (f *fixture) advance(t *testing.T) domain.NextQuestion {
	t.Helper()
	next, err := f.engine.Advance(context.Background(), f.room.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	return next
}

func (f *fixture) submit(participantID, questionID, choiceID, text string) domain.SubmitResult {
	return f.engine.SubmitAnswer(f.room.ID, participantID, domain.AnswerSubmission{
		QuestionID: questionID,
		ChoiceID:   choiceID,
		Text:       text,
	})
}

func (f *fixture) reveal(t *testing.T, questionID string) domain.RevealResult {
	t.Helper()
	res, err := f.engine.Reveal(context.Background(), f.room.ID, questionID)
	if err != nil {
		t.Fatalf("reveal %s: %v", questionID, err)
	}
	return res
}

func multipleChoice(id string) domain.Question {
	return domain.Question{
		ID:          id,
		Type:        domain.MultipleChoice,
		Description: "Which planet is known as the red planet?",
		Choices: []domain.Choice{
			{ID: id + "-A", Value: "Venus"},
			{ID: id + "-B", Value: "Jupiter"},
			{ID: id + "-C", Value: "Mars"},
			{ID: id + "-D", Value: "Saturn"},
		},
		CorrectChoiceID: id + "-C",
	}
}

func identification(id, answer string) domain.Question {
	return domain.Question{
		ID:          id,
		Type:        domain.Identification,
		Description: "Capital of France?",
		CorrectText: answer,
	}
}

func scoreOf(t *testing.T, scores []domain.ParticipantScore, participantID string) domain.ParticipantScore {
	t.Helper()
	for _, s := range scores {
		if s.ParticipantID == participantID {
			return s
		}
	}
	t.Fatalf("participant %s missing from leaderboard %+v", participantID, scores)
	return domain.ParticipantScore{}
}

func requireRejection(t *testing.T, res domain.SubmitResult, code string) {
	t.Helper()
	if res.Accepted {
		t.Fatalf("expected rejection %s, submission was accepted", code)
	}
	if res.Code != code {
		t.Fatalf("expected rejection %s, got %s (%s)", code, res.Code, res.Reason)
	}
}

func requireErr(t *testing.T, err error, target *domain.Rejection) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %s, got %v", target.Code, err)
	}
}

// flakyStore fails scoring writes while failWrites is set.
type flakyStore struct {
	*memory.Store
	mu         sync.Mutex
	failWrites bool
}

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	s.failWrites = v
	s.mu.Unlock()
}

func (s *flakyStore) UpsertScoringEvents(ctx context.Context, events []domain.ScoringEvent) error {
	s.mu.Lock()
	fail := s.failWrites
	s.mu.Unlock()
	if fail {
		return errors.New("connection refused")
	}
	return s.Store.UpsertScoringEvents(ctx, events)
}
