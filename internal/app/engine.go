package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"
	"quizbuzz-service/internal/domain"
)

const (
	defaultSampleSize = 5
	maxLinkAttempts   = 3
)

// SessionRepository abstracts where room sessions live (in-memory, Redis-marked, etc).
type SessionRepository interface {
	GetOrCreate(roomID string) *Session
	Get(roomID string) (*Session, bool)
	Delete(roomID string)
}

// QuestionRepository loads question definitions (from cache/backing store).
type QuestionRepository interface {
	GetQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// Store is the durable state the engine reads and writes.
type Store interface {
	GetRoom(ctx context.Context, roomID string) (domain.Room, error)
	StartRoom(ctx context.Context, roomID string, at time.Time) (domain.Room, error)
	EndRoom(ctx context.Context, roomID string, at time.Time) (domain.Room, error)
	SampleUnusedQuestions(ctx context.Context, roomID string, limit int) ([]string, error)
	LinkQuestion(ctx context.Context, roomID, questionID string, at time.Time) (domain.RoomQuestion, error)
	CountRoomQuestions(ctx context.Context, roomID string) (int, error)
	ResolveParticipant(ctx context.Context, sessionID, roomID string) (domain.RoomParticipant, error)
	ListRoomParticipants(ctx context.Context, roomID string) ([]domain.RoomParticipant, error)
	UpsertScoringEvents(ctx context.Context, events []domain.ScoringEvent) error
	SumScores(ctx context.Context, roomID string) (map[string]int, error)
}

// TokenValidator checks join tokens. Failures are returned as rejections.
type TokenValidator interface {
	Validate(token string) (domain.JoinClaims, error)
}

// Deps are the collaborators an Engine needs.
type Deps struct {
	Sessions  SessionRepository
	Store     Store
	Questions QuestionRepository
	Tokens    TokenValidator
	Registry  *Registry
	Sender    Sender
}

// Option customizes an Engine.
type Option func(*Engine)

// WithClock replaces the clock used for submission and lifecycle timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPicker replaces the random index picker used by Advance.
func WithPicker(pick func(n int) int) Option {
	return func(e *Engine) { e.pick = pick }
}

// WithSampleSize bounds how many unused questions Advance samples per attempt.
func WithSampleSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.sampleSize = n
		}
	}
}

// Engine runs live quiz sessions: question lifecycle, submissions,
// first-correct scoring and the join handshake.
type Engine struct {
	sessions   SessionRepository
	store      Store
	questions  QuestionRepository
	tokens     TokenValidator
	registry   *Registry
	gateway    *Gateway
	now        func() time.Time
	pick       func(n int) int
	sampleSize int
}

func NewEngine(deps Deps, opts ...Option) *Engine {
	registry := deps.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	var sender Sender = noopSender{}
	if deps.Sender != nil {
		sender = deps.Sender
	}
	e := &Engine{
		sessions:   deps.Sessions,
		store:      deps.Store,
		questions:  deps.Questions,
		tokens:     deps.Tokens,
		registry:   registry,
		gateway:    NewGateway(registry, sender),
		now:        time.Now,
		pick:       rand.Intn,
		sampleSize: defaultSampleSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry exposes the connection registry.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// StartQuiz moves a room from CREATED to ONGOING and announces it.
func (e *Engine) StartQuiz(ctx context.Context, roomID string) (domain.Room, error) {
	session, err := e.roomSession(ctx, roomID, domain.RoomCreated)
	if err != nil {
		return domain.Room{}, err
	}
	session.opMu.Lock()
	defer session.opMu.Unlock()

	room, err := e.store.StartRoom(ctx, roomID, e.now())
	if err != nil {
		return domain.Room{}, fmt.Errorf("start room %s: %w", roomID, err)
	}
	startedAt := e.now()
	if room.StartedAt != nil {
		startedAt = *room.StartedAt
	}
	e.gateway.Broadcast(roomID, domain.Event{
		Type:    domain.EventQuizStarted,
		Payload: domain.QuizStartedPayload{RoomID: roomID, StartedAt: startedAt.UTC().Format(time.RFC3339)},
	}, "")
	return room, nil
}

// EndQuiz moves a room from ONGOING to ENDED, discards its session and announces it.
func (e *Engine) EndQuiz(ctx context.Context, roomID string) (domain.Room, error) {
	if session, ok := e.sessions.Get(roomID); ok {
		session.opMu.Lock()
		defer session.opMu.Unlock()
	}

	room, err := e.store.EndRoom(ctx, roomID, e.now())
	if err != nil {
		return domain.Room{}, fmt.Errorf("end room %s: %w", roomID, err)
	}
	e.sessions.Delete(roomID)
	endedAt := e.now()
	if room.EndedAt != nil {
		endedAt = *room.EndedAt
	}
	e.gateway.Broadcast(roomID, domain.Event{
		Type:    domain.EventQuizEnded,
		Payload: domain.QuizEndedPayload{RoomID: roomID, EndedAt: endedAt.UTC().Format(time.RFC3339)},
	}, "")
	return room, nil
}

// roomSession returns the room's session, creating it only for a known room
// in the wanted status.
func (e *Engine) roomSession(ctx context.Context, roomID string, want domain.RoomStatus) (*Session, error) {
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	if room.Status != want {
		return nil, domain.ErrInvalidRoomState
	}
	return e.sessions.GetOrCreate(roomID), nil
}

// State returns the room's session state, if a session exists.
func (e *Engine) State(roomID string) (domain.SessionSnapshot, bool) {
	session, ok := e.sessions.Get(roomID)
	if !ok {
		return domain.SessionSnapshot{}, false
	}
	return session.Snapshot(), true
}

// Advance opens a random unused question in an ongoing room.
func (e *Engine) Advance(ctx context.Context, roomID string) (domain.NextQuestion, error) {
	session, err := e.roomSession(ctx, roomID, domain.RoomOngoing)
	if err != nil {
		return domain.NextQuestion{}, err
	}
	session.opMu.Lock()
	defer session.opMu.Unlock()

	// status is re-read under the op lock; EndQuiz may have run meanwhile
	room, err := e.store.GetRoom(ctx, roomID)
	if err != nil {
		return domain.NextQuestion{}, fmt.Errorf("get room %s: %w", roomID, err)
	}
	if room.Status != domain.RoomOngoing {
		return domain.NextQuestion{}, domain.ErrInvalidRoomState
	}

	question, link, err := e.linkRandomQuestion(ctx, roomID)
	if err != nil {
		return domain.NextQuestion{}, err
	}
	number, err := e.store.CountRoomQuestions(ctx, roomID)
	if err != nil {
		return domain.NextQuestion{}, fmt.Errorf("count room questions: %w", err)
	}

	if dropped := session.open(question); dropped > 0 {
		log.Printf("engine: room %s advanced with %d unrevealed submissions discarded", roomID, dropped)
	}

	e.gateway.Broadcast(roomID, domain.Event{
		Type:    domain.EventNextQuestion,
		Payload: domain.NewNextQuestionPayload(question, number),
	}, "")

	return domain.NextQuestion{
		Question:       question,
		RoomQuestionID: link.ID,
		QuestionNumber: number,
	}, nil
}

// linkRandomQuestion samples unused questions and records one of them as used.
// A link conflict means another advance won the question; sample again.
func (e *Engine) linkRandomQuestion(ctx context.Context, roomID string) (domain.Question, domain.RoomQuestion, error) {
	var lastErr error
	for attempt := 0; attempt < maxLinkAttempts; attempt++ {
		candidates, err := e.store.SampleUnusedQuestions(ctx, roomID, e.sampleSize)
		if err != nil {
			return domain.Question{}, domain.RoomQuestion{}, fmt.Errorf("sample questions: %w", err)
		}
		if len(candidates) == 0 {
			return domain.Question{}, domain.RoomQuestion{}, domain.ErrQuestionPoolExhausted
		}

		questionID := candidates[e.pick(len(candidates))]
		question, err := e.questions.GetQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, domain.RoomQuestion{}, fmt.Errorf("load question %s: %w", questionID, err)
		}

		link, err := e.store.LinkQuestion(ctx, roomID, questionID, e.now())
		if err == nil {
			return question, link, nil
		}
		if !errors.Is(err, domain.ErrQuestionAlreadyUsed) {
			return domain.Question{}, domain.RoomQuestion{}, fmt.Errorf("link question %s: %w", questionID, err)
		}
		lastErr = err
	}
	return domain.Question{}, domain.RoomQuestion{}, lastErr
}

// SubmitAnswer records a participant's answer for the open question. It
// never blocks on I/O and always returns an explicit result.
func (e *Engine) SubmitAnswer(roomID, participantID string, answer domain.AnswerSubmission) domain.SubmitResult {
	session, ok := e.sessions.Get(roomID)
	if !ok {
		return domain.Reject(answer.QuestionID, domain.ErrRoomNotFound)
	}
	if rej := session.submit(participantID, answer, e.now); rej != nil {
		return domain.Reject(answer.QuestionID, rej)
	}
	return domain.SubmitResult{QuestionID: answer.QuestionID, Accepted: true}
}

// Reveal closes the answer window, scores the question and publishes the
// results. If persistence fails the window stays closed on the same
// question, so the call can be retried.
func (e *Engine) Reveal(ctx context.Context, roomID, questionID string) (domain.RevealResult, error) {
	if questionID == "" {
		return domain.RevealResult{}, domain.ErrQuestionNotActive
	}
	session, ok := e.sessions.Get(roomID)
	if !ok {
		return domain.RevealResult{}, domain.ErrQuestionNotActive
	}
	session.opMu.Lock()
	defer session.opMu.Unlock()

	if session.Snapshot().CurrentQuestionID != questionID {
		return domain.RevealResult{}, domain.ErrQuestionNotActive
	}

	question, err := e.questions.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.RevealResult{}, fmt.Errorf("load question %s: %w", questionID, err)
	}

	ordered, err := session.closeWindow(questionID)
	if err != nil {
		return domain.RevealResult{}, err
	}
	r := scoreSubmissions(roomID, question, ordered)

	if len(r.events) > 0 {
		if err := e.store.UpsertScoringEvents(ctx, r.events); err != nil {
			return domain.RevealResult{}, fmt.Errorf("persist scoring events: %w", err)
		}
	}
	scores, err := e.leaderboard(ctx, roomID, r)
	if err != nil {
		return domain.RevealResult{}, fmt.Errorf("build leaderboard: %w", err)
	}

	session.clear(questionID)

	answer := revealedAnswer(question)
	if r.winner != "" {
		winner := &domain.ParticipantPayload{ParticipantID: r.winner}
		for _, s := range scores {
			if s.ParticipantID == r.winner {
				winner.Nickname = s.Nickname
				break
			}
		}
		answer.FirstCorrectParticipant = winner
	}
	result := domain.RevealResult{
		Answer: answer,
		Scores: domain.ScoresUpdatePayload{QuestionID: questionID, Scores: scores},
	}

	e.gateway.Broadcast(roomID, domain.Event{Type: domain.EventAnswerRevealed, Payload: result.Answer}, "")
	e.gateway.Broadcast(roomID, domain.Event{Type: domain.EventScoresUpdate, Payload: result.Scores}, "")
	return result, nil
}

func (e *Engine) leaderboard(ctx context.Context, roomID string, r round) ([]domain.ParticipantScore, error) {
	var (
		participants []domain.RoomParticipant
		totals       map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		participants, err = e.store.ListRoomParticipants(gctx, roomID)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = e.store.SumScores(gctx, roomID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return buildLeaderboard(participants, totals, r), nil
}

// Join validates a join token, binds the connection to the room and
// announces the participant.
func (e *Engine) Join(ctx context.Context, connID, roomID, token string) (domain.Registration, error) {
	claims, err := e.tokens.Validate(token)
	if err != nil {
		return domain.Registration{}, err
	}
	if claims.RoomID != roomID {
		return domain.Registration{}, domain.ErrInvalidToken
	}

	participant, err := e.store.ResolveParticipant(ctx, claims.SessionID, roomID)
	if err != nil {
		if errors.Is(err, domain.ErrParticipantNotFound) {
			return domain.Registration{}, domain.ErrParticipantNotFound
		}
		return domain.Registration{}, fmt.Errorf("resolve participant: %w", err)
	}

	reg := domain.Registration{
		ConnectionID:  connID,
		RoomID:        roomID,
		ParticipantID: participant.ID,
		Nickname:      participant.Nickname,
	}
	if prev, replaced := e.registry.Register(reg); replaced && prev.RoomID != roomID {
		e.announceLeft(prev)
	}
	e.sessions.GetOrCreate(roomID)

	e.gateway.Notify(connID, domain.Event{
		Type: domain.EventRoomJoined,
		Payload: domain.RoomJoinedPayload{
			ParticipantID: reg.ParticipantID,
			Nickname:      reg.Nickname,
			RoomID:        roomID,
		},
	})
	e.gateway.Broadcast(roomID, domain.Event{
		Type:    domain.EventParticipantJoined,
		Payload: domain.ParticipantPayload{ParticipantID: reg.ParticipantID, Nickname: reg.Nickname},
	}, connID)
	return reg, nil
}

// Registration returns the participant bound to a connection.
func (e *Engine) Registration(connID string) (domain.Registration, bool) {
	return e.registry.Lookup(connID)
}

// Leave unbinds a connection from roomID and tells the rest of the room.
// Unknown connections, or connections bound to another room, are ignored.
func (e *Engine) Leave(connID, roomID string) (domain.Registration, bool) {
	reg, ok := e.registry.Lookup(connID)
	if !ok || (roomID != "" && reg.RoomID != roomID) {
		return domain.Registration{}, false
	}
	if _, ok := e.registry.Unregister(connID); !ok {
		return domain.Registration{}, false
	}
	e.announceLeft(reg)
	return reg, true
}

// Disconnect drops a connection's registration without announcing it.
// Participants and their scores are untouched.
func (e *Engine) Disconnect(connID string) {
	e.registry.Unregister(connID)
}

func (e *Engine) announceLeft(reg domain.Registration) {
	e.gateway.Broadcast(reg.RoomID, domain.Event{
		Type:    domain.EventParticipantLeft,
		Payload: domain.ParticipantPayload{ParticipantID: reg.ParticipantID, Nickname: reg.Nickname},
	}, "")
}
