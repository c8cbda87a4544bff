package app

import (
	"sort"
	"sync"
	"time"

	"quizbuzz-service/internal/domain"
)

// Session is the in-memory state of one room: the open question and the
// submissions received for it. Rooms never share a Session.
type Session struct {
	roomID    string
	createdAt time.Time

	// opMu serializes host operations (advance, reveal, end) on the room.
	opMu sync.Mutex

	mu                sync.Mutex
	currentQuestionID string
	choices           map[string]struct{}
	acceptingAnswers  bool
	submissions       map[string]domain.Submission
	seq               int
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(roomID string) *Session {
	return NewSessionAt(roomID, time.Now())
}

// NewSessionAt creates a session with a fixed creation time.
func NewSessionAt(roomID string, createdAt time.Time) *Session {
	return &Session{
		roomID:      roomID,
		createdAt:   createdAt,
		submissions: make(map[string]domain.Submission),
	}
}

// CreatedAt returns when the session was created.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() domain.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.SessionSnapshot{
		RoomID:            s.roomID,
		CurrentQuestionID: s.currentQuestionID,
		AcceptingAnswers:  s.acceptingAnswers,
		SubmissionCount:   len(s.submissions),
	}
}

// open resets the session onto a new question and returns how many
// unrevealed submissions were dropped.
func (s *Session) open(q domain.Question) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	if s.currentQuestionID != "" {
		dropped = len(s.submissions)
	}
	s.currentQuestionID = q.ID
	s.choices = make(map[string]struct{}, len(q.Choices))
	for _, c := range q.Choices {
		s.choices[c.ID] = struct{}{}
	}
	s.acceptingAnswers = true
	s.submissions = make(map[string]domain.Submission)
	s.seq = 0
	return dropped
}

// submit validates and records a submission. Checks run in a fixed order so
// the rejection code is deterministic. The clock is read under the lock so
// timestamps follow arrival order.
func (s *Session) submit(participantID string, answer domain.AnswerSubmission, now func() time.Time) *domain.Rejection {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentQuestionID == "" || answer.QuestionID != s.currentQuestionID {
		return domain.ErrQuestionNotActive
	}
	if !s.acceptingAnswers {
		return domain.ErrAnswersClosed
	}
	if _, ok := s.submissions[participantID]; ok {
		return domain.ErrAlreadySubmitted
	}
	if answer.ChoiceID != "" {
		if _, ok := s.choices[answer.ChoiceID]; !ok {
			return domain.ErrInvalidChoice
		}
	}

	s.seq++
	s.submissions[participantID] = domain.Submission{
		ParticipantID: participantID,
		ChoiceID:      answer.ChoiceID,
		Text:          answer.Text,
		ReceivedAt:    now(),
		Seq:           s.seq,
	}
	return nil
}

// closeWindow stops accepting answers for questionID and returns its
// submissions in arrival order. Calling it again on a closed window returns
// the same submissions.
func (s *Session) closeWindow(questionID string) ([]domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentQuestionID == "" || s.currentQuestionID != questionID {
		return nil, domain.ErrQuestionNotActive
	}
	s.acceptingAnswers = false

	out := make([]domain.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		out = append(out, sub)
	}
	orderSubmissions(out)
	return out, nil
}

// clear returns the session to "no question open" if questionID is still current.
func (s *Session) clear(questionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentQuestionID != questionID {
		return
	}
	s.currentQuestionID = ""
	s.choices = nil
	s.acceptingAnswers = false
	s.submissions = make(map[string]domain.Submission)
	s.seq = 0
}

// orderSubmissions sorts by acceptance time, then arrival sequence.
func orderSubmissions(subs []domain.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].ReceivedAt.Equal(subs[j].ReceivedAt) {
			return subs[i].ReceivedAt.Before(subs[j].ReceivedAt)
		}
		return subs[i].Seq < subs[j].Seq
	})
}
