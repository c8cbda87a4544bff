package domain

import (
	"strings"
	"time"
)

// RoomStatus is the lifecycle status of a room.
type RoomStatus string

const (
	RoomCreated RoomStatus = "CREATED"
	RoomOngoing RoomStatus = "ONGOING"
	RoomEnded   RoomStatus = "ENDED"
)

// Room is a bounded quiz game instance. Owned by the store.
type Room struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	MaxPlayers  int        `json:"maxPlayers"`
	HasPassword bool       `json:"hasPassword"`
	Status      RoomStatus `json:"status"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
}

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	MultipleChoice QuestionType = "MULTIPLE_CHOICE"
	TrueOrFalse    QuestionType = "TRUE_OR_FALSE"
	Identification QuestionType = "IDENTIFICATION"
)

// Choice is one selectable answer. The correct flag never leaves the server.
type Choice struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Question is a question-bank entry with exactly one correct answer.
type Question struct {
	ID              string       `json:"id"`
	Type            QuestionType `json:"type"`
	Description     string       `json:"description"`
	Choices         []Choice     `json:"choices"`
	CorrectChoiceID string       `json:"correctChoiceId,omitempty"`
	CorrectText     string       `json:"correctText,omitempty"`
}

// CanonicalText returns the display text of the correct answer.
func (q Question) CanonicalText() string {
	if q.CorrectChoiceID != "" {
		for _, c := range q.Choices {
			if c.ID == q.CorrectChoiceID {
				return c.Value
			}
		}
	}
	return q.CorrectText
}

// IsCorrect evaluates a submission against the question's answer key.
// A choice id wins over free text when both are present.
func (q Question) IsCorrect(choiceID, text string) bool {
	if choiceID != "" {
		return q.CorrectChoiceID != "" && choiceID == q.CorrectChoiceID
	}
	canonical := q.CanonicalText()
	if text == "" || canonical == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(text), strings.TrimSpace(canonical))
}

// RoomQuestion records that a question was used in a room. Append-only.
type RoomQuestion struct {
	ID         string    `json:"id"`
	RoomID     string    `json:"roomId"`
	QuestionID string    `json:"questionId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RoomParticipant is a (room, user) pairing with a nickname unique in the room.
type RoomParticipant struct {
	ID       string `json:"id"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

// AnswerSubmission is what a participant sends for the open question.
type AnswerSubmission struct {
	QuestionID string
	ChoiceID   string
	Text       string
}

// Submission is an accepted answer held in session state until reveal.
type Submission struct {
	ParticipantID string
	ChoiceID      string
	Text          string
	ReceivedAt    time.Time
	Seq           int
}

// ScoringEvent is the durable per (participant, question) score row.
type ScoringEvent struct {
	RoomID           string
	ParticipantID    string
	QuestionID       string
	SelectedChoiceID string
	AnswerText       string
	Points           int
}

// Registration binds a live connection to a room participant.
type Registration struct {
	ConnectionID  string `json:"-"`
	RoomID        string `json:"roomId"`
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname"`
}

// SessionSnapshot is a read-only view of a room's session state.
type SessionSnapshot struct {
	RoomID            string `json:"roomId"`
	CurrentQuestionID string `json:"currentQuestionId,omitempty"`
	AcceptingAnswers  bool   `json:"acceptingAnswers"`
	SubmissionCount   int    `json:"submissionCount"`
}

// QuestionOpen reports whether a question is currently open in the room.
func (s SessionSnapshot) QuestionOpen() bool {
	return s.CurrentQuestionID != ""
}

// SubmitResult is the explicit accept/reject outcome of a submission.
type SubmitResult struct {
	QuestionID string
	Accepted   bool
	Code       string
	Reason     string
}

// JoinClaims is what a validated join token carries.
type JoinClaims struct {
	SessionID string
	RoomID    string
}

// NextQuestion describes a freshly opened question.
type NextQuestion struct {
	Question       Question
	RoomQuestionID string
	QuestionNumber int
}

// RevealResult carries the payloads produced by a reveal.
type RevealResult struct {
	Answer AnswerRevealedPayload
	Scores ScoresUpdatePayload
}
