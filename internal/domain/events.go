package domain

import "encoding/json"

// EventType names a wire event.
type EventType string

const (
	EventJoinRoom     EventType = "JOIN_ROOM"
	EventLeaveRoom    EventType = "LEAVE_ROOM"
	EventSubmitAnswer EventType = "SUBMIT_ANSWER"

	EventRoomJoined        EventType = "ROOM_JOINED"
	EventParticipantJoined EventType = "PARTICIPANT_JOINED"
	EventParticipantLeft   EventType = "PARTICIPANT_LEFT"
	EventQuizStarted       EventType = "QUIZ_STARTED"
	EventQuizEnded         EventType = "QUIZ_ENDED"
	EventNextQuestion      EventType = "NEXT_QUESTION"
	EventAnswerSubmitted   EventType = "ANSWER_SUBMITTED"
	EventAnswerRevealed    EventType = "ANSWER_REVEALED"
	EventScoresUpdate      EventType = "SCORES_UPDATE"
	EventError             EventType = "ERROR"
)

// Event is the envelope every frame travels in.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// InboundEvent is an undecoded client frame.
type InboundEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId"`
	Token  string `json:"token"`
}

type LeaveRoomPayload struct {
	RoomID string `json:"roomId"`
}

type SubmitAnswerPayload struct {
	QuestionID string `json:"questionId"`
	AnswerID   string `json:"answerId,omitempty"`
	AnswerText string `json:"answerText,omitempty"`
}

type RoomJoinedPayload struct {
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname"`
	RoomID        string `json:"roomId"`
}

// ParticipantPayload is shared by PARTICIPANT_JOINED and PARTICIPANT_LEFT.
type ParticipantPayload struct {
	ParticipantID string `json:"participantId"`
	Nickname      string `json:"nickname"`
}

type QuizStartedPayload struct {
	RoomID    string `json:"roomId"`
	StartedAt string `json:"startedAt"`
}

type QuizEndedPayload struct {
	RoomID  string `json:"roomId"`
	EndedAt string `json:"endedAt"`
}

type NextQuestionPayload struct {
	QuestionID     string       `json:"questionId"`
	Type           QuestionType `json:"type"`
	Description    string       `json:"description"`
	Choices        []Choice     `json:"choices"`
	QuestionNumber int          `json:"questionNumber"`
}

type AnswerSubmittedPayload struct {
	QuestionID string `json:"questionId"`
	Accepted   bool   `json:"accepted"`
}

type AnswerRevealedPayload struct {
	QuestionID              string              `json:"questionId"`
	CorrectAnswerID         string              `json:"correctAnswerId,omitempty"`
	CorrectAnswerText       string              `json:"correctAnswerText,omitempty"`
	CorrectAnswerValue      string              `json:"correctAnswerValue"`
	FirstCorrectParticipant *ParticipantPayload `json:"firstCorrectParticipant,omitempty"`
}

// ParticipantScore is one leaderboard row.
type ParticipantScore struct {
	ParticipantID     string `json:"participantId"`
	Nickname          string `json:"nickname"`
	AnsweredCorrectly bool   `json:"answeredCorrectly"`
	PointsEarned      int    `json:"pointsEarned"`
	TotalScore        int    `json:"totalScore"`
}

type ScoresUpdatePayload struct {
	QuestionID string             `json:"questionId"`
	Scores     []ParticipantScore `json:"scores"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// NewNextQuestionPayload strips the answer key from q.
func NewNextQuestionPayload(q Question, number int) NextQuestionPayload {
	choices := make([]Choice, 0, len(q.Choices))
	choices = append(choices, q.Choices...)
	return NextQuestionPayload{
		QuestionID:     q.ID,
		Type:           q.Type,
		Description:    q.Description,
		Choices:        choices,
		QuestionNumber: number,
	}
}
