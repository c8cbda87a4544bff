package domain

import "errors"

// Kind groups rejections by how callers should treat them.
type Kind string

const (
	KindPrecondition Kind = "precondition"
	KindNotFound     Kind = "not_found"
	KindExhausted    Kind = "exhausted"
	KindUnauthorized Kind = "unauthorized"
)

// Rejection codes as they appear on the wire.
const (
	CodeRoomNotFound          = "ROOM_NOT_FOUND"
	CodeQuestionNotFound      = "QUESTION_NOT_FOUND"
	CodeParticipantNotFound   = "PARTICIPANT_NOT_FOUND"
	CodeInvalidRoomState      = "INVALID_ROOM_STATE"
	CodeQuestionNotActive     = "QUESTION_NOT_ACTIVE"
	CodeAnswersClosed         = "ANSWERS_CLOSED"
	CodeAlreadySubmitted      = "ALREADY_SUBMITTED"
	CodeInvalidChoice         = "INVALID_CHOICE"
	CodeQuestionPoolExhausted = "QUESTION_POOL_EXHAUSTED"
	CodeQuestionAlreadyUsed   = "QUESTION_ALREADY_USED"
	CodeInvalidToken          = "INVALID_TOKEN"
	CodeTokenExpiredOrInvalid = "TOKEN_EXPIRED_OR_INVALID"
	CodeNotInRoom             = "NOT_IN_ROOM"
	CodeInvalidPayload        = "INVALID_PAYLOAD"
	CodeUnsupportedEvent      = "UNSUPPORTED_EVENT"
	CodeInternal              = "INTERNAL"
)

// Rejection is an expected, non-fatal refusal reported to the caller with a code.
type Rejection struct {
	Kind    Kind
	Code    string
	Message string
}

func (r *Rejection) Error() string {
	return r.Message
}

var (
	// ErrRoomNotFound is returned when the room or its live session does not exist.
	ErrRoomNotFound = &Rejection{Kind: KindNotFound, Code: CodeRoomNotFound, Message: "room not found"}
	// ErrQuestionNotFound indicates the question-bank entry is missing.
	ErrQuestionNotFound = &Rejection{Kind: KindNotFound, Code: CodeQuestionNotFound, Message: "question not found"}
	// ErrParticipantNotFound is returned when a session or participant cannot be resolved.
	ErrParticipantNotFound = &Rejection{Kind: KindNotFound, Code: CodeParticipantNotFound, Message: "invalid session or participant not found"}
	// ErrInvalidRoomState is returned when the room status forbids the operation.
	ErrInvalidRoomState = &Rejection{Kind: KindPrecondition, Code: CodeInvalidRoomState, Message: "room is not in the required status"}
	// ErrQuestionNotActive covers late, stale and repeated operations on a question.
	ErrQuestionNotActive = &Rejection{Kind: KindPrecondition, Code: CodeQuestionNotActive, Message: "question not active"}
	// ErrAnswersClosed is returned once the answer window has been closed.
	ErrAnswersClosed = &Rejection{Kind: KindPrecondition, Code: CodeAnswersClosed, Message: "not accepting answers"}
	// ErrAlreadySubmitted is returned for a second submission by the same participant.
	ErrAlreadySubmitted = &Rejection{Kind: KindPrecondition, Code: CodeAlreadySubmitted, Message: "answer already submitted"}
	// ErrInvalidChoice is returned when the choice does not belong to the question.
	ErrInvalidChoice = &Rejection{Kind: KindPrecondition, Code: CodeInvalidChoice, Message: "invalid answer choice"}
	// ErrQuestionPoolExhausted is returned when every question has been used in the room.
	ErrQuestionPoolExhausted = &Rejection{Kind: KindExhausted, Code: CodeQuestionPoolExhausted, Message: "no more questions available in the question pool"}
	// ErrQuestionAlreadyUsed is returned by stores when a room-question link already exists.
	ErrQuestionAlreadyUsed = &Rejection{Kind: KindPrecondition, Code: CodeQuestionAlreadyUsed, Message: "question already used in room"}
	// ErrInvalidToken is returned when a token was minted for another room.
	ErrInvalidToken = &Rejection{Kind: KindUnauthorized, Code: CodeInvalidToken, Message: "token does not match room id"}
	// ErrTokenExpiredOrInvalid covers malformed, badly signed and expired tokens.
	ErrTokenExpiredOrInvalid = &Rejection{Kind: KindUnauthorized, Code: CodeTokenExpiredOrInvalid, Message: "invalid or expired token"}
	// ErrNotInRoom is returned when a connection acts before joining.
	ErrNotInRoom = &Rejection{Kind: KindPrecondition, Code: CodeNotInRoom, Message: "not in a room"}
)

// AsRejection unwraps err into a Rejection when it is one.
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Reject builds a rejected SubmitResult from a rejection.
func Reject(questionID string, r *Rejection) SubmitResult {
	return SubmitResult{QuestionID: questionID, Accepted: false, Code: r.Code, Reason: r.Message}
}
