package http

import (
	"net/http"
	"testing"
	"time"

	"quizbuzz-service/internal/domain"
)

func TestWebSocketAnswerFlow(t *testing.T) {
	env := newTestEnv(t)
	ana, anaToken := env.addPlayer(t, "ana")
	_, benToken := env.addPlayer(t, "ben")

	anaConn := env.dial(t)
	send(t, anaConn, domain.EventJoinRoom, map[string]any{"roomId": env.room.ID, "token": anaToken})
	_, joined := readNext(anaConn, t, string(domain.EventRoomJoined))
	if joined["participantId"] != ana.ID || joined["nickname"] != "ana" || joined["roomId"] != env.room.ID {
		t.Fatalf("unexpected ROOM_JOINED payload %v", joined)
	}

	benConn := env.dial(t)
	send(t, benConn, domain.EventJoinRoom, map[string]any{"roomId": env.room.ID, "token": benToken})
	readNext(benConn, t, string(domain.EventRoomJoined))
	if announced := readUntil(anaConn, t, domain.EventParticipantJoined); announced["nickname"] != "ben" {
		t.Fatalf("expected ana to see ben join, got %v", announced)
	}

	resp, body := env.host(t, http.MethodPost, "/api/rooms/"+env.room.ID+"/next-question", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("next-question: status %d body %v", resp.StatusCode, body)
	}
	question := readUntil(anaConn, t, domain.EventNextQuestion)
	if question["questionId"] != "q1" || question["questionNumber"] != float64(1) {
		t.Fatalf("unexpected NEXT_QUESTION %v", question)
	}
	if _, leaked := question["correctChoiceId"]; leaked {
		t.Fatalf("NEXT_QUESTION leaked the answer: %v", question)
	}
	readUntil(benConn, t, domain.EventNextQuestion)

	// Send an answer.
	send(t, anaConn, domain.EventSubmitAnswer, map[string]any{"questionId": "q1", "answerId": "o2"})
	ack := readUntil(anaConn, t, domain.EventAnswerSubmitted)
	if ack["accepted"] != true {
		t.Fatalf("expected accepted submission, got %v", ack)
	}

	// A retry is rejected and the first answer stands.
	send(t, anaConn, domain.EventSubmitAnswer, map[string]any{"questionId": "q1", "answerId": "o1"})
	if ack := readUntil(anaConn, t, domain.EventAnswerSubmitted); ack["accepted"] != false {
		t.Fatalf("expected duplicate rejection, got %v", ack)
	}
	if errFrame := readUntil(anaConn, t, domain.EventError); errFrame["code"] != domain.CodeAlreadySubmitted {
		t.Fatalf("expected ALREADY_SUBMITTED, got %v", errFrame)
	}

	resp, body = env.host(t, http.MethodPost, "/api/rooms/"+env.room.ID+"/reveal", map[string]string{"questionId": "q1"})
	if resp.StatusCode != http.StatusOK || body["revealed"] != true {
		t.Fatalf("reveal: status %d body %v", resp.StatusCode, body)
	}

	revealed := readUntil(benConn, t, domain.EventAnswerRevealed)
	if revealed["correctAnswerId"] != "o2" || revealed["correctAnswerValue"] != "4" {
		t.Fatalf("unexpected ANSWER_REVEALED %v", revealed)
	}
	winner, _ := revealed["firstCorrectParticipant"].(map[string]any)
	if winner["participantId"] != ana.ID {
		t.Fatalf("expected ana as first correct, got %v", revealed["firstCorrectParticipant"])
	}
	scores := readUntil(benConn, t, domain.EventScoresUpdate)
	rows, _ := scores["scores"].([]any)
	if len(rows) != 2 {
		t.Fatalf("expected two leaderboard rows, got %v", scores)
	}
	top, _ := rows[0].(map[string]any)
	if top["nickname"] != "ana" || top["totalScore"] != float64(1) || top["pointsEarned"] != float64(1) {
		t.Fatalf("unexpected leader %v", top)
	}
}

func TestWebSocketRejectsBeforeJoin(t *testing.T) {
	env := newTestEnv(t)
	conn := env.dial(t)

	send(t, conn, domain.EventSubmitAnswer, map[string]any{"questionId": "q1", "answerId": "o2"})
	if frame := readUntil(conn, t, domain.EventError); frame["code"] != domain.CodeNotInRoom {
		t.Fatalf("expected NOT_IN_ROOM, got %v", frame)
	}

	send(t, conn, "DANCE", map[string]any{})
	if frame := readUntil(conn, t, domain.EventError); frame["code"] != domain.CodeUnsupportedEvent {
		t.Fatalf("expected UNSUPPORTED_EVENT, got %v", frame)
	}

	send(t, conn, domain.EventJoinRoom, map[string]any{"roomId": env.room.ID})
	if frame := readUntil(conn, t, domain.EventError); frame["code"] != domain.CodeInvalidPayload {
		t.Fatalf("expected INVALID_PAYLOAD, got %v", frame)
	}

	send(t, conn, domain.EventJoinRoom, map[string]any{"roomId": env.room.ID, "token": "garbage"})
	if frame := readUntil(conn, t, domain.EventError); frame["code"] != domain.CodeTokenExpiredOrInvalid {
		t.Fatalf("expected TOKEN_EXPIRED_OR_INVALID, got %v", frame)
	}
}

func TestWebSocketLeaveAndDisconnect(t *testing.T) {
	env := newTestEnv(t)
	_, anaToken := env.addPlayer(t, "ana")
	_, benToken := env.addPlayer(t, "ben")

	anaConn := env.dial(t)
	send(t, anaConn, domain.EventJoinRoom, map[string]any{"roomId": env.room.ID, "token": anaToken})
	readNext(anaConn, t, string(domain.EventRoomJoined))

	benConn := env.dial(t)
	send(t, benConn, domain.EventJoinRoom, map[string]any{"roomId": env.room.ID, "token": benToken})
	readNext(benConn, t, string(domain.EventRoomJoined))

	send(t, benConn, domain.EventLeaveRoom, map[string]any{"roomId": env.room.ID})
	if left := readUntil(anaConn, t, domain.EventParticipantLeft); left["nickname"] != "ben" {
		t.Fatalf("expected ben to leave, got %v", left)
	}

	anaConn.Close()
	deadline := time.Now().Add(5 * time.Second)
	for len(env.engine.Registry().Connections(env.room.ID)) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected closed connection to be unregistered")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
