package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"quizbuzz-service/internal/domain"
)

func TestStoreRoomTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	room := store.AddRoom(domain.Room{Title: "Friday quiz"})
	if room.Status != domain.RoomCreated {
		t.Fatalf("expected CREATED, got %s", room.Status)
	}

	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if _, err := store.EndRoom(ctx, room.ID, at); !errors.Is(err, domain.ErrInvalidRoomState) {
		t.Fatalf("expected invalid state ending a created room, got %v", err)
	}
	started, err := store.StartRoom(ctx, room.ID, at)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != domain.RoomOngoing || started.StartedAt == nil || !started.StartedAt.Equal(at) {
		t.Fatalf("unexpected started room %+v", started)
	}
	if _, err := store.StartRoom(ctx, room.ID, at); !errors.Is(err, domain.ErrInvalidRoomState) {
		t.Fatalf("expected invalid state starting twice, got %v", err)
	}
	ended, err := store.EndRoom(ctx, room.ID, at.Add(time.Hour))
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if ended.Status != domain.RoomEnded {
		t.Fatalf("expected ENDED, got %s", ended.Status)
	}
	if _, err := store.GetRoom(ctx, "nope"); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("expected room not found, got %v", err)
	}
}

func TestStoreLinksQuestionsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	room := store.AddRoom(domain.Room{Status: domain.RoomOngoing})
	q1 := store.AddQuestion(sampleQuestion())
	q2 := store.AddQuestion(domain.Question{ID: "q2", Type: domain.Identification, CorrectText: "Paris"})

	if _, err := store.LinkQuestion(ctx, room.ID, q1.ID, time.Now()); err != nil {
		t.Fatalf("link: %v", err)
	}
	if _, err := store.LinkQuestion(ctx, room.ID, q1.ID, time.Now()); !errors.Is(err, domain.ErrQuestionAlreadyUsed) {
		t.Fatalf("expected already used, got %v", err)
	}

	unused, err := store.SampleUnusedQuestions(ctx, room.ID, 5)
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if len(unused) != 1 || unused[0] != q2.ID {
		t.Fatalf("expected only %s unused, got %v", q2.ID, unused)
	}
	n, _ := store.CountRoomQuestions(ctx, room.ID)
	if n != 1 {
		t.Fatalf("expected one link, got %d", n)
	}
}

func TestStoreResolvesParticipantsAndScores(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	room := store.AddRoom(domain.Room{})
	other := store.AddRoom(domain.Room{})
	store.AddSession("sess-1", "user-1")

	p, err := store.AddParticipant(room.ID, "user-1", "alice")
	if err != nil {
		t.Fatalf("add participant: %v", err)
	}
	if _, err := store.AddParticipant(room.ID, "user-2", "alice"); err == nil {
		t.Fatalf("expected nickname clash to fail")
	}

	got, err := store.ResolveParticipant(ctx, "sess-1", room.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("resolve: %+v %v", got, err)
	}
	if _, err := store.ResolveParticipant(ctx, "sess-1", other.ID); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant not found in other room, got %v", err)
	}
	if _, err := store.ResolveParticipant(ctx, "gone", room.ID); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected participant not found for unknown session, got %v", err)
	}

	events := []domain.ScoringEvent{
		{RoomID: room.ID, ParticipantID: p.ID, QuestionID: "q1", Points: 1},
		{RoomID: room.ID, ParticipantID: p.ID, QuestionID: "q2", Points: 1},
	}
	if err := store.UpsertScoringEvents(ctx, events); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// re-upserting the same question replaces rather than adds
	if err := store.UpsertScoringEvents(ctx, events[:1]); err != nil {
		t.Fatalf("upsert again: %v", err)
	}
	totals, _ := store.SumScores(ctx, room.ID)
	if totals[p.ID] != 2 {
		t.Fatalf("expected total 2, got %d", totals[p.ID])
	}
}
