package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"quizbuzz-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	store := NewStore()
	q := store.AddQuestion(sampleQuestion())
	loader := &countingLoader{QuestionLoader: store}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.GetQuestion(context.Background(), q.ID); err != nil {
		t.Fatalf("get question: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader once, got %d", loader.count())
	}

	got, err := repo.GetQuestion(context.Background(), q.ID)
	if err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.count())
	}
	if got.CorrectChoiceID != "c" {
		t.Fatalf("expected cached answer key, got %+v", got)
	}
}

func TestQuestionRepositoryExpires(t *testing.T) {
	store := NewStore()
	q := store.AddQuestion(sampleQuestion())
	loader := &countingLoader{QuestionLoader: store}
	repo := NewQuestionRepository(loader, time.Minute)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuestion(context.Background(), q.ID)
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuestion(context.Background(), q.ID)
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.count())
	}
}

func TestQuestionRepositoryDoesNotCacheMisses(t *testing.T) {
	store := NewStore()
	loader := &countingLoader{QuestionLoader: store}
	repo := NewQuestionRepository(loader, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := repo.GetQuestion(context.Background(), "missing"); !errors.Is(err, domain.ErrQuestionNotFound) {
			t.Fatalf("expected question not found, got %v", err)
		}
	}
	if loader.count() != 2 {
		t.Fatalf("expected misses to reach loader, got %d", loader.count())
	}
}

type countingLoader struct {
	QuestionLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuestionLoader.LoadQuestion(ctx, questionID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:          "q1",
		Type:        domain.MultipleChoice,
		Description: "What is 2 + 2?",
		Choices: []domain.Choice{
			{ID: "a", Value: "3"},
			{ID: "b", Value: "5"},
			{ID: "c", Value: "4"},
			{ID: "d", Value: "22"},
		},
		CorrectChoiceID: "c",
	}
}
