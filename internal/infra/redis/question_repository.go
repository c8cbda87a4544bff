package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quizbuzz-service/internal/domain"
)

// QuestionLoader fetches question definitions from a backing store.
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// QuestionRepository caches question definitions in Redis (hash per question)
// and falls back to a loader on cache miss. Layout:
//
//	HSET question:{questionID} type {type} description {text} choices {json}
//	                          correctChoiceId {id} correctText {text}
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	if q, ok := r.cached(ctx, questionID); ok {
		return q, nil
	}

	result, err, _ := r.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := r.cached(ctx, questionID); ok {
			return q, nil
		}

		q, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}
		if err := r.store(ctx, q); err != nil {
			log.Printf("redis: cache question %s: %v", questionID, err)
		}
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (r *QuestionRepository) cached(ctx context.Context, questionID string) (domain.Question, bool) {
	fields, err := r.client.HGetAll(ctx, r.key(questionID)).Result()
	if err != nil || len(fields) == 0 {
		return domain.Question{}, false
	}
	q, err := questionFromHash(questionID, fields)
	if err != nil {
		return domain.Question{}, false
	}
	return q, true
}

func (r *QuestionRepository) store(ctx context.Context, q domain.Question) error {
	choices, err := json.Marshal(q.Choices)
	if err != nil {
		return fmt.Errorf("marshal choices: %w", err)
	}
	key := r.key(q.ID)
	pipe := r.client.Pipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"type":            string(q.Type),
		"description":     q.Description,
		"choices":         choices,
		"correctChoiceId": q.CorrectChoiceID,
		"correctText":     q.CorrectText,
	})
	if ttl := r.ttlWithJitter(); ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (r *QuestionRepository) key(questionID string) string {
	return "question:" + questionID
}

func questionFromHash(questionID string, fields map[string]string) (domain.Question, error) {
	q := domain.Question{
		ID:              questionID,
		Type:            domain.QuestionType(fields["type"]),
		Description:     fields["description"],
		CorrectChoiceID: fields["correctChoiceId"],
		CorrectText:     fields["correctText"],
		Choices:         []domain.Choice{},
	}
	if raw := fields["choices"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &q.Choices); err != nil {
			return domain.Question{}, fmt.Errorf("decode choices: %w", err)
		}
	}
	return q, nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
