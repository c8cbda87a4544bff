package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"quizbuzz-service/internal/domain"
)

// CreateRoom inserts a room in CREATED status.
func (s *Store) CreateRoom(ctx context.Context, title string, maxPlayers int) (domain.Room, error) {
	room, err := scanRoom(s.pool.QueryRow(ctx, `
		INSERT INTO rooms (title, max_players) VALUES ($1, $2)
		RETURNING `+roomColumns, title, maxPlayers))
	if err != nil {
		return domain.Room{}, fmt.Errorf("insert room: %w", err)
	}
	return room, nil
}

// CreateQuestion inserts a question and its choices. Choice ids left empty
// are generated; CorrectChoiceID must name one of the choices.
func (s *Store) CreateQuestion(ctx context.Context, q domain.Question) (domain.Question, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	for i := range q.Choices {
		if q.Choices[i].ID == "" {
			q.Choices[i].ID = uuid.NewString()
		}
	}
	err := s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO questions (id, type, description, correct_text) VALUES ($1, $2, $3, $4)`,
			q.ID, string(q.Type), q.Description, nullable(q.CorrectText)); err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		for i, c := range q.Choices {
			if _, err := tx.Exec(ctx, `
				INSERT INTO question_choices (id, question_id, value, is_correct, position)
				VALUES ($1, $2, $3, $4, $5)`,
				c.ID, q.ID, c.Value, c.ID == q.CorrectChoiceID, i); err != nil {
				return fmt.Errorf("insert choice: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return q, nil
}

// CreateUserSession inserts a user with one login session. A zero ttl
// creates a session that never expires.
func (s *Store) CreateUserSession(ctx context.Context, name string, ttl time.Duration) (userID, sessionID string, err error) {
	var expiresAt *time.Time
	if ttl > 0 {
		at := time.Now().Add(ttl)
		expiresAt = &at
	}
	err = s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO users (name) VALUES ($1) RETURNING id`, name).Scan(&userID); err != nil {
			return fmt.Errorf("insert user: %w", err)
		}
		if err := tx.QueryRow(ctx, `INSERT INTO sessions (user_id, expires_at) VALUES ($1, $2) RETURNING id`, userID, expiresAt).Scan(&sessionID); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	})
	return userID, sessionID, err
}

// AddParticipant registers a user in a room under a nickname unique to that room.
func (s *Store) AddParticipant(ctx context.Context, roomID, userID, nickname string) (domain.RoomParticipant, error) {
	p := domain.RoomParticipant{RoomID: roomID, UserID: userID, Nickname: nickname}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO room_participants (room_id, user_id, nickname) VALUES ($1, $2, $3)
		RETURNING id`, roomID, userID, nickname).Scan(&p.ID)
	if err != nil {
		return domain.RoomParticipant{}, fmt.Errorf("insert participant: %w", err)
	}
	return p, nil
}
