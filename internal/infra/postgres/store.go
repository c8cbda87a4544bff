package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quizbuzz-service/internal/domain"
)

// Store implements app.Store on PostgreSQL. It also loads question
// definitions for the question caches.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const roomColumns = `id, title, max_players, password_hash IS NOT NULL, status, started_at, ended_at`

func scanRoom(row pgx.Row) (domain.Room, error) {
	var (
		room   domain.Room
		status string
	)
	if err := row.Scan(&room.ID, &room.Title, &room.MaxPlayers, &room.HasPassword, &status, &room.StartedAt, &room.EndedAt); err != nil {
		return domain.Room{}, err
	}
	room.Status = domain.RoomStatus(status)
	return room, nil
}

func (s *Store) GetRoom(ctx context.Context, roomID string) (domain.Room, error) {
	room, err := scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id=$1`, roomID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("load room: %w", err)
	}
	return room, nil
}

func (s *Store) StartRoom(ctx context.Context, roomID string, at time.Time) (domain.Room, error) {
	return s.transition(ctx, roomID, domain.RoomCreated, domain.RoomOngoing, "started_at", at)
}

func (s *Store) EndRoom(ctx context.Context, roomID string, at time.Time) (domain.Room, error) {
	return s.transition(ctx, roomID, domain.RoomOngoing, domain.RoomEnded, "ended_at", at)
}

// transition is a conditional update; it only fires from the expected status.
func (s *Store) transition(ctx context.Context, roomID string, from, to domain.RoomStatus, column string, at time.Time) (domain.Room, error) {
	query := `UPDATE rooms SET status=$3, ` + column + `=$4 WHERE id=$1 AND status=$2 RETURNING ` + roomColumns
	room, err := scanRoom(s.pool.QueryRow(ctx, query, roomID, string(from), string(to), at))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, err := s.GetRoom(ctx, roomID); err != nil {
			return domain.Room{}, err
		}
		return domain.Room{}, domain.ErrInvalidRoomState
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("update room status: %w", err)
	}
	return room, nil
}

func (s *Store) SampleUnusedQuestions(ctx context.Context, roomID string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT q.id FROM questions q
		WHERE NOT EXISTS (
			SELECT 1 FROM room_questions rq WHERE rq.room_id=$1 AND rq.question_id=q.id
		)
		ORDER BY random()
		LIMIT $2`, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("sample questions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan question id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) LinkQuestion(ctx context.Context, roomID, questionID string, at time.Time) (domain.RoomQuestion, error) {
	link := domain.RoomQuestion{RoomID: roomID, QuestionID: questionID, CreatedAt: at}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO room_questions (room_id, question_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (room_id, question_id) DO NOTHING
		RETURNING id`, roomID, questionID, at).Scan(&link.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RoomQuestion{}, domain.ErrQuestionAlreadyUsed
	}
	if err != nil {
		return domain.RoomQuestion{}, fmt.Errorf("insert room question: %w", err)
	}
	return link, nil
}

func (s *Store) CountRoomQuestions(ctx context.Context, roomID string) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM room_questions WHERE room_id=$1`, roomID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count room questions: %w", err)
	}
	return n, nil
}

func (s *Store) ResolveParticipant(ctx context.Context, sessionID, roomID string) (domain.RoomParticipant, error) {
	var p domain.RoomParticipant
	err := s.pool.QueryRow(ctx, `
		SELECT rp.id, rp.room_id, rp.user_id, rp.nickname
		FROM sessions s
		JOIN room_participants rp ON rp.user_id = s.user_id
		WHERE s.id=$1 AND rp.room_id=$2 AND (s.expires_at IS NULL OR s.expires_at > now())`,
		sessionID, roomID).Scan(&p.ID, &p.RoomID, &p.UserID, &p.Nickname)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RoomParticipant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.RoomParticipant{}, fmt.Errorf("resolve participant: %w", err)
	}
	return p, nil
}

func (s *Store) ListRoomParticipants(ctx context.Context, roomID string) ([]domain.RoomParticipant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, room_id, user_id, nickname FROM room_participants
		WHERE room_id=$1 ORDER BY nickname, id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	participants := make([]domain.RoomParticipant, 0)
	for rows.Next() {
		var p domain.RoomParticipant
		if err := rows.Scan(&p.ID, &p.RoomID, &p.UserID, &p.Nickname); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// UpsertScoringEvents writes all events of a reveal in one transaction.
// Re-running a reveal rewrites the same rows.
func (s *Store) UpsertScoringEvents(ctx context.Context, events []domain.ScoringEvent) error {
	if len(events) == 0 {
		return nil
	}
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, ev := range events {
			batch.Queue(`
				INSERT INTO room_participant_events
					(room_id, participant_id, question_id, selected_choice_id, answer_text, value)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (participant_id, question_id) DO UPDATE SET
					selected_choice_id = EXCLUDED.selected_choice_id,
					answer_text = EXCLUDED.answer_text,
					value = EXCLUDED.value`,
				ev.RoomID, ev.ParticipantID, ev.QuestionID, nullable(ev.SelectedChoiceID), nullable(ev.AnswerText), ev.Points)
		}
		results := tx.SendBatch(ctx, batch)
		for range events {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("upsert scoring event: %w", err)
			}
		}
		return results.Close()
	})
}

func (s *Store) SumScores(ctx context.Context, roomID string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT participant_id, COALESCE(SUM(value), 0)
		FROM room_participant_events
		WHERE room_id=$1
		GROUP BY participant_id`, roomID)
	if err != nil {
		return nil, fmt.Errorf("sum scores: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var (
			participantID string
			total         int
		)
		if err := rows.Scan(&participantID, &total); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		totals[participantID] = total
	}
	return totals, rows.Err()
}

func (s *Store) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var (
		q     domain.Question
		qtype string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, type, description, COALESCE(correct_text, '')
		FROM questions WHERE id=$1`, questionID).Scan(&q.ID, &qtype, &q.Description, &q.CorrectText)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	q.Type = domain.QuestionType(qtype)

	rows, err := s.pool.Query(ctx, `
		SELECT id, value, is_correct FROM question_choices
		WHERE question_id=$1 ORDER BY position, id`, questionID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("load choices: %w", err)
	}
	defer rows.Close()

	q.Choices = make([]domain.Choice, 0)
	for rows.Next() {
		var (
			c       domain.Choice
			correct bool
		)
		if err := rows.Scan(&c.ID, &c.Value, &correct); err != nil {
			return domain.Question{}, fmt.Errorf("scan choice: %w", err)
		}
		if correct {
			q.CorrectChoiceID = c.ID
		}
		q.Choices = append(q.Choices, c)
	}
	return q, rows.Err()
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
