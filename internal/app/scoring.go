package app

import (
	"sort"

	"quizbuzz-service/internal/domain"
)

// round is the scored outcome of one question.
type round struct {
	events  []domain.ScoringEvent
	correct map[string]bool
	winner  string
}

// scoreSubmissions turns ordered submissions into scoring events. Only the
// earliest correct submission earns a point; winner is "" when nobody
// answered correctly.
func scoreSubmissions(roomID string, q domain.Question, ordered []domain.Submission) round {
	r := round{
		events:  make([]domain.ScoringEvent, 0, len(ordered)),
		correct: make(map[string]bool, len(ordered)),
	}
	for _, sub := range ordered {
		points := 0
		if q.IsCorrect(sub.ChoiceID, sub.Text) {
			r.correct[sub.ParticipantID] = true
			if r.winner == "" {
				r.winner = sub.ParticipantID
				points = 1
			}
		}
		r.events = append(r.events, domain.ScoringEvent{
			RoomID:           roomID,
			ParticipantID:    sub.ParticipantID,
			QuestionID:       q.ID,
			SelectedChoiceID: sub.ChoiceID,
			AnswerText:       sub.Text,
			Points:           points,
		})
	}
	return r
}

// buildLeaderboard ranks every participant by total score, then nickname,
// then participant id.
func buildLeaderboard(participants []domain.RoomParticipant, totals map[string]int, r round) []domain.ParticipantScore {
	earned := make(map[string]int, len(r.events))
	for _, ev := range r.events {
		earned[ev.ParticipantID] = ev.Points
	}

	scores := make([]domain.ParticipantScore, 0, len(participants))
	for _, p := range participants {
		scores = append(scores, domain.ParticipantScore{
			ParticipantID:     p.ID,
			Nickname:          p.Nickname,
			AnsweredCorrectly: r.correct[p.ID],
			PointsEarned:      earned[p.ID],
			TotalScore:        totals[p.ID],
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].TotalScore != scores[j].TotalScore {
			return scores[i].TotalScore > scores[j].TotalScore
		}
		if scores[i].Nickname != scores[j].Nickname {
			return scores[i].Nickname < scores[j].Nickname
		}
		return scores[i].ParticipantID < scores[j].ParticipantID
	})
	return scores
}

// revealedAnswer describes the correct answer the way clients display it.
func revealedAnswer(q domain.Question) domain.AnswerRevealedPayload {
	payload := domain.AnswerRevealedPayload{
		QuestionID:         q.ID,
		CorrectAnswerValue: q.CanonicalText(),
	}
	if q.Type == domain.Identification {
		payload.CorrectAnswerText = q.CorrectText
	} else {
		payload.CorrectAnswerID = q.CorrectChoiceID
	}
	return payload
}
