package http

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"quizbuzz-service/internal/app"
	"quizbuzz-service/internal/domain"
)

// HostHandler exposes the host-only controls of a room over HTTP.
type HostHandler struct {
	engine *app.Engine
	apiKey string
}

func NewHostHandler(engine *app.Engine, apiKey string) *HostHandler {
	return &HostHandler{engine: engine, apiKey: apiKey}
}

// Register mounts the host routes on mux behind the admin API key.
func (h *HostHandler) Register(mux *http.ServeMux) {
	mux.Handle("POST /api/rooms/{roomId}/start", h.requireAPIKey(http.HandlerFunc(h.start)))
	mux.Handle("POST /api/rooms/{roomId}/end", h.requireAPIKey(http.HandlerFunc(h.end)))
	mux.Handle("POST /api/rooms/{roomId}/next-question", h.requireAPIKey(http.HandlerFunc(h.nextQuestion)))
	mux.Handle("POST /api/rooms/{roomId}/reveal", h.requireAPIKey(http.HandlerFunc(h.reveal)))
	mux.Handle("GET /api/rooms/{roomId}/session", h.requireAPIKey(http.HandlerFunc(h.session)))
}

func (h *HostHandler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, domain.ErrorPayload{Message: "authorization header required", Code: "UNAUTHORIZED"})
			return
		}
		if h.apiKey == "" || subtle.ConstantTimeCompare([]byte(parts[1]), []byte(h.apiKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, domain.ErrorPayload{Message: "invalid admin API key", Code: "UNAUTHORIZED"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *HostHandler) start(w http.ResponseWriter, r *http.Request) {
	room, err := h.engine.StartQuiz(r.Context(), r.PathValue("roomId"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *HostHandler) end(w http.ResponseWriter, r *http.Request) {
	room, err := h.engine.EndQuiz(r.Context(), r.PathValue("roomId"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

type nextQuestionResponse struct {
	ID             string              `json:"id"`
	Type           domain.QuestionType `json:"type"`
	Description    string              `json:"description"`
	Choices        []domain.Choice     `json:"choices"`
	RoomID         string              `json:"roomId"`
	RoomQuestionID string              `json:"roomQuestionId"`
	QuestionNumber int                 `json:"questionNumber"`
}

func (h *HostHandler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomId")
	next, err := h.engine.Advance(r.Context(), roomID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	public := domain.NewNextQuestionPayload(next.Question, next.QuestionNumber)
	writeJSON(w, http.StatusOK, nextQuestionResponse{
		ID:             public.QuestionID,
		Type:           public.Type,
		Description:    public.Description,
		Choices:        public.Choices,
		RoomID:         roomID,
		RoomQuestionID: next.RoomQuestionID,
		QuestionNumber: next.QuestionNumber,
	})
}

type revealRequest struct {
	QuestionID string `json:"questionId"`
}

type revealResponse struct {
	QuestionID              string                     `json:"questionId"`
	Revealed                bool                       `json:"revealed"`
	Message                 string                     `json:"message"`
	CorrectAnswerValue      string                     `json:"correctAnswerValue"`
	FirstCorrectParticipant *domain.ParticipantPayload `json:"firstCorrectParticipant,omitempty"`
	Scores                  []domain.ParticipantScore  `json:"scores"`
}

func (h *HostHandler) reveal(w http.ResponseWriter, r *http.Request) {
	var req revealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == "" {
		writeJSON(w, http.StatusBadRequest, domain.ErrorPayload{Message: "questionId is required", Code: domain.CodeInvalidPayload})
		return
	}
	res, err := h.engine.Reveal(r.Context(), r.PathValue("roomId"), req.QuestionID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revealResponse{
		QuestionID:              req.QuestionID,
		Revealed:                true,
		Message:                 "Answer revealed",
		CorrectAnswerValue:      res.Answer.CorrectAnswerValue,
		FirstCorrectParticipant: res.Answer.FirstCorrectParticipant,
		Scores:                  res.Scores.Scores,
	})
}

func (h *HostHandler) session(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.engine.State(r.PathValue("roomId"))
	if !ok {
		writeFailure(w, domain.ErrRoomNotFound)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// statusFor maps a rejection kind to an HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindPrecondition, domain.KindExhausted:
		return http.StatusConflict
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(w http.ResponseWriter, err error) {
	if rej, ok := domain.AsRejection(err); ok {
		writeJSON(w, statusFor(rej.Kind), domain.ErrorPayload{Message: rej.Message, Code: rej.Code})
		return
	}
	log.Printf("host api: %v", err)
	writeJSON(w, http.StatusInternalServerError, domain.ErrorPayload{Message: "internal error", Code: domain.CodeInternal})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("host api: encode response: %v", err)
	}
}
