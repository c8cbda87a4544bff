package http

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"quizbuzz-service/internal/app"
	"quizbuzz-service/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

type WSHandler struct {
	engine   *app.Engine
	hub      *Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, hub *Hub) *WSHandler {
	return &WSHandler{
		engine: engine,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades HTTP requests to websockets. Participants join a room by
// sending JOIN_ROOM with a join token.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	events := h.hub.attach(connID)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, events)
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var inbound domain.InboundEvent
		if err := conn.ReadJSON(&inbound); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws read error on %s: %v", connID, err)
			}
			break
		}
		h.dispatch(r, connID, inbound)
	}

	h.engine.Disconnect(connID)
	h.hub.detach(connID)
	<-writerDone
}

// writePump is the only goroutine that writes to conn.
func (h *WSHandler) writePump(conn *websocket.Conn, events <-chan domain.Event) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				log.Printf("ws write error: %v", err)
				// unblock the reader so the connection gets torn down
				conn.Close()
				drain(events)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				drain(events)
				return
			}
		}
	}
}

func drain(events <-chan domain.Event) {
	for range events {
	}
}

func (h *WSHandler) dispatch(r *http.Request, connID string, inbound domain.InboundEvent) {
	switch inbound.Type {
	case domain.EventJoinRoom:
		var payload domain.JoinRoomPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.RoomID == "" || payload.Token == "" {
			h.sendError(connID, domain.CodeInvalidPayload, "roomId and token are required")
			return
		}
		if _, err := h.engine.Join(r.Context(), connID, payload.RoomID, payload.Token); err != nil {
			h.sendFailure(connID, err)
		}

	case domain.EventLeaveRoom:
		var payload domain.LeaveRoomPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			h.sendError(connID, domain.CodeInvalidPayload, "invalid leave payload")
			return
		}
		h.engine.Leave(connID, payload.RoomID)

	case domain.EventSubmitAnswer:
		var payload domain.SubmitAnswerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionID == "" {
			h.sendError(connID, domain.CodeInvalidPayload, "invalid answer payload")
			return
		}
		reg, ok := h.engine.Registration(connID)
		if !ok {
			h.sendError(connID, domain.ErrNotInRoom.Code, domain.ErrNotInRoom.Message)
			return
		}
		res := h.engine.SubmitAnswer(reg.RoomID, reg.ParticipantID, domain.AnswerSubmission{
			QuestionID: payload.QuestionID,
			ChoiceID:   payload.AnswerID,
			Text:       payload.AnswerText,
		})
		h.hub.Send(connID, domain.Event{
			Type:    domain.EventAnswerSubmitted,
			Payload: domain.AnswerSubmittedPayload{QuestionID: res.QuestionID, Accepted: res.Accepted},
		})
		if !res.Accepted {
			h.sendError(connID, res.Code, res.Reason)
		}

	default:
		h.sendError(connID, domain.CodeUnsupportedEvent, "unsupported message type")
	}
}

func (h *WSHandler) sendFailure(connID string, err error) {
	if rej, ok := domain.AsRejection(err); ok {
		h.sendError(connID, rej.Code, rej.Message)
		return
	}
	log.Printf("ws: request on %s failed: %v", connID, err)
	h.sendError(connID, domain.CodeInternal, "internal error")
}

func (h *WSHandler) sendError(connID, code, message string) {
	h.hub.Send(connID, domain.Event{
		Type:    domain.EventError,
		Payload: domain.ErrorPayload{Message: message, Code: code},
	})
}
