package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"quizbuzz-service/internal/app"
	"quizbuzz-service/internal/auth"
	"quizbuzz-service/internal/domain"
	"quizbuzz-service/internal/infra/memory"
)

const (
	testAPIKey = "admin-key"
	testSecret = "jwt-secret"
)

type testEnv struct {
	server *httptest.Server
	store  *memory.Store
	tokens *auth.Tokens
	engine *app.Engine
	hub    *Hub
	room   domain.Room
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.NewStore()
	tokens := auth.NewTokens(testSecret, time.Hour)
	hub := NewHub()
	engine := app.NewEngine(app.Deps{
		Sessions:  memory.NewSessionStore(),
		Store:     store,
		Questions: memory.NewQuestionRepository(store, time.Minute),
		Tokens:    tokens,
		Sender:    hub,
	})
	server := httptest.NewServer(NewRouter(engine, hub, testAPIKey))
	t.Cleanup(server.Close)

	room := store.AddRoom(domain.Room{ID: "room-1", Title: "Pub quiz", MaxPlayers: 8, Status: domain.RoomOngoing})
	store.AddQuestion(sampleQuestion())
	return &testEnv{server: server, store: store, tokens: tokens, engine: engine, hub: hub, room: room}
}

func (e *testEnv) addPlayer(t *testing.T, nickname string) (domain.RoomParticipant, string) {
	t.Helper()
	p, err := e.store.AddParticipant(e.room.ID, "user-"+nickname, nickname)
	if err != nil {
		t.Fatalf("add participant: %v", err)
	}
	e.store.AddSession("sess-"+nickname, "user-"+nickname)
	token, err := e.tokens.Issue("sess-"+nickname, e.room.ID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return p, token
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	u := "ws" + e.server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (e *testEnv) host(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func send(t *testing.T, conn *websocket.Conn, typ domain.EventType, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}

// readUntil skips frames until one of the wanted type arrives.
func readUntil(conn *websocket.Conn, t *testing.T, want domain.EventType) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		typ, payload := readNext(conn, t, "")
		if typ == string(want) {
			return payload
		}
	}
	t.Fatalf("no %s frame within 10 reads", want)
	return nil
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:          "q1",
		Type:        domain.MultipleChoice,
		Description: "What is 2 + 2?",
		Choices: []domain.Choice{
			{ID: "o1", Value: "3"},
			{ID: "o2", Value: "4"},
			{ID: "o3", Value: "5"},
		},
		CorrectChoiceID: "o2",
	}
}
