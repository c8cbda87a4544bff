package http

import (
	"net/http"

	"quizbuzz-service/internal/app"
)

// NewRouter wires the websocket endpoint, the host API and the health check.
func NewRouter(engine *app.Engine, hub *Hub, adminAPIKey string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", NewWSHandler(engine, hub).ServeWS)
	NewHostHandler(engine, adminAPIKey).Register(mux)
	return mux
}
