package handlers

import (
	"net/http"
	"strings"

	"github.com/birdlaw/amlazy/internal/api/v1/handlers/ask"
	"github.com/birdlaw/amlazy/internal/api/v1/handlers/websocket"
	v1mware "github.com/birdlaw/amlazy/internal/api/v1/middleware"
	"github.com/birdlaw/amlazy/internal/config"
	"github.com/birdlaw/amlazy/internal/services"
	"github.com/birdlaw/amlazy/pkg/httpext"
	"github.com/gorilla/mux"
)

func RegisterV1Routes(router *mux.Router, provider services.RelayProvider) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_ = httpext.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods("GET")

	// v1 routes
	v1 := router.PathPrefix("/v1").Subrouter()

	v1.Handle("/ask", v1mware.RateLimit(config.RateLimitAsk)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ask.HandleAsk(provider, w, r)
	}))).Methods("POST")
	v1.Handle("/ask", methodNotAllowed("POST"))

	v1.Handle("/ws", v1mware.RateLimit(config.RateLimitWebSocket)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		websocket.HandleRelayWebSocket(provider, w, r)
	}))).Methods("GET")
	v1.Handle("/ws", methodNotAllowed("GET"))
}

// methodNotAllowed answers any method the path's main route does not accept.
// Registered after that route; a subrouter would otherwise report 404.
func methodNotAllowed(allowed ...string) http.Handler {
	allow := strings.Join(allowed, ", ")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		httpext.JsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
}
