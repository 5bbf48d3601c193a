package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/birdlaw/amlazy/internal/config"
	"github.com/birdlaw/amlazy/internal/infrastructure/openai/openaitest"
	"github.com/birdlaw/amlazy/internal/services"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, api *openaitest.Server) *mux.Router {
	t.Helper()
	provider, err := services.InitializeServices(services.Options{
		BaseURL: api.BaseURL(),
		Credentials: func() config.Credentials {
			return config.Credentials{APIKey: "sk-test", AssistantID: "asst_1"}
		},
	})
	require.NoError(t, err)

	router := mux.NewRouter()
	RegisterV1Routes(router, provider)
	return router
}

func TestRegisterV1Routes(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "false")

	api := openaitest.NewServer("sk-test", openaitest.TextDelta("pong"), openaitest.Done())
	defer api.Close()
	router := newRouter(t, api)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ask", http.MethodPost, "/v1/ask", `{"prompt":"ping"}`, http.StatusOK},
		{"ask rejects GET", http.MethodGet, "/v1/ask", "", http.StatusMethodNotAllowed},
		{"websocket requires an upgrade", http.MethodGet, "/v1/ws", "", http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/v1/chat/completions", "", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestHealthBody(t *testing.T) {
	api := openaitest.NewServer("sk-test")
	defer api.Close()

	w := httptest.NewRecorder()
	newRouter(t, api).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestWrongMethodIsRejected(t *testing.T) {
	t.Setenv("RATELIMIT_ENABLED", "false")

	api := openaitest.NewServer("sk-test")
	defer api.Close()
	router := newRouter(t, api)

	tests := []struct {
		method string
		path   string
		allow  string
	}{
		{http.MethodGet, "/v1/ask", "POST"},
		{http.MethodPut, "/v1/ask", "POST"},
		{http.MethodPost, "/v1/ws", "GET"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))

			assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
			assert.Equal(t, tt.allow, w.Header().Get("Allow"))
		})
	}

	threads, messages, runs := api.Requests()
	assert.Zero(t, threads+messages+runs)
}
