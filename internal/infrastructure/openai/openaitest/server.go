// Package openaitest provides an in-process stand-in for the assistants API
// covering thread creation, message creation and streamed runs.
package openaitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Event is one scripted SSE event of a run stream
type Event struct {
	Type string
	Data string
}

// RunCall records a run request received by the server
type RunCall struct {
	ThreadID    string
	AssistantID string
	Stream      bool
}

// Server serves the assistants endpoints used by the relay. Every run replays
// the scripted events.
type Server struct {
	*httptest.Server

	APIKey string

	mu       sync.Mutex
	events   []Event
	fail     map[string]bool
	threads  []string
	messages map[string][]string
	runs     []RunCall
}

// Endpoint names accepted by FailOn
const (
	EndpointThreads  = "threads"
	EndpointMessages = "messages"
	EndpointRuns     = "runs"
)

// NewServer starts a server that accepts apiKey and streams events for every run
func NewServer(apiKey string, events ...Event) *Server {
	s := &Server{
		APIKey:   apiKey,
		events:   events,
		fail:     map[string]bool{},
		messages: map[string][]string{},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailOn makes the endpoint answer with a 500 API error
func (s *Server) FailOn(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail[endpoint] = true
}

// SetEvents replaces the events replayed by later runs
func (s *Server) SetEvents(events ...Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = events
}

// BaseURL is the API root to configure clients with
func (s *Server) BaseURL() string {
	return s.URL + "/v1"
}

// Threads returns the IDs of all threads created so far
func (s *Server) Threads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.threads...)
}

// Messages returns the contents posted to a thread
func (s *Server) Messages(threadID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.messages[threadID]...)
}

// Runs returns every run request received
func (s *Server) Runs() []RunCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RunCall(nil), s.runs...)
}

// Requests returns the number of calls to each endpoint, in order threads, messages, runs
func (s *Server) Requests() (threads, messages, runs int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		messages += len(m)
	}
	return len(s.threads), messages, len(s.runs)
}

// TextDelta scripts a thread.message.delta carrying one text fragment
func TextDelta(text string) Event {
	payload := map[string]any{
		"id":     "msg_reply",
		"object": "thread.message.delta",
		"delta": map[string]any{
			"content": []map[string]any{{
				"index": 0,
				"type":  "text",
				"text":  map[string]any{"value": text, "annotations": []any{}},
			}},
		},
	}
	data, _ := json.Marshal(payload)
	return Event{Type: "thread.message.delta", Data: string(data)}
}

// RunStatus scripts a thread.run.<status> event
func RunStatus(status string) Event {
	return Event{
		Type: "thread.run." + status,
		Data: fmt.Sprintf(`{"id":"run_1","object":"thread.run","status":%q,"tools":[]}`, status),
	}
}

// StreamError scripts an error event
func StreamError(message string) Event {
	return Event{
		Type: "error",
		Data: fmt.Sprintf(`{"code":"server_error","message":%q,"type":"server_error"}`, message),
	}
}

// Done scripts the terminating done event
func Done() Event {
	return Event{Type: "done", Data: "[DONE]"}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", "invalid_request_error", nil)
		return
	}
	if r.Header.Get("Authorization") != "Bearer "+s.APIKey || s.APIKey == "" {
		code := "invalid_api_key"
		writeError(w, http.StatusUnauthorized,
			"You didn't provide an API key. You need to provide your API key in an Authorization header using Bearer auth.",
			"invalid_request_error", &code)
		return
	}
	if r.Header.Get("OpenAI-Beta") != "assistants=v2" {
		writeError(w, http.StatusBadRequest, "missing assistants beta header", "invalid_request_error", nil)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1"), "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] == EndpointThreads:
		s.createThread(w)
	case len(parts) == 3 && parts[0] == EndpointThreads && parts[2] == EndpointMessages:
		s.createMessage(w, r, parts[1])
	case len(parts) == 3 && parts[0] == EndpointThreads && parts[2] == EndpointRuns:
		s.createRun(w, r, parts[1])
	default:
		writeError(w, http.StatusNotFound, "unknown endpoint "+r.URL.Path, "invalid_request_error", nil)
	}
}

func (s *Server) failing(endpoint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fail[endpoint]
}

func (s *Server) createThread(w http.ResponseWriter) {
	if s.failing(EndpointThreads) {
		writeError(w, http.StatusInternalServerError, "thread creation failed", "server_error", nil)
		return
	}

	s.mu.Lock()
	id := fmt.Sprintf("thread_%d", len(s.threads)+1)
	s.threads = append(s.threads, id)
	s.mu.Unlock()

	writeJSON(w, map[string]any{"id": id, "object": "thread", "created_at": 1714300000, "metadata": map[string]any{}})
}

func (s *Server) createMessage(w http.ResponseWriter, r *http.Request, threadID string) {
	if s.failing(EndpointMessages) {
		writeError(w, http.StatusInternalServerError, "message creation failed", "server_error", nil)
		return
	}

	var req struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "invalid_request_error", nil)
		return
	}
	if req.Role != "user" {
		writeError(w, http.StatusBadRequest, "unexpected role "+req.Role, "invalid_request_error", nil)
		return
	}

	s.mu.Lock()
	s.messages[threadID] = append(s.messages[threadID], req.Content)
	id := fmt.Sprintf("msg_%d", len(s.messages[threadID]))
	s.mu.Unlock()

	writeJSON(w, map[string]any{
		"id":        id,
		"object":    "thread.message",
		"thread_id": threadID,
		"role":      "user",
		"content": []map[string]any{{
			"type": "text",
			"text": map[string]any{"value": req.Content, "annotations": []any{}},
		}},
	})
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request, threadID string) {
	if s.failing(EndpointRuns) {
		writeError(w, http.StatusInternalServerError, "run creation failed", "server_error", nil)
		return
	}

	var req struct {
		AssistantID string `json:"assistant_id"`
		Stream      bool   `json:"stream"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body", "invalid_request_error", nil)
		return
	}

	s.mu.Lock()
	s.runs = append(s.runs, RunCall{ThreadID: threadID, AssistantID: req.AssistantID, Stream: req.Stream})
	events := append([]Event(nil), s.events...)
	s.mu.Unlock()

	if req.AssistantID == "" {
		writeError(w, http.StatusBadRequest, "Missing required parameter: 'assistant_id'.", "invalid_request_error", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for _, ev := range events {
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, ev.Data)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, errType string, code *string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]any{"message": message, "type": errType, "param": nil, "code": nil}
	if code != nil {
		body["code"] = *code
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"error": body})
}
