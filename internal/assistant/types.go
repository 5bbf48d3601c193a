package assistant

// Response is the reply envelope sent to websocket clients
type Response struct {
	RequestID string `json:"request_id"`
	Content   string `json:"content"`
	Status    string `json:"status"` // "complete" or "error"
}

// ResponseStatus defines the possible states of an assistant response
const (
	StatusComplete = "complete"
	StatusError    = "error"
)
