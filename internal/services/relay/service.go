package relay

import (
	"context"
	"errors"

	"github.com/birdlaw/amlazy/internal/assistant"
)

// ErrEmptyResponse is returned when a run stream ends without any reply text
var ErrEmptyResponse = errors.New("no valid textual response received from the stream")

// Service defines the interface for relaying a prompt to the assistant
type Service interface {
	// Ask sends prompt to a fresh thread and returns the assistant's streamed reply
	Ask(ctx context.Context, prompt string) (string, error)
}

// Backend defines the remote calls a relay is built from
type Backend interface {
	CreateThread(ctx context.Context) (string, error)
	CreateMessage(ctx context.Context, threadID, content string) (string, error)
	CreateRunStream(ctx context.Context, threadID, assistantID string) (assistant.Stream, error)
}
