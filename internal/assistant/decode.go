package assistant

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Decode turns one SSE event of a streamed run into an Event
func Decode(eventType, data string) (Event, error) {
	switch {
	case eventType == EventDone:
		return DoneEvent{}, nil

	case eventType == EventError:
		apiErr, err := decodeError(data)
		if err != nil {
			return nil, err
		}
		return ErrorEvent{Err: apiErr}, nil

	case eventType == EventThreadCreated:
		var thread openai.Thread
		if err := unmarshal(eventType, data, &thread); err != nil {
			return nil, err
		}
		return ThreadEvent{Type: eventType, Thread: thread}, nil

	case eventType == EventMessageDelta:
		var delta MessageDeltaEvent
		if err := unmarshal(eventType, data, &delta); err != nil {
			return nil, err
		}
		return delta, nil

	case eventType == EventRunStepDelta:
		var delta RunStepDeltaEvent
		if err := unmarshal(eventType, data, &delta); err != nil {
			return nil, err
		}
		return delta, nil

	// step events share the run prefix, so they are matched first
	case strings.HasPrefix(eventType, runStepPrefix):
		var step openai.RunStep
		if err := unmarshal(eventType, data, &step); err != nil {
			return nil, err
		}
		return RunStepEvent{Type: eventType, Step: step}, nil

	case strings.HasPrefix(eventType, runPrefix):
		var run openai.Run
		if err := unmarshal(eventType, data, &run); err != nil {
			return nil, err
		}
		return RunEvent{Type: eventType, Run: run}, nil

	case strings.HasPrefix(eventType, messagePrefix):
		var msg openai.Message
		if err := unmarshal(eventType, data, &msg); err != nil {
			return nil, err
		}
		return MessageEvent{Type: eventType, Message: msg}, nil

	default:
		return UnknownEvent{Type: eventType, Data: data}, nil
	}
}

func unmarshal(eventType, data string, v any) error {
	if err := json.Unmarshal([]byte(data), v); err != nil {
		return fmt.Errorf("malformed %s event: %w", eventType, err)
	}
	return nil
}

// decodeError accepts both a bare error object and one wrapped in {"error": ...}
func decodeError(data string) (*openai.APIError, error) {
	var wrapped openai.ErrorResponse
	if err := json.Unmarshal([]byte(data), &wrapped); err == nil && wrapped.Error != nil {
		return wrapped.Error, nil
	}

	var apiErr openai.APIError
	if err := unmarshal(EventError, data, &apiErr); err != nil {
		return nil, err
	}
	return &apiErr, nil
}
