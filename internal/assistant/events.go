package assistant

import (
	"encoding/json"
	"iter"
	"sort"

	"github.com/sashabaranov/go-openai"
)

// Run stream event names as sent in the SSE "event:" field
const (
	EventThreadCreated = "thread.created"
	EventMessageDelta  = "thread.message.delta"
	EventRunStepDelta  = "thread.run.step.delta"
	EventError         = "error"
	EventDone          = "done"

	runPrefix     = "thread.run."
	runStepPrefix = "thread.run.step."
	messagePrefix = "thread.message."
)

// Event is one decoded item of a streamed run. The set of implementations is
// closed; consumers switch over all of them.
type Event interface {
	// EventType returns the SSE event name the item was decoded from
	EventType() string
	isEvent()
}

// Stream is a streamed run. Events yields items in arrival order and stops at
// the first error or at the end of the stream.
type Stream interface {
	Events() iter.Seq2[Event, error]
	Close() error
}

// ThreadEvent carries thread.created
type ThreadEvent struct {
	Type   string
	Thread openai.Thread
}

// RunEvent carries thread.run.{created,queued,in_progress,requires_action,completed,...}
type RunEvent struct {
	Type string
	Run  openai.Run
}

// RunStepEvent carries thread.run.step.{created,in_progress,completed,...}
type RunStepEvent struct {
	Type string
	Step openai.RunStep
}

// RunStepDeltaEvent carries thread.run.step.delta. The delta body is kept raw.
type RunStepDeltaEvent struct {
	ID    string          `json:"id"`
	Delta json.RawMessage `json:"delta"`
}

// MessageEvent carries thread.message.{created,in_progress,completed,incomplete}
type MessageEvent struct {
	Type    string
	Message openai.Message
}

// MessageDeltaEvent carries thread.message.delta, the only event holding reply text
type MessageDeltaEvent struct {
	ID    string       `json:"id"`
	Delta MessageDelta `json:"delta"`
}

type MessageDelta struct {
	Role    string         `json:"role,omitempty"`
	Content []DeltaContent `json:"content"`
}

type DeltaContent struct {
	Index     int               `json:"index"`
	Type      string            `json:"type"`
	Text      *DeltaText        `json:"text,omitempty"`
	ImageFile *openai.ImageFile `json:"image_file,omitempty"`
}

type DeltaText struct {
	Value       string `json:"value"`
	Annotations []any  `json:"annotations,omitempty"`
}

// Texts returns the text fragments of the delta ordered by content index
func (e MessageDeltaEvent) Texts() []string {
	parts := make([]DeltaContent, 0, len(e.Delta.Content))
	for _, c := range e.Delta.Content {
		if c.Type == "text" && c.Text != nil {
			parts = append(parts, c)
		}
	}
	sort.SliceStable(parts, func(i, j int) bool { return parts[i].Index < parts[j].Index })

	texts := make([]string, len(parts))
	for i, p := range parts {
		texts[i] = p.Text.Value
	}
	return texts
}

// ErrorEvent reports a failure raised by the service mid-stream
type ErrorEvent struct {
	Err *openai.APIError
}

// DoneEvent marks the end of the stream
type DoneEvent struct{}

// UnknownEvent preserves an event name this package does not model
type UnknownEvent struct {
	Type string
	Data string
}

func (e ThreadEvent) EventType() string { return e.Type }
func (e RunEvent) EventType() string { return e.Type }
func (e RunStepEvent) EventType() string { return e.Type }
func (RunStepDeltaEvent) EventType() string { return EventRunStepDelta }
func (e MessageEvent) EventType() string { return e.Type }
func (MessageDeltaEvent) EventType() string { return EventMessageDelta }
func (ErrorEvent) EventType() string { return EventError }
func (DoneEvent) EventType() string { return EventDone }
func (e UnknownEvent) EventType() string { return e.Type }

func (ThreadEvent) isEvent() {}
func (RunEvent) isEvent() {}
func (RunStepEvent) isEvent() {}
func (RunStepDeltaEvent) isEvent() {}
func (MessageEvent) isEvent() {}
func (MessageDeltaEvent) isEvent() {}
func (ErrorEvent) isEvent() {}
func (DoneEvent) isEvent() {}
func (UnknownEvent) isEvent() {}
