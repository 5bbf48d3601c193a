package relay

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/birdlaw/amlazy/internal/assistant"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockBackend mocks the remote assistant calls
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) CreateThread(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) CreateMessage(ctx context.Context, threadID, content string) (string, error) {
	args := m.Called(ctx, threadID, content)
	return args.String(0), args.Error(1)
}

func (m *MockBackend) CreateRunStream(ctx context.Context, threadID, assistantID string) (assistant.Stream, error) {
	args := m.Called(ctx, threadID, assistantID)
	stream, _ := args.Get(0).(assistant.Stream)
	return stream, args.Error(1)
}

// fakeStream replays events and optionally fails after them
type fakeStream struct {
	events []assistant.Event
	err    error
	closed bool
}

func (s *fakeStream) Events() iter.Seq2[assistant.Event, error] {
	return func(yield func(assistant.Event, error) bool) {
		for _, ev := range s.events {
			if !yield(ev, nil) {
				return
			}
		}
		if s.err != nil {
			yield(nil, s.err)
		}
	}
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func textDelta(parts ...string) assistant.MessageDeltaEvent {
	ev := assistant.MessageDeltaEvent{ID: "msg_1"}
	for i, p := range parts {
		ev.Delta.Content = append(ev.Delta.Content, assistant.DeltaContent{
			Index: i,
			Type:  "text",
			Text:  &assistant.DeltaText{Value: p},
		})
	}
	return ev
}

func runStatus(status openai.RunStatus) assistant.RunEvent {
	return assistant.RunEvent{Type: "thread.run." + string(status), Run: openai.Run{Status: status}}
}

func newMockedRelay(t *testing.T, stream *fakeStream) (*Implementation, *MockBackend) {
	t.Helper()
	backend := &MockBackend{}
	backend.On("CreateThread", mock.Anything).Return("thread_1", nil)
	backend.On("CreateMessage", mock.Anything, "thread_1", mock.Anything).Return("msg_1", nil)
	backend.On("CreateRunStream", mock.Anything, "thread_1", "asst_1").Return(stream, nil)

	svc, err := NewService(backend, "asst_1")
	require.NoError(t, err)
	return svc, backend
}

func TestNewServiceRequiresBackend(t *testing.T) {
	_, err := NewService(nil, "asst_1")
	assert.Error(t, err)
}

func TestAskConcatenatesTextDeltas(t *testing.T) {
	tests := []struct {
		name   string
		events []assistant.Event
		want   string
	}{
		{
			name:   "Two deltas in arrival order",
			events: []assistant.Event{textDelta("Hi"), textDelta(" there")},
			want:   "Hi there",
		},
		{
			name: "Non-text events are skipped",
			events: []assistant.Event{
				assistant.ThreadEvent{Type: assistant.EventThreadCreated},
				runStatus(openai.RunStatusQueued),
				assistant.RunStepEvent{Type: "thread.run.step.created"},
				assistant.MessageEvent{Type: "thread.message.created"},
				textDelta("Hello"),
				assistant.RunStepDeltaEvent{ID: "step_1"},
				textDelta(", world"),
				assistant.MessageEvent{Type: "thread.message.completed"},
				runStatus(openai.RunStatusCompleted),
				assistant.DoneEvent{},
			},
			want: "Hello, world",
		},
		{
			name:   "Every text part of a delta is kept",
			events: []assistant.Event{textDelta("a", "b"), textDelta("c")},
			want:   "abc",
		},
		{
			name:   "Unknown events do not stop collection",
			events: []assistant.Event{assistant.UnknownEvent{Type: "thread.future"}, textDelta("ok")},
			want:   "ok",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := &fakeStream{events: tt.events}
			svc, backend := newMockedRelay(t, stream)

			got, err := svc.Ask(context.Background(), "Hello")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, stream.closed, "stream must be closed")

			backend.AssertExpectations(t)
			backend.AssertCalled(t, "CreateMessage", mock.Anything, "thread_1", "Hello")
		})
	}
}

func TestAskEmptyResponse(t *testing.T) {
	tests := []struct {
		name   string
		events []assistant.Event
	}{
		{"No events", nil},
		{"Only status events", []assistant.Event{
			runStatus(openai.RunStatusQueued),
			runStatus(openai.RunStatusInProgress),
			runStatus(openai.RunStatusCompleted),
			assistant.DoneEvent{},
		}},
		{"Failed run without text", []assistant.Event{runStatus(openai.RunStatusFailed)}},
		{"Deltas without text content", []assistant.Event{
			assistant.MessageDeltaEvent{Delta: assistant.MessageDelta{Content: []assistant.DeltaContent{
				{Type: "image_file", ImageFile: &openai.ImageFile{FileID: "file_1"}},
			}}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stream := &fakeStream{events: tt.events}
			svc, _ := newMockedRelay(t, stream)

			got, err := svc.Ask(context.Background(), "X")
			assert.ErrorIs(t, err, ErrEmptyResponse)
			assert.Empty(t, got)
			assert.True(t, stream.closed)
		})
	}
}

func TestAskStopsAtFirstFailure(t *testing.T) {
	threadErr := &openai.APIError{Message: "thread failed", HTTPStatusCode: 500}
	messageErr := &openai.APIError{Message: "message failed", HTTPStatusCode: 500}
	runErr := &openai.APIError{Message: "run failed", HTTPStatusCode: 500}

	t.Run("Thread creation fails", func(t *testing.T) {
		backend := &MockBackend{}
		backend.On("CreateThread", mock.Anything).Return("", threadErr)

		svc, err := NewService(backend, "asst_1")
		require.NoError(t, err)

		_, err = svc.Ask(context.Background(), "Hello")
		assert.Same(t, threadErr, err)
		backend.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything)
		backend.AssertNotCalled(t, "CreateRunStream", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Message creation fails", func(t *testing.T) {
		backend := &MockBackend{}
		backend.On("CreateThread", mock.Anything).Return("thread_1", nil)
		backend.On("CreateMessage", mock.Anything, "thread_1", "Hello").Return("", messageErr)

		svc, err := NewService(backend, "asst_1")
		require.NoError(t, err)

		_, err = svc.Ask(context.Background(), "Hello")
		assert.Same(t, messageErr, err)
		backend.AssertNotCalled(t, "CreateRunStream", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Run creation fails", func(t *testing.T) {
		backend := &MockBackend{}
		backend.On("CreateThread", mock.Anything).Return("thread_1", nil)
		backend.On("CreateMessage", mock.Anything, "thread_1", "Hello").Return("msg_1", nil)
		backend.On("CreateRunStream", mock.Anything, "thread_1", "asst_1").Return(nil, runErr)

		svc, err := NewService(backend, "asst_1")
		require.NoError(t, err)

		_, err = svc.Ask(context.Background(), "Hello")
		assert.Same(t, runErr, err)
		backend.AssertExpectations(t)
	})

	t.Run("Stream read fails after partial text", func(t *testing.T) {
		readErr := errors.New("connection reset by peer")
		stream := &fakeStream{events: []assistant.Event{textDelta("partial")}, err: readErr}
		svc, _ := newMockedRelay(t, stream)

		got, err := svc.Ask(context.Background(), "Hello")
		assert.Same(t, readErr, err)
		assert.Empty(t, got, "no partial result on failure")
		assert.True(t, stream.closed)
	})

	t.Run("Error event mid-stream", func(t *testing.T) {
		streamErr := &openai.APIError{Message: "The server had an error"}
		stream := &fakeStream{events: []assistant.Event{
			textDelta("partial"),
			assistant.ErrorEvent{Err: streamErr},
			textDelta(" never read"),
		}}
		svc, _ := newMockedRelay(t, stream)

		got, err := svc.Ask(context.Background(), "Hello")
		assert.Same(t, streamErr, err)
		assert.Empty(t, got)
	})
}
