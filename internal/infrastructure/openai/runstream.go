package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"sync"

	"github.com/birdlaw/amlazy/internal/assistant"
	"github.com/birdlaw/amlazy/pkg/logger"
	"github.com/sashabaranov/go-openai"
	"github.com/tmaxmax/go-sse"
)

const (
	assistantsBetaHeader = "assistants=v2"
	maxEventSize         = 1 << 20
)

type runStreamRequest struct {
	openai.RunRequest
	Stream bool `json:"stream"`
}

// CreateRunStream starts a run of the assistant on the thread with streaming
// enabled. The caller must Close the returned stream.
func (s *Service) CreateRunStream(ctx context.Context, threadID, assistantID string) (assistant.Stream, error) {
	body, err := json.Marshal(runStreamRequest{
		RunRequest: openai.RunRequest{AssistantID: assistantID},
		Stream:     true,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/threads/%s/runs", s.baseURL, threadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("OpenAI-Beta", assistantsBetaHeader)
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, errorFromResponse(resp)
	}

	l := logger.Component(logger.OPENAI)
	l.Debug().Str("thread_id", threadID).Str("assistant_id", assistantID).Msg("Run stream opened")
	return &runStream{body: resp.Body}, nil
}

// errorFromResponse builds the same error values go-openai returns for failed calls
func errorFromResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error, reading response body: %w", err)
	}

	var errRes openai.ErrorResponse
	err = json.Unmarshal(body, &errRes)
	if err != nil || errRes.Error == nil {
		reqErr := &openai.RequestError{
			HTTPStatus:     resp.Status,
			HTTPStatusCode: resp.StatusCode,
			Err:            err,
			Body:           body,
		}
		if errRes.Error != nil {
			reqErr.Err = errRes.Error
		}
		return reqErr
	}

	errRes.Error.HTTPStatus = resp.Status
	errRes.Error.HTTPStatusCode = resp.StatusCode
	return errRes.Error
}

type runStream struct {
	body      io.ReadCloser
	closeOnce sync.Once
	closeErr  error
}

// Events decodes the SSE body. Iteration ends after the done event, at EOF,
// or at the first read or decode error, which is yielded.
func (s *runStream) Events() iter.Seq2[assistant.Event, error] {
	return func(yield func(assistant.Event, error) bool) {
		for ev, err := range sse.Read(s.body, &sse.ReadConfig{MaxEventSize: maxEventSize}) {
			if err != nil {
				yield(nil, err)
				return
			}

			decoded, err := assistant.Decode(ev.Type, ev.Data)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(decoded, nil) {
				return
			}
			if _, done := decoded.(assistant.DoneEvent); done {
				return
			}
		}
	}
}

func (s *runStream) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.body.Close()
	})
	return s.closeErr
}
