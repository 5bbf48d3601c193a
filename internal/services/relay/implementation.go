package relay

import (
	"context"
	"fmt"
	"strings"

	"github.com/birdlaw/amlazy/internal/assistant"
	"github.com/birdlaw/amlazy/pkg/logger"
)

type Implementation struct {
	backend     Backend
	assistantID string
}

func NewService(backend Backend, assistantID string) (*Implementation, error) {
	if backend == nil {
		return nil, fmt.Errorf("assistant backend is required")
	}

	return &Implementation{
		backend:     backend,
		assistantID: assistantID,
	}, nil
}

// Ask runs create thread, post message, stream run and collect text, in that
// order. The first failing step ends the call and its error is returned as is.
func (s *Implementation) Ask(ctx context.Context, prompt string) (string, error) {
	l := logger.Component(logger.RELAY)
	l.Debug().
		Int("prompt_length", len(prompt)).
		Str("assistant_id", s.assistantID).
		Msg("Processing input")

	response, err := s.ask(ctx, prompt)
	if err != nil {
		l.Error().Err(err).Msg("Relay failed")
		return "", err
	}
	return response, nil
}

func (s *Implementation) ask(ctx context.Context, prompt string) (string, error) {
	threadID, err := s.backend.CreateThread(ctx)
	if err != nil {
		return "", err
	}

	if _, err := s.backend.CreateMessage(ctx, threadID, prompt); err != nil {
		return "", err
	}

	stream, err := s.backend.CreateRunStream(ctx, threadID, s.assistantID)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	return collectText(stream)
}

// collectText drains the stream and concatenates every text fragment in
// arrival order.
func collectText(stream assistant.Stream) (string, error) {
	l := logger.Component(logger.RELAY)
	var response strings.Builder

	for ev, err := range stream.Events() {
		if err != nil {
			return "", err
		}

		switch e := ev.(type) {
		case assistant.MessageDeltaEvent:
			for _, text := range e.Texts() {
				response.WriteString(text)
			}
		case assistant.ErrorEvent:
			return "", e.Err
		case assistant.DoneEvent:
			// the stream stops yielding after done
		case assistant.ThreadEvent, assistant.MessageEvent,
			assistant.RunEvent, assistant.RunStepEvent, assistant.RunStepDeltaEvent:
			l.Trace().Str("event", ev.EventType()).Msg("Skipping non-text event")
		case assistant.UnknownEvent:
			l.Warn().Str("event", e.Type).Msg("Unrecognised run stream event")
		default:
			l.Warn().Str("event", ev.EventType()).Msgf("Unhandled run stream event %T", ev)
		}
	}

	if response.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return response.String(), nil
}
