package openai

import (
	"context"
	"net/http"
	"strings"

	"github.com/birdlaw/amlazy/internal/config"
	"github.com/birdlaw/amlazy/pkg/logger"
	"github.com/sashabaranov/go-openai"
)

// Options tune how the service reaches the API. Zero values use the public
// endpoint and a default HTTP client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Service talks to the assistants API for a single set of credentials
type Service struct {
	client     *openai.Client
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewService(creds config.Credentials, opts Options) *Service {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = config.DefaultOpenAIBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	cfg := openai.DefaultConfig(creds.APIKey)
	cfg.BaseURL = baseURL
	cfg.HTTPClient = httpClient

	return &Service{
		client:     openai.NewClientWithConfig(cfg),
		apiKey:     creds.APIKey,
		baseURL:    baseURL,
		httpClient: httpClient,
	}
}

// CreateThread creates an empty thread and returns its ID
func (s *Service) CreateThread(ctx context.Context) (string, error) {
	thread, err := s.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", err
	}

	l := logger.Component(logger.OPENAI)
	l.Debug().Str("thread_id", thread.ID).Msg("Created thread")
	return thread.ID, nil
}

// CreateMessage posts a user message to the thread and returns its ID
func (s *Service) CreateMessage(ctx context.Context, threadID, content string) (string, error) {
	msg, err := s.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: content,
	})
	if err != nil {
		return "", err
	}

	l := logger.Component(logger.OPENAI)
	l.Debug().Str("thread_id", threadID).Str("message_id", msg.ID).Msg("Created message")
	return msg.ID, nil
}
