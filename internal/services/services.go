package services

import (
	"net/http"

	"github.com/birdlaw/amlazy/internal/config"
	"github.com/birdlaw/amlazy/internal/infrastructure/openai"
	"github.com/birdlaw/amlazy/internal/services/relay"
	"github.com/rs/zerolog/log"
)

// RelayProvider hands out a relay bound to the credentials in effect right now
type RelayProvider interface {
	NewRelay() (relay.Service, error)
}

// Options configure InitializeServices. Zero values read from the environment.
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	Credentials func() config.Credentials
}

type Services struct {
	baseURL     string
	httpClient  *http.Client
	credentials func() config.Credentials
}

// InitializeServices prepares the shared settings used to build relays
func InitializeServices(opts Options) (*Services, error) {
	log.Info().Msg("Initializing core services")

	if opts.BaseURL == "" {
		opts.BaseURL = config.GetOpenAIBaseURL()
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Credentials == nil {
		opts.Credentials = config.LoadCredentials
	}

	log.Info().Str("base_url", opts.BaseURL).Msg("All services initialized successfully")

	return &Services{
		baseURL:     opts.BaseURL,
		httpClient:  opts.HTTPClient,
		credentials: opts.Credentials,
	}, nil
}

// NewRelay reads credentials and builds a new backend and relay from them.
// Nothing is shared between the relays it returns beyond the HTTP client.
func (s *Services) NewRelay() (relay.Service, error) {
	creds := s.credentials()
	backend := openai.NewService(creds, openai.Options{
		BaseURL:    s.baseURL,
		HTTPClient: s.httpClient,
	})
	return relay.NewService(backend, creds.AssistantID)
}
