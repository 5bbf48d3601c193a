package ask

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/birdlaw/amlazy/internal/services"
	"github.com/birdlaw/amlazy/internal/services/relay"
	"github.com/birdlaw/amlazy/pkg/httpext"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// error codes returned in ErrorResponse.Error
const (
	CodeInvalidRequest = "invalid_request"
	CodeEmptyResponse  = "empty_response"
	CodeUpstreamError  = "upstream_error"
	CodeInternalError  = "internal_error"
)

// Request is the body of POST /v1/ask
type Request struct {
	Prompt string `json:"prompt" validate:"required"`
}

// Response is the successful reply to POST /v1/ask
type Response struct {
	RequestID string `json:"request_id"`
	Response  string `json:"response"`
}

// use a single instance of Validate, it caches struct info
var validate = validator.New(validator.WithRequiredStructEnabled())

// HandleAsk relays one prompt to the assistant and returns the full reply
func HandleAsk(provider services.RelayProvider, w http.ResponseWriter, r *http.Request) {
	requestID := uuid.New().String()

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Warn().Err(err).Str("request_id", requestID).Msg("Client sent malformed JSON request")
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
			Error:            CodeInvalidRequest,
			ErrorDescription: "Invalid request format",
			RequestID:        requestID,
		})
		return
	}

	if err := validate.Struct(req); err != nil {
		log.Warn().Err(err).Str("request_id", requestID).Msg("Request validation failed")
		httpext.JsonErrorWithDetails(w, http.StatusBadRequest, httpext.ErrorResponse{
			Error:            CodeInvalidRequest,
			ErrorDescription: fmt.Sprintf("Invalid request: %v", err),
			RequestID:        requestID,
		})
		return
	}

	log.Info().
		Str("request_id", requestID).
		Int("prompt_length", len(req.Prompt)).
		Str("client_ip", r.RemoteAddr).
		Msg("Received ask request")

	relaySvc, err := provider.NewRelay()
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("Failed to build relay")
		httpext.JsonErrorWithDetails(w, http.StatusInternalServerError, httpext.ErrorResponse{
			Error:     CodeInternalError,
			RequestID: requestID,
		})
		return
	}

	reply, err := relaySvc.Ask(r.Context(), req.Prompt)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("Failed to relay prompt")
		httpext.JsonErrorWithDetails(w, http.StatusBadGateway, httpext.ErrorResponse{
			Error:            ErrorCode(err),
			ErrorDescription: err.Error(),
			RequestID:        requestID,
		})
		return
	}

	if err := httpext.WriteJSON(w, http.StatusOK, Response{RequestID: requestID, Response: reply}); err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("Failed to encode response")
		return
	}

	log.Info().
		Str("request_id", requestID).
		Int("status", http.StatusOK).
		Msg("Ask request processed successfully")
}

// ErrorCode classifies a relay failure for API clients
func ErrorCode(err error) string {
	if errors.Is(err, relay.ErrEmptyResponse) {
		return CodeEmptyResponse
	}
	return CodeUpstreamError
}
