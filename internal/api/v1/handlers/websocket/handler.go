package websocket

import (
	"context"
	"net/http"

	"github.com/birdlaw/amlazy/internal/assistant"
	"github.com/birdlaw/amlazy/internal/connections"
	"github.com/birdlaw/amlazy/internal/services"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	manager = connections.NewManager(connections.DefaultTimeouts)
)

// HandleRelayWebSocket treats every text frame as one prompt. A frame is
// answered before the next one is read, so a connection never has more than
// one relay in flight.
func HandleRelayWebSocket(provider services.RelayProvider, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("client_ip", r.RemoteAddr).Msg("WebSocket upgrade failed")
		return
	}
	release := manager.Track(conn)
	defer func() {
		release()
		conn.Close()
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	manager.Keepalive(ctx, conn)

	log.Info().Str("client_ip", r.RemoteAddr).Int("sessions", manager.Count()).Msg("WebSocket client connected")

	for {
		if err := manager.ArmRead(conn); err != nil {
			return
		}
		messageType, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected WebSocket closure")
			}
			return
		}

		requestID := uuid.New().String()
		var reply assistant.Response
		if messageType != websocket.TextMessage {
			reply = assistant.Response{RequestID: requestID, Content: "only text messages are supported", Status: assistant.StatusError}
		} else {
			reply = relayPrompt(ctx, provider, requestID, string(msg))
		}

		if err := manager.ArmWrite(conn); err != nil {
			return
		}
		if err := conn.WriteJSON(reply); err != nil {
			log.Error().Err(err).Str("request_id", requestID).Msg("Failed to write WebSocket reply")
			return
		}
	}
}

func relayPrompt(ctx context.Context, provider services.RelayProvider, requestID, prompt string) assistant.Response {
	log.Debug().Str("request_id", requestID).Int("prompt_length", len(prompt)).Msg("WebSocket prompt received")

	relaySvc, err := provider.NewRelay()
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("Failed to build relay")
		return assistant.Response{RequestID: requestID, Content: err.Error(), Status: assistant.StatusError}
	}

	reply, err := relaySvc.Ask(ctx, prompt)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("Failed to relay prompt")
		return assistant.Response{RequestID: requestID, Content: err.Error(), Status: assistant.StatusError}
	}

	return assistant.Response{RequestID: requestID, Content: reply, Status: assistant.StatusComplete}
}
