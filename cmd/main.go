package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/birdlaw/amlazy/internal/api/v1/handlers"
	"github.com/birdlaw/amlazy/internal/config"
	"github.com/birdlaw/amlazy/internal/services"
	"github.com/birdlaw/amlazy/internal/ui/chat"
	"github.com/birdlaw/amlazy/pkg/logger"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

func main() {
	serveAddr := config.GetServeAddr()

	closer, err := logger.Setup(config.GetLogConfig(serveAddr == ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	provider, err := services.InitializeServices(services.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}

	if serveAddr != "" {
		log.Info().Str("addr", serveAddr).Msg("Server starting")
		if err := http.ListenAndServe(serveAddr, setupRouter(provider)); err != nil {
			log.Fatal().Err(err).Msg("ListenAndServe error")
		}
		return
	}

	if _, err := tea.NewProgram(chat.New(provider), tea.WithAltScreen()).Run(); err != nil {
		log.Error().Err(err).Msg("Terminal UI exited with error")
		fmt.Fprintf(os.Stderr, "Error running chat: %v\n", err)
		closer.Close()
		os.Exit(1)
	}
}

func setupRouter(provider services.RelayProvider) *mux.Router {
	r := mux.NewRouter()
	handlers.RegisterV1Routes(r, provider)
	return r
}
