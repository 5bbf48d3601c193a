package config

import "github.com/birdlaw/amlazy/pkg/logger"

// GetLogConfig returns logging settings. quiet is set by the terminal UI so
// that nothing is written to the screen unless LOG_FILE redirects it.
func GetLogConfig(quiet bool) logger.Config {
	return logger.Config{
		Level:  GetEnvOrDefault("LOG_LEVEL", "info"),
		Format: GetEnvOrDefault("LOG_FORMAT", "json"),
		File:   lookupEnv("LOG_FILE"),
		Quiet:  quiet,
	}
}
