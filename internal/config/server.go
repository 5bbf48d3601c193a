package config

import "os"

// GetServeAddr returns the listen address for the HTTP relay. An empty value
// means the terminal UI runs instead.
func GetServeAddr() string {
	return lookupEnv("SERVE_ADDR")
}

// lookupEnv reads optional settings whose absence is normal and not worth a warning
func lookupEnv(key string) string {
	return os.Getenv(key)
}
