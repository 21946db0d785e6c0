package webserver

import (
	"os"
	"strings"
)

// Config holds the configuration for the webserver.
type Config struct {
	ListenTo           string
	CorsAllowedOrigins []string
	JWTSecret          []byte
}

// NewConfig initializes the webserver configuration from environment
// variables. An empty JWT_SECRET leaves the API unauthenticated (local use).
func NewConfig() (*Config, error) {
	config := &Config{}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	config.ListenTo = ":" + port

	corsAllowedOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsAllowedOrigins != "" {
		config.CorsAllowedOrigins = strings.Split(corsAllowedOrigins, ",")
	}

	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.JWTSecret = []byte(secret)
	}

	return config, nil
}
