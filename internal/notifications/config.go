package notifications

import (
	"os"
	"strings"
)

// Config holds the notification-related configuration.
type Config struct {
	ShoutrrrURLs []string
}

// LoadConfig loads notification configuration from environment variables.
// An empty SHOUTRRR_URLS means no external sink is configured.
func LoadConfig() *Config {
	return &Config{
		ShoutrrrURLs: parseShoutrrrURLs(os.Getenv("SHOUTRRR_URLS")),
	}
}

// parseShoutrrrURLs parses a comma-separated list of Shoutrrr URLs.
func parseShoutrrrURLs(urls string) []string {
	var result []string
	for _, url := range strings.Split(urls, ",") {
		trimmed := strings.TrimSpace(url)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
