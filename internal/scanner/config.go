package scanner

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// EnvConfig holds the scanner-specific configuration.
type EnvConfig struct {
	SubmitWait   time.Duration
	CacheMaxAge  time.Duration
	ScanInterval time.Duration
	WatchPath    string
	VTBaseURL    string
	VTAPIKey     string
	RateLimit    rate.Limit // Requests per second; 0 disables limiting
	RateBurst    int
}

// LoadEnvConfig loads scanner configuration from environment variables.
func LoadEnvConfig() (*EnvConfig, error) {
	submitWait := intEnv("SUBMIT_WAIT_SECONDS", 30)
	cacheMaxAge := intEnv("CACHE_MAX_AGE_DAYS", 7)
	scanInterval := intEnv("SCAN_INTERVAL_HOURS", 24)

	var limit rate.Limit
	burst := 0
	if rlStr := os.Getenv("VT_RATE_LIMIT"); rlStr != "" {
		rl, err := strconv.ParseFloat(rlStr, 64)
		if err != nil || rl <= 0 {
			logrus.Warnf("Invalid VT_RATE_LIMIT %q. Disabling rate limiting.", rlStr)
		} else {
			limit = rate.Limit(rl)
			burst = intEnv("VT_RATE_BURST", 1)
		}
	}

	return &EnvConfig{
		SubmitWait:   time.Duration(submitWait) * time.Second,
		CacheMaxAge:  time.Duration(cacheMaxAge) * 24 * time.Hour,
		ScanInterval: time.Duration(scanInterval) * time.Hour,
		WatchPath:    os.Getenv("WATCH_PATH"),
		VTBaseURL:    os.Getenv("VT_BASE_URL"),
		VTAPIKey:     os.Getenv("VT_API_KEY"),
		RateLimit:    limit,
		RateBurst:    burst,
	}, nil
}

func intEnv(name string, def int) int {
	value, err := strconv.Atoi(os.Getenv(name))
	if err != nil || value <= 0 {
		if os.Getenv(name) != "" {
			logrus.Infof("Invalid %s. Defaulting to %d.", name, def)
		}
		return def
	}
	return value
}
