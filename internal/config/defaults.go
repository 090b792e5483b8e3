// Package config provides centralized configuration for PhaseWing.
// All default values are defined here so viper, flags and tests agree.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// AppName is used for the data directory, env prefix and config file.
const AppName = "phasewing"

// Server defaults
const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8000

	// DefaultDashboardURL is the analytics dashboard shown in the web UI.
	DefaultDashboardURL = "http://localhost:8501"
)

// Transcription service defaults
const (
	DefaultTranscribeURL     = "http://localhost:5001"
	DefaultTranscribeTimeout = 30 * time.Minute
)

// Completion queue defaults
const (
	DefaultQueueRateLimitDelay = 60 * time.Second
	DefaultQueueResultTTL      = time.Hour
	DefaultQueueTimeout        = 15 * time.Second
)

// DefaultCORSOrigins are the browser origins allowed to call the API.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:5173",
	"http://127.0.0.1:5173",
}

// SetDefaults registers every default with viper.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.cors_origins", DefaultCORSOrigins)
	v.SetDefault("server.dashboard_url", DefaultDashboardURL)
	v.SetDefault("server.session_ttl", 24*time.Hour)

	v.SetDefault("admin.email", "admin@example.com")

	v.SetDefault("transcribe.url", DefaultTranscribeURL)
	v.SetDefault("transcribe.timeout", DefaultTranscribeTimeout)

	v.SetDefault("queue.rate_limit_delay", DefaultQueueRateLimitDelay)
	v.SetDefault("queue.result_ttl", DefaultQueueResultTTL)
	v.SetDefault("queue.timeout", DefaultQueueTimeout)

	v.SetDefault("telemetry.enabled", false)
}
