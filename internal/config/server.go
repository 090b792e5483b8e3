package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var validate = validator.New()

// ServerConfig is everything `phasewing serve` needs.
type ServerConfig struct {
	Host         string        `mapstructure:"host" validate:"required"`
	Port         int           `mapstructure:"port" validate:"min=1,max=65535"`
	CORSOrigins  []string      `mapstructure:"cors_origins" validate:"dive,url"`
	DashboardURL string        `mapstructure:"dashboard_url" validate:"omitempty,url"`
	SessionTTL   time.Duration `mapstructure:"session_ttl" validate:"min=1m"`
	DataDir      string        `validate:"required"`
	PhasesDir    string

	AdminEmail    string `validate:"required,email"`
	AdminPassword string

	Transcribe TranscribeConfig
	Queue      QueueConfig
}

// TranscribeConfig locates the transcription service.
type TranscribeConfig struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s"`
}

// QueueConfig tunes the completion queue.
type QueueConfig struct {
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay" validate:"min=0"`
	ResultTTL      time.Duration `mapstructure:"result_ttl" validate:"min=1m"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"min=1s"`
}

// Addr is host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadServerConfig reads the server settings from viper and validates them.
func LoadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{
		Host:          viper.GetString("server.host"),
		Port:          viper.GetInt("server.port"),
		CORSOrigins:   viper.GetStringSlice("server.cors_origins"),
		DashboardURL:  viper.GetString("server.dashboard_url"),
		SessionTTL:    viper.GetDuration("server.session_ttl"),
		DataDir:       GetDataDir(),
		PhasesDir:     GetPhasesDir(),
		AdminEmail:    viper.GetString("admin.email"),
		AdminPassword: viper.GetString("admin.password"),
		Transcribe: TranscribeConfig{
			URL:     viper.GetString("transcribe.url"),
			Timeout: viper.GetDuration("transcribe.timeout"),
		},
		Queue: QueueConfig{
			RateLimitDelay: viper.GetDuration("queue.rate_limit_delay"),
			ResultTTL:      viper.GetDuration("queue.result_ttl"),
			Timeout:        viper.GetDuration("queue.timeout"),
		},
	}
	if err := validate.Struct(cfg); err != nil {
		return cfg, describe(err)
	}
	return cfg, nil
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}
