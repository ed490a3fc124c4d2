// Package config loads voxrelay settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvProduction represents the production environment.
	EnvProduction = "production"
	// EnvDevelopment is the default environment.
	EnvDevelopment = "development"
)

// ErrPipelineNotConfigured is returned when a command needs the relay
// endpoint but it has not been set.
var ErrPipelineNotConfigured = errors.New("relay endpoint not configured")

// Config holds all application configuration.
type Config struct {
	Env string `envconfig:"ENV" default:"development"`

	// Logging settings
	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	// LogFile receives logs while the TUI owns the terminal. Empty discards them.
	LogFile string `envconfig:"LOG_FILE"`

	// Transcription settings
	OpenAIAPIKey       string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL      string `envconfig:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" validate:"required,url"`
	TranscriptionModel string `envconfig:"TRANSCRIPTION_MODEL" default:"whisper-1" validate:"required"`

	// Relay settings
	RelayURL   string `envconfig:"RELAY_URL" validate:"omitempty,url"`
	WorkflowID string `envconfig:"WORKFLOW_ID"`

	// RequestTimeout bounds each network call of the pipeline.
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"2m" validate:"gt=0"`

	// Capture settings
	AudioSource string `envconfig:"AUDIO_SOURCE"`
	AudioCodec  string `envconfig:"AUDIO_CODEC" default:"webm" validate:"oneof=webm mp3"`

	// Server settings
	Port           string   `envconfig:"PORT" default:"8080" validate:"numeric"`
	AllowedHosts   []string `envconfig:"ALLOWED_HOSTS" default:"localhost"`
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES" default:"10.0.0.0/8,172.16.0.0/12"`
	MaxUploadBytes int64    `envconfig:"MAX_UPLOAD_BYTES" default:"26214400" validate:"gt=0"`

	// Security settings
	HSTSMaxAge int    `envconfig:"HSTS_MAX_AGE" default:"31536000" validate:"gte=0"`
	CSPMode    string `envconfig:"CSP_MODE" default:"relaxed" validate:"oneof=strict relaxed"`
}

// LoadConfig loads configuration from .env file and environment variables.
func LoadConfig() (*Config, error) {
	// Try to load .env file (optional for development)
	if err := godotenv.Load(); err != nil {
		// Not an error if file doesn't exist (expected in production)
		if !os.IsNotExist(err) {
			slog.Warn("failed to load .env file", "error", err)
		}
	}

	return FromEnv()
}

// FromEnv parses and validates the process environment only.
func FromEnv() (*Config, error) {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks every field constraint.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
			}

			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, ", "))
		}

		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// RequirePipeline reports whether the relay endpoint is set.
func (c *Config) RequirePipeline() error {
	var missing []string
	if c.RelayURL == "" {
		missing = append(missing, "RELAY_URL")
	}

	if c.WorkflowID == "" {
		missing = append(missing, "WORKFLOW_ID")
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: set %s", ErrPipelineNotConfigured, strings.Join(missing, " and "))
	}

	return nil
}

// IsProduction reports whether the production environment is selected.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// BuildCSP constructs Content Security Policy based on mode.
func BuildCSP(mode string) string {
	if mode == "strict" {
		// API only: nothing may be loaded or framed
		return "default-src 'none'; " +
			"frame-ancestors 'none'; " +
			"base-uri 'none'; " +
			"form-action 'none'"
	}

	return "default-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:"
}
