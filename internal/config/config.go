package config

import (
	"time"

	"github.com/me/partnerportal/internal/backend"
)

// ServerConfig holds configuration for the portal server.
type ServerConfig struct {
	Addr          string        `mapstructure:"addr" validate:"required"`                        // Listen address (default ":8080")
	LogLevel      string        `mapstructure:"log_level" validate:"oneof=debug info warn error"` // Log level: debug, info, warn, error
	LogFormat     string        `mapstructure:"log_format" validate:"oneof=text json"`            // Log format: text, json
	DBPath        string        `mapstructure:"db_path" validate:"required"`                     // SQLite database path (":memory:" for testing)
	SecureCookies bool          `mapstructure:"secure_cookies"`                                  // Set the Secure flag on session cookies
	CacheTTL      time.Duration `mapstructure:"cache_ttl" validate:"gte=0"`
	SessionTTL    time.Duration `mapstructure:"session_ttl" validate:"gt=0"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" validate:"gt=0"`
	Admins        []string      `mapstructure:"admins" validate:"dive,email"`

	Backend BackendConfig `mapstructure:"backend"`
	OTP     OTPConfig     `mapstructure:"otp"`
}

// BackendConfig points at the remote record service proxy.
type BackendConfig struct {
	URL     string        `mapstructure:"url" validate:"required,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gt=0"`
	RPS     float64       `mapstructure:"rps" validate:"gte=0"`
	Burst   int           `mapstructure:"burst" validate:"gte=0"`
}

// OTPConfig throttles one-time code requests per email.
type OTPConfig struct {
	MaxRequests int           `mapstructure:"max_requests" validate:"gte=1"`
	Window      time.Duration `mapstructure:"window" validate:"gt=0"`
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	b := backend.DefaultConfig()
	return ServerConfig{
		Addr:          ":8080",
		LogLevel:      "info",
		LogFormat:     "text",
		DBPath:        "portal.db",
		CacheTTL:      5 * time.Minute,
		SessionTTL:    12 * time.Hour,
		SweepInterval: 10 * time.Minute,
		Backend: BackendConfig{
			Timeout: b.Timeout,
			RPS:     b.RPS,
			Burst:   b.Burst,
		},
		OTP: OTPConfig{
			MaxRequests: 5,
			Window:      15 * time.Minute,
		},
	}
}

// BackendClientConfig converts the backend section for backend.NewHTTPCaller.
func (c ServerConfig) BackendClientConfig() backend.Config {
	return backend.Config{
		URL:     c.Backend.URL,
		Timeout: c.Backend.Timeout,
		RPS:     c.Backend.RPS,
		Burst:   c.Backend.Burst,
	}
}
