package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. PORTAL_BACKEND_URL.
const EnvPrefix = "PORTAL"

// NewViper returns a viper instance with env overrides and all defaults
// registered so that every key is visible to Unmarshal.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultServerConfig()
	v.SetDefault("addr", d.Addr)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("db_path", d.DBPath)
	v.SetDefault("secure_cookies", d.SecureCookies)
	v.SetDefault("cache_ttl", d.CacheTTL)
	v.SetDefault("session_ttl", d.SessionTTL)
	v.SetDefault("sweep_interval", d.SweepInterval)
	v.SetDefault("admins", []string{})
	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("backend.rps", d.Backend.RPS)
	v.SetDefault("backend.burst", d.Backend.Burst)
	v.SetDefault("otp.max_requests", d.OTP.MaxRequests)
	v.SetDefault("otp.window", d.OTP.Window)
	return v
}

// ReadFile loads a YAML config file. An empty path searches for portal.yaml
// in the working directory; a missing file in that case is not an error.
func ReadFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("portal")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load unmarshals v into a ServerConfig and validates it.
func Load(v *viper.Viper) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}
	for i, a := range cfg.Admins {
		cfg.Admins[i] = strings.ToLower(strings.TrimSpace(a))
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the struct tags of c.
func (c ServerConfig) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	var sb strings.Builder
	sb.WriteString("configuration validation failed:")
	for _, fe := range validationErrors {
		fmt.Fprintf(&sb, "\n - field '%s': failed on '%s' validation (value: '%v')", fe.Namespace(), fe.Tag(), fe.Value())
	}
	return errors.New(sb.String())
}
