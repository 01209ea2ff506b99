package portal

import (
	"os"
	"slices"
	"strings"
)

// AdminsEnvVar lists comma-separated admin emails in addition to the config file.
const AdminsEnvVar = "PORTAL_ADMINS"

// AdminConfig decides admin role assignment from configured sources.
// A backend identity carrying the admin role always wins; otherwise the
// email is checked against the environment list, then the config list.
type AdminConfig struct {
	envAdmins  []string
	fileAdmins []string
}

// NewAdminConfig creates an AdminConfig reading envVar and the configured
// admins list. Emails are compared case-insensitively.
func NewAdminConfig(envVar string, configured []string) *AdminConfig {
	cfg := &AdminConfig{}
	if envVal := os.Getenv(envVar); envVal != "" {
		cfg.envAdmins = splitEmails(envVal)
	}
	for _, e := range configured {
		if e = normalizeEmail(e); e != "" {
			cfg.fileAdmins = append(cfg.fileAdmins, e)
		}
	}
	return cfg
}

// IsAdmin reports whether email should have the admin role.
func (c *AdminConfig) IsAdmin(email string) bool {
	if c == nil {
		return false
	}
	email = normalizeEmail(email)
	if email == "" {
		return false
	}
	return slices.Contains(c.envAdmins, email) || slices.Contains(c.fileAdmins, email)
}

// EnvAdmins returns the admins from the environment variable.
func (c *AdminConfig) EnvAdmins() []string {
	return c.envAdmins
}

// FileAdmins returns the admins from the config file.
func (c *AdminConfig) FileAdmins() []string {
	return c.fileAdmins
}

func splitEmails(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if e := normalizeEmail(part); e != "" {
			out = append(out, e)
		}
	}
	return out
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
