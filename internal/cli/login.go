package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

const credentialsFileName = "credentials.json"

// Credentials is the stored portal session.
type Credentials struct {
	Server    string    `json:"server"`
	SessionID string    `json:"session_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newLoginCmd() *cobra.Command {
	var email, code string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with a one-time code",
		Long:  "Request a one-time code for --email, then exchange it for a portal session stored in ~/.partnerportal.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if email == "" {
				return errors.New("--email is required")
			}

			if code == "" {
				if _, err := client.Post(cmd.Context(), "/api/v1/auth/otp", map[string]string{"email": email}); err != nil {
					return fmt.Errorf("request code: %w", err)
				}
				fmt.Fprintf(out, "Code sent to %s\nCode: ", email)
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read code: %w", err)
				}
				code = strings.TrimSpace(line)
			}
			if code == "" {
				return errors.New("code cannot be empty")
			}

			resp, err := client.Post(cmd.Context(), "/api/v1/auth/verify", map[string]string{
				"email": email,
				"code":  code,
			})
			if err != nil {
				return fmt.Errorf("verify code: %w", err)
			}

			var sess struct {
				SessionID string    `json:"session_id"`
				Email     string    `json:"email"`
				Role      string    `json:"role"`
				ExpiresAt time.Time `json:"expires_at"`
			}
			if err := decode(resp, &sess); err != nil {
				return err
			}

			creds := Credentials{
				Server:    flagServer,
				SessionID: sess.SessionID,
				Email:     sess.Email,
				ExpiresAt: sess.ExpiresAt,
			}
			credPath, err := SaveCredentials(creds)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Logged in as %s (%s)\n", sess.Email, sess.Role)
			fmt.Fprintf(out, "Credentials saved to %s\n", credPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address to log in with")
	cmd.Flags().StringVar(&code, "code", "", "One-time code (requested and prompted if omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the stored portal session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if client.SessionID != "" {
				if _, err := client.Post(cmd.Context(), "/api/v1/auth/logout", nil); err != nil {
					logger.Warn("server logout failed", "error", err)
				}
			}
			credPath, err := credentialsPath()
			if err != nil {
				return err
			}
			if err := os.Remove(credPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("remove credentials: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

// credentialsPath returns the path to the credentials file (~/.partnerportal/credentials.json).
func credentialsPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".partnerportal", credentialsFileName), nil
}

// SaveCredentials writes creds with owner-only permissions and returns the path.
func SaveCredentials(creds Credentials) (string, error) {
	credPath, err := credentialsPath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(credPath), 0700); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}
	if err := os.WriteFile(credPath, data, 0600); err != nil {
		return "", fmt.Errorf("write credentials: %w", err)
	}
	return credPath, nil
}

// LoadCredentials reads the stored session. Expired sessions are reported
// as missing.
func LoadCredentials() (*Credentials, error) {
	credPath, err := credentialsPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(credPath)
	if err != nil {
		return nil, err
	}
	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	if !creds.ExpiresAt.IsZero() && time.Now().After(creds.ExpiresAt) {
		return nil, os.ErrNotExist
	}
	return &creds, nil
}
