package cli

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/me/partnerportal/internal/logging"
)

var (
	flagServer    string
	flagDebug     bool
	flagLogLevel  string
	flagLogFormat string
	flagNoColor   bool

	logger *slog.Logger
	client *Client
)

// defaultServer returns the default server URL, checking PORTAL_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("PORTAL_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

// NewRootCmd creates the root cobra command for the portalctl CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "portalctl",
		Short: "portalctl - partner onboarding portal CLI",
		Long:  "portalctl inspects the onboarding catalog and reads or updates onboarding records through the portal API.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			if flagNoColor {
				color.NoColor = true
			}
			logger = logging.NewLoggerWithWriter(logging.ParseLevel(flagLogLevel), flagLogFormat, cmd.ErrOrStderr())
			client = NewClient(flagServer, logger)
			if creds, err := LoadCredentials(); err == nil {
				client.SessionID = creds.SessionID
			}
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagServer, "server", defaultServer(), "Portal server URL (or PORTAL_SERVER env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newCatalogCmd(),
		newNormalizeCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newListCmd(),
		newProgressCmd(),
		newSetCmd(),
	)

	return root
}
