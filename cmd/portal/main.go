package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/me/partnerportal/internal/backend"
	"github.com/me/partnerportal/internal/cache"
	"github.com/me/partnerportal/internal/catalog"
	"github.com/me/partnerportal/internal/config"
	"github.com/me/partnerportal/internal/logging"
	"github.com/me/partnerportal/internal/portal"
	"github.com/me/partnerportal/internal/server"
	"github.com/me/partnerportal/internal/store"
	"github.com/me/partnerportal/internal/sweeper"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := config.NewViper()
	var configFile string

	root := &cobra.Command{
		Use:          "portal",
		Short:        "Partner onboarding portal server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	flags := root.Flags()
	flags.StringVar(&configFile, "config", "", "Path to YAML config file (default ./portal.yaml)")
	flags.String("addr", ":8080", "Listen address")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("log-format", "text", "Log format (text, json)")
	flags.String("db", "portal.db", "SQLite database path")
	flags.String("backend-url", "", "Record service proxy URL")
	flags.Bool("secure-cookies", false, "Set the Secure flag on session cookies")
	bindFlags(v, flags, map[string]string{
		"addr":           "addr",
		"log-level":      "log_level",
		"log-format":     "log_format",
		"db":             "db_path",
		"backend-url":    "backend.url",
		"secure-cookies": "secure_cookies",
	})

	root.AddCommand(newCheckConfigCmd(v, &configFile))
	return root
}

// bindFlags binds each flag to its config key so that an explicitly set
// flag overrides the file and the environment.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for flag, key := range keys {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
}

func loadConfig(v *viper.Viper, path string) (config.ServerConfig, error) {
	if err := config.ReadFile(v, path); err != nil {
		return config.ServerConfig{}, err
	}
	return config.Load(v)
}

func newCheckConfigCmd(v *viper.Viper, configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration and the step catalog, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v, *configFile)
			if err != nil {
				return err
			}
			if err := catalog.Validate(); err != nil {
				return fmt.Errorf("catalog: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok (backend %s, db %s)\n", cfg.Backend.URL, cfg.DBPath)
			return nil
		},
	}
}

func serve(ctx context.Context, cfg config.ServerConfig) error {
	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	if err := catalog.Validate(); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	// Open store and run migrations.
	st, err := store.NewSQLiteStore(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logger.Info("database ready", "path", cfg.DBPath)

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Configure admin role assignment.
	admins := portal.NewAdminConfig(portal.AdminsEnvVar, cfg.Admins)
	if len(admins.EnvAdmins()) > 0 {
		logger.Info("admin users from env", "admins", len(admins.EnvAdmins()))
	}
	if len(admins.FileAdmins()) > 0 {
		logger.Info("admin users from config", "admins", len(admins.FileAdmins()))
	}

	caller := backend.NewHTTPCaller(cfg.BackendClientConfig(), logger)
	svc := portal.New(backend.NewClient(caller, logger), st, logger,
		portal.WithAdmins(admins),
		portal.WithCache(cache.NewMemoryCache(ctx, cfg.CacheTTL, time.Minute)),
		portal.WithConfig(portal.Config{
			OTPMaxRequests:    cfg.OTP.MaxRequests,
			OTPWindow:         cfg.OTP.Window,
			MaxVerifyAttempts: portal.DefaultConfig().MaxVerifyAttempts,
		}),
	)

	sweep := sweeper.New(st, sweeper.Config{Interval: cfg.SweepInterval, OTPWindow: cfg.OTP.Window}, logger)
	srv := server.New(cfg, st, svc, logger, server.WithSweeper(sweep))

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start sweeper in background.
	srv.StartSweeper(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "backend", cfg.Backend.URL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	// Stop sweeper before HTTP server.
	sweep.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
