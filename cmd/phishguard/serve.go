package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phishguard/phishguard/internal/config"
	phishlog "github.com/phishguard/phishguard/internal/log"
	"github.com/phishguard/phishguard/internal/oracle"
	"github.com/phishguard/phishguard/internal/server"
	"github.com/phishguard/phishguard/internal/store"
	"github.com/spf13/cobra"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the phishing advisory daemon",
		Long: `Serve runs the local daemon the browser agent talks to.

The daemon listens on a loopback address, receives page signals and
navigation events from the agent, classifies pages through the local
scoring oracle, and queues UI directives (badge, banner, form guard)
for the agent to poll.

Examples:
  # Run with defaults
  phishguard serve

  # Point at an oracle on a different port
  phishguard serve --oracle http://127.0.0.1:6001

  # Keep all state in memory (no database file)
  phishguard serve --memory

  # Use a custom configuration file
  phishguard serve -c myconfig.yaml

Configuration file (.phishguard) example:
  sites:
    intranet.example.com:
      trusted: true
    "*.example.org":
      muteBanner: true`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress,
		"Address the host API listens on (keep it on loopback)")
	cmd.Flags().StringP("oracle", "e", config.DefaultOracleEndpoint,
		"Base URL of the local scoring oracle")
	cmd.Flags().DurationP("oracle-timeout", "T", config.DefaultOracleTimeout,
		"Per-request timeout for oracle calls")
	cmd.Flags().Duration("fallback-delay", config.DefaultFallbackDelay,
		"How long to wait for page signals before classifying on the URL alone")
	cmd.Flags().Duration("auto-dismiss", config.DefaultAutoDismissAfter,
		"How long a suspicious banner stays up before dismissing itself")
	cmd.Flags().String("db-dir", "",
		"Directory for the state database (default: XDG data directory)")
	cmd.Flags().Bool("memory", false,
		"Keep the activity log and verdict cache in memory only")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .phishguard in current or home directory)")

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	// Set up structured logging
	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, stopping...")
		cancel()
	}()

	return runServe(ctx, cfg, logger)
}

// buildServeConfig creates a Config from serve command flags.
func buildServeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error

	cfg.ListenAddress, err = cmd.Flags().GetString("listen")
	if err != nil {
		return nil, err
	}

	cfg.OracleEndpoint, err = cmd.Flags().GetString("oracle")
	if err != nil {
		return nil, err
	}

	cfg.OracleTimeout, err = cmd.Flags().GetDuration("oracle-timeout")
	if err != nil {
		return nil, err
	}

	cfg.FallbackDelay, err = cmd.Flags().GetDuration("fallback-delay")
	if err != nil {
		return nil, err
	}

	cfg.AutoDismissAfter, err = cmd.Flags().GetDuration("auto-dismiss")
	if err != nil {
		return nil, err
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	memory, err := cmd.Flags().GetBool("memory")
	if err != nil {
		return nil, err
	}
	if memory {
		cfg.DBDir = ""
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	cfg.Overrides, err = loadOverrides(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadOverrides loads site overrides from the config file.
// If the user explicitly specified a config file path, error if not found.
// If no path was specified, silently use an empty config if no file is found.
func loadOverrides(configPath string) (*config.File, error) {
	explicit := configPath != ""
	found := config.FindConfigFile(configPath)

	if found != "" {
		overrides, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		return overrides, nil
	}
	if explicit {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}
	return &config.File{Sites: make(map[string]config.SiteOverride)}, nil
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// setupLogger creates a structured logger based on verbosity setting.
// Log output passes through the redacting handler: the daemon logs URLs
// from the user's browsing, and those URLs carry tokens and session IDs.
func setupLogger(verbose bool) *slog.Logger {
	return phishlog.NewSecureLogger(os.Stderr, verbose)
}

// hostOf extracts the hostname from a page URL. An unparsable URL has no
// host and matches no override.
func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// runServe starts the daemon and blocks until the context is cancelled.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting daemon",
		"listen", cfg.ListenAddress,
		"oracle", cfg.OracleEndpoint,
		"persist", cfg.DBDir != "",
	)

	// Open the state database unless running memory-only
	var kv store.KV
	if cfg.DBDir != "" {
		db, err := store.Open(cfg.DBDir, store.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		kv = db
		logger.Info("database opened", "dir", cfg.DBDir)
	}

	logOpts := []store.LogOption{store.WithLogger(logger)}
	if kv != nil {
		logOpts = append(logOpts, store.WithKV(kv, store.PassiveLogKey))
	}
	passiveLog := store.NewActivityLog(cfg.PassiveLogCapacity, logOpts...)
	if err := passiveLog.Load(ctx); err != nil {
		logger.Warn("failed to load activity log, starting empty", "error", err)
	}

	var cache *store.VerdictCache
	if kv != nil {
		cache = store.NewVerdictCache(kv, logger)
	}

	client := oracle.New(cfg.OracleEndpoint, oracle.WithTimeout(cfg.OracleTimeout))

	// A dead oracle is not fatal: pages simply stay unclassified until it
	// comes back. Surface it at startup so the user knows.
	probeCtx, probeCancel := context.WithTimeout(ctx, 2*time.Second)
	if err := client.Health(probeCtx); err != nil {
		logger.Warn("scoring oracle is not reachable", "endpoint", cfg.OracleEndpoint, "error", err)
	}
	probeCancel()

	overrides := cfg.Overrides
	srvOpts := []server.Option{
		server.WithActivityLog(passiveLog),
		server.WithHealthChecker(client),
		server.WithFallbackDelay(cfg.FallbackDelay),
		server.WithAutoDismissAfter(cfg.AutoDismissAfter),
		server.WithTrustChecker(func(pageURL string) bool {
			return overrides.IsTrusted(hostOf(pageURL))
		}),
		server.WithMuteChecker(func(pageURL string) bool {
			ov, ok := overrides.OverrideFor(hostOf(pageURL))
			return ok && ov.MuteBanner
		}),
		server.WithLogger(logger),
	}
	if cache != nil {
		srvOpts = append(srvOpts, server.WithVerdictCache(cache))
	}

	srv := server.New(client, srvOpts...)
	defer srv.Close()

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	fmt.Printf("phishguard daemon listening on %s\n", cfg.ListenAddress)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down cleanly", "error", err)
		}
		<-errCh
		logger.Info("daemon stopped")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("host API server failed: %w", err)
	}
}
