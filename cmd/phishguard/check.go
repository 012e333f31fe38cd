package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/phishguard/phishguard/internal/aggregate"
	"github.com/phishguard/phishguard/internal/config"
	"github.com/phishguard/phishguard/internal/extract"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/oracle"
	"github.com/phishguard/phishguard/internal/report"
	"github.com/phishguard/phishguard/internal/store"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// DefaultCheckConcurrency bounds how many URLs a single check invocation
// classifies in parallel.
const DefaultCheckConcurrency = 4

// NewCheckCmd creates the check command.
func NewCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [url...]",
		Short: "Classify URLs for phishing risk from the terminal",
		Long: `Check classifies one or more URLs without a browser in the loop.

By default only the URL itself is sent to the scoring oracle. With
--fetch, phishguard downloads the page and extracts structural and
content signals first, which gives the oracle the same hybrid input the
browser agent provides.

Examples:
  # Check a single URL
  phishguard check https://paypal-secure-login.tk/verify

  # Check several URLs, fetching each page for full signals
  phishguard check --fetch https://a.example https://b.example

  # JSON report to a file
  phishguard check --json -o report.json https://a.example

  # Skip the verdict cache and force a fresh classification
  phishguard check --no-cache https://a.example`,
		Args: cobra.ArbitraryArgs,
		RunE: runCheckCmd,
	}

	cmd.Flags().Bool("fetch", false,
		"Fetch each page and extract structural and content signals")
	cmd.Flags().Int("concurrency", DefaultCheckConcurrency,
		"Number of URLs to classify in parallel")
	cmd.Flags().Bool("no-cache", false,
		"Bypass the verdict cache and always call the oracle")
	cmd.Flags().Duration("wait", 0,
		"Wait up to this long for the oracle to become healthy before checking")
	cmd.Flags().StringP("oracle", "e", config.DefaultOracleEndpoint,
		"Base URL of the local scoring oracle")
	cmd.Flags().DurationP("timeout", "t", config.DefaultFetchTimeout,
		"Timeout for fetching each page (with --fetch)")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .phishguard in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runCheckCmd executes the check command.
func runCheckCmd(cmd *cobra.Command, args []string) error {
	cfg, opts, err := buildCheckConfig(cmd)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	verbose := getVerboseFlag(cmd)
	cfg.Verbose = verbose
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runCheck(ctx, cfg, opts, args, logger)
}

// checkOptions holds check-only knobs that have no place in the shared
// daemon configuration.
type checkOptions struct {
	fetch       bool
	concurrency int
	noCache     bool
	wait        time.Duration
}

// buildCheckConfig creates a Config and check options from command flags.
func buildCheckConfig(cmd *cobra.Command) (*config.Config, checkOptions, error) {
	cfg := config.NewConfig()
	var opts checkOptions

	var err error

	cfg.OracleEndpoint, err = cmd.Flags().GetString("oracle")
	if err != nil {
		return nil, opts, err
	}

	cfg.FetchTimeout, err = cmd.Flags().GetDuration("timeout")
	if err != nil {
		return nil, opts, err
	}

	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, opts, err
	}

	cfg.Overrides, err = loadOverrides(cfg.ConfigFilePath)
	if err != nil {
		return nil, opts, err
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, opts, err
	}

	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, opts, err
	}

	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, opts, err
	}

	opts.fetch, err = cmd.Flags().GetBool("fetch")
	if err != nil {
		return nil, opts, err
	}

	opts.concurrency, err = cmd.Flags().GetInt("concurrency")
	if err != nil {
		return nil, opts, err
	}
	if opts.concurrency < 1 {
		opts.concurrency = 1
	}

	opts.noCache, err = cmd.Flags().GetBool("no-cache")
	if err != nil {
		return nil, opts, err
	}

	opts.wait, err = cmd.Flags().GetDuration("wait")
	if err != nil {
		return nil, opts, err
	}

	return cfg, opts, nil
}

// waitForOracle polls the oracle's health endpoint until it answers or the
// wait budget runs out.
func waitForOracle(ctx context.Context, client *oracle.Client, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	for {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Health(probeCtx)
		cancel()
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("oracle not healthy after %s: %w", wait, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// normalizeCheckURL validates a URL argument, defaulting the scheme to
// https when none is given.
func normalizeCheckURL(raw string) (string, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q (only http and https)", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL %q: missing host", raw)
	}
	return u.String(), nil
}

// runCheck classifies the given URLs and renders a report.
func runCheck(ctx context.Context, cfg *config.Config, opts checkOptions, args []string, logger *slog.Logger) error {
	if len(args) == 0 {
		return errors.New("no URLs provided (specify one or more URLs as arguments)")
	}

	urls := make([]string, len(args))
	for i, raw := range args {
		normalized, err := normalizeCheckURL(raw)
		if err != nil {
			return err
		}
		urls[i] = normalized
	}

	// Manual checks share the daemon's database so the browser sees them in
	// its history view. A database failure degrades to an in-memory run.
	var kv store.KV
	if cfg.DBDir != "" {
		db, err := store.Open(cfg.DBDir, store.DefaultOptions())
		if err != nil {
			logger.Warn("failed to open database, results will not persist", "error", err)
		} else {
			defer db.Close()
			kv = db
		}
	}

	logOpts := []store.LogOption{store.WithLogger(logger)}
	if kv != nil {
		logOpts = append(logOpts, store.WithKV(kv, store.ManualLogKey))
	}
	manualLog := store.NewActivityLog(cfg.ManualLogCapacity, logOpts...)
	if err := manualLog.Load(ctx); err != nil {
		logger.Warn("failed to load manual check log, starting empty", "error", err)
	}

	var cache *store.VerdictCache
	if kv != nil {
		cache = store.NewVerdictCache(kv, logger)
	}

	client := oracle.New(cfg.OracleEndpoint, oracle.WithTimeout(cfg.OracleTimeout))

	if opts.wait > 0 {
		if err := waitForOracle(ctx, client, opts.wait); err != nil {
			return err
		}
	}

	var fetcher *extract.Fetcher
	if opts.fetch {
		fetcher = extract.NewFetcher(
			extract.WithUserAgent(cfg.UserAgent),
			extract.WithMaxBodySize(cfg.MaxBodySize),
			extract.WithTimeout(cfg.FetchTimeout),
		)
	}

	results := make([]report.CheckResult, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency)
	for i, pageURL := range urls {
		g.Go(func() error {
			results[i] = checkOne(gctx, pageURL, client, fetcher, cache, manualLog, opts.noCache, logger)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rep := &report.CheckReport{
		GeneratedAt: time.Now(),
		Results:     results,
	}

	if err := outputCheckReport(cfg, rep); err != nil {
		return err
	}

	// Partial failures are reported inline; a run where nothing succeeded
	// is an error in its own right.
	failed := 0
	for _, res := range rep.Results {
		if res.Error != "" {
			failed++
		}
	}
	if failed == len(rep.Results) {
		return errors.New("all checks failed")
	}
	return nil
}

// checkOne classifies a single URL. Failures are carried in the result
// rather than returned, so one bad URL never aborts the batch.
func checkOne(ctx context.Context, pageURL string, client *oracle.Client, fetcher *extract.Fetcher, cache *store.VerdictCache, manualLog *store.ActivityLog, noCache bool, logger *slog.Logger) report.CheckResult {
	if cache != nil && !noCache {
		if v, ok := cache.Get(ctx, pageURL); ok {
			return report.CheckResult{URL: pageURL, Verdict: v, Cached: true}
		}
	}

	signals := model.URLOnlySignals(pageURL)
	if fetcher != nil {
		fetched, err := fetcher.Fetch(ctx, pageURL)
		if err != nil {
			// The oracle can still score the URL alone.
			logger.Warn("failed to fetch page, falling back to URL-only signals",
				"url", pageURL, "error", err)
		} else {
			signals = fetched
		}
	}

	res, err := client.Classify(ctx, signals)
	if err != nil {
		return report.CheckResult{URL: pageURL, Error: err.Error()}
	}

	verdict, err := aggregate.Aggregate(pageURL, res, time.Now())
	if err != nil {
		return report.CheckResult{URL: pageURL, Error: err.Error()}
	}

	if cache != nil {
		cache.Put(ctx, verdict)
	}
	manualLog.Append(ctx, model.NewLogEntry(verdict))

	return report.CheckResult{
		URL:      pageURL,
		Verdict:  verdict,
		Features: res.Features,
	}
}

// openReportOutput resolves the report destination: the configured file,
// or stdout when none is set. The caller must call the returned cleanup.
func openReportOutput(cfg *config.Config) (*os.File, func(), error) {
	if cfg.ReportFile == "" {
		return os.Stdout, func() {}, nil
	}

	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports list the user's visited URLs, so keep them owner-readable.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// outputCheckReport renders the check report in the requested format.
func outputCheckReport(cfg *config.Config, rep *report.CheckReport) error {
	output, cleanup, err := openReportOutput(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint(), report.WithVersion(getVersion()))
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	_, err = w.WriteCheck(rep)
	return err
}
