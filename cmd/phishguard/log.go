package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phishguard/phishguard/internal/config"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/report"
	"github.com/phishguard/phishguard/internal/store"
	"github.com/spf13/cobra"
)

// NewLogCmd creates the log command.
func NewLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the classification activity log",
		Long: `Log shows the daemon's record of completed classifications,
most recent first.

The passive log records every page the browser agent classified; the
manual log records explicit 'phishguard check' runs.

Examples:
  # Show the passive activity log
  phishguard log

  # Show only phishing-tier entries
  phishguard log --tier phishing

  # Show the last 20 manual checks
  phishguard log --manual -n 20

  # Clear the passive log
  phishguard log --clear`,
		Args: cobra.NoArgs,
		RunE: runLogCmd,
	}

	cmd.Flags().Bool("manual", false,
		"Show the manual check log instead of the passive log")
	cmd.Flags().String("tier", "",
		"Show only entries of this tier (safe, suspicious, phishing)")
	cmd.Flags().IntP("limit", "n", 0,
		"Show at most this many entries (0 shows all)")
	cmd.Flags().Bool("clear", false,
		"Clear the selected log instead of showing it")
	cmd.Flags().String("db-dir", "",
		"Directory of the state database (default: XDG data directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runLogCmd executes the log command.
func runLogCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()

	var err error
	if cfg.JSONReport, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown"); err != nil {
		return err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("output"); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	manual, err := cmd.Flags().GetBool("manual")
	if err != nil {
		return err
	}

	tierName, err := cmd.Flags().GetString("tier")
	if err != nil {
		return err
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	clearLog, err := cmd.Flags().GetBool("clear")
	if err != nil {
		return err
	}

	verbose := getVerboseFlag(cmd)
	logger := setupLogger(verbose)
	slog.SetDefault(logger)

	return runLog(context.Background(), cfg, logWork{
		manual:   manual,
		tierName: tierName,
		limit:    limit,
		clear:    clearLog,
	}, logger)
}

// logWork describes what the log command should do.
type logWork struct {
	manual   bool
	tierName string
	limit    int
	clear    bool
}

// parseTier maps a tier flag value to a model.Tier, rejecting unknown
// names. Tier.UnmarshalText deliberately accepts anything for stored
// data, but a typo on the command line should fail loudly.
func parseTier(name string) (model.Tier, error) {
	switch name {
	case "safe":
		return model.TierSafe, nil
	case "suspicious":
		return model.TierSuspicious, nil
	case "phishing":
		return model.TierPhishing, nil
	default:
		return model.TierSafe, fmt.Errorf("unknown tier %q (expected safe, suspicious, or phishing)", name)
	}
}

// runLog loads the selected activity log and shows or clears it.
func runLog(ctx context.Context, cfg *config.Config, work logWork, logger *slog.Logger) error {
	// Showing history must never create an empty database.
	db, err := store.Open(cfg.DBDir, store.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("no activity log found (run 'phishguard serve' or 'phishguard check' first): %w", err)
	}
	defer db.Close()

	key := store.PassiveLogKey
	capacity := cfg.PassiveLogCapacity
	title := "Passive activity log"
	if work.manual {
		key = store.ManualLogKey
		capacity = cfg.ManualLogCapacity
		title = "Manual check log"
	}

	activityLog := store.NewActivityLog(capacity,
		store.WithKV(db, key),
		store.WithLogger(logger),
	)
	if err := activityLog.Load(ctx); err != nil {
		return fmt.Errorf("failed to load activity log: %w", err)
	}

	if work.clear {
		activityLog.Clear(ctx)
		fmt.Printf("Cleared %s (%s)\n", title, db.Path())
		return nil
	}

	entries := activityLog.Entries()
	if work.tierName != "" {
		tier, err := parseTier(work.tierName)
		if err != nil {
			return err
		}
		entries = activityLog.ByTier(tier)
	}
	if work.limit > 0 && work.limit < len(entries) {
		entries = entries[:work.limit]
	}

	rep := &report.LogReport{
		GeneratedAt: time.Now(),
		Title:       title,
		Entries:     entries,
		Stats:       activityLog.Stats(),
	}

	return outputLogReport(cfg, rep)
}

// outputLogReport renders the log snapshot in the requested format.
func outputLogReport(cfg *config.Config, rep *report.LogReport) error {
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
		w = report.NewSimpleWriter(output)
	}

	_, err = w.WriteLog(rep)
	return err
}
