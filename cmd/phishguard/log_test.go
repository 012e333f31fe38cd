package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phishguard/phishguard/internal/config"
	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/store"
)

// TestNewLogCmd tests the log command creation.
func TestNewLogCmd(t *testing.T) {
	t.Parallel()

	cmd := NewLogCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "log" {
			t.Errorf("expected use 'log', got %q", cmd.Use)
		}
	})

	t.Run("has selection flags", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"manual", "tier", "clear"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})

	t.Run("has limit flag with shorthand", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("limit")
		if flag == nil {
			t.Fatal("expected limit flag")
		}
		if flag.Shorthand != "n" {
			t.Errorf("expected shorthand 'n', got %q", flag.Shorthand)
		}
	})
}

// TestParseTier tests tier flag validation.
func TestParseTier(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    model.Tier
		wantErr bool
	}{
		{"safe", "safe", model.TierSafe, false},
		{"suspicious", "suspicious", model.TierSuspicious, false},
		{"phishing", "phishing", model.TierPhishing, false},
		{"unknown name", "dangerous", model.TierSafe, true},
		{"empty", "", model.TierSafe, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseTier(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseTier(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("parseTier(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// seedLogDB creates a database with one phishing entry in the passive log.
func seedLogDB(t *testing.T, dir string) {
	t.Helper()

	db, err := store.Open(dir, store.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	activityLog := store.NewActivityLog(10, store.WithKV(db, store.PassiveLogKey))
	activityLog.Append(context.Background(), model.NewLogEntry(model.RiskVerdict{
		PageURL:     "https://paypal-secure-login.tk/verify",
		RiskPercent: 93,
		Tier:        model.TierPhishing,
		Label:       "phishing",
		Timestamp:   time.Now(),
	}))
}

// TestRunLogMissingDatabase tests that showing history never creates a
// database.
func TestRunLogMissingDatabase(t *testing.T) {
	t.Parallel()

	cfg := config.NewConfig()
	cfg.DBDir = t.TempDir()

	err := runLog(context.Background(), cfg, logWork{}, discardLogger())
	if err == nil {
		t.Fatal("expected an error when no database exists")
	}
	if !strings.Contains(err.Error(), "no activity log") {
		t.Errorf("unexpected error message: %v", err)
	}
}

// TestRunLogRendersEntries tests the read path end to end.
func TestRunLogRendersEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedLogDB(t, dir)

	cfg := config.NewConfig()
	cfg.DBDir = dir
	cfg.ReportFile = filepath.Join(t.TempDir(), "log.txt")

	err := runLog(context.Background(), cfg, logWork{}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := readFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(content, "paypal-secure-login.tk") {
		t.Errorf("expected report to contain the logged URL, got:\n%s", content)
	}
	if !strings.Contains(content, "TOTAL:      1") {
		t.Errorf("expected report to count 1 entry, got:\n%s", content)
	}
}

// TestRunLogTierFilter tests the tier filter and the unknown-tier error.
func TestRunLogTierFilter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedLogDB(t, dir)

	t.Run("matching tier keeps the entry", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.DBDir = dir
		cfg.ReportFile = filepath.Join(t.TempDir(), "log.txt")

		err := runLog(context.Background(), cfg, logWork{tierName: "phishing"}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := readFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(content, "paypal-secure-login.tk") {
			t.Errorf("expected the phishing entry, got:\n%s", content)
		}
	})

	t.Run("non-matching tier hides the entry", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.DBDir = dir
		cfg.ReportFile = filepath.Join(t.TempDir(), "log.txt")

		err := runLog(context.Background(), cfg, logWork{tierName: "safe"}, discardLogger())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		content, err := readFile(cfg.ReportFile)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if strings.Contains(content, "paypal-secure-login.tk") {
			t.Errorf("expected the phishing entry to be filtered out, got:\n%s", content)
		}
	})

	t.Run("unknown tier is an error", func(t *testing.T) {
		cfg := config.NewConfig()
		cfg.DBDir = dir

		err := runLog(context.Background(), cfg, logWork{tierName: "dangerous"}, discardLogger())
		if err == nil {
			t.Fatal("expected an error for an unknown tier")
		}
	})
}

// TestRunLogClear tests that clearing empties the persisted log.
func TestRunLogClear(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	seedLogDB(t, dir)

	cfg := config.NewConfig()
	cfg.DBDir = dir

	if err := runLog(context.Background(), cfg, logWork{clear: true}, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cfg.ReportFile = filepath.Join(t.TempDir(), "log.txt")
	if err := runLog(context.Background(), cfg, logWork{}, discardLogger()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content, err := readFile(cfg.ReportFile)
	if err != nil {
		t.Fatalf("failed to read report: %v", err)
	}
	if !strings.Contains(content, "No entries.") {
		t.Errorf("expected an empty log after clear, got:\n%s", content)
	}
}
