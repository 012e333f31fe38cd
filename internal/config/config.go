package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// Timing values mirror the behavior users experience in the browser: the
// fallback delay bounds how long a page can stay unscored after navigation,
// and the auto-dismiss window bounds how long a suspicious banner occupies
// the page.
const (
	// DefaultOracleEndpoint is where the local scoring oracle listens.
	// We use 127.0.0.1 instead of localhost to avoid DNS resolution overhead
	// and potential issues with IPv6 resolution on some systems.
	DefaultOracleEndpoint = "http://127.0.0.1:5001"

	// DefaultListenAddress is where the daemon's host API listens for the
	// browser agent. Loopback only: the API carries browsing history and
	// must never be reachable from the network.
	DefaultListenAddress = "127.0.0.1:8745"

	// DefaultOracleTimeout is the per-request timeout for oracle calls.
	// The oracle runs on the same machine, so a short timeout is enough;
	// anything slower than this would make verdicts arrive after the user
	// has already interacted with the page.
	DefaultOracleTimeout = 5 * time.Second

	// DefaultFallbackDelay is how long the daemon waits after a completed
	// navigation for the page's own signal push before classifying with
	// URL-only data.
	DefaultFallbackDelay = 800 * time.Millisecond

	// DefaultAutoDismissAfter is how long a suspicious-tier banner stays up
	// before dismissing itself.
	DefaultAutoDismissAfter = 12 * time.Second

	// DefaultPassiveLogCapacity is the entry cap for the passive activity
	// log. It bounds both memory and the persisted blob while keeping a few
	// days of typical browsing visible.
	DefaultPassiveLogCapacity = 500

	// DefaultManualLogCapacity is the entry cap for the manual-check log.
	// Manual checks are far rarer than page loads, so a smaller cap suffices.
	DefaultManualLogCapacity = 200

	// AppName is the application name used for XDG directory paths.
	AppName = "phishguard"

	// DefaultUserAgent identifies phishguard in HTTP requests made by the
	// manual check path when it fetches a page itself.
	DefaultUserAgent = "phishguard/1.0 (+https://github.com/phishguard/phishguard)"

	// DefaultMaxBodySize limits the maximum response body size to read when
	// fetching a page for a manual check. 5MB is sufficient for most HTML
	// pages while preventing memory exhaustion from unexpectedly large
	// responses.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultFetchTimeout is the timeout for fetching a page during a
	// manual check.
	DefaultFetchTimeout = 30 * time.Second
)

// Config holds all configuration options for phishguard.
// This struct is designed to be populated from CLI flags and the optional
// configuration file, and passed through the application via dependency
// injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., OracleConfig, LogConfig) for simplicity. The number of options
// is manageable, and nesting would add complexity without significant benefit.
type Config struct {
	// OracleEndpoint is the base URL of the local scoring oracle.
	// The daemon appends /predict and /health to it.
	OracleEndpoint string

	// ListenAddress is the host:port the daemon's host API binds to.
	// It should stay on a loopback interface.
	ListenAddress string

	// OracleTimeout is the per-request timeout for oracle calls.
	OracleTimeout time.Duration

	// FallbackDelay is how long to wait after navigation for a signal push
	// before issuing a URL-only classification.
	FallbackDelay time.Duration

	// AutoDismissAfter is how long a suspicious-tier banner stays visible
	// before dismissing itself. Phishing banners never auto-dismiss.
	AutoDismissAfter time.Duration

	// PassiveLogCapacity caps the passive activity log.
	PassiveLogCapacity int

	// ManualLogCapacity caps the manual-check log.
	ManualLogCapacity int

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .phishguard in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// Overrides holds trusted-site overrides loaded from the config file.
	Overrides *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable
	// format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for check reports.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory path for storing the SQLite database.
	// When set, the activity log and verdict cache persist across restarts.
	// When empty, all state is in-memory only.
	// Defaults to the XDG data directory (~/.local/share/phishguard on Linux).
	DBDir string

	// UserAgent is the User-Agent header sent when the manual check path
	// fetches a page itself.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read when
	// fetching a page. Set to 0 to use the default (5MB).
	MaxBodySize int64

	// FetchTimeout is the timeout for fetching a page during a manual check.
	FetchTimeout time.Duration
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
// Users can override specific values after creation.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, caps).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		OracleEndpoint:     DefaultOracleEndpoint,
		ListenAddress:      DefaultListenAddress,
		OracleTimeout:      DefaultOracleTimeout,
		FallbackDelay:      DefaultFallbackDelay,
		AutoDismissAfter:   DefaultAutoDismissAfter,
		PassiveLogCapacity: DefaultPassiveLogCapacity,
		ManualLogCapacity:  DefaultManualLogCapacity,
		DBDir:              XDGDataDir(),
		UserAgent:          DefaultUserAgent,
		MaxBodySize:        DefaultMaxBodySize,
		FetchTimeout:       DefaultFetchTimeout,
	}
}

// XDGDataDir returns the XDG data directory for phishguard.
// This follows the XDG Base Directory Specification.
// On Linux: ~/.local/share/phishguard
// On macOS: ~/Library/Application Support/phishguard
// On Windows: %LOCALAPPDATA%\phishguard
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for phishguard.
// On Linux: ~/.config/phishguard
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// Design decision: We validate at the config level rather than at each
// point of use to fail fast and provide clear error messages upfront.
// This is called once after CLI parsing, before the daemon starts.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if c.OracleEndpoint == "" {
		return ErrNoOracleEndpoint
	}

	if c.ListenAddress == "" {
		return ErrNoListenAddress
	}

	// Zero or negative timeouts would cause immediate failures
	if c.OracleTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.FallbackDelay <= 0 {
		return ErrInvalidFallbackDelay
	}

	if c.AutoDismissAfter <= 0 {
		return ErrInvalidAutoDismiss
	}

	if c.PassiveLogCapacity <= 0 || c.ManualLogCapacity <= 0 {
		return ErrInvalidLogCapacity
	}

	// JSONReport and MarkdownReport are mutually exclusive
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	return nil
}
