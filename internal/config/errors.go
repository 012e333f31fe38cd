package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and provide specific
// information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages. Using errors.New() here rather than fmt.Errorf()
// because we don't need to include dynamic values in these messages.
var (
	// ErrNoOracleEndpoint is returned when the oracle endpoint is empty.
	// Without an oracle there is nothing to classify pages with.
	ErrNoOracleEndpoint = errors.New("no oracle endpoint configured")

	// ErrNoListenAddress is returned when the host API listen address is empty.
	ErrNoListenAddress = errors.New("no listen address configured")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	// A timeout of zero or negative would cause immediate request failures.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidFallbackDelay is returned when the fallback delay is not
	// positive. A zero delay would race every navigation against its own
	// signal push.
	ErrInvalidFallbackDelay = errors.New("invalid fallback delay: must be positive")

	// ErrInvalidAutoDismiss is returned when the banner auto-dismiss window
	// is not positive.
	ErrInvalidAutoDismiss = errors.New("invalid auto-dismiss window: must be positive")

	// ErrInvalidLogCapacity is returned when an activity log capacity is not
	// positive. A zero capacity would silently discard every classification.
	ErrInvalidLogCapacity = errors.New("invalid log capacity: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// A negative body size is invalid; use 0 to use the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")
)
