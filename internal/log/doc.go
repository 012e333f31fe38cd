// Package log provides secure logging functionality with automatic
// sanitization of sensitive information, built on top of the standard slog
// package.
//
// The daemon logs page URLs and classification metadata for every page the
// browser visits. That data is privacy-sensitive by nature: URLs routinely
// carry session identifiers, password-reset tokens, and OAuth callback codes
// in their query strings, and attribute values may hold credentials captured
// from request plumbing. This package keeps such values out of log output:
//   - Attribute keys that name credentials (password, token, cookie, ...)
//     are masked regardless of value.
//   - String values matching secret-like patterns (JWTs, bearer tokens,
//     private key markers) are masked regardless of key.
//   - URL values keep their scheme, host, and path but have the values of
//     sensitive query parameters replaced.
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("classification complete",
//	    "url", "https://example.com/login?session=abc123", // query value masked
//	    "tier", "phishing",
//	)
//
//	slog.SetDefault(logger)
package log
