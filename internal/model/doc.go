// Package model defines the core data structures used throughout phishguard.
//
// This package contains the following main types:
//   - PageSignals: Observable signals extracted from a loaded page
//   - ScoreResult: The scoring oracle's shape-polymorphic response
//   - RiskVerdict: The canonical risk verdict derived from a ScoreResult
//   - LogEntry: A frozen verdict snapshot stored in the activity log
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. Multiple packages (extract, aggregate, coordinator, store,
// report) need these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for the host API,
// report output, and key-value storage.
package model
