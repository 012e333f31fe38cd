// Package store holds the state shared across page loads: the capped
// activity log and the last-verdict-per-URL cache.
//
// Both are backed by a small key-value layer with opaque JSON values. The
// SQLite implementation persists across sessions; constructing either store
// without a KV keeps it purely in memory, which is what the tests and the
// fail-open storage semantics rely on. A missing key always means "empty",
// never an error.
package store
