package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/phishguard/phishguard/internal/model"
)

// Default capacities for the two activity log instances. The passive log
// records every background classification; the manual log records only
// explicit checks, so it can be smaller.
const (
	DefaultPassiveCapacity = 500
	DefaultManualCapacity  = 200
)

// Storage keys for the two log instances.
const (
	PassiveLogKey = "activity_log"
	ManualLogKey  = "manual_log"
)

// ActivityLog is an append-only, capped, most-recent-first record of
// completed classifications.
//
// Design decision: A head-truncated slice rather than a ring buffer. The
// bound is small (hundreds), every read wants most-recent-first order
// anyway, and a slice keeps the persisted JSON form identical to the
// in-memory form.
type ActivityLog struct {
	mu       sync.Mutex
	capacity int
	entries  []model.LogEntry

	// kv and key configure best-effort persistence. A nil kv keeps the log
	// purely in memory.
	kv  KV
	key string

	logger *slog.Logger
}

// LogOption configures an ActivityLog.
type LogOption func(*ActivityLog)

// WithKV enables persistence through the given KV under the given key.
func WithKV(kv KV, key string) LogOption {
	return func(l *ActivityLog) {
		l.kv = kv
		l.key = key
	}
}

// WithLogger sets a custom logger for persistence warnings.
func WithLogger(logger *slog.Logger) LogOption {
	return func(l *ActivityLog) {
		l.logger = logger
	}
}

// NewActivityLog creates an empty log with the given capacity.
// Non-positive capacities fall back to DefaultPassiveCapacity.
func NewActivityLog(capacity int, opts ...LogOption) *ActivityLog {
	if capacity <= 0 {
		capacity = DefaultPassiveCapacity
	}

	l := &ActivityLog{
		capacity: capacity,
		entries:  make([]model.LogEntry, 0),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.logger == nil {
		l.logger = slog.Default()
	}

	return l
}

// Load restores entries from the KV. A missing key leaves the log empty.
// Entries beyond capacity are dropped on load, so shrinking the configured
// capacity takes effect at the next start.
func (l *ActivityLog) Load(ctx context.Context) error {
	if l.kv == nil {
		return nil
	}

	data, ok, err := l.kv.Get(ctx, l.key)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	var entries []model.LogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt blob is treated as empty rather than fatal; the log is
		// advisory data and the session must keep working without it.
		l.logger.Warn("discarding corrupt activity log blob", "key", l.key, "error", err)
		return nil
	}

	if len(entries) > l.capacity {
		entries = entries[:l.capacity]
	}

	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return nil
}

// Append inserts the entry at the head and drops the oldest entries beyond
// capacity. Persistence is best-effort: a storage failure is logged and the
// in-memory log keeps the entry.
func (l *ActivityLog) Append(ctx context.Context, entry model.LogEntry) {
	l.mu.Lock()
	l.entries = append([]model.LogEntry{entry}, l.entries...)
	if len(l.entries) > l.capacity {
		l.entries = l.entries[:l.capacity]
	}
	snapshot := append([]model.LogEntry(nil), l.entries...)
	l.mu.Unlock()

	l.persist(ctx, snapshot)
}

// Entries returns a most-recent-first copy of the log.
func (l *ActivityLog) Entries() []model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.LogEntry(nil), l.entries...)
}

// Len returns the number of stored entries.
func (l *ActivityLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Capacity returns the configured capacity.
func (l *ActivityLog) Capacity() int {
	return l.capacity
}

// ByTier returns the most-recent-first entries matching the given tier.
func (l *ActivityLog) ByTier(tier model.Tier) []model.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []model.LogEntry
	for _, e := range l.entries {
		if e.Tier == tier {
			out = append(out, e)
		}
	}
	return out
}

// Stats summarizes the log by tier.
type Stats struct {
	Total      int `json:"total"`
	Safe       int `json:"safe"`
	Suspicious int `json:"suspicious"`
	Phishing   int `json:"phishing"`
}

// Stats returns per-tier counts over the stored entries.
func (l *ActivityLog) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	stats := Stats{Total: len(l.entries)}
	for _, e := range l.entries {
		switch e.Tier {
		case model.TierPhishing:
			stats.Phishing++
		case model.TierSuspicious:
			stats.Suspicious++
		case model.TierSafe:
			stats.Safe++
		}
	}
	return stats
}

// Clear removes all entries, in memory and in storage.
func (l *ActivityLog) Clear(ctx context.Context) {
	l.mu.Lock()
	l.entries = l.entries[:0]
	l.mu.Unlock()

	if l.kv == nil {
		return
	}
	if err := l.kv.Delete(ctx, l.key); err != nil {
		l.logger.Warn("failed to clear persisted activity log", "key", l.key, "error", err)
	}
}

// persist writes the snapshot through the KV, best-effort.
func (l *ActivityLog) persist(ctx context.Context, snapshot []model.LogEntry) {
	if l.kv == nil {
		return
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		l.logger.Warn("failed to encode activity log", "key", l.key, "error", err)
		return
	}
	if err := l.kv.Set(ctx, l.key, data); err != nil {
		l.logger.Warn("failed to persist activity log", "key", l.key, "error", err)
	}
}
