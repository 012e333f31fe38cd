package model

import "time"

// LogEntry is a frozen snapshot of a RiskVerdict as stored in the activity
// log. Entries are immutable value snapshots, so the capped store can drop
// old ones without any ownership concerns.
type LogEntry struct {
	// URL is the classified page URL.
	URL string `json:"url"`

	// Label is the oracle's classification label, when supplied.
	Label string `json:"label,omitempty"`

	// RiskPercent is the verdict's risk percentage.
	RiskPercent int `json:"risk_percent"`

	// Tier is the verdict's risk tier.
	Tier Tier `json:"tier"`

	// Timestamp is when the classification completed.
	Timestamp time.Time `json:"ts"`
}

// NewLogEntry freezes a verdict into a log entry.
func NewLogEntry(v RiskVerdict) LogEntry {
	return LogEntry{
		URL:         v.PageURL,
		Label:       v.Label,
		RiskPercent: v.RiskPercent,
		Tier:        v.Tier,
		Timestamp:   v.Timestamp,
	}
}
