package model

import "time"

// Tier is the discretized risk level of a classified page.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and ordering (TierSafe < TierSuspicious <
// TierPhishing). The String() method provides the wire/display form.
type Tier int

const (
	// TierSafe indicates no actionable phishing risk. No banner is shown.
	TierSafe Tier = iota

	// TierSuspicious indicates moderate risk. The banner is shown and
	// auto-dismisses after a timeout; the form guard stays disarmed.
	TierSuspicious

	// TierPhishing indicates high risk. The banner never auto-dismisses and
	// credential-bearing forms are guarded.
	TierPhishing
)

// Tier thresholds on the 0-100 risk percentage scale.
// A page is phishing at or above PhishingThreshold, suspicious at or above
// SuspiciousThreshold, and safe below that.
const (
	SuspiciousThreshold = 40
	PhishingThreshold   = 70
)

// String returns the wire representation of the tier.
func (t Tier) String() string {
	switch t {
	case TierSafe:
		return "safe"
	case TierSuspicious:
		return "suspicious"
	case TierPhishing:
		return "phishing"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler so Tier serializes as its
// string form in JSON.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
// Unknown strings decode as TierSafe; stored logs may predate a tier rename
// and a conservative default beats a decode error for display-only data.
func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "suspicious":
		*t = TierSuspicious
	case "phishing":
		*t = TierPhishing
	default:
		*t = TierSafe
	}
	return nil
}

// TierForPercent returns the tier for a risk percentage.
// Tier is always derived through this function, never set independently,
// so the threshold invariant holds everywhere a verdict is built.
func TierForPercent(riskPercent int) Tier {
	switch {
	case riskPercent >= PhishingThreshold:
		return TierPhishing
	case riskPercent >= SuspiciousThreshold:
		return TierSuspicious
	default:
		return TierSafe
	}
}

// MaxVerdictReasons caps how many oracle reasons a verdict carries.
const MaxVerdictReasons = 6

// RiskVerdict is the canonical output of the score aggregator: one verdict
// per completed classification. It is immutable after creation and is
// consumed by the activity log, the badge projector, and the alert state
// machine.
type RiskVerdict struct {
	// PageURL is the URL the verdict applies to.
	PageURL string `json:"page_url"`

	// RiskPercent is the risk score scaled to an integer percentage 0-100.
	RiskPercent int `json:"risk_percent"`

	// Tier is derived from RiskPercent via TierForPercent.
	Tier Tier `json:"tier"`

	// Label is the oracle's classification label, when supplied.
	Label string `json:"label,omitempty"`

	// Reasons holds at most MaxVerdictReasons explanations in oracle order.
	Reasons []string `json:"reasons,omitempty"`

	// Timestamp is when the classification completed.
	Timestamp time.Time `json:"timestamp"`
}
