package report

import (
	"time"

	"github.com/phishguard/phishguard/internal/model"
	"github.com/phishguard/phishguard/internal/store"
)

// CheckResult is the outcome of checking a single URL.
type CheckResult struct {
	// URL is the checked URL, present even when the check failed.
	URL string `json:"url"`

	// Verdict is the classification outcome. Only meaningful when Error is
	// empty.
	Verdict model.RiskVerdict `json:"verdict"`

	// Features holds the oracle's per-signal indicator values, keyed by
	// signal name. May be empty when the oracle omits them.
	Features map[string]float64 `json:"features,omitempty"`

	// Cached marks a result served from the verdict cache rather than a
	// fresh oracle call.
	Cached bool `json:"cached,omitempty"`

	// Error describes a failed check. A non-empty Error means Verdict is
	// unset.
	Error string `json:"error,omitempty"`
}

// CheckReport collects the results of one check invocation.
type CheckReport struct {
	// GeneratedAt is when the report was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Results holds one entry per checked URL, in input order.
	Results []CheckResult `json:"results"`
}

// Failed reports whether any check in the report errored.
func (r *CheckReport) Failed() bool {
	for _, res := range r.Results {
		if res.Error != "" {
			return true
		}
	}
	return false
}

// WorstTier returns the highest tier among successful results.
func (r *CheckReport) WorstTier() model.Tier {
	worst := model.TierSafe
	for _, res := range r.Results {
		if res.Error == "" && res.Verdict.Tier > worst {
			worst = res.Verdict.Tier
		}
	}
	return worst
}

// LogReport is a snapshot of an activity log for rendering.
type LogReport struct {
	// GeneratedAt is when the snapshot was taken.
	GeneratedAt time.Time `json:"generated_at"`

	// Title names the log, e.g. "Passive activity log".
	Title string `json:"title"`

	// Entries are most-recent-first log entries.
	Entries []model.LogEntry `json:"entries"`

	// Stats summarizes the entries by tier.
	Stats store.Stats `json:"stats"`
}

// featureLabels maps the oracle's signal names to short human-readable
// labels, in display order. Names not listed here render as-is.
var featureLabels = []struct {
	key   string
	label string
}{
	{"ip", "IP in URL"},
	{"https_token", "No HTTPS"},
	{"prefix_suffix", "Dash in domain"},
	{"shortening_service", "URL shortener"},
	{"suspicious_tld", "Suspicious TLD"},
	{"statistical_report", "Known bad host"},
	{"phish_hints", "Phishing keywords"},
}

// FeatureLabel returns the display label for an oracle signal name.
func FeatureLabel(key string) string {
	for _, fl := range featureLabels {
		if fl.key == key {
			return fl.label
		}
	}
	return key
}

// orderedFeatures returns the known features present in the map, in display
// order, followed by nothing else. Unknown features are dropped from
// summaries to keep the output stable across oracle versions.
func orderedFeatures(features map[string]float64) []struct {
	Label string
	Bad   bool
} {
	var out []struct {
		Label string
		Bad   bool
	}
	for _, fl := range featureLabels {
		v, ok := features[fl.key]
		if !ok {
			continue
		}
		out = append(out, struct {
			Label string
			Bad   bool
		}{Label: fl.label, Bad: v > 0})
	}
	return out
}
