package model

// ScoreResult is the scoring oracle's response. The oracle answers in one of
// two shapes: URL-only mode supplies just URLScore (or the legacy RiskScore
// field), while hybrid mode supplies the URL, structural, and content parts
// plus a precomputed weighted combination in FinalScore.
//
// Design decision: Optional numeric fields are pointers rather than float64
// with a zero default. Absence of a score is distinct from a score of zero;
// coercing missing fields to 0 before aggregation would silently bias every
// partial response toward "safe". The aggregator's precedence rule relies on
// nil meaning "not computed".
type ScoreResult struct {
	// URLScore is the URL model's phishing probability in [0,1].
	URLScore *float64 `json:"url_score,omitempty"`

	// StructuralScore is the DOM-structure model's probability in [0,1].
	StructuralScore *float64 `json:"structural_score,omitempty"`

	// ContentScore is the visible-text model's probability in [0,1].
	ContentScore *float64 `json:"content_score,omitempty"`

	// FinalScore is the oracle's own weighted combination in [0,1].
	// When present it takes precedence over every per-part score.
	FinalScore *float64 `json:"final_score,omitempty"`

	// RiskScore is the legacy single-score field older oracle deployments
	// return instead of URLScore. Only consulted when no other score exists.
	RiskScore *float64 `json:"risk_score,omitempty"`

	// Label is the oracle's free-text classification name, e.g. "phishing".
	Label string `json:"label,omitempty"`

	// Reasons are short human-readable explanations in oracle order.
	Reasons []string `json:"reasons,omitempty"`

	// Features maps feature names to their numeric values, when the oracle
	// includes its feature breakdown.
	Features map[string]float64 `json:"features,omitempty"`
}

// HasScore reports whether at least one score field is present.
// A response with no score at all is malformed and treated as oracle failure.
func (r ScoreResult) HasScore() bool {
	return r.FinalScore != nil || r.URLScore != nil || r.StructuralScore != nil ||
		r.ContentScore != nil || r.RiskScore != nil
}

// ScoresInRange reports whether every present score lies in [0,1].
func (r ScoreResult) ScoresInRange() bool {
	for _, s := range []*float64{r.URLScore, r.StructuralScore, r.ContentScore, r.FinalScore, r.RiskScore} {
		if s != nil && (*s < 0 || *s > 1) {
			return false
		}
	}
	return true
}
