package aggregate

import (
	"errors"
	"math"
	"time"

	"github.com/phishguard/phishguard/internal/model"
)

// ErrNoScore is returned when the oracle response contains no score field at
// all. Callers treat this the same as an unreachable oracle: no verdict.
var ErrNoScore = errors.New("score result contains no usable score")

// ErrScoreOutOfRange is returned when a present score lies outside [0,1].
var ErrScoreOutOfRange = errors.New("score result contains a score outside [0,1]")

// Aggregate builds the canonical RiskVerdict for a page from an oracle
// response.
//
// Scalar precedence: FinalScore if present, else URLScore, else the legacy
// RiskScore field. The oracle may answer in URL-only mode (URLScore alone) or
// hybrid mode (all parts plus a combination); we never average partial data
// ourselves. Combination weights live in the oracle, and a raw per-part field
// is only used when no combined field was supplied.
//
// Design decision: A structural-only or content-only response yields
// ErrNoScore rather than a verdict. Absence of the URL and final scores means
// the oracle did not compute a standalone risk for this page, and inventing
// one from a partial sub-model would silently bias the result.
func Aggregate(pageURL string, res model.ScoreResult, now time.Time) (model.RiskVerdict, error) {
	if !res.ScoresInRange() {
		return model.RiskVerdict{}, ErrScoreOutOfRange
	}

	var score float64
	switch {
	case res.FinalScore != nil:
		score = *res.FinalScore
	case res.URLScore != nil:
		score = *res.URLScore
	case res.RiskScore != nil:
		score = *res.RiskScore
	default:
		return model.RiskVerdict{}, ErrNoScore
	}

	riskPercent := int(math.Round(score * 100))

	reasons := res.Reasons
	if len(reasons) > model.MaxVerdictReasons {
		reasons = reasons[:model.MaxVerdictReasons]
	}
	// Copy so the verdict stays immutable even if the caller reuses the
	// response's backing slice.
	if len(reasons) > 0 {
		reasons = append([]string(nil), reasons...)
	}

	return model.RiskVerdict{
		PageURL:     pageURL,
		RiskPercent: riskPercent,
		Tier:        model.TierForPercent(riskPercent),
		Label:       res.Label,
		Reasons:     reasons,
		Timestamp:   now,
	}, nil
}
