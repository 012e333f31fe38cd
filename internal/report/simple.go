package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/phishguard/phishguard/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with clear section
// formatting and per-tier indicators.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// verbose enables additional detail in the output, such as per-signal
	// feature rows.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// WriteCheck outputs the check report in human-readable format.
func (w *SimpleWriter) WriteCheck(report *CheckReport) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        PHISHGUARD CHECK\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Checked:  %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("URLs:     %d\n", len(report.Results)))
	sb.WriteString("\n")

	for _, res := range report.Results {
		w.writeResult(&sb, res)
	}

	return w.output.Write([]byte(sb.String()))
}

// writeResult writes a single URL's result section.
func (w *SimpleWriter) writeResult(sb *strings.Builder, res CheckResult) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(res.URL)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if res.Error != "" {
		sb.WriteString(fmt.Sprintf("  [x] check failed: %s\n\n", res.Error))
		return
	}

	v := res.Verdict
	sb.WriteString(fmt.Sprintf("  [%s] %s risk: %d%%\n", tierIndicator(v.Tier), strings.ToUpper(v.Tier.String()), v.RiskPercent))
	if v.Label != "" {
		sb.WriteString(fmt.Sprintf("  Oracle label: %s\n", v.Label))
	}
	if res.Cached {
		sb.WriteString("  (served from cache)\n")
	}

	if len(v.Reasons) > 0 {
		sb.WriteString("\n  Top reasons:\n")
		for _, reason := range v.Reasons {
			sb.WriteString(fmt.Sprintf("    * %s\n", reason))
		}
	}

	if w.verbose {
		features := orderedFeatures(res.Features)
		if len(features) > 0 {
			sb.WriteString("\n  Signals:\n")
			for _, f := range features {
				mark := "no"
				if f.Bad {
					mark = "YES"
				}
				sb.WriteString(fmt.Sprintf("    %-20s %s\n", f.Label, mark))
			}
		}
	}

	sb.WriteString("\n")
}

// WriteLog outputs the log snapshot in human-readable format.
func (w *SimpleWriter) WriteLog(report *LogReport) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  %s\n", strings.ToUpper(report.Title)))
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  Safe:       %d\n", report.Stats.Safe))
	sb.WriteString(fmt.Sprintf("  Suspicious: %d\n", report.Stats.Suspicious))
	sb.WriteString(fmt.Sprintf("  Phishing:   %d\n", report.Stats.Phishing))
	sb.WriteString(fmt.Sprintf("  TOTAL:      %d entries\n", report.Stats.Total))
	sb.WriteString("\n")

	if len(report.Entries) == 0 {
		sb.WriteString("  No entries.\n\n")
		return w.output.Write([]byte(sb.String()))
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	for _, e := range report.Entries {
		sb.WriteString(fmt.Sprintf("  [%s] %3d%%  %s  %s\n",
			tierIndicator(e.Tier),
			e.RiskPercent,
			e.Timestamp.Format("2006-01-02 15:04"),
			e.URL,
		))
	}
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}

// tierIndicator returns a visual indicator for the tier.
func tierIndicator(tier model.Tier) string {
	switch tier {
	case model.TierPhishing:
		return "!!"
	case model.TierSuspicious:
		return "! "
	case model.TierSafe:
		return "ok"
	default:
		return "??"
	}
}
