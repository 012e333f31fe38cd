package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/phishguard/phishguard/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteCheck outputs the check report in Markdown format.
func (w *MarkdownWriter) WriteCheck(report *CheckReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Phishguard Check")
	md.PlainText("")
	md.PlainTextf("Checked %d URL(s) at %s.",
		len(report.Results),
		report.GeneratedAt.Format("2006-01-02 15:04:05 MST"),
	)
	md.PlainText("")

	w.writeCheckAlert(md, report)

	for _, res := range report.Results {
		w.writeResult(md, res)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeCheckAlert writes an overall alert based on the worst result.
func (w *MarkdownWriter) writeCheckAlert(md *markdown.Markdown, report *CheckReport) {
	switch {
	case report.WorstTier() == model.TierPhishing:
		md.Caution("Likely phishing detected. Do not enter credentials on the flagged page(s).")
	case report.WorstTier() == model.TierSuspicious:
		md.Warning("Suspicious page(s) detected. Verify the address before signing in.")
	case report.Failed():
		md.Important("Some checks failed; unscored pages are not known to be safe.")
	default:
		md.Tip("No phishing indicators detected.")
	}
	md.PlainText("")
}

// writeResult writes a single URL's result section.
func (w *MarkdownWriter) writeResult(md *markdown.Markdown, res CheckResult) {
	md.H2("`" + res.URL + "`")
	md.PlainText("")

	if res.Error != "" {
		md.PlainTextf("Check failed: %s", res.Error)
		md.PlainText("")
		return
	}

	v := res.Verdict
	source := "oracle"
	if res.Cached {
		source = "cache"
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Tier", tierMarkdown(v.Tier)},
			{"Risk", strconv.Itoa(v.RiskPercent) + "%"},
			{"Oracle label", orDash(v.Label)},
			{"Source", source},
		},
	})
	md.PlainText("")

	if len(v.Reasons) > 0 {
		md.PlainText("Top reasons:")
		md.PlainText("")
		md.BulletList(v.Reasons...)
		md.PlainText("")
	}

	features := orderedFeatures(res.Features)
	if len(features) > 0 {
		rows := make([][]string, len(features))
		for i, f := range features {
			mark := "no"
			if f.Bad {
				mark = "⚠ yes"
			}
			rows[i] = []string{f.Label, mark}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Signal", "Triggered"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// WriteLog outputs the log snapshot in Markdown format.
func (w *MarkdownWriter) WriteLog(report *LogReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1(report.Title)
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Tier", "Count"},
		Rows: [][]string{
			{"🟢 Safe", strconv.Itoa(report.Stats.Safe)},
			{"🟡 Suspicious", strconv.Itoa(report.Stats.Suspicious)},
			{"🔴 Phishing", strconv.Itoa(report.Stats.Phishing)},
			{"**Total**", "**" + strconv.Itoa(report.Stats.Total) + "**"},
		},
	})
	md.PlainText("")

	if report.Stats.Total > 0 {
		w.writePieChart(md, report)
	}

	if len(report.Entries) == 0 {
		md.PlainText("No entries.")
		md.PlainText("")
	} else {
		rows := make([][]string, len(report.Entries))
		for i, e := range report.Entries {
			rows[i] = []string{
				e.Timestamp.Format("2006-01-02 15:04"),
				tierMarkdown(e.Tier),
				strconv.Itoa(e.RiskPercent) + "%",
				"`" + truncateString(e.URL, 60) + "`",
			}
		}
		md.Table(markdown.TableSet{
			Header: []string{"Time", "Tier", "Risk", "URL"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writePieChart writes a mermaid pie chart for tier distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *LogReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Verdict Tier Distribution"),
		piechart.WithShowData(true),
	)

	if report.Stats.Safe > 0 {
		chart.LabelAndIntValue("Safe", uint64(report.Stats.Safe))
	}
	if report.Stats.Suspicious > 0 {
		chart.LabelAndIntValue("Suspicious", uint64(report.Stats.Suspicious))
	}
	if report.Stats.Phishing > 0 {
		chart.LabelAndIntValue("Phishing", uint64(report.Stats.Phishing))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [phishguard](https://github.com/phishguard/phishguard)*")
}

// tierMarkdown returns the tier with a colored indicator.
func tierMarkdown(tier model.Tier) string {
	switch tier {
	case model.TierPhishing:
		return "🔴 " + tier.String()
	case model.TierSuspicious:
		return "🟡 " + tier.String()
	default:
		return "🟢 " + tier.String()
	}
}

// orDash substitutes "-" for an empty value in table cells.
func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
