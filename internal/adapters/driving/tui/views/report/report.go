// Package report renders an analysis bundle as styled terminal text.
package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// DefaultWidth is used when the terminal width is unknown.
const DefaultWidth = 80

var tierTitles = map[domain.Tier]string{
	domain.TierA: "Why the stock moved",
	domain.TierB: "Summary",
	domain.TierC: "Expert digest",
}

// Render formats a bundle for a terminal of the given width.
func Render(b *domain.AnalysisBundle, s *styles.Styles, width int) string {
	if b == nil {
		return ""
	}
	if s == nil {
		s = styles.DefaultStyles()
	}
	if width <= 0 {
		width = DefaultWidth
	}
	r := renderer{s: s, width: width}

	r.header(b)
	r.tierA(b.TierA)
	r.tierB(b.TierB)
	r.tierC(b.TierC)
	r.conflicts(b.Conflicts)

	return strings.TrimRight(r.sb.String(), "\n") + "\n"
}

type renderer struct {
	sb    strings.Builder
	s     *styles.Styles
	width int
}

func (r *renderer) line(format string, args ...any) {
	fmt.Fprintf(&r.sb, format+"\n", args...)
}

func (r *renderer) header(b *domain.AnalysisBundle) {
	title := strings.TrimSpace(b.Ticker + " " + b.Period)
	if title == "" {
		title = b.ID
	}
	r.line("%s  %s", r.s.Title.Render(title), r.s.State(b.State).Render(string(b.State)))

	parts := []string{
		fmt.Sprintf("%d tokens", b.Stats.TotalTokens),
		fmt.Sprintf("%d chunks", b.Stats.NumChunks),
		fmt.Sprintf("%d speakers", b.Stats.NumSpeakers),
	}
	if b.Market != nil {
		parts = append(parts, fmt.Sprintf("after-hours %+.1f%%, next day %+.1f%%",
			b.Market.AfterHoursMove, b.Market.NextDayGap))
	}
	r.line("%s", r.s.Muted.Render(strings.Join(parts, " · ")))
	r.line("")
}

func (r *renderer) tierHeader(res domain.TierResult, note string) bool {
	head := fmt.Sprintf("%s · %s", res.Tier, tierTitles[res.Tier])
	status := r.s.State(res.Status).Render(string(res.Status))
	if note != "" {
		status += " " + r.s.Warning.Render("("+note+")")
	}
	r.line("%s  %s", r.s.Subtitle.Render(head), status)

	if res.Failed() {
		r.line("  %s", r.s.Error.Render(r.wrap(res.Error, 2)))
		r.line("")
		return false
	}
	return true
}

func (r *renderer) tierA(t domain.TierAResult) {
	note := ""
	if t.ReducedConfidence {
		note = "no market data, reduced confidence"
	}
	if !r.tierHeader(t.TierResult, note) {
		return
	}
	if len(t.Findings) == 0 {
		r.line("  %s", r.s.Muted.Render("No findings."))
	}
	for _, f := range t.Findings {
		r.finding(f)
	}
	r.line("")
}

func (r *renderer) tierB(t domain.TierBResult) {
	if !r.tierHeader(t.TierResult, "") {
		return
	}
	r.line("  %s", r.s.Normal.Render(r.wrap(t.Summary, 2)))
	r.line("")
}

func (r *renderer) tierC(t domain.TierCResult) {
	if !r.tierHeader(t.TierResult, "") {
		return
	}

	byCategory := make(map[domain.MetricCategory][]domain.MetricExtract)
	for _, m := range t.Metrics {
		byCategory[m.Category] = append(byCategory[m.Category], m)
	}
	for _, c := range domain.AllMetricCategories() {
		metrics := byCategory[c]
		if len(metrics) == 0 {
			continue
		}
		r.line("  %s", r.s.Muted.Render(string(c)))
		for _, m := range metrics {
			r.metric(m)
		}
	}

	if len(t.Risks) > 0 {
		r.line("  %s", r.s.Muted.Render("risks"))
		for _, f := range t.Risks {
			r.finding(f)
		}
	}
	if len(t.Metrics) == 0 && len(t.Risks) == 0 {
		r.line("  %s", r.s.Muted.Render("No metrics."))
	}
	r.line("")
}

func (r *renderer) conflicts(conflicts []domain.Conflict) {
	if len(conflicts) == 0 {
		return
	}
	r.line("%s", r.s.Warning.Render("Conflicts"))
	for _, c := range conflicts {
		r.line("  ! %q (%s) vs %s (%s) on %s",
			c.Finding, c.FindingPolarity, c.Metric, c.MetricPolarity, c.ChunkID)
	}
}

func (r *renderer) finding(f domain.TierFinding) {
	text := fmt.Sprintf("%s %s", marker(f.Polarity), r.wrap(f.Text, 4))
	meta := fmt.Sprintf("(%.2f)", f.Confidence)
	if notes := annotations(f.Annotations); notes != "" {
		meta += " " + r.s.Warning.Render(notes)
	}
	r.line("  %s %s", r.s.Polarity(f.Polarity).Render(text), r.s.Muted.Render(meta))
}

func (r *renderer) metric(m domain.MetricExtract) {
	value := m.Value
	if m.Change != "" {
		value += "  " + m.Change
	}
	check := r.s.Muted.Render("unverified")
	if m.Verified {
		check = r.s.Success.Render("verified")
	}
	line := fmt.Sprintf("    %s %s: %s  %s",
		marker(m.Polarity), m.Name, r.s.Polarity(m.Polarity).Render(value), check)
	if notes := annotations(m.Annotations); notes != "" {
		line += " " + r.s.Warning.Render(notes)
	}
	r.line("%s", line)
}

// wrap wraps text to the render width, indenting continuation lines.
func (r *renderer) wrap(text string, indent int) string {
	w := r.width - indent - 2
	if w < 20 {
		return text
	}
	lines := strings.Split(lipgloss.NewStyle().Width(w).Render(text), "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	return strings.Join(lines, "\n"+strings.Repeat(" ", indent+2))
}

func marker(p domain.Polarity) string {
	switch p {
	case domain.PolarityPositive:
		return "▲"
	case domain.PolarityNegative:
		return "▼"
	default:
		return "•"
	}
}

func annotations(list []domain.Annotation) string {
	if len(list) == 0 {
		return ""
	}
	names := make([]string, len(list))
	for i, a := range list {
		names[i] = strings.ReplaceAll(string(a), "_", " ")
	}
	return "[" + strings.Join(names, ", ") + "]"
}
