// Package progress provides the live analysis progress view.
package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
)

// tierRow is the latest known state of one tier.
type tierRow struct {
	state   domain.AnalysisState
	attempt int
	message string
}

// View shows the request stage and a row per tier.
type View struct {
	styles  *styles.Styles
	spinner spinner.Model
	title   string
	state   domain.AnalysisState
	message string
	tiers   map[domain.Tier]*tierRow
	width   int
}

// NewView creates a progress view for the named analysis.
func NewView(s *styles.Styles, title string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Title

	tiers := make(map[domain.Tier]*tierRow, len(domain.AllTiers()))
	for _, t := range domain.AllTiers() {
		tiers[t] = &tierRow{state: domain.StatePending}
	}

	return &View{
		styles:  s,
		spinner: sp,
		title:   title,
		state:   domain.StatePending,
		tiers:   tiers,
		width:   80,
	}
}

// Init starts the spinner.
func (v *View) Init() tea.Cmd {
	return v.spinner.Tick
}

// Update handles spinner ticks and progress events.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case messages.ProgressReceived:
		v.apply(msg.Event)
	}
	return v, nil
}

// apply records an event. Request-level events have no tier.
func (v *View) apply(e domain.ProgressEvent) {
	if e.Tier == "" {
		v.state = e.State
		v.message = e.Message
		return
	}
	row, ok := v.tiers[e.Tier]
	if !ok {
		return
	}
	row.state = e.State
	row.message = e.Message
	if e.Attempt > 0 {
		row.attempt = e.Attempt
	}
}

// View renders the progress view.
func (v *View) View() string {
	var b strings.Builder

	stage := string(v.state)
	if v.message != "" {
		stage += ": " + v.message
	}
	fmt.Fprintf(&b, "%s %s  %s\n\n", v.spinner.View(), v.styles.Title.Render(v.title), v.styles.Muted.Render(stage))

	for _, t := range domain.AllTiers() {
		row := v.tiers[t]
		line := fmt.Sprintf("  Tier %s  %s", t, v.styles.State(row.state).Render(string(row.state)))
		if row.attempt > 1 {
			line += v.styles.Muted.Render(fmt.Sprintf(" (attempt %d)", row.attempt))
		}
		if row.message != "" {
			line += "  " + v.styles.Muted.Render(truncate(row.message, v.width-30))
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

// TierState returns the latest state of a tier.
func (v *View) TierState(t domain.Tier) domain.AnalysisState {
	if row, ok := v.tiers[t]; ok {
		return row.state
	}
	return ""
}

// State returns the request-level state.
func (v *View) State() domain.AnalysisState {
	return v.state
}

// Message returns the latest request-level message.
func (v *View) Message() string {
	return v.message
}

// SetWidth sets the view width.
func (v *View) SetWidth(width int) {
	v.width = width
}

func truncate(s string, n int) string {
	if n < 4 || len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
