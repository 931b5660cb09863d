package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/views/progress"
	"github.com/custodia-labs/earnings-tldr/internal/adapters/driving/tui/views/report"
	"github.com/custodia-labs/earnings-tldr/internal/core/domain"
	"github.com/custodia-labs/earnings-tldr/internal/core/ports/driving"
)

// App runs one analysis and shows its progress, then the finished report.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports   *Ports
	request driving.AnalysisRequest

	ctx    context.Context
	cancel context.CancelFunc

	styles       *styles.Styles
	keymap       *keymap.KeyMap
	progressView *progress.View
	statusBar    *status.Bar
	viewport     viewport.Model

	// events carries progress from the analysis goroutine to the update loop.
	events   chan domain.ProgressEvent
	done     chan struct{}
	doneOnce sync.Once

	phase  messages.Phase
	bundle *domain.AnalysisBundle
	err    error

	width  int
	height int
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a TUI application that will run the given request.
func NewApp(ports *Ports, req driving.AnalysisRequest) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	title := strings.TrimSpace(req.Transcript.Ticker + " " + req.Transcript.Period)
	if title == "" {
		title = "transcript"
	}

	a := &App{
		ports:        ports,
		request:      req,
		styles:       s,
		keymap:       km,
		progressView: progress.NewView(s, title),
		statusBar:    status.NewBar(s, km),
		viewport:     viewport.New(80, 20),
		events:       make(chan domain.ProgressEvent, 32),
		done:         make(chan struct{}),
		phase:        messages.PhaseRunning,
		width:        80,
		height:       24,
	}
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a, nil
}

// WithContext sets the parent context for the analysis.
func (a *App) WithContext(ctx context.Context) *App {
	a.cancel()
	a.ctx, a.cancel = context.WithCancel(ctx)
	return a
}

// Init implements tea.Model. It starts the analysis and the event pump.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("tldr - analysing"),
		a.progressView.Init(),
		a.runAnalysis(),
		a.waitForEvent(),
	)
}

// runAnalysis runs the request in a command goroutine.
func (a *App) runAnalysis() tea.Cmd {
	req := a.request
	upstream := req.Progress
	req.Progress = func(e domain.ProgressEvent) {
		if upstream != nil {
			upstream(e)
		}
		select {
		case a.events <- e:
		case <-a.ctx.Done():
		}
	}

	return func() tea.Msg {
		bundle, err := a.ports.Analysis.Analyze(a.ctx, req)
		return messages.AnalysisCompleted{Bundle: bundle, Err: err}
	}
}

// waitForEvent delivers the next progress event, or nothing once the analysis is over.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-a.events:
			return messages.ProgressReceived{Event: e}
		case <-a.done:
			return nil
		}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.ProgressReceived:
		a.progressView, _ = a.progressView.Update(msg)
		if msg.Event.Tier == "" {
			a.statusBar.SetMessage(msg.Event.Message)
		}
		return a, a.waitForEvent()

	case messages.AnalysisCompleted:
		a.finish(msg)
		return a, nil

	case messages.AnalysisCancelled:
		a.cancel()
		a.statusBar.SetState(status.StateCancelled)
		return a, nil

	case spinner.TickMsg:
		if a.phase != messages.PhaseRunning {
			return a, nil
		}
		var cmd tea.Cmd
		a.progressView, cmd = a.progressView.Update(msg)
		return a, cmd
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		a.cancel()
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Cancel):
		if a.phase == messages.PhaseRunning {
			return a, func() tea.Msg { return messages.AnalysisCancelled{} }
		}
		return a, tea.Quit

	case key.Matches(msg, a.keymap.Help):
		a.statusBar.ToggleHelp()
		return a, nil
	}

	if a.phase == messages.PhaseReport {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return a, cmd
	}
	return a, nil
}

// finish records the outcome and switches to the report or failure view.
func (a *App) finish(msg messages.AnalysisCompleted) {
	a.doneOnce.Do(func() { close(a.done) })
	a.bundle = msg.Bundle
	a.err = msg.Err

	if msg.Err != nil {
		a.phase = messages.PhaseFailed
		if errors.Is(msg.Err, context.Canceled) {
			a.statusBar.SetState(status.StateCancelled)
			return
		}
		a.statusBar.SetState(status.StateFailed)
		a.statusBar.SetMessage(msg.Err.Error())
		return
	}

	a.phase = messages.PhaseReport
	a.viewport.SetContent(report.Render(msg.Bundle, a.styles, a.width))
	a.viewport.GotoTop()

	failed := msg.Bundle.FailedTiers()
	switch {
	case len(failed) == 0:
		a.statusBar.SetState(status.StateDone)
		a.statusBar.SetMessage(msg.Bundle.ID)
	case len(failed) == len(domain.AllTiers()):
		a.statusBar.SetState(status.StateFailed)
		a.statusBar.SetMessage("every tier failed")
	default:
		names := make([]string, len(failed))
		for i, t := range failed {
			names[i] = string(t)
		}
		a.statusBar.SetState(status.StatePartial)
		a.statusBar.SetMessage("failed tiers: " + strings.Join(names, ", "))
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var body string
	switch a.phase {
	case messages.PhaseReport:
		body = a.viewport.View()
	case messages.PhaseFailed:
		body = a.progressView.View()
		if a.err != nil && !errors.Is(a.err, context.Canceled) {
			body += "\n" + a.styles.Error.Render(a.err.Error()) + "\n"
		}
	default:
		body = a.progressView.View()
	}
	return body + "\n" + a.statusBar.View()
}

// SetDimensions resizes the app and its components.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.statusBar.SetWidth(width)
	a.progressView.SetWidth(width)
	a.viewport.Width = width
	a.viewport.Height = max(height-2, 1)
	if a.phase == messages.PhaseReport && a.bundle != nil {
		a.viewport.SetContent(report.Render(a.bundle, a.styles, width))
	}
}

// Phase returns what the app is showing.
func (a *App) Phase() messages.Phase {
	return a.phase
}

// Bundle returns the finished bundle, if any.
func (a *App) Bundle() *domain.AnalysisBundle {
	return a.bundle
}

// Err returns the document-level error, if any.
func (a *App) Err() error {
	return a.err
}

// Run runs the analysis under an interactive progress view and returns its outcome.
func Run(ctx context.Context, ports *Ports, req driving.AnalysisRequest, opts ...tea.ProgramOption) (*domain.AnalysisBundle, error) {
	app, err := NewApp(ports, req)
	if err != nil {
		return nil, err
	}
	app.WithContext(ctx)
	defer app.cancel()

	if _, err := tea.NewProgram(app, opts...).Run(); err != nil {
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	if app.bundle == nil && app.err == nil {
		return nil, context.Canceled
	}
	return app.bundle, app.err
}
