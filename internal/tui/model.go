// Package tui provides a terminal search box driven by the search controller.
package tui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/wesm/livesearch/internal/search"
)

// Options configures the TUI model.
type Options struct {
	Source   string        // Shown in the title bar, usually the endpoint URL
	Version  string        // Shown in the title bar
	Debounce time.Duration // Passed to the controller
	Logger   *slog.Logger
}

// Model is the bubbletea model of the search box.
type Model struct {
	ctrl     *search.Controller
	renderer *viewRenderer
	input    textinput.Model

	// Last snapshot taken from the renderer
	view   snapshot
	cursor int // Highlighted result row

	source  string
	version string

	width  int
	height int

	spinnerFrame  int
	spinnerActive bool

	quitting bool
}

// New creates a model that sends queries to svc.
func New(svc search.QueryService, opts Options) Model {
	ti := textinput.New()
	ti.Placeholder = "type to search"
	ti.Prompt = "> "
	ti.CharLimit = 256
	ti.Width = 50
	ti.Focus()

	renderer := newViewRenderer()
	ctrl := search.NewController(svc, renderer, search.Options{
		Debounce: opts.Debounce,
		Logger:   opts.Logger,
	})

	return Model{
		ctrl:     ctrl,
		renderer: renderer,
		input:    ti,
		source:   opts.Source,
		version:  opts.Version,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForRender(m.renderer))
}

// spinnerTickMsg advances the loading spinner animation.
type spinnerTickMsg struct{}

// spinnerFrames are the Braille dot animation frames for the loading spinner.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// spinnerInterval is how fast the spinner animates.
const spinnerInterval = 80 * time.Millisecond

// spinnerTick returns a command that fires a spinnerTickMsg after the spinner interval.
func spinnerTick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(t time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}

// startSpinner returns a spinnerTick command if the spinner isn't already active.
func (m *Model) startSpinner() tea.Cmd {
	if m.spinnerActive {
		return nil
	}
	m.spinnerActive = true
	m.spinnerFrame = 0
	return spinnerTick()
}

// sync copies the renderer's snapshot into the model.
func (m *Model) sync() tea.Cmd {
	snap := m.renderer.current()
	if snap.seq == m.view.seq {
		return nil
	}
	m.view = snap
	if m.cursor >= len(snap.items) {
		m.cursor = max(len(snap.items)-1, 0)
	}
	if snap.kind == search.StateLoading {
		return m.startSpinner()
	}
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = max(msg.Width, 0)
		m.height = max(msg.Height, 0)
		m.input.Width = max(m.width-len(m.input.Prompt)-4, 10)
		return m, nil

	case renderMsg:
		if m.quitting {
			return m, nil
		}
		syncCmd := m.sync()
		return m, tea.Batch(syncCmd, waitForRender(m.renderer))

	case spinnerTickMsg:
		if m.view.kind == search.StateLoading {
			m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
			return m, spinnerTick()
		}
		m.spinnerActive = false
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// State returns the controller's current state.
func (m Model) State() search.UIState {
	return m.ctrl.State()
}
