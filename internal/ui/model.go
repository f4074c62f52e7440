// Package ui provides the Bubbletea live monitor for the control loop
package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/avc/internal/control"
	"github.com/linuxmatters/avc/internal/loop"
)

// Spinner frames shown while the loop runs
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Devices names the streams and control being monitored
type Devices struct {
	Looprec  string
	Capture  string
	Playback string
	Element  string
}

// StreamHealth tracks read failures on one stream
type StreamHealth struct {
	Failures   int
	Recoveries int
	LastFailed time.Time
}

// Model is the Bubbletea model for the live monitor
type Model struct {
	Devices Devices
	Bounds  control.Bounds
	DryRun  bool

	// Latest decision
	Last     control.Decision
	HasCycle bool
	Cycles   int
	Writes   int
	Held     int

	Capture StreamHealth
	Monitor StreamHealth

	// Global state
	StartTime time.Time
	Stopping  bool
	Done      bool
	Err       error
	Stats     loop.Stats

	// cancel stops the control loop
	cancel context.CancelFunc

	spinnerIndex int

	// Terminal dimensions
	Width  int
	Height int
}

// NewModel creates a monitor for a loop driving bounds. cancel is called
// when the user quits.
func NewModel(devices Devices, bounds control.Bounds, dryRun bool, cancel context.CancelFunc) Model {
	return Model{
		Devices:   devices,
		Bounds:    bounds,
		DryRun:    dryRun,
		StartTime: time.Now(),
		cancel:    cancel,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick message every 100ms
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			if m.Stopping {
				// second request: stop waiting for the loop
				return m, tea.Quit
			}
			m.Stopping = true
			if m.cancel != nil {
				m.cancel()
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if !m.Done {
			m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
			return m, tickCmd()
		}

	case CycleMsg:
		m.Last = msg.Decision
		m.HasCycle = true
		m.Cycles++
		if msg.Decision.Applied {
			m.Writes++
		} else {
			m.Held++
		}

	case ReadFailureMsg:
		h := &m.Capture
		if msg.Stream == loop.Monitor {
			h = &m.Monitor
		}
		h.Failures++
		h.LastFailed = time.Now()
		if msg.Recovered {
			h.Recoveries++
		}

	case LoopDoneMsg:
		m.Done = true
		m.Err = msg.Err
		m.Stats = msg.Stats
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m Model) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}
	if m.Done {
		return renderStoppedView(m)
	}
	return renderMonitorView(m)
}
