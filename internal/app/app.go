package app

import (
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"proximity-indicator.klederson.com/internal/bridge"
	"proximity-indicator.klederson.com/internal/config"
	"proximity-indicator.klederson.com/internal/supervisor"
	"proximity-indicator.klederson.com/internal/ui"
)

const maxEvents = 64

// shared holds state shared between the Bubble Tea model copies and main.go.
// Because Bubble Tea uses value receivers, pointer fields ensure all copies
// see the same underlying data.
type shared struct {
	trail trail
	stats func() supervisor.Stats
}

// trail is a sliding window of the finite distances received, oldest
// first, feeding the sparkline.
type trail struct {
	vals []float64
	max  int
}

func (t *trail) push(d float64) {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return
	}
	if len(t.vals) == t.max {
		n := copy(t.vals, t.vals[1:])
		t.vals = t.vals[:n]
	}
	t.vals = append(t.vals, d)
}

// snapshot copies the window so the view never aliases the live slice.
func (t *trail) snapshot() []float64 {
	if len(t.vals) == 0 {
		return nil
	}
	return append([]float64(nil), t.vals...)
}

// AppModel is the root Bubble Tea model for the indicator dashboard.
type AppModel struct {
	width  int
	height int

	address string
	demo    bool

	led     bool
	edges   int
	state   supervisor.State
	reading bridge.Reading
	seen    bool
	events  []ui.EventLine
	err     error

	shared *shared
}

// New creates a new AppModel. stats may be nil.
func New(address string, demo bool, stats func() supervisor.Stats) AppModel {
	if stats == nil {
		stats = func() supervisor.Stats { return supervisor.Stats{} }
	}
	return AppModel{
		address: address,
		demo:    demo,
		shared: &shared{
			trail: trail{max: config.HistorySize},
			stats: stats,
		},
	}
}

// Err returns the error that ended the control loop, if any.
func (m AppModel) Err() error {
	return m.err
}

func (m AppModel) Init() tea.Cmd {
	return tickCmd()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case TickMsg:
		return m, tickCmd()

	case LedMsg:
		if msg.High != m.led {
			m.led = msg.High
			m.edges++
		}
		return m, nil

	case ReadingMsg:
		m.reading = bridge.Reading(msg)
		m.seen = true
		m.shared.trail.push(msg.Distance)
		return m, nil

	case StateMsg:
		m.state = supervisor.State(msg)
		return m, nil

	case LogMsg:
		m.events = append(m.events, ui.EventLine{Level: msg.Level, Text: msg.Text})
		if len(m.events) > maxEvents {
			m.events = m.events[len(m.events)-maxEvents:]
		}
		return m, nil

	case ExitMsg:
		m.err = msg.Err
		return m, tea.Quit
	}

	return m, nil
}

func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing indicator..."
	}

	bodyH := m.height - 2
	if bodyH < 5 {
		bodyH = 5
	}

	leftW := m.width / 2
	if leftW < 30 {
		leftW = 30
	}
	rightW := m.width - leftW
	if rightW < 20 {
		rightW = 20
	}

	menuBar := ui.RenderMenuBar(m.width, m.address, m.demo)

	indicator := ui.RenderIndicatorPanel(ui.IndicatorView{
		LED:        m.led,
		State:      m.state,
		HasReading: m.seen,
		Distance:   m.reading.Distance,
		Cadence:    m.reading.Cadence,
		LastSeen:   m.reading.At,
		History:    m.shared.trail.snapshot(),
	}, leftW, bodyH)

	events := ui.RenderEventLog(m.events, rightW, bodyH)
	statusBar := ui.RenderStatusBar(m.width, m.state, m.shared.stats(), m.edges)

	return ui.ComposeLayout(menuBar, indicator, events, statusBar)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(config.TargetFPS), func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
