package app

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/bridge"
	"proximity-indicator.klederson.com/internal/supervisor"
)

// Sender is the part of *tea.Program the dashboard feeds use.
type Sender interface {
	Send(msg tea.Msg)
}

// Pin draws the indicator in the dashboard instead of driving hardware.
// Only edges are forwarded.
type Pin struct {
	mu    sync.Mutex
	sent  bool
	state bool
	out   Sender
}

// NewPin creates a dashboard pin.
func NewPin(out Sender) *Pin {
	return &Pin{out: out}
}

func (p *Pin) Set(high bool) error {
	p.mu.Lock()
	if p.sent && p.state == high {
		p.mu.Unlock()
		return nil
	}
	p.sent = true
	p.state = high
	p.mu.Unlock()

	p.out.Send(LedMsg{High: high})
	return nil
}

// Release is a no-op; there is no hardware behind the pin.
func (p *Pin) Release() error {
	return nil
}

// ReadingFeed forwards bridge readings to the dashboard.
func ReadingFeed(out Sender) func(bridge.Reading) {
	return func(r bridge.Reading) {
		out.Send(ReadingMsg(r))
	}
}

// StateFeed forwards supervisor transitions to the dashboard.
func StateFeed(out Sender) func(supervisor.State) {
	return func(s supervisor.State) {
		out.Send(StateMsg(s))
	}
}

// LogFeed forwards log entries to the dashboard.
func LogFeed(out Sender) func(*logrus.Entry) {
	return func(e *logrus.Entry) {
		text := e.Time.Format("15:04:05") + " " + e.Message
		if err, ok := e.Data[logrus.ErrorKey].(error); ok {
			text += ": " + err.Error()
		}
		out.Send(LogMsg{Level: e.Level, Text: text})
	}
}
