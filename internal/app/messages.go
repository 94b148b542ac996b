package app

import (
	"time"

	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/bridge"
	"proximity-indicator.klederson.com/internal/supervisor"
)

// TickMsg triggers a redraw so ages and stats stay current.
type TickMsg time.Time

// LedMsg reports a pin edge.
type LedMsg struct {
	High bool
}

// ReadingMsg carries a decoded reading from the bridge.
type ReadingMsg bridge.Reading

// StateMsg reports a supervisor transition.
type StateMsg supervisor.State

// LogMsg is a mirrored log entry.
type LogMsg struct {
	Level logrus.Level
	Text  string
}

// ExitMsg ends the dashboard because the control loop stopped on its own.
type ExitMsg struct {
	Err error
}
