package gpio

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// LogPin stands in for real hardware: it logs edges instead of driving a
// line. Used in demo mode without the monitor.
type LogPin struct {
	mu    sync.Mutex
	state bool
	edges int
	log   logrus.FieldLogger
}

// NewLogPin creates a virtual pin that starts low.
func NewLogPin(log logrus.FieldLogger) *LogPin {
	return &LogPin{log: log.WithField("pin", "virtual")}
}

func (p *LogPin) Set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if high == p.state {
		return nil
	}
	p.state = high
	p.edges++
	if high {
		p.log.Info("led on")
	} else {
		p.log.Info("led off")
	}
	return nil
}

// Edges returns how many transitions the pin has seen.
func (p *LogPin) Edges() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.edges
}

// Release reports how many edges the virtual LED saw.
func (p *LogPin) Release() error {
	p.log.WithField("edges", p.Edges()).Info("virtual led released")
	return nil
}
