package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/stianeikeland/go-rpio/v4"
)

// ErrReleased is returned by Set once the pin has been handed back.
var ErrReleased = errors.New("gpio: pin released")

// line is the subset of rpio.Pin the driver uses.
type line interface {
	Output()
	Input()
	High()
	Low()
}

// Pin is a claimed output line. It is acquired once at startup and
// released exactly once.
type Pin struct {
	mu       sync.Mutex
	line     line
	closeFn  func() error
	released bool
	once     sync.Once
	log      logrus.FieldLogger
}

// Open maps GPIO memory and claims BCM pin n as a low output.
func Open(n int, log logrus.FieldLogger) (*Pin, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("gpio: open: %w (try running with sudo)", err)
	}
	p := newPin(rpio.Pin(n), rpio.Close, log.WithField("pin", n))
	p.log.Debug("pin claimed")
	return p, nil
}

func newPin(l line, closeFn func() error, log logrus.FieldLogger) *Pin {
	l.Output()
	l.Low()
	return &Pin{line: l, closeFn: closeFn, log: log}
}

// Set drives the line high or low.
func (p *Pin) Set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return ErrReleased
	}
	if high {
		p.line.High()
	} else {
		p.line.Low()
	}
	return nil
}

// Release drives the line low, returns it to input and unmaps GPIO memory.
// Safe to call more than once and on a nil Pin.
func (p *Pin) Release() error {
	if p == nil {
		return nil
	}
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.line.Low()
		p.line.Input()
		p.released = true
		if p.closeFn != nil {
			err = p.closeFn()
		}
		p.log.Debug("pin released")
	})
	return err
}
