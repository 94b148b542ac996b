package actuator

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/cadence"
)

// Pin is the binary output the blinker drives.
type Pin interface {
	Set(high bool) error
}

// run is one lifetime of the control loop. err is written before done is
// closed and must only be read after.
type run struct {
	stop chan struct{}
	done chan struct{}
	err  error
}

// Blinker toggles a pin on its own goroutine according to the most recent
// cadence. Cadence writes are last-writer-wins and picked up at the loop's
// next decision point.
type Blinker struct {
	pin  Pin
	idle time.Duration
	log  logrus.FieldLogger

	half atomic.Int64 // half-period in ns, 0 == off

	mu  sync.Mutex
	cur *run
}

// New creates a stopped blinker. idle bounds how long the loop waits
// between checks while the cadence is Off.
func New(pin Pin, idle time.Duration, log logrus.FieldLogger) *Blinker {
	return &Blinker{
		pin:  pin,
		idle: idle,
		log:  log.WithField("component", "actuator"),
	}
}

// Start launches the control loop unless one is already alive. A blinker
// can be started again after Stop.
func (b *Blinker) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cur != nil {
		select {
		case <-b.cur.done:
		default:
			if b.cur.stop != nil {
				return
			}
			// Stopping; wait for the old loop before replacing it.
			<-b.cur.done
		}
	}

	r := &run{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	b.cur = r
	go b.loop(r, r.stop)
	b.log.Debug("blink loop started")
}

// Stop signals the loop and blocks until it has exited. The pin receives
// no calls after Stop returns. Safe to call repeatedly or before Start.
func (b *Blinker) Stop() {
	b.mu.Lock()
	r := b.cur
	var stop chan struct{}
	if r != nil {
		stop = r.stop
		r.stop = nil
	}
	b.mu.Unlock()

	if r == nil {
		return
	}
	if stop != nil {
		close(stop)
	}
	<-r.done
}

// SetCadence replaces the cadence seen by the loop.
func (b *Blinker) SetCadence(c cadence.Cadence) {
	b.half.Store(int64(c.HalfPeriod()))
}

// Cadence returns the cadence currently in effect.
func (b *Blinker) Cadence() cadence.Cadence {
	return cadence.BlinkAt(time.Duration(b.half.Load()))
}

// Done is closed when the current loop exits, either through Stop or a
// fatal pin error. It is nil before the first Start.
func (b *Blinker) Done() <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cur == nil {
		return nil
	}
	return b.cur.done
}

// Err returns the fatal pin error that ended the last loop, if any.
func (b *Blinker) Err() error {
	b.mu.Lock()
	r := b.cur
	b.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

func (b *Blinker) loop(r *run, stop <-chan struct{}) {
	defer close(r.done)
	defer func() {
		// Leave the indicator dark unless the pin itself is broken.
		if r.err == nil {
			if err := b.pin.Set(false); err != nil {
				r.err = fmt.Errorf("actuator: release low: %w", err)
			}
		}
		b.log.Debug("blink loop stopped")
	}()

	for {
		select {
		case <-stop:
			return
		default:
		}

		c := b.Cadence()
		if c.IsOff() {
			if !b.write(r, false) || !sleep(stop, b.idle) {
				return
			}
			continue
		}

		h := c.HalfPeriod()
		if !b.write(r, true) || !sleep(stop, h) {
			return
		}
		if !b.write(r, false) || !sleep(stop, h) {
			return
		}
	}
}

// write drives the pin; a failure is fatal to the loop.
func (b *Blinker) write(r *run, high bool) bool {
	if err := b.pin.Set(high); err != nil {
		r.err = fmt.Errorf("actuator: set pin %t: %w", high, err)
		b.log.WithError(err).Error("pin write failed, stopping blink loop")
		return false
	}
	return true
}

// sleep waits d or until stop is closed. It reports false on stop.
func sleep(stop <-chan struct{}, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}
