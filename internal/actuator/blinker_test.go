package actuator

import (
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/cadence"
)

type write struct {
	high bool
	at   time.Time
}

// recordingPin records every Set call.
type recordingPin struct {
	mu     sync.Mutex
	writes []write
	fail   error
}

func (p *recordingPin) Set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.writes = append(p.writes, write{high: high, at: time.Now()})
	return nil
}

func (p *recordingPin) snapshot() []write {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]write, len(p.writes))
	copy(out, p.writes)
	return out
}

func (p *recordingPin) sawBoth() bool {
	var hi, lo bool
	for _, w := range p.snapshot() {
		if w.high {
			hi = true
		} else if hi {
			lo = true
		}
	}
	return hi && lo
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestBlinker(pin Pin) *Blinker {
	return New(pin, 5*time.Millisecond, quietLogger())
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestInitialCadenceIsOff(t *testing.T) {
	b := newTestBlinker(&recordingPin{})
	if !b.Cadence().IsOff() {
		t.Fatalf("initial cadence = %v, want off", b.Cadence())
	}
}

func TestOffHoldsPinLow(t *testing.T) {
	pin := &recordingPin{}
	b := newTestBlinker(pin)
	b.Start()
	time.Sleep(30 * time.Millisecond)
	b.Stop()

	writes := pin.snapshot()
	if len(writes) < 2 {
		t.Fatalf("expected repeated low writes, got %d", len(writes))
	}
	for i, w := range writes {
		if w.high {
			t.Fatalf("write %d drove pin high while off", i)
		}
	}
}

func TestBlinkLiveness(t *testing.T) {
	pin := &recordingPin{}
	b := newTestBlinker(pin)
	b.Start()
	defer b.Stop()

	h := 10 * time.Millisecond
	b.SetCadence(cadence.BlinkAt(h))

	// Pickup can lag one idle poll, then one full cycle is 2h.
	if !waitFor(t, 2*h+b.idle+100*time.Millisecond, pin.sawBoth) {
		t.Fatal("pin was not observed high then low")
	}
}

func TestHalfCycleNotTornByCadenceChange(t *testing.T) {
	pin := &recordingPin{}
	b := newTestBlinker(pin)
	h := 40 * time.Millisecond
	b.SetCadence(cadence.BlinkAt(h))
	b.Start()
	defer b.Stop()

	if !waitFor(t, time.Second, func() bool {
		for _, w := range pin.snapshot() {
			if w.high {
				return true
			}
		}
		return false
	}) {
		t.Fatal("never went high")
	}
	b.SetCadence(cadence.Off)
	time.Sleep(3 * h)

	writes := pin.snapshot()
	for i, w := range writes {
		if !w.high {
			continue
		}
		if i+1 >= len(writes) {
			t.Fatal("high write not followed by low")
		}
		if gap := writes[i+1].at.Sub(w.at); gap < h-10*time.Millisecond {
			t.Fatalf("high phase lasted %v, want about %v", gap, h)
		}
		break
	}
}

func TestStartIsIdempotent(t *testing.T) {
	b := newTestBlinker(&recordingPin{})
	b.Start()
	first := b.cur
	b.Start()
	if b.cur != first {
		t.Fatal("second Start replaced a live loop")
	}
	b.Stop()
}

func TestStopIsSafe(t *testing.T) {
	b := newTestBlinker(&recordingPin{})
	b.Stop() // never started

	b.Start()
	b.Stop()
	b.Stop()

	select {
	case <-b.Done():
	default:
		t.Fatal("loop still running after Stop")
	}
	if err := b.Err(); err != nil {
		t.Fatalf("Err() = %v", err)
	}
}

func TestRestartAfterStop(t *testing.T) {
	pin := &recordingPin{}
	b := newTestBlinker(pin)
	b.Start()
	b.Stop()
	first := b.cur

	b.Start()
	defer b.Stop()
	if b.cur == first {
		t.Fatal("Start after Stop did not launch a new loop")
	}
	select {
	case <-b.Done():
		t.Fatal("restarted loop already exited")
	default:
	}
}

func TestNoPinCallsAfterStop(t *testing.T) {
	pin := &recordingPin{}
	b := newTestBlinker(pin)
	b.SetCadence(cadence.BlinkAt(2 * time.Millisecond))
	b.Start()
	time.Sleep(20 * time.Millisecond)
	b.Stop()

	n := len(pin.snapshot())
	last := pin.snapshot()[n-1]
	if last.high {
		t.Fatal("pin left high after Stop")
	}
	time.Sleep(30 * time.Millisecond)
	if got := len(pin.snapshot()); got != n {
		t.Fatalf("pin received %d calls after Stop", got-n)
	}
}

func TestStopReturnsWithinOneSleep(t *testing.T) {
	b := newTestBlinker(&recordingPin{})
	b.SetCadence(cadence.BlinkAt(time.Hour))
	b.Start()
	time.Sleep(5 * time.Millisecond)

	start := time.Now()
	b.Stop()
	if d := time.Since(start); d > time.Second {
		t.Fatalf("Stop took %v", d)
	}
}

func TestPinFailureIsFatal(t *testing.T) {
	boom := errors.New("gpio gone")
	b := newTestBlinker(&recordingPin{fail: boom})
	b.Start()

	select {
	case <-b.Done():
	case <-time.After(time.Second):
		t.Fatal("loop kept running after pin failure")
	}
	if err := b.Err(); !errors.Is(err, boom) {
		t.Fatalf("Err() = %v, want wrapping %v", err, boom)
	}
	b.Stop()
}

func TestSetCadenceLastWriteWins(t *testing.T) {
	b := newTestBlinker(&recordingPin{})
	b.SetCadence(cadence.BlinkAt(time.Second))
	b.SetCadence(cadence.BlinkAt(3 * time.Millisecond))
	if got := b.Cadence(); got != cadence.BlinkAt(3*time.Millisecond) {
		t.Fatalf("Cadence() = %v", got)
	}
	b.SetCadence(cadence.Off)
	if !b.Cadence().IsOff() {
		t.Fatal("cadence not reset to off")
	}
}
