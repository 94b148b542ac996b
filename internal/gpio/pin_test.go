package gpio

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/logging"
)

type fakeLine struct {
	calls []string
}

func (l *fakeLine) Output() { l.calls = append(l.calls, "output") }
func (l *fakeLine) Input()  { l.calls = append(l.calls, "input") }
func (l *fakeLine) High()   { l.calls = append(l.calls, "high") }
func (l *fakeLine) Low()    { l.calls = append(l.calls, "low") }

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestPinClaimsLowOutput(t *testing.T) {
	l := &fakeLine{}
	newPin(l, nil, quiet())
	if len(l.calls) != 2 || l.calls[0] != "output" || l.calls[1] != "low" {
		t.Fatalf("calls = %v", l.calls)
	}
}

func TestPinSet(t *testing.T) {
	l := &fakeLine{}
	p := newPin(l, nil, quiet())
	l.calls = nil

	if err := p.Set(true); err != nil {
		t.Fatal(err)
	}
	if err := p.Set(false); err != nil {
		t.Fatal(err)
	}
	if len(l.calls) != 2 || l.calls[0] != "high" || l.calls[1] != "low" {
		t.Fatalf("calls = %v", l.calls)
	}
}

func TestReleaseOnce(t *testing.T) {
	l := &fakeLine{}
	closes := 0
	p := newPin(l, func() error { closes++; return nil }, quiet())

	for i := 0; i < 3; i++ {
		if err := p.Release(); err != nil {
			t.Fatal(err)
		}
	}
	if closes != 1 {
		t.Fatalf("closed %d times", closes)
	}
	if err := p.Set(true); !errors.Is(err, ErrReleased) {
		t.Fatalf("Set after Release = %v, want ErrReleased", err)
	}
}

func TestReleaseNil(t *testing.T) {
	var p *Pin
	if err := p.Release(); err != nil {
		t.Fatal(err)
	}
}

func TestLogPinCountsEdges(t *testing.T) {
	p := NewLogPin(quiet())
	for _, v := range []bool{false, true, true, false, true} {
		_ = p.Set(v)
	}
	if got := p.Edges(); got != 3 {
		t.Fatalf("Edges() = %d, want 3", got)
	}
}

func TestLogPinVisibleAtDefaultLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(false)
	l.SetOutput(&buf)

	p := NewLogPin(l)
	_ = p.Set(true)
	_ = p.Set(false)
	_ = p.Release()

	out := buf.String()
	for _, want := range []string{"led on", "led off", "edges=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
