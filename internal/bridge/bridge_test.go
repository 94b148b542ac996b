package bridge

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/cadence"
)

type fakeActuator struct {
	cadence cadence.Cadence
	sets    int
}

func (a *fakeActuator) SetCadence(c cadence.Cadence) {
	a.cadence = c
	a.sets++
}

type panickyPolicy struct{}

func (panickyPolicy) Classify(float64) cadence.Cadence { panic("bad table") }

func encode(v float32) []byte {
	b := make([]byte, 4)
	binary.NativeEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func newTestBridge() (*Bridge, *fakeActuator) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	a := &fakeActuator{}
	return New(cadence.DefaultPolicy(), a, l), a
}

func TestDecode(t *testing.T) {
	got, err := Decode(encode(12.5))
	if err != nil {
		t.Fatal(err)
	}
	if got != 12.5 {
		t.Fatalf("Decode = %v, want 12.5", got)
	}
}

func TestDecodeWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 3, 5, 8} {
		_, err := Decode(make([]byte, n))
		var de *DecodeError
		if !errors.As(err, &de) {
			t.Fatalf("len %d: err = %v, want *DecodeError", n, err)
		}
		if de.Len != n {
			t.Errorf("DecodeError.Len = %d, want %d", de.Len, n)
		}
	}
}

func TestOnReadingSetsCadence(t *testing.T) {
	b, a := newTestBridge()
	b.OnReading(encode(2))
	if a.cadence != cadence.BlinkAt(100*time.Millisecond) {
		t.Fatalf("cadence = %v", a.cadence)
	}
	b.OnReading(encode(-4))
	if !a.cadence.IsOff() {
		t.Fatalf("negative reading gave %v, want off", a.cadence)
	}
}

func TestMalformedPayloadLeavesCadence(t *testing.T) {
	b, a := newTestBridge()
	b.OnReading(encode(7))
	want := a.cadence

	b.OnReading([]byte{0x01, 0x02, 0x03})
	b.OnReading(nil)
	b.OnReading(make([]byte, 16))

	if a.cadence != want || a.sets != 1 {
		t.Fatalf("cadence = %v after %d sets, want %v after 1", a.cadence, a.sets, want)
	}
}

func TestLastReadingWins(t *testing.T) {
	b, a := newTestBridge()
	for _, d := range []float32{2, 6, 11, 17, 25} {
		b.OnReading(encode(d))
	}
	if want := cadence.DefaultPolicy().Classify(25); a.cadence != want {
		t.Fatalf("cadence = %v, want %v", a.cadence, want)
	}
}

func TestObserverSeesReadings(t *testing.T) {
	b, _ := newTestBridge()
	var got []Reading
	b.Observer = func(r Reading) { got = append(got, r) }

	b.OnReading(encode(11))
	b.OnReading([]byte{0})

	if len(got) != 1 {
		t.Fatalf("observer calls = %d, want 1", len(got))
	}
	if got[0].Distance != 11 || got[0].Cadence != cadence.BlinkAt(1800*time.Millisecond) {
		t.Fatalf("reading = %+v", got[0])
	}
}

func TestPanicDoesNotEscape(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	a := &fakeActuator{}
	b := New(panickyPolicy{}, a, l)

	b.OnReading(encode(1))
	if a.sets != 0 {
		t.Fatal("cadence set despite policy panic")
	}
}
