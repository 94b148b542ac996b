package bridge

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/cadence"
	"proximity-indicator.klederson.com/internal/config"
)

// DecodeError reports a notification payload that is not a single float32.
type DecodeError struct {
	Len int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("bridge: payload is %d bytes, want %d", e.Len, config.PayloadBytes)
}

// Decode reads one native-endian IEEE-754 float32 distance.
func Decode(payload []byte) (float32, error) {
	if len(payload) != config.PayloadBytes {
		return 0, &DecodeError{Len: len(payload)}
	}
	return math.Float32frombits(binary.NativeEndian.Uint32(payload)), nil
}

// Classifier maps a distance to a cadence.
type Classifier interface {
	Classify(distance float64) cadence.Cadence
}

// CadenceSetter receives the cadence chosen for each reading.
type CadenceSetter interface {
	SetCadence(c cadence.Cadence)
}

// Reading is a decoded notification and the cadence it produced.
type Reading struct {
	Distance float64
	Cadence  cadence.Cadence
	At       time.Time
}

// Bridge turns raw notifications into cadence updates. OnReading runs on
// the transport's delivery goroutine and must stay short.
type Bridge struct {
	policy   Classifier
	actuator CadenceSetter
	log      logrus.FieldLogger

	// Observer, when set, sees every successfully decoded reading.
	Observer func(Reading)
}

// New creates a bridge from policy to actuator.
func New(policy Classifier, actuator CadenceSetter, log logrus.FieldLogger) *Bridge {
	return &Bridge{
		policy:   policy,
		actuator: actuator,
		log:      log.WithField("component", "bridge"),
	}
}

// OnReading handles one notification payload. Malformed payloads are
// logged and dropped; the current cadence is left as is.
func (b *Bridge) OnReading(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			b.log.WithField("panic", r).Error("notification handler panicked, reading dropped")
		}
	}()

	raw, err := Decode(payload)
	if err != nil {
		b.log.WithError(err).WithField("bytes", len(payload)).Warn("error handling notification")
		return
	}

	distance := float64(raw)
	if math.IsNaN(distance) || math.IsInf(distance, 0) {
		b.log.WithField("distance", distance).Debug("non-finite reading")
	}

	c := b.policy.Classify(distance)
	b.actuator.SetCadence(c)

	b.log.WithFields(logrus.Fields{
		"distance": distance,
		"cadence":  c.String(),
	}).Debug("reading")

	if b.Observer != nil {
		b.Observer(Reading{Distance: distance, Cadence: c, At: time.Now()})
	}
}
