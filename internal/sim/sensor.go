package sim

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/config"
	"proximity-indicator.klederson.com/internal/supervisor"
)

// Options tunes the simulated sensor.
type Options struct {
	Interval        time.Duration // time between notifications
	MaxRange        float64       // distance swing in cm
	ConnectLatency  time.Duration
	ConnectFailRate float64 // probability a connect attempt fails
	DropRate        float64 // per-notification probability of link loss
	GarbleRate      float64 // per-notification probability of a short payload
	Seed            int64
}

// DefaultOptions returns the demo-mode settings.
func DefaultOptions() Options {
	return Options{
		Interval:        config.DemoInterval,
		MaxRange:        config.DemoMaxRange,
		ConnectLatency:  300 * time.Millisecond,
		ConnectFailRate: 0.2,
		DropRate:        0.004,
		GarbleRate:      0.02,
		Seed:            time.Now().UnixNano(),
	}
}

// Sensor is a fake distance sensor that satisfies supervisor.Client.
// Distance drifts sinusoidally with noise, dipping below zero now and then
// to exercise the invalid-reading path.
type Sensor struct {
	opts Options
	log  logrus.FieldLogger

	mu    sync.Mutex
	rng   *rand.Rand
	phase float64
	t     float64
}

var _ supervisor.Client = (*Sensor)(nil)

// New creates a simulated sensor.
func New(opts Options, log logrus.FieldLogger) *Sensor {
	rng := rand.New(rand.NewSource(opts.Seed))
	return &Sensor{
		opts:  opts,
		log:   log.WithField("component", "sim"),
		rng:   rng,
		phase: rng.Float64() * 2 * math.Pi,
	}
}

func (s *Sensor) roll(p float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < p
}

// sample advances simulated time and returns the next distance.
func (s *Sensor) sample() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.t += s.opts.Interval.Seconds()
	half := s.opts.MaxRange / 2
	d := half + half*math.Sin(s.t*0.4+s.phase) + (s.rng.Float64()-0.5)*2
	return d - 0.5
}

// Connect simulates connection setup latency and occasional failures.
func (s *Sensor) Connect(ctx context.Context, address string, sink func([]byte)) (supervisor.Conn, error) {
	if s.opts.ConnectLatency > 0 {
		t := time.NewTimer(s.opts.ConnectLatency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.roll(s.opts.ConnectFailRate) {
		return nil, fmt.Errorf("connect %s: simulated device not in range", address)
	}
	s.log.WithField("address", address).Debug("simulated link up")
	return &conn{sensor: s, sink: sink}, nil
}

type conn struct {
	sensor  *Sensor
	sink    func([]byte)
	enabled bool
	closed  bool
}

func (c *conn) EnableNotifications(service, characteristic uint16) error {
	if service != config.ServiceUUID || characteristic != config.CharacteristicUUID {
		return fmt.Errorf("characteristic %#04x/%#04x not found", service, characteristic)
	}
	c.enabled = true
	return nil
}

func (c *conn) WaitForNotification(ctx context.Context, timeout time.Duration) (bool, error) {
	if c.closed {
		return false, supervisor.ErrDisconnected
	}
	if !c.enabled {
		return false, errors.New("notifications not enabled")
	}

	wait := c.sensor.opts.Interval
	if wait > timeout {
		wait = timeout
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-t.C:
	}
	if wait < c.sensor.opts.Interval {
		return false, nil
	}

	if c.sensor.roll(c.sensor.opts.DropRate) {
		c.closed = true
		return false, supervisor.ErrDisconnected
	}

	var payload []byte
	if c.sensor.roll(c.sensor.opts.GarbleRate) {
		payload = []byte{0xde, 0xad, 0xbe}
	} else {
		payload = make([]byte, config.PayloadBytes)
		binary.NativeEndian.PutUint32(payload, math.Float32bits(float32(c.sensor.sample())))
	}
	c.sink(payload)
	return true, nil
}

func (c *conn) Close() error {
	c.closed = true
	return nil
}
