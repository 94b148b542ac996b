package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/cadence"
	"proximity-indicator.klederson.com/internal/config"
)

// ErrDisconnected is returned by Conn.WaitForNotification when the link
// to the sensor is lost.
var ErrDisconnected = errors.New("link disconnected")

// Client opens sessions to the sensor. sink is invoked with every raw
// notification payload, on the goroutine calling WaitForNotification.
type Client interface {
	Connect(ctx context.Context, address string, sink func(payload []byte)) (Conn, error)
}

// Conn is one established session.
type Conn interface {
	// EnableNotifications subscribes to a characteristic (16-bit UUIDs).
	EnableNotifications(service, characteristic uint16) error
	// WaitForNotification blocks up to timeout. It reports true when a
	// notification was delivered to the sink, false on timeout.
	WaitForNotification(ctx context.Context, timeout time.Duration) (bool, error)
	Close() error
}

// Sink consumes raw notifications.
type Sink interface {
	OnReading(payload []byte)
}

// CadenceSetter is forced to Off whenever the link goes away.
type CadenceSetter interface {
	SetCadence(c cadence.Cadence)
}

// State is the connection lifecycle phase.
type State int32

const (
	Disconnected State = iota
	Connecting
	Streaming
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Streaming:
		return "streaming"
	default:
		return "disconnected"
	}
}

// Config holds the supervisor's link parameters.
type Config struct {
	Address           string
	Service           uint16
	Characteristic    uint16
	PollTimeout       time.Duration
	RetryDelay        time.Duration // after link loss
	ConnectRetryDelay time.Duration // after a failed connect
}

// DefaultConfig returns the compiled-in link parameters.
func DefaultConfig() Config {
	return Config{
		Address:           config.TargetAddress,
		Service:           config.ServiceUUID,
		Characteristic:    config.CharacteristicUUID,
		PollTimeout:       config.PollTimeout,
		RetryDelay:        config.RetryDelay,
		ConnectRetryDelay: config.ConnectRetryDelay,
	}
}

// Stats counts lifecycle events since the supervisor was created.
type Stats struct {
	Connects        uint64
	Disconnects     uint64
	ConnectFailures uint64
}

// Supervisor owns the connect, stream, disconnect, retry cycle.
type Supervisor struct {
	client   Client
	sink     Sink
	actuator CadenceSetter
	cfg      Config
	log      logrus.FieldLogger

	state           atomic.Int32
	connects        atomic.Uint64
	disconnects     atomic.Uint64
	connectFailures atomic.Uint64

	// OnStateChange, when set, is called on the Run goroutine after each
	// transition.
	OnStateChange func(State)
}

// New creates a supervisor in the Disconnected state.
func New(client Client, sink Sink, actuator CadenceSetter, cfg Config, log logrus.FieldLogger) *Supervisor {
	return &Supervisor{
		client:   client,
		sink:     sink,
		actuator: actuator,
		cfg:      cfg,
		log: log.WithFields(logrus.Fields{
			"component": "supervisor",
			"address":   cfg.Address,
		}),
	}
}

// State returns the current lifecycle phase.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Stats returns a snapshot of the lifecycle counters.
func (s *Supervisor) Stats() Stats {
	return Stats{
		Connects:        s.connects.Load(),
		Disconnects:     s.disconnects.Load(),
		ConnectFailures: s.connectFailures.Load(),
	}
}

// Run drives the lifecycle until ctx is cancelled, returning ctx.Err().
// Every transport failure while streaming is handled as link loss: the
// indicator is forced dark and a reconnect follows after RetryDelay.
// A failed connect is retried after the shorter ConnectRetryDelay rather
// than immediately, so an adapter that fails fast does not spin.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.setState(Disconnected)

	for {
		if err := ctx.Err(); err != nil {
			s.actuator.SetCadence(cadence.Off)
			return err
		}

		s.setState(Connecting)
		s.log.Info("connecting")

		conn, err := s.client.Connect(ctx, s.cfg.Address, s.sink.OnReading)
		if err != nil {
			s.setState(Disconnected)
			if ctx.Err() != nil {
				continue
			}
			s.connectFailures.Add(1)
			s.log.WithError(err).Warnf("connect failed, retrying in %v", s.cfg.ConnectRetryDelay)
			s.pause(ctx, s.cfg.ConnectRetryDelay)
			continue
		}
		s.connects.Add(1)

		err = s.stream(ctx, conn)

		s.actuator.SetCadence(cadence.Off)
		s.setState(Disconnected)
		if cerr := conn.Close(); cerr != nil {
			s.log.WithError(cerr).Debug("close after link loss")
		}
		if ctx.Err() != nil {
			continue
		}

		s.disconnects.Add(1)
		entry := s.log.WithError(err)
		if errors.Is(err, ErrDisconnected) {
			entry.Warnf("disconnected, retrying in %v", s.cfg.RetryDelay)
		} else {
			entry.Warnf("transport error, treating as disconnect, retrying in %v", s.cfg.RetryDelay)
		}
		s.pause(ctx, s.cfg.RetryDelay)
	}
}

// stream enables notifications and waits on them until the session fails.
func (s *Supervisor) stream(ctx context.Context, conn Conn) error {
	if err := conn.EnableNotifications(s.cfg.Service, s.cfg.Characteristic); err != nil {
		return fmt.Errorf("enable notifications: %w", err)
	}

	s.setState(Streaming)
	s.log.Info("connected, waiting for notifications")

	for {
		got, err := conn.WaitForNotification(ctx, s.cfg.PollTimeout)
		if err != nil {
			return err
		}
		if !got {
			s.log.Debug("waiting...")
		}
	}
}

func (s *Supervisor) setState(st State) {
	if State(s.state.Swap(int32(st))) == st {
		return
	}
	s.log.WithField("state", st.String()).Debug("state change")
	if s.OnStateChange != nil {
		s.OnStateChange(st)
	}
}

// pause waits d or until ctx is done.
func (s *Supervisor) pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
