package ble

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"proximity-indicator.klederson.com/internal/supervisor"
)

const queueDepth = 16

// Conn is one BLE session. The stack delivers notifications on its own
// goroutine; they are queued and handed to the sink by WaitForNotification
// on the caller's goroutine.
type Conn struct {
	address string
	sink    func([]byte)
	device  bluetooth.Device
	client  *Client
	log     logrus.FieldLogger

	payloads chan []byte
	lost     chan struct{}
	lostOnce sync.Once
	dropped  atomic.Uint64
}

var _ supervisor.Conn = (*Conn)(nil)

func newConn(address string, sink func([]byte), log logrus.FieldLogger) *Conn {
	return &Conn{
		address:  address,
		sink:     sink,
		log:      log,
		payloads: make(chan []byte, queueDepth),
		lost:     make(chan struct{}),
	}
}

// EnableNotifications discovers the characteristic and subscribes to it,
// which writes 0x0001 to its client configuration descriptor.
func (c *Conn) EnableNotifications(service, characteristic uint16) error {
	svcs, err := c.device.DiscoverServices([]bluetooth.UUID{bluetooth.New16BitUUID(service)})
	if err != nil {
		return fmt.Errorf("discover service %#04x: %w", service, err)
	}
	if len(svcs) == 0 {
		return fmt.Errorf("service %#04x not found", service)
	}

	chars, err := svcs[0].DiscoverCharacteristics([]bluetooth.UUID{bluetooth.New16BitUUID(characteristic)})
	if err != nil {
		return fmt.Errorf("discover characteristic %#04x: %w", characteristic, err)
	}
	if len(chars) == 0 {
		return fmt.Errorf("characteristic %#04x not found", characteristic)
	}

	if err := chars[0].EnableNotifications(c.onNotification); err != nil {
		return fmt.Errorf("enable notifications on %#04x: %w", characteristic, err)
	}
	return nil
}

// onNotification runs on the stack's goroutine. When the queue is full
// the oldest payload is discarded; only the latest reading matters.
func (c *Conn) onNotification(buf []byte) {
	p := make([]byte, len(buf))
	copy(p, buf)

	select {
	case c.payloads <- p:
		return
	default:
	}
	select {
	case <-c.payloads:
		c.dropped.Add(1)
	default:
	}
	select {
	case c.payloads <- p:
	default:
		c.dropped.Add(1)
	}
}

// WaitForNotification delivers at most one queued payload to the sink.
func (c *Conn) WaitForNotification(ctx context.Context, timeout time.Duration) (bool, error) {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case p := <-c.payloads:
		c.sink(p)
		return true, nil
	case <-c.lost:
		return false, supervisor.ErrDisconnected
	case <-ctx.Done():
		return false, ctx.Err()
	case <-t.C:
		return false, nil
	}
}

// Dropped returns how many payloads were discarded because the consumer
// fell behind.
func (c *Conn) Dropped() uint64 {
	return c.dropped.Load()
}

func (c *Conn) markLost() {
	c.lostOnce.Do(func() { close(c.lost) })
}

// Close disconnects the device. The session is unusable afterwards.
func (c *Conn) Close() error {
	c.markLost()
	if c.client != nil {
		c.client.release(c)
		if err := c.device.Disconnect(); err != nil {
			return fmt.Errorf("disconnect %s: %w", c.address, err)
		}
	}
	if n := c.Dropped(); n > 0 {
		c.log.WithField("dropped", n).Debug("session closed with dropped notifications")
	}
	return nil
}
