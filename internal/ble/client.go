package ble

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"tinygo.org/x/bluetooth"

	"proximity-indicator.klederson.com/internal/supervisor"
)

// Client connects to the sensor through a BlueZ adapter.
type Client struct {
	adapter *bluetooth.Adapter
	log     logrus.FieldLogger

	mu      sync.Mutex
	enabled bool
	active  *Conn
}

var _ supervisor.Client = (*Client)(nil)

// NewClient creates a client for the named adapter (e.g., "hci0").
func NewClient(adapterID string, log logrus.FieldLogger) *Client {
	return &Client{
		adapter: newAdapter(adapterID),
		log:     log.WithFields(logrus.Fields{"component": "ble", "adapter": adapterID}),
	}
}

func (c *Client) enable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled {
		return nil
	}
	c.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		if !connected {
			c.onDisconnect(device.Address.String())
		}
	})
	if err := c.adapter.Enable(); err != nil {
		return fmt.Errorf("failed to enable BLE adapter: %w (try running with sudo or setcap cap_net_admin+ep)", err)
	}
	c.enabled = true
	return nil
}

// Connect opens a session to address. Notifications are handed to sink
// from WaitForNotification.
func (c *Client) Connect(ctx context.Context, address string, sink func([]byte)) (supervisor.Conn, error) {
	if err := c.enable(); err != nil {
		return nil, err
	}
	addr, err := parseAddress(address)
	if err != nil {
		return nil, err
	}

	type result struct {
		dev bluetooth.Device
		err error
	}
	ch := make(chan result, 1)
	go func() {
		dev, err := c.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- result{dev, err}
	}()

	var r result
	select {
	case r = <-ch:
	case <-ctx.Done():
		// Tear down a connection that completes after we gave up on it.
		go func() {
			if r := <-ch; r.err == nil {
				_ = r.dev.Disconnect()
			}
		}()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, r.err)
	}

	conn := newConn(addr.String(), sink, c.log.WithField("address", address))
	conn.device = r.dev
	conn.client = c

	c.mu.Lock()
	c.active = conn
	c.mu.Unlock()
	return conn, nil
}

func (c *Client) onDisconnect(address string) {
	c.mu.Lock()
	conn := c.active
	c.mu.Unlock()
	if conn != nil && conn.address == address {
		conn.markLost()
	}
}

func (c *Client) release(conn *Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == conn {
		c.active = nil
	}
}
