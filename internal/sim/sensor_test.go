package sim

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"proximity-indicator.klederson.com/internal/bridge"
	"proximity-indicator.klederson.com/internal/config"
	"proximity-indicator.klederson.com/internal/supervisor"
)

func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func reliable() Options {
	return Options{
		Interval: time.Millisecond,
		MaxRange: config.DemoMaxRange,
		Seed:     42,
	}
}

func TestReadingsStayNearRange(t *testing.T) {
	s := New(reliable(), quiet())
	var got []float32
	c, err := s.Connect(context.Background(), config.TargetAddress, func(p []byte) {
		d, err := bridge.Decode(p)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		got = append(got, d)
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := c.EnableNotifications(config.ServiceUUID, config.CharacteristicUUID); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 200; i++ {
		ok, err := c.WaitForNotification(context.Background(), time.Second)
		if err != nil || !ok {
			t.Fatalf("wait %d: %v, %v", i, ok, err)
		}
	}
	for _, d := range got {
		if d < -2 || d > config.DemoMaxRange+2 {
			t.Fatalf("distance %v out of simulated range", d)
		}
	}
}

func TestConnectFailure(t *testing.T) {
	opts := reliable()
	opts.ConnectFailRate = 1
	s := New(opts, quiet())
	if _, err := s.Connect(context.Background(), config.TargetAddress, func([]byte) {}); err == nil {
		t.Fatal("expected connect failure")
	}
}

func TestLinkDrop(t *testing.T) {
	opts := reliable()
	opts.DropRate = 1
	s := New(opts, quiet())
	c, _ := s.Connect(context.Background(), config.TargetAddress, func([]byte) {})
	_ = c.EnableNotifications(config.ServiceUUID, config.CharacteristicUUID)

	if _, err := c.WaitForNotification(context.Background(), time.Second); !errors.Is(err, supervisor.ErrDisconnected) {
		t.Fatalf("err = %v, want ErrDisconnected", err)
	}
}

func TestGarbledPayload(t *testing.T) {
	opts := reliable()
	opts.GarbleRate = 1
	s := New(opts, quiet())
	var n int
	c, _ := s.Connect(context.Background(), config.TargetAddress, func(p []byte) { n = len(p) })
	_ = c.EnableNotifications(config.ServiceUUID, config.CharacteristicUUID)
	if _, err := c.WaitForNotification(context.Background(), time.Second); err != nil {
		t.Fatal(err)
	}
	if n == config.PayloadBytes {
		t.Fatal("expected a short payload")
	}
}

func TestWrongCharacteristic(t *testing.T) {
	s := New(reliable(), quiet())
	c, _ := s.Connect(context.Background(), config.TargetAddress, func([]byte) {})
	if err := c.EnableNotifications(0x180D, 0x2A37); err == nil {
		t.Fatal("expected unknown characteristic error")
	}
}

func TestTimeoutShorterThanInterval(t *testing.T) {
	opts := reliable()
	opts.Interval = time.Hour
	s := New(opts, quiet())
	c, _ := s.Connect(context.Background(), config.TargetAddress, func([]byte) { t.Fatal("unexpected delivery") })
	_ = c.EnableNotifications(config.ServiceUUID, config.CharacteristicUUID)

	ok, err := c.WaitForNotification(context.Background(), 5*time.Millisecond)
	if ok || err != nil {
		t.Fatalf("Wait = %v, %v; want timeout", ok, err)
	}
}

func TestConnectHonoursContext(t *testing.T) {
	opts := reliable()
	opts.ConnectLatency = time.Hour
	s := New(opts, quiet())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Connect(ctx, config.TargetAddress, func([]byte) {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
}
