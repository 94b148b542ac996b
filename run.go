package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"proximity-indicator.klederson.com/internal/actuator"
	"proximity-indicator.klederson.com/internal/app"
	"proximity-indicator.klederson.com/internal/ble"
	"proximity-indicator.klederson.com/internal/bridge"
	"proximity-indicator.klederson.com/internal/cadence"
	"proximity-indicator.klederson.com/internal/config"
	"proximity-indicator.klederson.com/internal/gpio"
	"proximity-indicator.klederson.com/internal/logging"
	"proximity-indicator.klederson.com/internal/sim"
	"proximity-indicator.klederson.com/internal/supervisor"
)

// outputPin is an indicator pin that must be handed back on exit.
type outputPin interface {
	actuator.Pin
	Release() error
}

func run(cmd *cobra.Command, args []string) error {
	log := logging.New(flagDebug)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var program *tea.Program
	stats := &statsSource{}
	if flagMonitor {
		program = tea.NewProgram(app.New(flagAddress, flagDemo, stats.get), tea.WithAltScreen())
	}

	client, err := newClient(log)
	if err != nil {
		printHardwareHint(err)
		return err
	}

	pin, err := openPin(program, log)
	if err != nil {
		printHardwareHint(err)
		return err
	}

	cfg := supervisor.DefaultConfig()
	cfg.Address = flagAddress
	return serve(ctx, client, pin, cfg, program, stats, log)
}

// statsSource lets the dashboard read counters from a supervisor that is
// built after the dashboard model.
type statsSource struct {
	sup atomic.Pointer[supervisor.Supervisor]
}

func (s *statsSource) get() supervisor.Stats {
	if sup := s.sup.Load(); sup != nil {
		return sup.Stats()
	}
	return supervisor.Stats{}
}

// serve wires the control path around client and pin and runs it until
// ctx ends or the indicator fails. On every return path the actuator is
// stopped before the pin is released. program and stats may be nil.
func serve(ctx context.Context, client supervisor.Client, pin outputPin, cfg supervisor.Config,
	program *tea.Program, stats *statsSource, log *logrus.Logger) error {
	blinker := actuator.New(pin, config.IdlePoll, log)
	defer func() {
		blinker.Stop()
		if err := pin.Release(); err != nil {
			log.WithError(err).Warn("release pin")
		}
	}()

	br := bridge.New(cadence.DefaultPolicy(), blinker, log)
	sup := supervisor.New(client, br, blinker, cfg, log)
	if stats != nil {
		stats.sup.Store(sup)
	}

	if program != nil {
		br.Observer = app.ReadingFeed(program)
		sup.OnStateChange = app.StateFeed(program)
	}

	blinker.Start()

	if program != nil {
		return runMonitor(ctx, program, sup, blinker, log)
	}
	return runHeadless(ctx, sup, blinker, log)
}

func runHeadless(ctx context.Context, sup *supervisor.Supervisor, blinker *actuator.Blinker, log logrus.FieldLogger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	supErr := make(chan error, 1)
	go func() { supErr <- sup.Run(ctx) }()

	select {
	case err := <-supErr:
		if errors.Is(err, context.Canceled) {
			log.Info("shutting down")
			return nil
		}
		return err
	case <-blinker.Done():
		cancel()
		<-supErr
		if err := blinker.Err(); err != nil {
			return fmt.Errorf("indicator failed: %w", err)
		}
		return nil
	}
}

func runMonitor(ctx context.Context, program *tea.Program, sup *supervisor.Supervisor, blinker *actuator.Blinker, log *logrus.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Send blocks until program.Run starts, so from here on this goroutine
	// must not log until Run returns.
	logging.Mirror(log, log.GetLevel(), app.LogFeed(program))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := sup.Run(ctx); !errors.Is(err, context.Canceled) {
			program.Send(app.ExitMsg{Err: err})
		}
	}()
	go func() {
		defer wg.Done()
		select {
		case <-blinker.Done():
			program.Send(app.ExitMsg{Err: blinker.Err()})
		case <-ctx.Done():
		}
	}()
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	final, err := program.Run()
	cancel()
	wg.Wait()
	if err != nil {
		return err
	}
	if m, ok := final.(app.AppModel); ok && m.Err() != nil {
		return fmt.Errorf("indicator failed: %w", m.Err())
	}
	return nil
}

func newClient(log logrus.FieldLogger) (supervisor.Client, error) {
	if flagDemo {
		return sim.New(sim.DefaultOptions(), log), nil
	}
	if err := ble.Preflight(flagAdapter); err != nil {
		return nil, err
	}
	return ble.NewClient(flagAdapter, log), nil
}

func openPin(program *tea.Program, log logrus.FieldLogger) (outputPin, error) {
	if flagDemo {
		if program != nil {
			return app.NewPin(program), nil
		}
		return gpio.NewLogPin(log), nil
	}

	hw, err := gpio.Open(flagPin, log)
	if err != nil {
		return nil, err
	}
	if program != nil {
		return teePin{hw: hw, view: app.NewPin(program)}, nil
	}
	return hw, nil
}

// teePin drives the hardware and mirrors edges into the dashboard.
type teePin struct {
	hw   *gpio.Pin
	view *app.Pin
}

func (t teePin) Set(high bool) error {
	if err := t.hw.Set(high); err != nil {
		return err
	}
	return t.view.Set(high)
}

func (t teePin) Release() error {
	return t.hw.Release()
}

func printHardwareHint(err error) {
	fmt.Fprintf(os.Stderr, "\nError: %v\n\n", err)
	fmt.Fprintln(os.Stderr, "GPIO and Bluetooth access require elevated permissions.")
	fmt.Fprintln(os.Stderr, "Try one of:")
	fmt.Fprintln(os.Stderr, "  sudo ./proximity-indicator")
	fmt.Fprintln(os.Stderr, "  ./proximity-indicator --demo    (simulated sensor and LED)")
}
