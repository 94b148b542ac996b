package main

import (
	"os"

	"github.com/spf13/cobra"

	"proximity-indicator.klederson.com/internal/config"
)

var (
	flagDemo    bool
	flagMonitor bool
	flagDebug   bool
	flagAdapter string
	flagAddress string
	flagPin     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "proximity-indicator",
		Short: "Proximity Indicator - blinks an LED faster as a BLE distance sensor gets closer",
		Long: `Proximity Indicator connects to a BLE distance sensor, subscribes to its
distance notifications and blinks an LED on a GPIO pin: the closer the
target, the faster the blink. The LED goes dark when the reading is out
of range or the link is lost, and the link is re-established on its own.

Requires sudo (GPIO memory and Bluetooth access) for real hardware.
Use --demo for a simulated sensor and LED, and --monitor for a live dashboard.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().BoolVar(&flagDemo, "demo", false, "Simulate the sensor and LED (no hardware required)")
	rootCmd.Flags().BoolVar(&flagMonitor, "monitor", false, "Show a live terminal dashboard")
	rootCmd.Flags().BoolVar(&flagDebug, "debug", false, "Log every reading and state change (mirrored into the --monitor event log)")
	rootCmd.Flags().StringVar(&flagAdapter, "adapter", config.DefaultAdapter, "Bluetooth adapter to use")
	rootCmd.Flags().StringVar(&flagAddress, "address", config.TargetAddress, "Sensor MAC address")
	rootCmd.Flags().IntVar(&flagPin, "pin", config.LEDPin, "LED GPIO (BCM numbering)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
