package config

import "time"

const (
	// Sensor link
	TargetAddress      = "D4:D4:DA:4E:FC:9E" // Distance sensor MAC
	ServiceUUID        = 0x180F              // Sensor service (16-bit)
	CharacteristicUUID = 0x2A19              // Distance characteristic (16-bit)
	DefaultAdapter     = "hci0"

	// Supervisor timing
	PollTimeout       = 1 * time.Second        // Notification wait before idle loop
	RetryDelay        = 5 * time.Second        // Pause after link loss before reconnecting
	ConnectRetryDelay = 500 * time.Millisecond // Pause after a failed connect attempt

	// Indicator
	LEDPin       = 24                     // BCM GPIO24 (header pin 18)
	IdlePoll     = 100 * time.Millisecond // Actuator re-check interval while dark
	PayloadBytes = 4                      // One float32 per notification

	// Monitor
	HistorySize = 120 // Distance samples kept for the sparkline
	LogTailSize = 8   // Event lines shown in the dashboard
	TargetFPS   = 30

	// Demo mode
	DemoInterval = 200 * time.Millisecond // Simulated notification period
	DemoMaxRange = 25.0                   // Simulated distance swing in cm

	// App
	AppName    = "PROXIMITY-INDICATOR"
	AppVersion = "1.0"
)

// Threshold pairs a distance bound (exclusive) with the blink half-period
// used for readings below it.
type Threshold struct {
	Below      float64 // cm
	HalfPeriod time.Duration
}

// Thresholds is the fixed proximity table, ascending by distance.
var Thresholds = []Threshold{
	{Below: 5, HalfPeriod: 100 * time.Millisecond},
	{Below: 10, HalfPeriod: 600 * time.Millisecond},
	{Below: 15, HalfPeriod: 1800 * time.Millisecond},
	{Below: 20, HalfPeriod: 3 * time.Second},
}
