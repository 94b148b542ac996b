package cadence

import (
	"errors"
	"fmt"
	"time"

	"proximity-indicator.klederson.com/internal/config"
)

// Cadence is the blink policy in effect: either Off or blinking with a
// strictly positive half-period. The zero value is Off.
type Cadence struct {
	half time.Duration
}

// Off holds the indicator low.
var Off = Cadence{}

// BlinkAt returns a blinking cadence. A non-positive half-period yields Off.
func BlinkAt(half time.Duration) Cadence {
	if half <= 0 {
		return Off
	}
	return Cadence{half: half}
}

// IsOff reports whether the cadence holds the indicator dark.
func (c Cadence) IsOff() bool {
	return c.half <= 0
}

// HalfPeriod returns the time spent in each of the high and low states,
// or zero when Off.
func (c Cadence) HalfPeriod() time.Duration {
	return c.half
}

func (c Cadence) String() string {
	if c.IsOff() {
		return "off"
	}
	return "blink " + c.half.String()
}

// Policy maps distances to cadences using an ascending threshold table.
type Policy struct {
	table []config.Threshold
}

// NewPolicy validates the table: non-empty, strictly ascending thresholds
// and positive half-periods.
func NewPolicy(table []config.Threshold) (*Policy, error) {
	if len(table) == 0 {
		return nil, errors.New("cadence: empty threshold table")
	}
	for i, t := range table {
		if t.HalfPeriod <= 0 {
			return nil, fmt.Errorf("cadence: threshold %d has non-positive half-period %v", i, t.HalfPeriod)
		}
		if i > 0 && !(t.Below > table[i-1].Below) {
			return nil, fmt.Errorf("cadence: thresholds not ascending at index %d (%v after %v)", i, t.Below, table[i-1].Below)
		}
	}
	cp := make([]config.Threshold, len(table))
	copy(cp, table)
	return &Policy{table: cp}, nil
}

// DefaultPolicy returns the policy for the compiled-in proximity table.
func DefaultPolicy() *Policy {
	p, err := NewPolicy(config.Thresholds)
	if err != nil {
		panic(err)
	}
	return p
}

// Classify maps a distance to a cadence. Negative readings are treated as
// no signal and distances at or beyond the last threshold as out of range;
// both yield Off. The first threshold strictly greater than the distance
// selects the half-period.
//
// NaN fails every comparison and yields Off, as do +Inf and -Inf.
func (p *Policy) Classify(distance float64) Cadence {
	if distance < 0 {
		return Off
	}
	for _, t := range p.table {
		if distance < t.Below {
			return BlinkAt(t.HalfPeriod)
		}
	}
	return Off
}
