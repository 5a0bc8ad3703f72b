package fanPolicy

import (
	"math"
	"time"
)

// Tier maps a temperature threshold to a fan speed and a sampling interval.
type Tier struct {
	MinTempC     float64
	DutyCycle    int
	PollInterval time.Duration
}

// Table is an ordered set of tiers, highest threshold first. The last entry
// must be the unconditional fallback.
type Table []Tier

// Default /**
// The stock policy. Flat out above 50C, 85% above 40C, otherwise a quiet
// 60% baseline checked every minute.
func Default() Table {
	return Table{
		{MinTempC: 50, DutyCycle: 100, PollInterval: 180 * time.Second},
		{MinTempC: 40, DutyCycle: 85, PollInterval: 120 * time.Second},
		{MinTempC: math.Inf(-1), DutyCycle: 60, PollInterval: 60 * time.Second},
	}
}

// Resolve /**
// Return the tier for the given temperature. First tier whose threshold the
// reading meets or exceeds wins. An unknown reading (known == false) falls
// into the lowest tier so a failed sensor never maxes the fan out.
func (t Table) Resolve(tempC float64, known bool) Tier {
	last := t[len(t)-1]
	if !known {
		return last
	}
	for _, tier := range t {
		if tempC >= tier.MinTempC {
			return tier
		}
	}
	return last
}

// Clamp /**
// Limit a duty cycle to the 0..100 percent range.
func Clamp(duty int) int {
	if duty < 0 {
		return 0
	}
	if duty > 100 {
		return 100
	}
	return duty
}
