package fanPolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tiers := Default()

	tests := []struct {
		name     string
		tempC    float64
		known    bool
		duty     int
		interval time.Duration
	}{
		{"well over the top threshold", 52, true, 100, 180 * time.Second},
		{"exactly the top threshold", 50, true, 100, 180 * time.Second},
		{"just under the top threshold", 49.9, true, 85, 120 * time.Second},
		{"middle of the warm band", 45, true, 85, 120 * time.Second},
		{"exactly the warm threshold", 40, true, 85, 120 * time.Second},
		{"just under the warm threshold", 39.9, true, 60, 60 * time.Second},
		{"cool", 25, true, 60, 60 * time.Second},
		{"below zero", -5, true, 60, 60 * time.Second},
		{"unknown reading", 0, false, 60, 60 * time.Second},
		{"unknown reading ignores a hot value", 90, false, 60, 60 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tier := tiers.Resolve(tt.tempC, tt.known)
			assert.Equal(t, tt.duty, tier.DutyCycle)
			assert.Equal(t, tt.interval, tier.PollInterval)
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, Clamp(-10))
	assert.Equal(t, 0, Clamp(0))
	assert.Equal(t, 30, Clamp(30))
	assert.Equal(t, 100, Clamp(100))
	assert.Equal(t, 100, Clamp(250))
}
