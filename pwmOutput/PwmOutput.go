package pwmOutput

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/stianeikeland/go-rpio"
)

// DefaultFreq is the PWM carrier frequency in Hz used by both paths.
const DefaultFreq = 100

// SysfsPwmRoot is where the kernel exposes hardware PWM chips.
var SysfsPwmRoot = "/sys/class/pwm"

type Mode int

const (
	Hardware Mode = iota
	Software
)

func (m Mode) String() string {
	if m == Hardware {
		return "hardware"
	}
	return "software"
}

// Output drives a single PWM channel. The mode is fixed once Init has
// chosen a path and never changes for the life of the process.
type Output interface {
	Mode() Mode
	SetDutyCycle(percent int) error
	Stop()
}

// Init /**
// Claim a PWM path for the given BCM pin. Hardware PWM is tried first; any
// probe or claim failure drops us to software PWM over the GPIO line for
// the rest of the process lifetime. An error here means neither path could
// claim the pin and the caller cannot continue.
func Init(pin int, freqHz int) (Output, error) {
	hw, err := probeHardwarePwm(SysfsPwmRoot, pin, freqHz)
	if err == nil {
		glog.Infof("Hardware PWM enabled for GPIO %d", pin)
		return hw, nil
	}
	glog.Warningf("Hardware PWM unavailable for GPIO %d - %s - falling back to software PWM", pin, err)

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("cannot claim GPIO %d for software PWM: %w", pin, err)
	}
	p := rpio.Pin(pin)
	p.Mode(rpio.Output)
	p.Low()
	glog.Infof("Software PWM started for GPIO %d at %dHz", pin, freqHz)
	return newSoftwarePwm(rpioLine(p), freqHz, func() { _ = rpio.Close() }), nil
}

// ForceLow /**
// Best effort attempt to leave the fan line low. Used on the fatal exit
// path when no PWM path could be claimed.
func ForceLow(pin int) {
	if err := rpio.Open(); err != nil {
		return
	}
	p := rpio.Pin(pin)
	p.Mode(rpio.Output)
	p.Low()
	_ = rpio.Close()
}
