package main

import (
	"time"

	"FanController/fanPolicy"
	"FanController/pwmOutput"
	"FanController/sharedState"

	"github.com/golang/glog"
)

// TempReader supplies one temperature sample per call. An error means the
// reading is unknown, not that the caller should stop.
type TempReader interface {
	Read() (float64, error)
}

// PwmDriver is the slice of pwmOutput.Output the loop drives.
type PwmDriver interface {
	Mode() pwmOutput.Mode
	SetDutyCycle(percent int) error
	Stop()
}

// StateStore is the loop's view of the shared state files.
type StateStore interface {
	PublishStatus(sharedState.Status) error
	ReadConfig() (sharedState.ConfigRequest, error)
}

// FanLoop samples the CPU temperature, picks a duty cycle from the policy
// table (or the manual override), drives the PWM output and publishes the
// result. One cycle runs to completion before the next; the only suspension
// point is the sleep between cycles.
type FanLoop struct {
	pwm    PwmDriver
	sensor TempReader
	store  StateStore
	tiers  fanPolicy.Table
	pin    int

	config   sharedState.ConfigRequest // last successfully read configuration
	lastDuty int

	sleep func(time.Duration, <-chan struct{}) bool
}

func NewFanLoop(pwm PwmDriver, sensor TempReader, store StateStore, tiers fanPolicy.Table, pin int) *FanLoop {
	return &FanLoop{
		pwm:    pwm,
		sensor: sensor,
		store:  store,
		tiers:  tiers,
		pin:    pin,
		sleep:  sleepUntil,
	}
}

// sleepUntil waits for d or until stop closes, whichever comes first.
// Returns false when we were woken by stop.
func sleepUntil(d time.Duration, stop <-chan struct{}) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}

// Run drives the fan until stop closes, then turns it off, releases the PWM
// path and publishes a final stopped status.
func (l *FanLoop) Run(stop <-chan struct{}) {
	for {
		interval := l.cycle()
		if !l.sleep(interval, stop) {
			l.shutdown()
			return
		}
	}
}

// cycle performs one sample/decide/apply/publish pass and returns how long
// to idle before the next one.
func (l *FanLoop) cycle() time.Duration {
	var errMsg string

	if cfg, err := l.store.ReadConfig(); err != nil {
		glog.Errorf("Failed to read the fan configuration - %s - keeping the last known settings", err)
	} else {
		l.config = cfg
	}

	temp, err := l.sensor.Read()
	known := err == nil
	if err != nil {
		glog.Errorf("Could not read the CPU temperature - %s", err)
		errMsg = "Temperature read failed: " + err.Error()
	}

	// The poll interval always follows the temperature tier, even under a
	// manual override. The override replaces actuation, not cadence.
	tier := l.tiers.Resolve(temp, known)
	duty := tier.DutyCycle
	if l.config.ManualMode {
		duty = fanPolicy.Clamp(l.config.ManualDutyCycle)
		glog.Infof("Manual mode: Fan %d%%", duty)
	} else if known {
		glog.Infof("Auto mode: Temp %0.1fC Fan %d%%", temp, duty)
	}

	if err := l.pwm.SetDutyCycle(duty); err != nil {
		glog.Errorf("Failed to set the fan duty cycle - %s", err)
		errMsg = "Duty cycle not applied: " + err.Error()
		// The fan is still running at whatever we last managed to set
		duty = l.lastDuty
	} else {
		l.lastDuty = duty
	}

	status := sharedState.Status{
		DutyCycle:       duty,
		PwmMode:         l.pwm.Mode().String(),
		GpioPin:         l.pin,
		ManualMode:      l.config.ManualMode,
		ManualDutyCycle: fanPolicy.Clamp(l.config.ManualDutyCycle),
		Error:           errMsg,
	}
	if known {
		t := temp
		status.Temperature = &t
	}
	if err := l.store.PublishStatus(status); err != nil {
		glog.Errorf("Failed to publish the fan status - %s", err)
	}

	return tier.PollInterval
}

func (l *FanLoop) shutdown() {
	if err := l.pwm.SetDutyCycle(0); err != nil {
		glog.Errorf("Failed to turn the fan off on shutdown - %s", err)
	}
	l.pwm.Stop()
	st := sharedState.Status{
		PwmMode: l.pwm.Mode().String(),
		GpioPin: l.pin,
		Error:   "Service stopped",
	}
	if err := l.store.PublishStatus(st); err != nil {
		glog.Errorf("Failed to publish the final status - %s", err)
	}
	glog.Info("Fan control stopped")
}
