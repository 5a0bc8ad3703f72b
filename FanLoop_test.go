package main

import (
	"errors"
	"testing"
	"time"

	"FanController/fanPolicy"
	"FanController/pwmOutput"
	"FanController/sharedState"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePwm struct {
	mode    pwmOutput.Mode
	applied []int
	err     error
	stopped bool
}

func (f *fakePwm) Mode() pwmOutput.Mode { return f.mode }

func (f *fakePwm) SetDutyCycle(percent int) error {
	if f.err != nil {
		return f.err
	}
	f.applied = append(f.applied, percent)
	return nil
}

func (f *fakePwm) Stop() { f.stopped = true }

type fakeSensor struct {
	temp float64
	err  error
}

func (f *fakeSensor) Read() (float64, error) { return f.temp, f.err }

type fakeStore struct {
	cfg       sharedState.ConfigRequest
	cfgErr    error
	published []sharedState.Status
	pubErr    error
}

func (f *fakeStore) ReadConfig() (sharedState.ConfigRequest, error) { return f.cfg, f.cfgErr }

func (f *fakeStore) PublishStatus(st sharedState.Status) error {
	f.published = append(f.published, st)
	return f.pubErr
}

func newTestLoop(pwm *fakePwm, sensor *fakeSensor, store *fakeStore) *FanLoop {
	return NewFanLoop(pwm, sensor, store, fanPolicy.Default(), 12)
}

func (f *fakeStore) lastPublished(t *testing.T) sharedState.Status {
	t.Helper()
	require.NotEmpty(t, f.published)
	return f.published[len(f.published)-1]
}

func TestAutoModeFollowsTemperatureTiers(t *testing.T) {
	pwm := &fakePwm{mode: pwmOutput.Software}
	sensor := &fakeSensor{temp: 52}
	store := &fakeStore{}
	loop := newTestLoop(pwm, sensor, store)

	interval := loop.cycle()
	assert.Equal(t, 180*time.Second, interval)
	assert.Equal(t, []int{100}, pwm.applied)

	st := store.lastPublished(t)
	require.NotNil(t, st.Temperature)
	assert.Equal(t, 52.0, *st.Temperature)
	assert.Equal(t, 100, st.DutyCycle)
	assert.Equal(t, "software", st.PwmMode)
	assert.Equal(t, 12, st.GpioPin)
	assert.Empty(t, st.Error)
}

func TestManualOverrideAppliesDutyButKeepsTierInterval(t *testing.T) {
	pwm := &fakePwm{mode: pwmOutput.Hardware}
	sensor := &fakeSensor{temp: 52}
	store := &fakeStore{cfg: sharedState.ConfigRequest{ManualMode: true, ManualDutyCycle: 30}}
	loop := newTestLoop(pwm, sensor, store)

	interval := loop.cycle()
	assert.Equal(t, 180*time.Second, interval, "cadence follows the temperature tier, not the override")
	assert.Equal(t, []int{30}, pwm.applied)

	st := store.lastPublished(t)
	assert.True(t, st.ManualMode)
	assert.Equal(t, 30, st.ManualDutyCycle)
	assert.Equal(t, 30, st.DutyCycle)
}

func TestManualOverrideClampsDuty(t *testing.T) {
	pwm := &fakePwm{mode: pwmOutput.Software}
	sensor := &fakeSensor{temp: 30}
	store := &fakeStore{cfg: sharedState.ConfigRequest{ManualMode: true, ManualDutyCycle: 250}}
	loop := newTestLoop(pwm, sensor, store)

	loop.cycle()
	assert.Equal(t, []int{100}, pwm.applied)
}

func TestSensorFailureFallsToDefaultTier(t *testing.T) {
	pwm := &fakePwm{mode: pwmOutput.Software}
	sensor := &fakeSensor{err: errors.New("no thermal zone")}
	store := &fakeStore{}
	loop := newTestLoop(pwm, sensor, store)

	for i := 0; i < 3; i++ {
		interval := loop.cycle()
		assert.Equal(t, 60*time.Second, interval)
	}
	assert.Equal(t, []int{60, 60, 60}, pwm.applied)
	require.Len(t, store.published, 3)
	for _, st := range store.published {
		assert.Nil(t, st.Temperature)
		assert.Contains(t, st.Error, "Temperature read failed")
		assert.Equal(t, 60, st.DutyCycle)
	}
}

func TestActuationErrorKeepsPreviousDuty(t *testing.T) {
	pwm := &fakePwm{mode: pwmOutput.Software}
	sensor := &fakeSensor{temp: 30}
	store := &fakeStore{}
	loop := newTestLoop(pwm, sensor, store)

	loop.cycle()
	assert.Equal(t, []int{60}, pwm.applied)

	pwm.err = errors.New("device gone")
	sensor.temp = 52
	interval := loop.cycle()

	// The tier still resolved, the error is surfaced, and the status shows
	// the duty the fan is actually running at
	assert.Equal(t, 180*time.Second, interval)
	st := store.lastPublished(t)
	assert.Equal(t, 60, st.DutyCycle)
	assert.Contains(t, st.Error, "Duty cycle not applied")

	// Recovery on the next cycle applies the new duty
	pwm.err = nil
	loop.cycle()
	assert.Equal(t, []int{60, 100}, pwm.applied)
	assert.Empty(t, store.lastPublished(t).Error)
}

func TestConfigReadErrorKeepsLastKnownConfig(t *testing.T) {
	pwm := &fakePwm{mode: pwmOutput.Software}
	sensor := &fakeSensor{temp: 52}
	store := &fakeStore{cfg: sharedState.ConfigRequest{ManualMode: true, ManualDutyCycle: 40}}
	loop := newTestLoop(pwm, sensor, store)

	loop.cycle()
	assert.Equal(t, []int{40}, pwm.applied)

	store.cfg = sharedState.ConfigRequest{}
	store.cfgErr = errors.New("state directory unreadable")
	loop.cycle()
	assert.Equal(t, []int{40, 40}, pwm.applied, "the last known override stays in force")
}

func TestPublishErrorDoesNotStopTheLoop(t *testing.T) {
	pwm := &fakePwm{mode: pwmOutput.Software}
	sensor := &fakeSensor{temp: 30}
	store := &fakeStore{pubErr: errors.New("disk full")}
	loop := newTestLoop(pwm, sensor, store)

	interval := loop.cycle()
	assert.Equal(t, 60*time.Second, interval)
	assert.Equal(t, []int{60}, pwm.applied)
}

func TestRunShutdownTurnsTheFanOff(t *testing.T) {
	pwm := &fakePwm{mode: pwmOutput.Software}
	sensor := &fakeSensor{temp: 45}
	store := &fakeStore{}
	loop := newTestLoop(pwm, sensor, store)

	// Stop on the first sleep
	loop.sleep = func(time.Duration, <-chan struct{}) bool { return false }
	loop.Run(make(chan struct{}))

	require.GreaterOrEqual(t, len(pwm.applied), 2)
	assert.Equal(t, 0, pwm.applied[len(pwm.applied)-1], "the fan is driven to 0 before exit")
	assert.True(t, pwm.stopped)

	st := store.lastPublished(t)
	assert.Equal(t, 0, st.DutyCycle)
	assert.Equal(t, "Service stopped", st.Error)
}
