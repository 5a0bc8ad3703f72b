package pwmOutput

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/stianeikeland/go-rpio"
)

// line is the single GPIO output the bit-bang loop drives.
type line interface {
	High()
	Low()
}

type rpioLine rpio.Pin

func (l rpioLine) High() { rpio.Pin(l).High() }
func (l rpioLine) Low()  { rpio.Pin(l).Low() }

// SoftwarePwm generates the pulse train on a plain GPIO line from a
// dedicated goroutine. The duty value is the only state shared between that
// goroutine and the control loop, so it is a single atomic scalar.
type SoftwarePwm struct {
	out     line
	period  time.Duration
	duty    atomic.Int32
	done    chan struct{}
	wg      sync.WaitGroup
	closeFn func()
	once    sync.Once
}

func newSoftwarePwm(out line, freqHz int, closeFn func()) *SoftwarePwm {
	s := &SoftwarePwm{
		out:     out,
		period:  time.Second / time.Duration(freqHz),
		done:    make(chan struct{}),
		closeFn: closeFn,
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *SoftwarePwm) Mode() Mode {
	return Software
}

func (s *SoftwarePwm) SetDutyCycle(percent int) error {
	s.duty.Store(int32(clampPercent(percent)))
	return nil
}

// Stop terminates the pulse train, leaves the line low and releases the
// GPIO so the pin can be claimed again.
func (s *SoftwarePwm) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		s.out.Low()
		if s.closeFn != nil {
			s.closeFn()
		}
	})
}

func (s *SoftwarePwm) run() {
	defer s.wg.Done()
	for {
		onTime := s.period * time.Duration(s.duty.Load()) / 100
		switch {
		case onTime <= 0:
			// Fully off: hold the line low, no toggling
			s.out.Low()
			if !s.idle(s.period) {
				return
			}
		case onTime >= s.period:
			s.out.High()
			if !s.idle(s.period) {
				return
			}
		default:
			s.out.High()
			if !s.idle(onTime) {
				return
			}
			s.out.Low()
			if !s.idle(s.period - onTime) {
				return
			}
		}
	}
}

func (s *SoftwarePwm) idle(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.done:
		return false
	case <-t.C:
		return true
	}
}
