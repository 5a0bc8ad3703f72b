package pwmOutput

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
)

// Only GPIO 12 (PWM0 channel 0) and GPIO 18 (PWM0 channel 1) are wired to
// the hardware PWM block on the Pi.
var pwmChannels = map[int]int{
	12: 0,
	18: 1,
}

// HardwarePwm drives a channel of the kernel's sysfs PWM interface.
type HardwarePwm struct {
	chipDir  string
	channel  int
	periodNs int
}

func probeHardwarePwm(root string, pin int, freqHz int) (*HardwarePwm, error) {
	channel, ok := pwmChannels[pin]
	if !ok {
		return nil, fmt.Errorf("GPIO %d has no hardware PWM channel", pin)
	}
	chipDir := filepath.Join(root, "pwmchip0")
	data, err := os.ReadFile(filepath.Join(chipDir, "npwm"))
	if err != nil {
		return nil, fmt.Errorf("no PWM chip at %s: %w", chipDir, err)
	}
	npwm, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("bad npwm value in %s: %w", chipDir, err)
	}
	if channel >= npwm {
		return nil, fmt.Errorf("PWM channel %d not available (chip only has %d)", channel, npwm)
	}

	h := &HardwarePwm{
		chipDir:  chipDir,
		channel:  channel,
		periodNs: int(time.Second / time.Duration(freqHz)),
	}
	if err := h.export(); err != nil {
		return nil, err
	}
	if err := writeSysfs(h.channelFile("period"), strconv.Itoa(h.periodNs)); err != nil {
		return nil, fmt.Errorf("set PWM period: %w", err)
	}
	// The kernel rejects an enable while duty_cycle exceeds the new period
	if err := writeSysfs(h.channelFile("duty_cycle"), "0"); err != nil {
		return nil, fmt.Errorf("zero PWM duty cycle: %w", err)
	}
	if err := writeSysfs(h.channelFile("enable"), "1"); err != nil {
		return nil, fmt.Errorf("enable PWM: %w", err)
	}
	return h, nil
}

func (h *HardwarePwm) channelDir() string {
	return filepath.Join(h.chipDir, fmt.Sprintf("pwm%d", h.channel))
}

func (h *HardwarePwm) channelFile(name string) string {
	return filepath.Join(h.channelDir(), name)
}

// export claims the channel. Exporting twice is fine: if the directory is
// already there, either from a previous run or an earlier Init in this
// process, we just reuse it.
func (h *HardwarePwm) export() error {
	if _, err := os.Stat(h.channelDir()); err == nil {
		return nil
	}
	if err := writeSysfs(filepath.Join(h.chipDir, "export"), strconv.Itoa(h.channel)); err != nil {
		// EBUSY here means somebody exported it between our checks
		if _, statErr := os.Stat(h.channelDir()); statErr == nil {
			return nil
		}
		return fmt.Errorf("export PWM channel %d: %w", h.channel, err)
	}
	// Give the kernel a moment to create the channel directory
	for i := 0; i < 10; i++ {
		if _, err := os.Stat(h.channelDir()); err == nil {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("PWM channel %d did not appear after export", h.channel)
}

func (h *HardwarePwm) Mode() Mode {
	return Hardware
}

// SetDutyCycle sets the output to the given percentage of each period.
func (h *HardwarePwm) SetDutyCycle(percent int) error {
	percent = clampPercent(percent)
	dutyNs := h.periodNs * percent / 100
	if err := writeSysfs(h.channelFile("duty_cycle"), strconv.Itoa(dutyNs)); err != nil {
		return fmt.Errorf("set hardware PWM duty cycle: %w", err)
	}
	return nil
}

// Stop drives the output low and releases the channel so another process
// can claim the same pin.
func (h *HardwarePwm) Stop() {
	if err := writeSysfs(h.channelFile("duty_cycle"), "0"); err != nil {
		glog.Warningf("Failed to zero the PWM duty cycle - %s", err)
	}
	if err := writeSysfs(h.channelFile("enable"), "0"); err != nil {
		glog.Warningf("Failed to disable the PWM channel - %s", err)
	}
	if err := writeSysfs(filepath.Join(h.chipDir, "unexport"), strconv.Itoa(h.channel)); err != nil {
		glog.Warningf("Failed to unexport PWM channel %d - %s", h.channel, err)
	}
}

func writeSysfs(path string, value string) error {
	return os.WriteFile(path, []byte(value), 0644)
}

func clampPercent(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
