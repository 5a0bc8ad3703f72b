package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const CpuTempFile = "/sys/class/thermal/thermal_zone0/temp"

// CpuTempSensor reads the RPi's CPU temperature from the kernel thermal
// zone. One scalar reading per call, no smoothing.
type CpuTempSensor struct {
	Path string // defaults to CpuTempFile
}

// Read returns the CPU temperature in degrees C
func (s *CpuTempSensor) Read() (float64, error) {
	path := s.Path
	if path == "" {
		path = CpuTempFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	milli, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad thermal zone reading %q: %w", strings.TrimSpace(string(data)), err)
	}
	return float64(milli) / 1000, nil
}
