package sharedState

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"FanController/fanPolicy"

	"github.com/golang/glog"
)

// The control loop and the API server are separate processes. They meet only
// in these two JSON files, each with exactly one writer: the control loop
// owns status.json, the API server owns config.json. Every write goes to a
// temp file first and is renamed into place so a reader can never see a
// half-written record.

const DefaultDir = "/opt/fan-control"

const (
	statusFileName = "status.json"
	configFileName = "config.json"
)

// Status is the record the control loop publishes after every cycle.
type Status struct {
	Temperature     *float64 `json:"temperature"`
	DutyCycle       int      `json:"duty_cycle"`
	PwmMode         string   `json:"pwm_mode"`
	GpioPin         int      `json:"gpio_pin"`
	ManualMode      bool     `json:"manual_mode"`
	ManualDutyCycle int      `json:"manual_duty_cycle"`
	Error           string   `json:"error"`
	LastUpdate      float64  `json:"last_update"`
}

// ConfigRequest is the record the API server writes for the control loop to
// pick up on its next cycle.
type ConfigRequest struct {
	ManualMode      bool `json:"manual_mode"`
	ManualDutyCycle int  `json:"manual_duty_cycle"`
}

type Store struct {
	statusFile string
	configFile string

	mu        sync.Mutex
	lastStamp float64
}

func New(dir string) *Store {
	if err := os.MkdirAll(dir, 0755); err != nil {
		glog.Warningf("Could not create the state directory %s - %s", dir, err)
	}
	return &Store{
		statusFile: filepath.Join(dir, statusFileName),
		configFile: filepath.Join(dir, configFileName),
	}
}

// PublishStatus /**
// Write the status record atomically. The store stamps the record itself and
// guarantees the stamp increases across publishes even if the clock stalls.
func (s *Store) PublishStatus(st Status) error {
	s.mu.Lock()
	stamp := float64(time.Now().UnixNano()) / 1e9
	if stamp <= s.lastStamp {
		stamp = s.lastStamp + 1e-6
	}
	s.lastStamp = stamp
	s.mu.Unlock()

	st.LastUpdate = stamp
	data, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return writeAtomic(s.statusFile, data)
}

// ReadStatus returns the last fully published status record.
func (s *Store) ReadStatus() (Status, error) {
	var st Status
	data, err := os.ReadFile(s.statusFile)
	if err != nil {
		return st, err
	}
	err = json.Unmarshal(data, &st)
	return st, err
}

// WriteConfig writes the configuration record atomically.
func (s *Store) WriteConfig(c ConfigRequest) error {
	c.ManualDutyCycle = fanPolicy.Clamp(c.ManualDutyCycle)
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return writeAtomic(s.configFile, data)
}

// ReadConfig /**
// Return the current configuration. A missing file is not an error, it just
// means nobody has asked for anything yet. Out of range duty cycles are
// clamped here so nothing downstream has to trust the file contents.
func (s *Store) ReadConfig() (ConfigRequest, error) {
	var c ConfigRequest
	data, err := os.ReadFile(s.configFile)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return ConfigRequest{}, err
	}
	c.ManualDutyCycle = fanPolicy.Clamp(c.ManualDutyCycle)
	return c, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
