package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"FanController/fanPolicy"
	"FanController/pwmOutput"
	"FanController/sharedState"

	"github.com/golang/glog"
)

var (
	gpioPin          int
	pwmFrequency     int
	stateDir         string
	databaseServer   string
	databasePort     string
	databaseName     string
	databaseLogin    string
	databasePassword string
)

func usage() {
	_, _ = fmt.Fprintf(os.Stderr, "usage: fancontrold -stderrthreshold=[INFO|WARN|FATAL] -log_dir=[string]\n")
	flag.PrintDefaults()
	os.Exit(2)
}

func init() {
	flag.Usage = usage
	_ = flag.Set("log_dir", "/var/log")
	_ = flag.Set("stderrthreshold", "INFO")

	flag.IntVar(&gpioPin, "g", 12, "GPIO pin driving the fan (BCM numbering)")
	flag.IntVar(&pwmFrequency, "f", pwmOutput.DefaultFreq, "PWM carrier frequency in Hz")
	flag.StringVar(&stateDir, "s", sharedState.DefaultDir, "Directory holding the status and config files")
	flag.StringVar(&databaseServer, "q", "", "MySQL server for history logging (empty disables logging)")
	flag.StringVar(&databaseName, "n", "logging", "Database name")
	flag.StringVar(&databaseLogin, "u", "logger", "Database login user name")
	flag.StringVar(&databasePassword, "w", "logger", "Database user password")
	flag.StringVar(&databasePort, "o", "3306", "Database port")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	stop := make(chan struct{})
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		glog.Infof("Received %s, stopping fan control", s)
		close(stop)
	}()

	out, err := pwmOutput.Init(gpioPin, pwmFrequency)
	if err != nil {
		pwmOutput.ForceLow(gpioPin)
		glog.Errorf("Cannot claim a PWM path for GPIO %d - %s - Sorry, I am giving up", gpioPin, err)
		glog.Flush()
		os.Exit(1)
	}
	glog.Infof("Fan control started on GPIO %d using %s PWM", gpioPin, out.Mode())

	store := sharedState.New(stateDir)
	if databaseServer != "" {
		go logFanHistory(store, stop)
	}

	loop := NewFanLoop(out, &CpuTempSensor{}, store, fanPolicy.Default(), gpioPin)
	loop.Run(stop)
}
