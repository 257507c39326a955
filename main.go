//go:build windows
// +build windows

package main

import (
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sstallion/go-hid"
)

var session *Session

var (
	lastSampleMu       sync.Mutex
	lastSampleLevel    = -1
	lastSampleCharging bool
)

func lastReading() (int, bool, bool) {
	lastSampleMu.Lock()
	defer lastSampleMu.Unlock()
	if lastSampleLevel < 0 {
		return 0, false, false
	}
	return lastSampleLevel, lastSampleCharging, true
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Printf("[FATAL RECOVER] %v\n%s", r, debug.Stack())
			} else {
				log.Printf("[FATAL RECOVER] %v\n%s", r, debug.Stack())
			}
		}
	}()

	appData := os.Getenv("APPDATA")
	if appData == "" {
		appData = "."
	}
	dataDir = filepath.Join(appData, "HyperXWM")
	os.MkdirAll(dataDir, 0755)
	dataFile = filepath.Join(dataDir, "charge_data.json")
	settingsFile = filepath.Join(dataDir, "settings.json")
	logFile = filepath.Join(dataDir, "debug.log")

	hid.Init()
	defer hid.Exit()

	setupLogging()
	loadSettings()
	loadChargeData()

	if settings.StartWithWindows {
		setStartupEnabled(true)
	}
	notifyFn = sendNotification

	session = newSession(newHIDTransport(), trayPresenter{})
	session.onSample = func(level int, charging bool) {
		now := time.Now()
		lastSampleMu.Lock()
		lastSampleLevel = level
		lastSampleCharging = charging
		lastSampleMu.Unlock()

		rateEstimator.RecordSample(level, charging, now)
		recordHistorySample(level, charging, now)
		checkAndNotifyBatteryThresholds(level, charging)
	}
	session.onLink = func(connected bool) {
		now := time.Now()
		lvl, _, _ := lastReading()
		if connected {
			recordHistoryEvent("connected", lvl, "", now)
			resetNotificationState()
		} else {
			recordHistoryEvent("disconnected", lvl, "", now)
		}
	}

	go session.Run()

	// periodic persistence so a crash doesn't lose the rate model
	go func() {
		t := time.NewTicker(5 * time.Minute)
		defer t.Stop()
		for range t.C {
			if lvl, charging, ok := lastReading(); ok {
				saveChargeData(lvl, charging)
			}
		}
	}()

	// blocks in the message loop until Quit
	startTray()

	session.Stop()
	if lvl, charging, ok := lastReading(); ok {
		saveChargeData(lvl, charging)
	}
	if logger != nil {
		logger.Printf("=== HyperXWM stopped ===")
	}
}
