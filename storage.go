package main

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

const currentVersion = "1.2.0"

// Paths are resolved by main before anything touches them.
var (
	dataDir      string
	dataFile     string
	settingsFile string
	logFile      string

	fileMu sync.Mutex
)

type Settings struct {
	StartWithWindows         bool `json:"startWithWindows"`
	NotificationsEnabled     bool `json:"notificationsEnabled"`
	LowBatteryThreshold      int  `json:"lowBatteryThreshold"`
	CriticalBatteryThreshold int  `json:"criticalBatteryThreshold"`
}

var settings Settings

// ChargeData is everything worth keeping across restarts: the last
// reading, the drain-rate model and the battery history.
type ChargeData struct {
	LastLevel      int                   `json:"lastLevel"`
	LastCharging   bool                  `json:"lastCharging"`
	Timestamp      string                `json:"timestamp"`
	RateModel      map[string]phaseModel `json:"rateModel,omitempty"`
	HistorySamples []HistorySample       `json:"historySamples,omitempty"`
	HistoryEvents  []HistoryEvent        `json:"historyEvents,omitempty"`
}

func loadSettings() {
	settings = Settings{
		StartWithWindows:         false,
		NotificationsEnabled:     true,
		LowBatteryThreshold:      20,
		CriticalBatteryThreshold: 10,
	}
	data, err := os.ReadFile(settingsFile)
	if err != nil {
		return
	}
	json.Unmarshal(data, &settings)
}

func saveSettings() {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return
	}
	fileMu.Lock()
	_ = os.WriteFile(settingsFile, data, 0644)
	fileMu.Unlock()
}

func loadChargeData() {
	data, err := os.ReadFile(dataFile)
	if err != nil {
		return
	}
	var cd ChargeData
	if err := json.Unmarshal(data, &cd); err != nil {
		return
	}
	if len(cd.RateModel) > 0 && rateEstimator != nil {
		rateEstimator.Restore(cd.RateModel)
	}
	if len(cd.HistorySamples) > 0 || len(cd.HistoryEvents) > 0 {
		loadHistory(cd.HistorySamples, cd.HistoryEvents)
	}
}

func saveChargeData(level int, charging bool) {
	var model map[string]phaseModel
	if rateEstimator != nil {
		model = rateEstimator.Snapshot()
	}
	samples, events := historySnapshot()

	cd := ChargeData{
		LastLevel:      level,
		LastCharging:   charging,
		Timestamp:      time.Now().Format(time.RFC3339),
		RateModel:      model,
		HistorySamples: samples,
		HistoryEvents:  events,
	}
	data, err := json.MarshalIndent(cd, "", "  ")
	if err != nil {
		return
	}
	fileMu.Lock()
	_ = os.WriteFile(dataFile, data, 0644)
	fileMu.Unlock()
}
