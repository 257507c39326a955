package main

import (
	"sync"
	"time"
)

type HistorySample struct {
	Timestamp time.Time `json:"timestamp"`
	Level     int       `json:"level"`
	Charging  bool      `json:"charging"`
}

type HistoryEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Level     int       `json:"level"`
	Message   string    `json:"message,omitempty"`
}

var (
	historyMu      sync.Mutex
	historySamples []HistorySample
	historyEvents  []HistoryEvent
)

const (
	historyRetention      = 8 * 24 * time.Hour
	minHistorySpacing     = 75 * time.Second
	significantLevelDelta = 3
	maxHistorySamples     = 7200
	maxHistoryEvents      = 256
)

// recordHistorySample appends one reading unless it is too close to the
// previous one both in time and in value.
func recordHistorySample(level int, charging bool, ts time.Time) {
	historyMu.Lock()
	defer historyMu.Unlock()

	if n := len(historySamples); n > 0 {
		prev := historySamples[n-1]
		close := ts.Sub(prev.Timestamp) < minHistorySpacing
		small := absInt(level-prev.Level) < significantLevelDelta
		if close && small && charging == prev.Charging {
			return
		}
	}
	historySamples = append(historySamples, HistorySample{Timestamp: ts, Level: level, Charging: charging})
	pruneHistoryLocked(ts)
}

func recordHistoryEvent(evType string, level int, message string, ts time.Time) {
	historyMu.Lock()
	defer historyMu.Unlock()

	historyEvents = append(historyEvents, HistoryEvent{Timestamp: ts, Type: evType, Level: level, Message: message})
	if len(historyEvents) > maxHistoryEvents {
		historyEvents = historyEvents[len(historyEvents)-maxHistoryEvents:]
	}
}

func pruneHistoryLocked(now time.Time) {
	cutoff := now.Add(-historyRetention)
	i := 0
	for i < len(historySamples) && historySamples[i].Timestamp.Before(cutoff) {
		i++
	}
	if i > 0 {
		historySamples = historySamples[i:]
	}
	if len(historySamples) > maxHistorySamples {
		historySamples = historySamples[len(historySamples)-maxHistorySamples:]
	}
}

func historySnapshot() ([]HistorySample, []HistoryEvent) {
	historyMu.Lock()
	defer historyMu.Unlock()

	samples := make([]HistorySample, len(historySamples))
	copy(samples, historySamples)
	events := make([]HistoryEvent, len(historyEvents))
	copy(events, historyEvents)
	return samples, events
}

func loadHistory(samples []HistorySample, events []HistoryEvent) {
	historyMu.Lock()
	defer historyMu.Unlock()

	historySamples = append(historySamples[:0], samples...)
	historyEvents = append(historyEvents[:0], events...)
	pruneHistoryLocked(time.Now())
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
