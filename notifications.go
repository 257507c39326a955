package main

import (
	"fmt"
	"sync"
	"time"
)

type NotificationState int

const (
	NotifStateNone NotificationState = iota
	NotifStateLow
	NotifStateCritical
	NotifStateFull
)

// notifyFn delivers one balloon notification; tray.go installs the real
// implementation, tests install a recorder. Nil means notifications are
// unavailable (headless).
var notifyFn func(title, message string, critical bool)

var notificationDebounce = 5 * time.Minute

// notifState is the edge detector for threshold notifications: it only
// fires when the battery crosses into a new band, never while it sits
// inside one.
var notifState = struct {
	mu           sync.Mutex
	state        NotificationState
	lastNotified time.Time
	lastCharging bool
}{}

func checkAndNotifyBatteryThresholds(level int, charging bool) {
	if !settings.NotificationsEnabled {
		return
	}
	if level < 0 || level > 100 {
		return
	}

	notifState.mu.Lock()
	defer notifState.mu.Unlock()

	prev := notifState.state
	now := time.Now()

	var current NotificationState
	if charging {
		if level >= 100 {
			current = NotifStateFull
		} else {
			current = NotifStateNone
		}
	} else {
		switch {
		case level <= settings.CriticalBatteryThreshold:
			current = NotifStateCritical
		case level <= settings.LowBatteryThreshold:
			current = NotifStateLow
		default:
			current = NotifStateNone
		}
	}

	// a plug/unplug resets the edge detector so the next crossing can
	// fire again
	if charging != notifState.lastCharging {
		prev = NotifStateNone
		notifState.lastCharging = charging
	}

	cooledOff := notifState.lastNotified.IsZero() || now.Sub(notifState.lastNotified) > notificationDebounce

	var title, message string
	critical := false
	notify := false
	switch {
	case !charging && current == NotifStateCritical && prev != NotifStateCritical && cooledOff:
		title = "Critical Battery"
		message = fmt.Sprintf("Headset battery is critically low at %d%%!", level)
		critical = true
		notify = true
	case !charging && current == NotifStateLow && prev != NotifStateLow && prev != NotifStateCritical && cooledOff:
		title = "Low Battery"
		message = fmt.Sprintf("Headset battery is low at %d%%.", level)
		notify = true
	case charging && current == NotifStateFull && prev != NotifStateFull && cooledOff:
		title = "Charging Complete"
		message = "Headset battery is fully charged."
		notify = true
	case current == NotifStateNone && (prev == NotifStateLow || prev == NotifStateCritical):
		// recovered above the thresholds; drop the debounce penalty
		notifState.lastNotified = time.Time{}
	}

	notifState.state = current

	if notify {
		notifState.lastNotified = now
		if logger != nil {
			logger.Printf("[NOTIF] %s: %s", title, message)
		}
		if notifyFn != nil {
			go notifyFn(title, message, critical)
		}
	}
}

// resetNotificationState forgets the edge detector, e.g. when the
// headset reconnects.
func resetNotificationState() {
	notifState.mu.Lock()
	notifState.state = NotifStateNone
	notifState.lastNotified = time.Time{}
	notifState.mu.Unlock()
}
