package main

import "fmt"

type iconKind int

const (
	iconDisconnected iconKind = iota
	iconCharging
	iconEmpty
	iconLow
	iconMid
	iconHigh
	iconFull
)

func (k iconKind) String() string {
	switch k {
	case iconDisconnected:
		return "disconnected"
	case iconCharging:
		return "charging"
	case iconEmpty:
		return "empty"
	case iconLow:
		return "low"
	case iconMid:
		return "mid"
	case iconHigh:
		return "high"
	case iconFull:
		return "full"
	}
	return "unknown"
}

// statusUpdate is one rendered tray state: which glyph to show and the
// tooltip text beside it.
type statusUpdate struct {
	Icon    iconKind
	Tooltip string
}

// batteryIcon buckets a level into the glyph the tray shows.
func batteryIcon(percent int) iconKind {
	switch {
	case percent <= 0:
		return iconEmpty
	case percent <= 20:
		return iconLow
	case percent <= 50:
		return iconMid
	case percent <= 70:
		return iconHigh
	default:
		return iconFull
	}
}

// statusFor is the pure mapping from session state to tray state.
// The cable flag and battery level only mean anything while the headset
// is linked to the dongle.
func statusFor(connected, cablePluggedIn bool, percent int) statusUpdate {
	if !connected {
		return statusUpdate{Icon: iconDisconnected, Tooltip: "Headset: <disconnected>"}
	}
	if cablePluggedIn {
		return statusUpdate{Icon: iconCharging, Tooltip: "Headset: Charging…"}
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return statusUpdate{
		Icon:    batteryIcon(percent),
		Tooltip: fmt.Sprintf("Headset: Battery %d%%", percent),
	}
}

// Presenter renders one status update. The tray implementation lives in
// tray.go; tests capture updates with an in-memory fake.
type Presenter interface {
	Apply(statusUpdate)
}

// bridge sits between the session and the Presenter and drops
// consecutive duplicates so identical state doesn't redraw the icon.
type bridge struct {
	p    Presenter
	last statusUpdate
	seen bool
}

func newBridge(p Presenter) *bridge {
	return &bridge{p: p}
}

func (b *bridge) apply(u statusUpdate) {
	if b.seen && u == b.last {
		return
	}
	b.last = u
	b.seen = true
	b.p.Apply(u)
}

// showMessage surfaces transport-level trouble as tooltip text on the
// disconnected glyph. No dialogs, no errors to the user.
func (b *bridge) showMessage(text string) {
	b.apply(statusUpdate{Icon: iconDisconnected, Tooltip: text})
}
