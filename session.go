package main

import (
	"errors"
	"runtime/debug"
	"time"

	"go.uber.org/atomic"
)

// sessionState is owned by the session worker goroutine. Nothing else
// reads or writes it, so it needs no locking.
type sessionState struct {
	connected      bool
	cablePluggedIn bool
	// battery is the last observed percent, -1 until the first
	// successful reading.
	battery int
	// awaitingReply is set once a battery reading has arrived and the
	// value is still fresh; while it is false an idle tick re-sends
	// the battery query.
	awaitingReply bool
}

type sessionCommand int

const (
	cmdUpdateNow sessionCommand = iota
	cmdSuspend
	cmdResume
	cmdStop
)

// Session drives the dongle protocol: it owns the HID handle, sends
// query reports, folds incoming reports into sessionState and pushes the
// derived state at the presentation bridge. Run executes on a single
// worker goroutine; UI and power callbacks reach it only through the
// command channel.
type Session struct {
	transport Transport
	bridge    *bridge

	cmds    chan sessionCommand
	busy    *atomic.Bool
	stopped *atomic.Bool

	// retryDelay paces open attempts while no dongle is present;
	// reconnect is the fixed backoff after an I/O error.
	retryDelay time.Duration
	reconnect  time.Duration

	handle    *Handle
	state     sessionState
	suspended bool

	// optional hooks, invoked on the worker goroutine
	onSample func(level int, charging bool)
	onLink   func(connected bool)
}

func newSession(t Transport, p Presenter) *Session {
	return &Session{
		transport:  t,
		bridge:     newBridge(p),
		cmds:       make(chan sessionCommand, 8),
		busy:       atomic.NewBool(false),
		stopped:    atomic.NewBool(false),
		retryDelay: 2 * time.Second,
		reconnect:  reconnectDelay,
		state:      sessionState{battery: -1},
	}
}

// RequestUpdate asks the worker for a fresh battery reading, e.g. after
// a tray click. Requests are single-flight: while one is pending,
// further ones are dropped.
func (s *Session) RequestUpdate() {
	if !s.busy.CompareAndSwap(false, true) {
		return
	}
	if !s.post(cmdUpdateNow) {
		s.busy.Store(false)
	}
}

// Suspend closes the device ahead of a system sleep; Resume reopens it.
func (s *Session) Suspend() { s.post(cmdSuspend) }
func (s *Session) Resume()  { s.post(cmdResume) }

// Stop makes Run exit after the current step and release the handle.
func (s *Session) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		s.post(cmdStop)
	}
}

func (s *Session) post(c sessionCommand) bool {
	select {
	case s.cmds <- c:
		return true
	default:
		// queue full; the worker is backed up and will observe the
		// stopped flag or earlier commands anyway
		return false
	}
}

// Run is the session worker loop. All opens, reads, writes and closes
// happen here; the blocking read's timeout doubles as the loop tick.
func (s *Session) Run() {
	defer func() {
		if r := recover(); r != nil {
			if logger != nil {
				logger.Printf("[SESSION] worker recovered: %v\n%s", r, debug.Stack())
			}
		}
	}()
	defer s.closeHandle()

	for !s.stopped.Load() {
		if !s.drainCommands() {
			return
		}
		if s.suspended {
			// nothing to do until a resume or stop arrives
			if !s.handleCommand(<-s.cmds) {
				return
			}
			continue
		}
		if s.handle == nil {
			if !s.open() {
				time.Sleep(s.retryDelay)
				continue
			}
		}
		buf, err := s.transport.Read(s.handle, readTimeout)
		switch {
		case err == nil:
			s.handleReport(buf)
		case errors.Is(err, errReadTimeout):
			s.handleIdle()
		default:
			s.handleReadError(err)
		}
	}
}

func (s *Session) drainCommands() bool {
	for {
		select {
		case c := <-s.cmds:
			if !s.handleCommand(c) {
				return false
			}
		default:
			return true
		}
	}
}

func (s *Session) handleCommand(c sessionCommand) bool {
	switch c {
	case cmdStop:
		return false
	case cmdSuspend:
		if logger != nil {
			logger.Printf("[SESSION] suspend: releasing device")
		}
		s.closeHandle()
		s.suspended = true
	case cmdResume:
		if logger != nil {
			logger.Printf("[SESSION] resume: reopening device")
		}
		s.suspended = false
	case cmdUpdateNow:
		s.manualUpdate()
	}
	return true
}

// manualUpdate services one tray "Update now" click: make sure a handle
// is open and fire a single battery query. The reply comes back through
// the normal read path.
func (s *Session) manualUpdate() {
	defer s.busy.Store(false)
	if s.suspended {
		return
	}
	if s.handle == nil && !s.open() {
		return
	}
	s.sendQuery(subBatteryStatus)
}

// open attempts to acquire the dongle and, on success, primes it with
// the connection, cable and battery queries. Replies arrive
// asynchronously through the read loop.
func (s *Session) open() bool {
	h, err := s.transport.FindAndOpen()
	if err != nil {
		if errors.Is(err, errDeviceNotFound) {
			s.bridge.showMessage("Device not found")
		} else {
			s.bridge.showMessage("Can't open device")
		}
		return false
	}
	s.handle = h
	s.state.awaitingReply = false
	for _, sub := range []byte{subConnectionStatus, subCableStatus, subBatteryStatus} {
		s.sendQuery(sub)
	}
	return true
}

// sendQuery is fire-and-forget; a failed write surfaces soon enough as
// a read error.
func (s *Session) sendQuery(sub byte) {
	buf, err := buildQuery(sub, s.transport.MaxOutputLength(s.handle))
	if err != nil {
		return
	}
	if err := s.transport.Write(s.handle, buf); err != nil && logger != nil {
		logger.Printf("[SESSION] query 0x%02x write failed: %v", sub, err)
	}
}

func (s *Session) handleReport(buf []byte) {
	switch ev := decodeReport(buf).(type) {
	case connectionStatusEvent:
		s.setConnected(ev.connected)
	case cableStatusEvent:
		s.state.cablePluggedIn = ev.pluggedIn
		s.refresh()
	case batteryChangedEvent:
		s.state.cablePluggedIn = ev.pluggedIn
		// the notice carries no level; clearing the flag makes the
		// next idle tick query a fresh one
		s.state.awaitingReply = false
	case batteryLevelEvent:
		s.state.battery = ev.percent
		s.state.awaitingReply = true
		s.refresh()
		if s.onSample != nil {
			s.onSample(ev.percent, s.state.cablePluggedIn)
		}
	default:
		// unrecognized frames are normal on this interface
	}
}

func (s *Session) setConnected(connected bool) {
	s.state.connected = connected
	// whichever way the link went, the next battery state must be
	// freshly queried
	s.state.awaitingReply = false
	if connected {
		s.sendQuery(subCableStatus)
		s.sendQuery(subBatteryStatus)
	}
	s.refresh()
	if s.onLink != nil {
		s.onLink(connected)
	}
}

func (s *Session) refresh() {
	lvl := s.state.battery
	if lvl < 0 {
		lvl = 0
	}
	s.bridge.apply(statusFor(s.state.connected, s.state.cablePluggedIn, lvl))
}

// handleIdle fires on every read timeout. While the headset is linked
// and no fresh reading has arrived, keep polling for one.
func (s *Session) handleIdle() {
	if s.state.connected && !s.state.awaitingReply {
		s.sendQuery(subBatteryStatus)
	}
}

// handleReadError covers the handle going bad mid-read, typically the
// dongle being unplugged. Close, tell the user, back off, reopen.
func (s *Session) handleReadError(err error) {
	if logger != nil {
		logger.Printf("[SESSION] read failed: %v, reconnecting", err)
	}
	s.closeHandle()
	s.bridge.showMessage("Reconnecting…")
	time.Sleep(s.reconnect)
}

func (s *Session) closeHandle() {
	if s.handle == nil {
		return
	}
	s.transport.Close(s.handle)
	s.handle = nil
}
