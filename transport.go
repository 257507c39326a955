package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sstallion/go-hid"
)

const (
	readTimeout  = 1500 * time.Millisecond
	writeTimeout = 1000 * time.Millisecond

	// hidapi exposes no output report capability field, so outgoing
	// queries are padded to the usual report-id + 64 byte frame the
	// dongle accepts.
	outputReportLength = 65

	reconnectDelay = 500 * time.Millisecond
)

var (
	errDeviceNotFound = errors.New("headset dongle not found")
	errOpenFailed     = errors.New("can't open device")
	errReadTimeout    = errors.New("read timed out")
)

// Handle is one open dongle interface together with its report geometry
// and timeouts. At most one Handle is open at a time; it is owned
// by the session worker.
type Handle struct {
	dev       *hid.Device
	path      string
	outputLen int
	readTO    time.Duration
	writeTO   time.Duration
}

// Transport is the session's view of HID I/O. The production
// implementation sits on sstallion/go-hid; tests substitute a scripted
// fake.
type Transport interface {
	// FindAndOpen enumerates by vendor/product id and opens the first
	// usable interface. Returns errDeviceNotFound when no dongle is
	// present and errOpenFailed when one is present but can't be
	// opened exclusively.
	FindAndOpen() (*Handle, error)
	// Read blocks up to timeout for one input report. A quiet window
	// is errReadTimeout, not a failure.
	Read(h *Handle, timeout time.Duration) ([]byte, error)
	Write(h *Handle, buf []byte) error
	// Close is idempotent and swallows errors.
	Close(h *Handle)
	MaxOutputLength(h *Handle) int
}

type hidTransport struct{}

func newHIDTransport() *hidTransport {
	return &hidTransport{}
}

func (t *hidTransport) FindAndOpen() (*Handle, error) {
	var candidates []hid.DeviceInfo
	hid.Enumerate(headsetVendorID, headsetProductID, func(info *hid.DeviceInfo) error {
		candidates = append(candidates, *info)
		return nil
	})
	if len(candidates) == 0 {
		return nil, errDeviceNotFound
	}

	// The dongle also exposes audio-control collections that never
	// carry battery reports; prefer the vendor-defined interface.
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		aVnd := a.UsagePage >= 0xFF00
		bVnd := b.UsagePage >= 0xFF00
		if aVnd != bVnd {
			return aVnd
		}
		return a.InterfaceNbr < b.InterfaceNbr
	})

	var lastErr error
	for _, ci := range candidates {
		d, err := hid.OpenPath(ci.Path)
		if err != nil {
			lastErr = err
			continue
		}
		if logger != nil {
			logger.Printf("[TRANSPORT] opened %s (usagePage=0x%04x iface=%d)", ci.Path, ci.UsagePage, ci.InterfaceNbr)
		}
		return &Handle{
			dev:       d,
			path:      ci.Path,
			outputLen: outputReportLength,
			readTO:    readTimeout,
			writeTO:   writeTimeout,
		}, nil
	}
	if lastErr == nil {
		return nil, errOpenFailed
	}
	return nil, fmt.Errorf("%w: %v", errOpenFailed, lastErr)
}

func (t *hidTransport) Read(h *Handle, timeout time.Duration) ([]byte, error) {
	buf := make([]byte, outputReportLength)
	n, err := h.dev.ReadWithTimeout(buf, timeout)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		// hidapi signals an expired wait with a zero-length read
		return nil, errReadTimeout
	}
	frame := make([]byte, n)
	copy(frame, buf[:n])
	return frame, nil
}

func (t *hidTransport) Write(h *Handle, buf []byte) error {
	_, err := h.dev.Write(buf)
	return err
}

func (t *hidTransport) Close(h *Handle) {
	if h == nil || h.dev == nil {
		return
	}
	func() {
		// hid_close on a yanked device can fault inside the driver
		defer func() { _ = recover() }()
		_ = h.dev.Close()
	}()
	h.dev = nil
}

func (t *hidTransport) MaxOutputLength(h *Handle) int {
	if h == nil {
		return 0
	}
	return h.outputLen
}
