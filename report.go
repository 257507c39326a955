package main

import "errors"

// USB identifiers for the wireless headset dongle.
const (
	headsetVendorID  uint16 = 0x03F0
	headsetProductID uint16 = 0x05B7
)

// Outgoing query reports always start with queryReportID; byte 1 selects
// the sub-command and the rest of the buffer is zero padding up to the
// dongle's output report length.
const (
	queryReportID byte = 0x66

	subConnectionStatus byte = 0x82
	subBatteryStatus    byte = 0x89
	subCableStatus      byte = 0x8A
)

// Report kinds the dongle pushes without being asked, seen at byte 1.
const (
	reportConnectionStatus byte = 0x0D
	reportBatteryChanged   byte = 0x0C
)

var errInvalidLength = errors.New("invalid report length")

// buildQuery assembles one outgoing query report of exactly maxLen bytes.
func buildQuery(sub byte, maxLen int) ([]byte, error) {
	if maxLen <= 0 {
		return nil, errInvalidLength
	}
	buf := make([]byte, maxLen)
	buf[0] = queryReportID
	if maxLen > 1 {
		buf[1] = sub
	}
	return buf, nil
}

type connectionStatusEvent struct {
	connected bool
}

type cableStatusEvent struct {
	pluggedIn bool
}

// batteryChangedEvent is the dongle's unsolicited "battery state changed"
// notice. It carries the cable flag but no level; a fresh level has to be
// queried separately.
type batteryChangedEvent struct {
	pluggedIn bool
}

type batteryLevelEvent struct {
	percent int
}

// decodeReport maps a raw incoming buffer to one of the event types
// above. It is total: anything short, malformed or out of range comes
// back as nil and is dropped by the caller, never reported as an error.
func decodeReport(buf []byte) any {
	if len(buf) < 3 {
		return nil
	}
	switch buf[1] {
	case reportConnectionStatus, subConnectionStatus:
		return connectionStatusEvent{connected: buf[2] != 0}
	case subCableStatus:
		return cableStatusEvent{pluggedIn: buf[2] == 1}
	case reportBatteryChanged:
		return batteryChangedEvent{pluggedIn: buf[2] == 1}
	case subBatteryStatus:
		if buf[0] != queryReportID || len(buf) <= 4 {
			return nil
		}
		lvl := int(buf[4])
		if lvl > 100 {
			return nil
		}
		return batteryLevelEvent{percent: lvl}
	}
	return nil
}
