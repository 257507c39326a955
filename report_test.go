package main

import (
	"errors"
	"testing"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name    string
		sub     byte
		maxLen  int
		wantErr bool
	}{
		{"battery query, full frame", subBatteryStatus, 65, false},
		{"cable query, short frame", subCableStatus, 9, false},
		{"minimum usable frame", subConnectionStatus, 2, false},
		{"zero length", subBatteryStatus, 0, true},
		{"negative length", subBatteryStatus, -3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := buildQuery(tt.sub, tt.maxLen)
			if tt.wantErr {
				if !errors.Is(err, errInvalidLength) {
					t.Fatalf("buildQuery(0x%02X, %d) err = %v, want errInvalidLength", tt.sub, tt.maxLen, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildQuery(0x%02X, %d) err = %v", tt.sub, tt.maxLen, err)
			}
			if len(buf) != tt.maxLen {
				t.Fatalf("len = %d, want %d", len(buf), tt.maxLen)
			}
			if buf[0] != queryReportID {
				t.Errorf("byte 0 = 0x%02X, want 0x%02X", buf[0], queryReportID)
			}
			if buf[1] != tt.sub {
				t.Errorf("byte 1 = 0x%02X, want 0x%02X", buf[1], tt.sub)
			}
			for i := 2; i < len(buf); i++ {
				if buf[i] != 0 {
					t.Errorf("byte %d = 0x%02X, want zero padding", i, buf[i])
				}
			}
		})
	}
}

func TestDecodeReport(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want any
	}{
		{"connection status linked", []byte{0x66, 0x0D, 0x01}, connectionStatusEvent{connected: true}},
		{"connection status dropped", []byte{0x66, 0x0D, 0x00}, connectionStatusEvent{connected: false}},
		{"connection status echo", []byte{0x66, 0x82, 0x02}, connectionStatusEvent{connected: true}},
		{"cable plugged in", []byte{0x66, 0x8A, 0x01}, cableStatusEvent{pluggedIn: true}},
		{"cable unplugged", []byte{0x66, 0x8A, 0x00}, cableStatusEvent{pluggedIn: false}},
		{"cable flag other than one", []byte{0x66, 0x8A, 0x02}, cableStatusEvent{pluggedIn: false}},
		{"battery changed while plugged", []byte{0x66, 0x0C, 0x01}, batteryChangedEvent{pluggedIn: true}},
		{"battery changed unplugged", []byte{0x66, 0x0C, 0x00}, batteryChangedEvent{pluggedIn: false}},
		{"battery level mid", []byte{0x66, 0x89, 0x00, 0x00, 45}, batteryLevelEvent{percent: 45}},
		{"battery level zero", []byte{0x66, 0x89, 0x00, 0x00, 0}, batteryLevelEvent{percent: 0}},
		{"battery level full", []byte{0x66, 0x89, 0x00, 0x00, 100}, batteryLevelEvent{percent: 100}},
		{"battery level out of range", []byte{0x66, 0x89, 0x00, 0x00, 101}, nil},
		{"battery level garbage", []byte{0x66, 0x89, 0x00, 0x00, 0xFF}, nil},
		{"battery with wrong report id", []byte{0x00, 0x89, 0x00, 0x00, 45}, nil},
		{"battery frame too short", []byte{0x66, 0x89, 0x00, 0x00}, nil},
		{"unknown kind", []byte{0x66, 0x42, 0x01}, nil},
		{"empty buffer", nil, nil},
		{"one byte", []byte{0x66}, nil},
		{"two bytes", []byte{0x66, 0x0D}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeReport(tt.buf)
			if got != tt.want {
				t.Errorf("decodeReport(% 02X) = %#v, want %#v", tt.buf, got, tt.want)
			}
		})
	}
}

func TestDecodeReportAllLevels(t *testing.T) {
	for pct := 0; pct <= 100; pct++ {
		got := decodeReport([]byte{queryReportID, subBatteryStatus, 0x00, 0x00, byte(pct)})
		if got != (batteryLevelEvent{percent: pct}) {
			t.Fatalf("decodeReport(level %d) = %#v", pct, got)
		}
	}
	for pct := 101; pct <= 255; pct++ {
		if got := decodeReport([]byte{queryReportID, subBatteryStatus, 0x00, 0x00, byte(pct)}); got != nil {
			t.Fatalf("decodeReport(level %d) = %#v, want nil", pct, got)
		}
	}
}

// decodeReport must be total: no buffer of any length or content may
// make it panic.
func TestDecodeReportIsTotal(t *testing.T) {
	for l := 0; l <= 70; l++ {
		buf := make([]byte, l)
		for i := range buf {
			buf[i] = byte(i*7 + l)
		}
		_ = decodeReport(buf)
	}
	for b := 0; b < 256; b++ {
		_ = decodeReport([]byte{queryReportID, byte(b), 0x01, 0x00, 50})
	}
}
