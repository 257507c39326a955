package main

import (
	"fmt"
	"log"
	"time"

	"github.com/sstallion/go-hid"
)

// Opens the headset dongle, sends the connection/cable/battery queries
// and hex-dumps everything that comes back for ten seconds.
func main() {
	hid.Init()
	defer hid.Exit()

	var device *hid.Device
	hid.Enumerate(0x03F0, 0x05B7, func(info *hid.DeviceInfo) error {
		if device != nil {
			return nil
		}
		if d, err := hid.OpenPath(info.Path); err == nil {
			fmt.Printf("opened %s (usagePage=0x%04x iface=%d)\n", info.Path, info.UsagePage, info.InterfaceNbr)
			device = d
		}
		return nil
	})
	if device == nil {
		log.Fatal("dongle not found")
	}
	defer device.Close()

	for _, sub := range []byte{0x82, 0x8A, 0x89} {
		buf := make([]byte, 65)
		buf[0] = 0x66
		buf[1] = sub
		if _, err := device.Write(buf); err != nil {
			log.Printf("query 0x%02x failed: %v", sub, err)
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	buf := make([]byte, 65)
	for time.Now().Before(deadline) {
		n, err := device.ReadWithTimeout(buf, 1500*time.Millisecond)
		if err != nil {
			log.Fatal(err)
		}
		if n == 0 {
			fmt.Println("(timeout)")
			continue
		}
		fmt.Printf("report:")
		for i := 0; i < n; i++ {
			fmt.Printf(" %02x", buf[i])
		}
		fmt.Println()
	}
}
