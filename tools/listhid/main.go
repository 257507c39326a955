package main

import (
	"fmt"

	"github.com/sstallion/go-hid"
)

// Lists every interface of the headset dongle. Useful when battery
// reports stop showing up.
func main() {
	hid.Init()
	defer hid.Exit()

	fmt.Println("Headset dongle interfaces (VID 0x03F0, PID 0x05B7):")
	count := 0
	hid.Enumerate(0x03F0, 0x05B7, func(info *hid.DeviceInfo) error {
		count++
		fmt.Printf("  [%d] %q usagePage=0x%04x usage=0x%02x iface=%d\n      %s\n",
			count, info.ProductStr, info.UsagePage, info.Usage, info.InterfaceNbr, info.Path)
		return nil
	})
	if count == 0 {
		fmt.Println("  none found")
	}
}
