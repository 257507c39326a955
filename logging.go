package main

import (
	"log"
	"os"
	"path/filepath"

	"github.com/sstallion/go-hid"
)

// logger is nil until setupLogging runs; every call site nil-guards so
// the core works headless and under test.
var logger *log.Logger

func setupLogging() {
	_ = os.MkdirAll(filepath.Dir(logFile), 0755)
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0666)
	if err != nil {
		f, err = os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			log.Printf("Failed to open log file: %v", err)
			return
		}
	}
	log.SetOutput(f)
	log.SetFlags(log.LstdFlags)
	logger = log.New(f, "", log.LstdFlags)
	logger.Printf("=== HyperXWM v%s started ===", currentVersion)
	logger.Printf("Log file location: %s", logFile)
	scanDongleInterfaces()
}

// scanDongleInterfaces dumps every interface the dongle exposes, which
// is the first thing to look at when battery reports stop arriving.
func scanDongleInterfaces() {
	if logger == nil {
		return
	}
	logger.Printf("=== Scanning for headset dongle (VID 0x%04x PID 0x%04x) ===", headsetVendorID, headsetProductID)
	found := 0
	hid.Enumerate(headsetVendorID, headsetProductID, func(info *hid.DeviceInfo) error {
		logger.Printf("Dongle interface - Prod: %q, UsagePage: 0x%04x, Usage: 0x%02x, If#: %d, Path: %s",
			info.ProductStr, info.UsagePage, info.Usage, info.InterfaceNbr, info.Path)
		found++
		return nil
	})
	if found == 0 {
		logger.Printf("No dongle interfaces present")
	}
}
