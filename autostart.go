//go:build windows
// +build windows

package main

import (
	"os"

	"golang.org/x/sys/windows/registry"
)

const (
	runKeyPath  = `Software\Microsoft\Windows\CurrentVersion\Run`
	runKeyValue = "HyperXWM"
)

// isStartupEnabled reports whether the per-user run-on-login entry is
// present.
func isStartupEnabled() bool {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer k.Close()
	_, _, err = k.GetStringValue(runKeyValue)
	return err == nil
}

func setStartupEnabled(enabled bool) {
	k, err := registry.OpenKey(registry.CURRENT_USER, runKeyPath, registry.SET_VALUE)
	if err != nil {
		if logger != nil {
			logger.Printf("[AUTOSTART] open run key failed: %v", err)
		}
		return
	}
	defer k.Close()

	if !enabled {
		if err := k.DeleteValue(runKeyValue); err != nil && logger != nil {
			logger.Printf("[AUTOSTART] delete run value failed: %v", err)
		}
		return
	}
	exePath, err := os.Executable()
	if err != nil {
		if logger != nil {
			logger.Printf("[AUTOSTART] resolve executable failed: %v", err)
		}
		return
	}
	if err := k.SetStringValue(runKeyValue, `"`+exePath+`"`); err != nil && logger != nil {
		logger.Printf("[AUTOSTART] set run value failed: %v", err)
	}
}
