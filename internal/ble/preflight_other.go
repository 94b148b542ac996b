//go:build !linux

package ble

// Preflight is a no-op where BlueZ is not used.
func Preflight(string) error {
	return nil
}
