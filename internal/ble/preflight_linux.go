//go:build linux

package ble

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	bluezBus     = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
)

// Preflight checks that BlueZ is on the system bus and the adapter is
// present and powered, so a misconfigured host fails with a clear message
// instead of an endless reconnect loop.
func Preflight(adapterID string) error {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("connect to system bus: %w", err)
	}
	defer conn.Close()

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		return fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == bluezBus {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("org.bluez not found on system bus, is bluetooth.service running?")
	}

	obj := conn.Object(bluezBus, dbus.ObjectPath("/org/bluez/"+adapterID))
	v, err := obj.GetProperty(adapterIface + ".Powered")
	if err != nil {
		return fmt.Errorf("adapter %s: %w", adapterID, err)
	}
	if powered, ok := v.Value().(bool); !ok || !powered {
		return fmt.Errorf("adapter %s is powered off (try: bluetoothctl power on)", adapterID)
	}
	return nil
}
