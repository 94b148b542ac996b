//go:build linux

package ble

import (
	"fmt"

	"tinygo.org/x/bluetooth"
)

func newAdapter(id string) *bluetooth.Adapter {
	return bluetooth.NewAdapter(id)
}

func parseAddress(s string) (bluetooth.Address, error) {
	mac, err := bluetooth.ParseMAC(s)
	if err != nil {
		return bluetooth.Address{}, fmt.Errorf("parse address %q: %w", s, err)
	}
	return bluetooth.Address{MACAddress: bluetooth.MACAddress{MAC: mac}}, nil
}
