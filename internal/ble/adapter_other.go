//go:build !linux

package ble

import (
	"errors"

	"tinygo.org/x/bluetooth"
)

func newAdapter(string) *bluetooth.Adapter {
	return bluetooth.DefaultAdapter
}

func parseAddress(string) (bluetooth.Address, error) {
	return bluetooth.Address{}, errors.New("connecting by MAC address is only supported on linux")
}
