//go:build !linux

package spi

import "fmt"

// Spidev placeholder so non-linux builds compile; spidev is Linux-only.
type Spidev struct{}

func Open(path string) (*Spidev, error) {
	return nil, fmt.Errorf("spidev unsupported on this platform")
}

func (d *Spidev) TxRx(tx, rx []byte) error {
	return fmt.Errorf("spidev unsupported on this platform")
}

func (d *Spidev) Close() error { return nil }
