// Package spi provides the byte-transport capability consumed by the CAN
// controller driver: a chip-select-framed full-duplex SPI transaction plus a
// blocking microsecond delay. The driver never touches the chip-select line
// itself; every Conn.TxRx call is one complete assert-to-deassert transaction.
package spi

import "time"

// Bus parameters expected by the MCP2515: 8-bit words, MSB first, clock idle
// low with sampling on the leading edge (mode 0). The chip tops out at
// 10 MHz; 6 MHz leaves comfortable margin on typical wiring.
const (
	Mode0       = 0
	WordBits    = 8
	DefaultHz   = 6_000_000
	MaxDeviceHz = 10_000_000
)

// Conn is a single SPI peripheral behind a dedicated chip select. TxRx clocks
// tx out and, when rx is non-nil, stores the bytes clocked in during the same
// transfer into rx (len(rx) == len(tx)). The whole call is one chip-select
// transaction.
type Conn interface {
	TxRx(tx, rx []byte) error
}

// DelayFunc blocks for the given number of microseconds. Wall-clock accuracy
// within roughly ±10% is sufficient for the controller's timing contract.
type DelayFunc func(us uint32)

// Sleep is the default DelayFunc, backed by time.Sleep.
func Sleep(us uint32) {
	time.Sleep(time.Duration(us) * time.Microsecond)
}
