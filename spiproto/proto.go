// Package spiproto implements the MCP2515 SPI instruction set: RESET, WRITE,
// READ and BIT MODIFY, plus the single-byte READ STATUS and RX STATUS polls.
// Every instruction is issued as one chip-select-framed transaction followed
// by a 50 µs settling delay; the datasheet documents no minimum inter-command
// gap, so the delay is applied uniformly after every transfer.
package spiproto

import (
	"errors"

	"github.com/jbmendez/go-mcp2515/internal/metrics"
	"github.com/jbmendez/go-mcp2515/spi"
)

// Instruction opcodes.
const (
	insReset      = 0xC0
	insWrite      = 0x02
	insRead       = 0x03
	insBitModify  = 0x05
	insReadStatus = 0xA0
	insRxStatus   = 0xB0
)

// DefaultOscHz is the crystal on the supported CAN boards. The oscillator
// start-up timer holds the chip in reset for 128 clock periods.
const DefaultOscHz = 8_000_000

// OSTMicros returns the post-reset oscillator start-up wait in microseconds
// for the given crystal frequency: 128_000_000/oscHz milliseconds, i.e.
// 16 ms at 8 MHz. That is a thousand times the chip's 128-period timer.
func OSTMicros(oscHz uint32) uint32 {
	return uint32(128_000_000/uint64(oscHz)) * 1000
}

// settleUs follows every completed transaction.
const settleUs = 50

var errTooLong = errors.New("spiproto: transaction does not fit into message buffer")

// Proto issues MCP2515 instructions over a Conn. It is the single point of
// SPI sequencing for a chip; methods must not be called concurrently.
type Proto struct {
	conn  spi.Conn
	delay spi.DelayFunc
	oscHz uint32
	buf   [32]byte
}

// New returns a Proto speaking to conn, blocking through delay. A nil delay
// falls back to spi.Sleep.
func New(conn spi.Conn, delay spi.DelayFunc) *Proto {
	if delay == nil {
		delay = spi.Sleep
	}
	return &Proto{conn: conn, delay: delay, oscHz: DefaultOscHz}
}

// Reset issues the RESET instruction, waits for instruction processing and
// then for the oscillator start-up timer. The chip comes back in
// configuration mode with all registers at their datasheet defaults.
func (p *Proto) Reset() error {
	p.buf[0] = insReset
	if err := p.conn.TxRx(p.buf[:1], nil); err != nil {
		return err
	}
	metrics.IncSPI()
	p.delay(settleUs)
	p.delay(OSTMicros(p.oscHz))
	return nil
}

// Write stores data starting at addr; the chip auto-increments the address
// for every byte after the first.
func (p *Proto) Write(addr Addr, data []byte) error {
	if 2+len(data) > len(p.buf) {
		return errTooLong
	}
	p.buf[0] = insWrite
	p.buf[1] = byte(addr)
	n := copy(p.buf[2:], data) + 2
	return p.finish(p.buf[:n], nil)
}

// Read fills buf with len(buf) bytes starting at addr.
func (p *Proto) Read(addr Addr, buf []byte) error {
	n := 2 + len(buf)
	if n > len(p.buf) {
		return errTooLong
	}
	p.buf[0] = insRead
	p.buf[1] = byte(addr)
	for i := 2; i < n; i++ {
		p.buf[i] = 0
	}
	if err := p.finish(p.buf[:n], p.buf[:n]); err != nil {
		return err
	}
	copy(buf, p.buf[2:n])
	return nil
}

// BitModify sets the masked bits of addr to value. Only the bit-modifiable
// registers honor the mask; on any other register the chip forces the mask
// to 0xFF, so callers keep BitModify off the plain registers.
func (p *Proto) BitModify(addr Addr, mask, value byte) error {
	p.buf[0] = insBitModify
	p.buf[1] = byte(addr)
	p.buf[2] = mask
	p.buf[3] = value
	return p.finish(p.buf[:4], nil)
}

// Status is the READ STATUS poll result: a condensed byte of the most used
// interrupt and TXREQ flags.
type Status byte

func (st Status) Rx0Full() bool { return st&(1<<0) != 0 }
func (st Status) Rx1Full() bool { return st&(1<<1) != 0 }

// ReadStatus issues the READ STATUS instruction.
func (p *Proto) ReadStatus() (Status, error) {
	p.buf[0] = insReadStatus
	p.buf[1] = 0
	if err := p.finish(p.buf[:2], p.buf[:2]); err != nil {
		return 0, err
	}
	return Status(p.buf[1]), nil
}

// RxStatus is the RX STATUS poll result.
type RxStatus byte

func (st RxStatus) MsgInRxb0() bool     { return st&(1<<6) != 0 }
func (st RxStatus) MsgInRxb1() bool     { return st&(1<<7) != 0 }
func (st RxStatus) ExtendedFrame() bool { return st&(1<<4) != 0 }
func (st RxStatus) RemoteFrame() bool   { return st&(1<<3) != 0 }

// RxStatus issues the RX STATUS instruction.
func (p *Proto) RxStatus() (RxStatus, error) {
	p.buf[0] = insRxStatus
	p.buf[1] = 0
	if err := p.finish(p.buf[:2], p.buf[:2]); err != nil {
		return 0, err
	}
	return RxStatus(p.buf[1]), nil
}

func (p *Proto) finish(tx, rx []byte) error {
	if err := p.conn.TxRx(tx, rx); err != nil {
		return err
	}
	metrics.IncSPI()
	p.delay(settleUs)
	return nil
}
