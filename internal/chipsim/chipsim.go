// Package chipsim models enough of an MCP2515 to test the driver against:
// a register file behind the RESET/WRITE/READ/BIT MODIFY/READ STATUS
// instructions, configuration-mode write gating for the timing, mask and
// filter banks, and loopback-mode frame delivery through the acceptance
// logic including RXB0 rollover. It implements spi.Conn, so a Dev binds to
// it like to real hardware.
package chipsim

import (
	"fmt"
	"sync"
)

// Register addresses and bits, kept as raw values so the simulator does not
// depend on the driver packages it is used to test.
const (
	regCANSTAT = 0x0E
	regCANCTRL = 0x0F
	regTEC     = 0x1C
	regREC     = 0x1D
	regRXM0    = 0x20
	regRXM1    = 0x24
	regCNF3    = 0x28
	regCANINTE = 0x2B
	regCANINTF = 0x2C
	regEFLG    = 0x2D

	regTXB0CTRL = 0x30
	regRXB0CTRL = 0x60
	regRXB1CTRL = 0x70

	bitABTF  = 0x40
	bitTXREQ = 0x08
	bitABAT  = 0x10

	bitRXMAny = 0x60
	bitBUKT   = 0x04
	bitBUKT1  = 0x02

	bitEXIDE = 0x08
	bitSRR   = 0x10
	bitRTR   = 0x40

	bitRX1OVR = 0x80
	bitRX0OVR = 0x40

	bitRX0IF = 0x01
	bitRX1IF = 0x02

	modeNormal   = 0x00
	modeLoopback = 0x40
	modeConfig   = 0x80
)

var filterBase = [6]int{0x00, 0x04, 0x08, 0x10, 0x14, 0x18}

// Chip is one simulated controller.
type Chip struct {
	mu   sync.Mutex
	regs [0x80]byte

	// holdTx keeps TXREQ pending on a buffer after a transmission request
	// instead of completing it, so abort and status paths can be
	// exercised.
	holdTx [3]bool
}

// New returns a chip in its power-on state.
func New() *Chip {
	c := &Chip{}
	c.reset()
	return c
}

func (c *Chip) reset() {
	for i := range c.regs {
		c.regs[i] = 0
	}
	// Power-on: configuration mode, CLKOUT enabled at /8 (datasheet
	// default CANCTRL value).
	c.regs[regCANSTAT] = modeConfig
	c.regs[regCANCTRL] = modeConfig | 0x07
}

func (c *Chip) mode() byte { return c.regs[regCANSTAT] & 0xE0 }

// TxRx decodes one chip-select-framed instruction.
func (c *Chip) TxRx(tx, rx []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(tx) == 0 {
		return fmt.Errorf("chipsim: empty transaction")
	}
	if rx != nil && len(rx) != len(tx) {
		return fmt.Errorf("chipsim: rx length %d != tx length %d", len(rx), len(tx))
	}
	switch tx[0] {
	case 0xC0: // RESET
		c.reset()
	case 0x02: // WRITE
		if len(tx) < 3 {
			return fmt.Errorf("chipsim: short write")
		}
		addr := int(tx[1])
		for i, v := range tx[2:] {
			c.writeReg(addr+i, v)
		}
	case 0x03: // READ
		if len(tx) < 3 {
			return fmt.Errorf("chipsim: short read")
		}
		if rx == nil {
			return fmt.Errorf("chipsim: read without rx buffer")
		}
		addr := int(tx[1])
		for i := 0; i < len(tx)-2; i++ {
			rx[2+i] = c.readReg(addr + i)
		}
	case 0x05: // BIT MODIFY
		if len(tx) < 4 {
			return fmt.Errorf("chipsim: short bit modify")
		}
		c.bitModify(int(tx[1]), tx[2], tx[3])
	case 0xA0: // READ STATUS
		if rx == nil || len(rx) < 2 {
			return fmt.Errorf("chipsim: read status without rx buffer")
		}
		rx[1] = c.quickStatus()
	default:
		return fmt.Errorf("chipsim: unknown instruction 0x%02X", tx[0])
	}
	return nil
}

func (c *Chip) quickStatus() byte {
	var st byte
	st |= c.regs[regCANINTF] & (bitRX0IF | bitRX1IF)
	for i := 0; i < 3; i++ {
		ctrl := c.regs[regTXB0CTRL+i*0x10]
		if ctrl&bitTXREQ != 0 {
			st |= 1 << (2 + 2*i)
		}
	}
	return st
}

// configOnly reports registers that the chip makes writable (and readable as
// non-zero) only in configuration mode: the filter, mask and CNF banks.
func configOnly(addr int) bool {
	switch {
	case addr <= 0x0B:
		return true
	case addr >= 0x10 && addr <= 0x1B:
		return true
	case addr >= regRXM0 && addr <= 0x27:
		return true
	case addr >= regCNF3 && addr <= 0x2A:
		return true
	}
	return false
}

func (c *Chip) readReg(addr int) byte {
	if addr < 0 || addr >= len(c.regs) {
		return 0
	}
	if configOnly(addr) && c.mode() != modeConfig {
		return 0
	}
	return c.regs[addr]
}

func (c *Chip) writeReg(addr int, v byte) {
	if addr < 0 || addr >= len(c.regs) {
		return
	}
	if configOnly(addr) && c.mode() != modeConfig {
		return
	}
	switch addr {
	case regCANCTRL:
		c.writeCanctrl(v)
	case regCANSTAT, regTEC, regREC:
		// read-only from the bus
	case regTXB0CTRL, regTXB0CTRL + 0x10, regTXB0CTRL + 0x20:
		buf := (addr - regTXB0CTRL) / 0x10
		prev := c.regs[addr]
		c.regs[addr] = v
		if prev&bitTXREQ == 0 && v&bitTXREQ != 0 {
			c.transmit(buf)
		}
	default:
		c.regs[addr] = v
	}
}

// bit-modifiable registers per datasheet; anywhere else the mask is forced
// to 0xFF.
func bitModifiable(addr int) bool {
	switch addr {
	case regCANCTRL, regCANINTE, regCANINTF, regEFLG,
		0x0C, 0x0D, regCNF3, 0x29, 0x2A,
		regTXB0CTRL, regTXB0CTRL + 0x10, regTXB0CTRL + 0x20,
		regRXB0CTRL, regRXB1CTRL:
		return true
	}
	return false
}

func (c *Chip) bitModify(addr int, mask, v byte) {
	if addr < 0 || addr >= len(c.regs) {
		return
	}
	if !bitModifiable(addr) {
		mask = 0xFF
	}
	if configOnly(addr) && c.mode() != modeConfig {
		return
	}
	switch addr {
	case regCANCTRL:
		c.writeCanctrl(c.regs[addr]&^mask | v&mask)
	case regEFLG:
		// only the overflow flags are host-clearable
		mask &= bitRX1OVR | bitRX0OVR
		c.regs[addr] = c.regs[addr]&^mask | v&mask
	case regTXB0CTRL, regTXB0CTRL + 0x10, regTXB0CTRL + 0x20:
		buf := (addr - regTXB0CTRL) / 0x10
		prev := c.regs[addr]
		next := prev&^mask | v&mask
		c.regs[addr] = next
		if prev&bitTXREQ == 0 && next&bitTXREQ != 0 {
			c.transmit(buf)
		}
		if prev&bitTXREQ != 0 && next&bitTXREQ == 0 && c.holdTx[buf] {
			c.regs[addr] |= bitABTF
		}
	default:
		c.regs[addr] = c.regs[addr]&^mask | v&mask
	}
}

func (c *Chip) writeCanctrl(v byte) {
	prev := c.regs[regCANCTRL]
	c.regs[regCANCTRL] = v
	c.regs[regCANSTAT] = c.regs[regCANSTAT]&^0xE0 | v&0xE0
	if v&bitABAT != 0 && prev&bitABAT == 0 {
		for i := 0; i < 3; i++ {
			addr := regTXB0CTRL + i*0x10
			if c.regs[addr]&bitTXREQ != 0 {
				c.regs[addr] &^= bitTXREQ
				c.regs[addr] |= bitABTF
			}
		}
	}
	if v&0xE0 == modeConfig {
		// entering configuration resets the error counters and the
		// flags derived from them; latched overflow flags survive.
		c.regs[regTEC] = 0
		c.regs[regREC] = 0
		c.regs[regEFLG] &= bitRX1OVR | bitRX0OVR
	}
}

// transmit completes a transmission request. In loopback mode the frame runs
// through the acceptance logic; otherwise (no bus attached to a simulator)
// the request completes successfully unless the buffer is held.
func (c *Chip) transmit(buf int) {
	base := regTXB0CTRL + buf*0x10
	if c.holdTx[buf] {
		return
	}
	if c.mode() == modeLoopback {
		var frame [13]byte
		copy(frame[:], c.regs[base+1:base+14])
		c.deliver(frame)
	}
	c.regs[base] &^= bitTXREQ | bitABTF | 0x30
}

// deliver runs a frame (SIDH..EID0, DLC, D0..D7) through acceptance:
// RXB0 with mask 0 / filters 0–1 first, rollover or RXB1 with mask 1 /
// filters 2–5 second.
func (c *Chip) deliver(frame [13]byte) {
	extended := frame[1]&bitEXIDE != 0

	if c.accepts(0, frame, extended) {
		if c.regs[regCANINTF]&bitRX0IF == 0 {
			c.store(regRXB0CTRL, frame, extended)
			c.regs[regRXB0CTRL] &^= bitBUKT1
			c.regs[regCANINTF] |= bitRX0IF
			return
		}
		if c.regs[regRXB0CTRL]&bitBUKT != 0 && c.regs[regCANINTF]&bitRX1IF == 0 {
			// RXB0 full: spill into RXB1, flagged through the
			// composite BUKT|BUKT1 field of RXB0CTRL.
			c.store(regRXB1CTRL, frame, extended)
			c.regs[regRXB0CTRL] |= bitBUKT1
			c.regs[regCANINTF] |= bitRX1IF
			return
		}
		c.regs[regEFLG] |= bitRX0OVR
		return
	}
	if c.accepts(1, frame, extended) {
		if c.regs[regCANINTF]&bitRX1IF == 0 {
			c.store(regRXB1CTRL, frame, extended)
			c.regs[regCANINTF] |= bitRX1IF
			return
		}
		c.regs[regEFLG] |= bitRX1OVR
	}
}

// accepts runs the acceptance logic of one receive buffer and records the
// hit filter in its FILHIT field.
func (c *Chip) accepts(rxb int, frame [13]byte, extended bool) bool {
	ctrlAddr := regRXB0CTRL
	maskBase := regRXM0
	filters := []int{0, 1}
	if rxb == 1 {
		ctrlAddr = regRXB1CTRL
		maskBase = regRXM1
		filters = []int{2, 3, 4, 5}
	}
	if c.regs[ctrlAddr]&bitRXMAny == bitRXMAny {
		c.setFilhit(rxb, ctrlAddr, filters[0])
		return true
	}
	mask := c.quadValue(maskBase)
	id := c.frameValue(frame, extended)
	for _, f := range filters {
		fsidl := c.regs[filterBase[f]+1]
		if extended != (fsidl&bitEXIDE != 0) {
			continue
		}
		fval := c.quadValue(filterBase[f])
		m := mask
		if !extended {
			// standard frames match on the SID bits only
			m &= 0x7FF << 18
		}
		if id&m == fval&m {
			c.setFilhit(rxb, ctrlAddr, f)
			return true
		}
	}
	return false
}

func (c *Chip) setFilhit(rxb int, ctrlAddr, filter int) {
	if rxb == 0 {
		c.regs[ctrlAddr] = c.regs[ctrlAddr]&^0x01 | byte(filter&0x01)
		return
	}
	c.regs[ctrlAddr] = c.regs[ctrlAddr]&^0x07 | byte(filter&0x07)
}

// quadValue decodes a mask/filter register quad into the composite 29-bit
// layout.
func (c *Chip) quadValue(base int) uint32 {
	sidh := uint32(c.regs[base])
	sidl := uint32(c.regs[base+1])
	eid8 := uint32(c.regs[base+2])
	eid0 := uint32(c.regs[base+3])
	return sidh<<21 | (sidl&0xE0)<<13 | (sidl&0x03)<<16 | eid8<<8 | eid0
}

// frameValue maps a frame's identifier bytes into the composite layout used
// for matching.
func (c *Chip) frameValue(frame [13]byte, extended bool) uint32 {
	sidh := uint32(frame[0])
	sidl := uint32(frame[1])
	if extended {
		return sidh<<21 | (sidl&0xE0)<<13 | (sidl&0x03)<<16 | uint32(frame[2])<<8 | uint32(frame[3])
	}
	return (sidh<<3 | sidl>>5) << 18
}

// store copies a transmitted frame into a receive buffer bank, translating
// the TX remote marking into the received form: SRR for standard frames,
// RTR in the DLC for extended ones.
func (c *Chip) store(ctrlAddr int, frame [13]byte, extended bool) {
	remote := frame[4]&bitRTR != 0
	sidl := frame[1] &^ (bitSRR | bitEXIDE)
	if extended {
		sidl |= bitEXIDE
	}
	dlc := frame[4] & 0x0F
	stored := frame
	stored[1] = sidl
	stored[4] = dlc
	if remote {
		if extended {
			stored[4] |= bitRTR
		} else {
			stored[1] |= bitSRR
		}
	}
	copy(c.regs[ctrlAddr+1:ctrlAddr+14], stored[:])
}

// HoldTx pins a transmit buffer: requests stay pending until aborted or
// released, letting tests drive the status and abort paths.
func (c *Chip) HoldTx(buf int, hold bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.holdTx[buf] = hold
}

// Poke writes a raw register value, bypassing gating — for forcing error
// bits and counters that only the CAN protocol engine would set.
func (c *Chip) Poke(addr int, v byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[addr] = v
}

// Peek reads a raw register value, bypassing gating.
func (c *Chip) Peek(addr int) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[addr]
}
