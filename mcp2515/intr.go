package mcp2515

import "github.com/jbmendez/go-mcp2515/spiproto"

// Interrupt is a CANINTE/CANINTF bit set.
type Interrupt byte

const (
	IntMessageError Interrupt = 0x80
	IntWakeUp       Interrupt = 0x40
	IntError        Interrupt = 0x20
	IntTXB2Empty    Interrupt = 0x10
	IntTXB1Empty    Interrupt = 0x08
	IntTXB0Empty    Interrupt = 0x04
	IntRXB1Full     Interrupt = 0x02
	IntRXB0Full     Interrupt = 0x01
)

// ErrorFlag is an EFLG bit set.
type ErrorFlag byte

const (
	ErrorRXB1Overflow ErrorFlag = 0x80
	ErrorRXB0Overflow ErrorFlag = 0x40
	ErrorBusOff       ErrorFlag = 0x20
	ErrorTxPassive    ErrorFlag = 0x10
	ErrorRxPassive    ErrorFlag = 0x08
	ErrorTxWarning    ErrorFlag = 0x04
	ErrorRxWarning    ErrorFlag = 0x02
	ErrorWarning      ErrorFlag = 0x01
)

// EnableInterrupts writes CANINTE whole: bits absent from mask are disabled.
// Enabled interrupts drive the chip's INT pin low until their flags clear.
func (d *Dev) EnableInterrupts(mask Interrupt) error {
	if err := d.check(); err != nil {
		return err
	}
	return d.p.Write(spiproto.CANINTE, []byte{byte(mask)})
}

// InterruptStatus reads CANINTF.
func (d *Dev) InterruptStatus() (Interrupt, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	var b [1]byte
	if err := d.p.Read(spiproto.CANINTF, b[:]); err != nil {
		return 0, err
	}
	return Interrupt(b[0]), nil
}

// ClearInterrupts zeroes the selected CANINTF flags; unselected flags are
// untouched.
func (d *Dev) ClearInterrupts(mask Interrupt) error {
	if err := d.check(); err != nil {
		return err
	}
	return d.p.BitModify(spiproto.CANINTF, byte(mask), 0)
}

// ErrorStatus reads EFLG.
func (d *Dev) ErrorStatus() (ErrorFlag, error) {
	if err := d.check(); err != nil {
		return 0, err
	}
	var b [1]byte
	if err := d.p.Read(spiproto.EFLG, b[:]); err != nil {
		return 0, err
	}
	return ErrorFlag(b[0]), nil
}

// ClearErrors zeroes the selected EFLG flags. Only the two overflow flags
// actually clear through this path; the remaining bits track the TEC/REC
// counters and ignore the write. Dropping the counters themselves takes a
// round-trip through configuration mode (SetMode).
func (d *Dev) ClearErrors(mask ErrorFlag) error {
	if err := d.check(); err != nil {
		return err
	}
	return d.p.BitModify(spiproto.EFLG, byte(mask), 0)
}

// ErrorCounters reads the TEC and REC transmit/receive error counters.
func (d *Dev) ErrorCounters() (tec, rec uint8, err error) {
	if err := d.check(); err != nil {
		return 0, 0, err
	}
	var b [2]byte
	if err := d.p.Read(spiproto.TEC, b[:]); err != nil {
		return 0, 0, err
	}
	return b[0], b[1], nil
}
