package mcp2515

import (
	"github.com/jbmendez/go-mcp2515/internal/metrics"
	"github.com/jbmendez/go-mcp2515/spiproto"
)

// FrameType tags the four CAN frame shapes.
type FrameType uint8

const (
	StandardData FrameType = iota
	ExtendedData
	StandardRemote
	ExtendedRemote
)

func (t FrameType) extended() bool { return t == ExtendedData || t == ExtendedRemote }
func (t FrameType) remote() bool   { return t == StandardRemote || t == ExtendedRemote }

func (t FrameType) String() string {
	switch t {
	case StandardData:
		return "std-data"
	case ExtendedData:
		return "ext-data"
	case StandardRemote:
		return "std-remote"
	case ExtendedRemote:
		return "ext-remote"
	}
	return "unknown"
}

// TxFrame is one frame to load into a transmit buffer. Data beyond DLC is
// ignored, as is the whole data array for remote frames.
type TxFrame struct {
	Type FrameType
	ID   ID
	DLC  uint8
	Data [8]byte
}

// TxRequest selects transmit buffers and supplies one frame per selected
// buffer (Frames[0] for TXB0 and so on).
type TxRequest struct {
	Buffers TxBufSet
	Frames  [3]TxFrame
}

// TxState is the decoded transmission state of a TX buffer.
type TxState uint8

const (
	TxPending TxState = iota
	TxLostArbitration
	TxBusError
	TxBusErrorLostArbitration
	TxAborted
	TxSuccess
)

func (s TxState) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxLostArbitration:
		return "lost_arbitration"
	case TxBusError:
		return "bus_error"
	case TxBusErrorLostArbitration:
		return "bus_error_lost_arbitration"
	case TxAborted:
		return "aborted"
	case TxSuccess:
		return "success"
	}
	return "unknown"
}

// txBank maps a buffer ordinal to its register addresses; the per-buffer
// logic is identical, only the bank base moves.
var txBank = [3]struct {
	ctrl, sidh, d0 spiproto.Addr
}{
	{spiproto.TXB0CTRL, spiproto.TXB0SIDH, spiproto.TXB0D0},
	{spiproto.TXB1CTRL, spiproto.TXB1SIDH, spiproto.TXB1D0},
	{spiproto.TXB2CTRL, spiproto.TXB2SIDH, spiproto.TXB2D0},
}

// Send loads and transmits every selected buffer in fixed order TXB0, TXB1,
// TXB2 — each one is encoded, requested via TXREQ and waited on for its
// worst-case on-bus time before the next begins. The fixed ordering
// overrides the chip's own TXP buffer priorities. A DLC above 8 on any
// selected buffer rejects the whole request before any SPI traffic.
func (d *Dev) Send(req *TxRequest) error {
	if err := d.check(); err != nil {
		return err
	}
	for i := range txBank {
		if req.Buffers&(1<<i) != 0 && req.Frames[i].DLC > 8 {
			return ErrDLC
		}
	}
	for i, bank := range txBank {
		if req.Buffers&(1<<i) == 0 {
			continue
		}
		f := &req.Frames[i]
		var burst [5]byte
		encodeID(burst[:4], f.ID, f.Type.extended())
		burst[4] = f.DLC & spiproto.DLCMask
		if f.Type.remote() {
			burst[4] |= spiproto.RTR
		}
		if err := d.p.Write(bank.sidh, burst[:]); err != nil {
			return err
		}
		if !f.Type.remote() && f.DLC > 0 {
			if err := d.p.Write(bank.d0, f.Data[:f.DLC]); err != nil {
				return err
			}
		}
		if err := d.p.BitModify(bank.ctrl, spiproto.TXREQ, spiproto.TXREQ); err != nil {
			return err
		}
		metrics.IncFramesTx()
		d.delay(txWaitMicros(f.Type, f.DLC, d.cfg.Rate))
	}
	return nil
}

// txWaitMicros is the worst-case on-bus duration of a frame in microseconds,
// using the bit-stuffing worst case:
//
//	standard data:   8n + 44 + (33+8n)/4 bits
//	extended data:   8n + 64 + (53+8n)/4 bits
//	standard remote: 50 bits
//	extended remote: 73 bits
func txWaitMicros(t FrameType, dlc uint8, rate BitRate) uint32 {
	usPerBit := uint32(1_000_000) / uint32(rate)
	n := uint32(dlc)
	var bits uint32
	switch t {
	case StandardData:
		bits = 8*n + 44 + (33+8*n)/4
	case ExtendedData:
		bits = 8*n + 64 + (53+8*n)/4
	case StandardRemote:
		bits = 50
	case ExtendedRemote:
		bits = 73
	}
	return bits * usPerBit
}

// TxStatus reads TXBnCTRL for exactly one buffer and decodes it. The
// combined TXERR+MLOA case is checked before either single-flag case.
func (d *Dev) TxStatus(buf TxBufSet) (TxState, error) {
	if err := d.check(); err != nil {
		return TxPending, err
	}
	var bank spiproto.Addr
	switch buf {
	case TXB0:
		bank = spiproto.TXB0CTRL
	case TXB1:
		bank = spiproto.TXB1CTRL
	case TXB2:
		bank = spiproto.TXB2CTRL
	default:
		return TxPending, ErrBuffer
	}
	var ctrl [1]byte
	if err := d.p.Read(bank, ctrl[:]); err != nil {
		return TxPending, err
	}
	st := decodeTxState(ctrl[0])
	metrics.TxStates.WithLabelValues(st.String()).Inc()
	return st, nil
}

func decodeTxState(ctrl byte) TxState {
	switch {
	case ctrl&spiproto.TXREQ != 0 && ctrl&spiproto.ABTF == 0:
		switch {
		case ctrl&(spiproto.TXERR|spiproto.MLOA) == spiproto.TXERR|spiproto.MLOA:
			return TxBusErrorLostArbitration
		case ctrl&spiproto.TXERR != 0:
			return TxBusError
		case ctrl&spiproto.MLOA != 0:
			return TxLostArbitration
		default:
			return TxPending
		}
	case ctrl&spiproto.ABTF != 0:
		return TxAborted
	default:
		return TxSuccess
	}
}

// Abort clears TXREQ on every selected buffer. A frame already on the wire
// keeps transmitting; abort only cancels requests that have not won the bus.
func (d *Dev) Abort(bufs TxBufSet) error {
	if err := d.check(); err != nil {
		return err
	}
	for i, bank := range txBank {
		if bufs&(1<<i) == 0 {
			continue
		}
		if err := d.p.BitModify(bank.ctrl, spiproto.TXREQ, 0); err != nil {
			return err
		}
	}
	return nil
}

// AbortAll pulses ABAT in CANCTRL: set to abort every pending request, then
// clear so new transmissions are possible.
func (d *Dev) AbortAll() error {
	if err := d.check(); err != nil {
		return err
	}
	if err := d.p.BitModify(spiproto.CANCTRL, spiproto.ABAT, spiproto.ABAT); err != nil {
		return err
	}
	return d.p.BitModify(spiproto.CANCTRL, spiproto.ABAT, 0)
}
