package mcp2515

import (
	"github.com/jbmendez/go-mcp2515/internal/metrics"
	"github.com/jbmendez/go-mcp2515/spiproto"
)

// RxFrame is one decoded receive buffer. Filter is the index of the
// acceptance filter that admitted the frame (FILHIT). Data is meaningful for
// the first DLC bytes of data frames only.
type RxFrame struct {
	Type   FrameType
	ID     ID
	DLC    uint8
	Data   [8]byte
	Filter uint8
}

// RxResult holds the decoded state of the selected receive buffers.
// Rollover applies to RXB0 only: it reports that a frame arrived while RXB0
// was still full and spilled into RXB1. Frames[0] then carries RXB0's header
// with the data bytes read from RXB1's data area.
type RxResult struct {
	Buffers  RxBufSet
	Frames   [2]RxFrame
	Rollover bool
}

var rxBank = [2]struct {
	ctrl, d0 spiproto.Addr
}{
	{spiproto.RXB0CTRL, spiproto.RXB0D0},
	{spiproto.RXB1CTRL, spiproto.RXB1D0},
}

// Read decodes every selected receive buffer regardless of whether a new
// frame has arrived; the RX-full interrupt flags say whether the content is
// fresh, and clearing them is left to the caller (ClearInterrupts). Each
// buffer costs one six-byte burst {CTRL, SIDH, SIDL, EID8, EID0, DLC} plus a
// data burst for data frames.
func (d *Dev) Read(sel RxBufSet) (*RxResult, error) {
	if err := d.check(); err != nil {
		return nil, err
	}
	res := &RxResult{Buffers: sel}
	for i, bank := range rxBank {
		if sel&(1<<i) == 0 {
			continue
		}
		var hdr [6]byte
		if err := d.p.Read(bank.ctrl, hdr[:]); err != nil {
			return nil, err
		}
		f := &res.Frames[i]
		if i == 0 {
			f.Filter = hdr[0] & spiproto.FilHit0
		} else {
			f.Filter = hdr[0] & spiproto.FilHitMask
		}
		f.DLC = hdr[5] & spiproto.DLCMask
		id, extended := decodeID(hdr[1:5])
		f.ID = id
		remote := false
		if extended {
			remote = hdr[5]&spiproto.RTR != 0
		} else {
			remote = hdr[2]&spiproto.SRR != 0
		}
		switch {
		case extended && remote:
			f.Type = ExtendedRemote
		case extended:
			f.Type = ExtendedData
		case remote:
			f.Type = StandardRemote
		default:
			f.Type = StandardData
		}
		if !remote {
			src := bank.d0
			if i == 0 && rolledOver(hdr[0]) {
				// BUKT|BUKT1|FILHIT0 at or above the rollover
				// codepoints means the frame landed in RXB1.
				res.Rollover = true
				src = spiproto.RXB1D0
				metrics.IncRollover()
			}
			n := f.DLC
			if n > 8 {
				n = 8
			}
			if n > 0 {
				if err := d.p.Read(src, f.Data[:n]); err != nil {
					return nil, err
				}
			}
		}
		metrics.IncFramesRx()
	}
	return res, nil
}

func rolledOver(ctrl byte) bool {
	return ctrl&(spiproto.BUKT|spiproto.BUKT1|spiproto.FilHit0) >= spiproto.RolloverFilter0
}
