package mcp2515

import "github.com/jbmendez/go-mcp2515/spiproto"

// BitRate is a nominal CAN bit rate in bit/s. Only the rates below have
// precomputed bit timing; they all assume the 8 MHz crystal on the supported
// boards. 1 Mbit/s is within the chip's range but is not offered: with an
// 8 MHz oscillator the sample point cannot be kept inside the 60–70% window.
type BitRate uint32

const (
	Rate50k  BitRate = 50_000
	Rate100k BitRate = 100_000
	Rate125k BitRate = 125_000
	Rate250k BitRate = 250_000
	Rate500k BitRate = 500_000
)

// bitTiming is a precomputed {CNF3, CNF2, CNF1} triple. CNF2 carries
// BTLMODE=1 so that PS2 always comes from CNF3; the wake-up filter and
// triple-sample bits are OR'd in per handle when the registers are written.
//
//	rate  BRP PropSeg PS1 PS2 SJW sample  TQ
//	500k    0       2   2   3   1  62.5%  250ns
//	250k    0       4   5   6   1  62.5%  250ns
//	125k    1       3   6   6   1  62.5%  500ns
//	100k    1       6   6   7   1  65.0%  500ns
//	 50k    3       6   6   7   1  65.0%  1µs
type bitTiming struct {
	cnf3, cnf2, cnf1 byte
}

var bitTimings = map[BitRate]bitTiming{
	Rate500k: {cnf3: 0x02, cnf2: spiproto.BTLMODE | 0x08 | 0x01, cnf1: spiproto.SJW1TQ},
	Rate250k: {cnf3: 0x05, cnf2: spiproto.BTLMODE | 0x20 | 0x03, cnf1: spiproto.SJW1TQ},
	Rate125k: {cnf3: 0x05, cnf2: spiproto.BTLMODE | 0x28 | 0x02, cnf1: spiproto.SJW1TQ | 0x01},
	Rate100k: {cnf3: 0x06, cnf2: spiproto.BTLMODE | 0x28 | 0x05, cnf1: spiproto.SJW1TQ | 0x01},
	Rate50k:  {cnf3: 0x06, cnf2: spiproto.BTLMODE | 0x28 | 0x05, cnf1: spiproto.SJW1TQ | 0x03},
}

// SetBitRate programs CNF3..CNF1 for the given rate as a single three-byte
// burst. The chip only makes these registers writable in configuration mode;
// callers switch modes around this (Init does).
func (d *Dev) SetBitRate(rate BitRate) error {
	if err := d.check(); err != nil {
		return err
	}
	t, ok := bitTimings[rate]
	if !ok {
		return ErrBitRate
	}
	cnf3 := t.cnf3
	if d.cfg.WakeFilter {
		cnf3 |= spiproto.WAKFIL
	}
	cnf2 := t.cnf2
	if d.cfg.TripleSample {
		cnf2 |= spiproto.SAM
	}
	return d.p.Write(spiproto.CNF3, []byte{cnf3, cnf2, t.cnf1})
}
