package mcp2515

import "github.com/jbmendez/go-mcp2515/spiproto"

// MaskSet selects acceptance masks. Mask 0 governs RXB0, mask 1 governs
// RXB1.
type MaskSet uint8

const (
	Mask0 MaskSet = 1 << iota
	Mask1
)

// FilterSet selects acceptance filters. Filters 0–1 feed RXB0, filters 2–5
// feed RXB1.
type FilterSet uint8

const (
	Filter0 FilterSet = 1 << iota
	Filter1
	Filter2
	Filter3
	Filter4
	Filter5
)

// MaskConfig carries composite 29-bit mask values for the selected masks.
type MaskConfig struct {
	Select MaskSet
	Value  [2]ID
}

// FilterConfig carries composite 29-bit filter values for the selected
// filters. A filter whose bit is set in Extended matches only extended
// frames (EXIDE in RXFnSIDL); otherwise it matches only standard frames.
type FilterConfig struct {
	Select   FilterSet
	Extended FilterSet
	Value    [6]ID
}

var maskBank = [2]spiproto.Addr{spiproto.RXM0SIDH, spiproto.RXM1SIDH}

var filterBank = [6]spiproto.Addr{
	spiproto.RXF0SIDH,
	spiproto.RXF1SIDH,
	spiproto.RXF2SIDH,
	spiproto.RXF3SIDH,
	spiproto.RXF4SIDH,
	spiproto.RXF5SIDH,
}

// SetMasks writes the selected mask register quads. The chip only honors
// these writes in configuration mode; outside it they have no effect, which
// the driver does not second-guess.
func (d *Dev) SetMasks(mc *MaskConfig) error {
	if err := d.check(); err != nil {
		return err
	}
	var quad [4]byte
	for i, base := range maskBank {
		if mc.Select&(1<<i) == 0 {
			continue
		}
		encodeMatch(quad[:], mc.Value[i], false)
		if err := d.p.Write(base, quad[:]); err != nil {
			return err
		}
	}
	return nil
}

// SetFilters writes the selected filter register quads, driving EXIDE from
// the per-filter extended flag. Same configuration-mode contract as
// SetMasks.
func (d *Dev) SetFilters(fc *FilterConfig) error {
	if err := d.check(); err != nil {
		return err
	}
	var quad [4]byte
	for i, base := range filterBank {
		if fc.Select&(1<<i) == 0 {
			continue
		}
		encodeMatch(quad[:], fc.Value[i], fc.Extended&(1<<i) != 0)
		if err := d.p.Write(base, quad[:]); err != nil {
			return err
		}
	}
	return nil
}
