package mcp2515

import "github.com/jbmendez/go-mcp2515/spiproto"

// ID is a packed CAN identifier. For extended frames it is the 29-bit
// composite (standard part in bits 28:18, extended part in bits 17:0); for
// standard frames only the low 11 bits are meaningful. Mask and filter
// values always use the composite layout, matching the chip's register
// banks.
type ID uint32

// StandardID returns the identifier of a standard frame.
func StandardID(sid uint16) ID { return ID(sid) & 0x7FF }

// ExtendedID returns the identifier of an extended frame from the full
// 29-bit value.
func ExtendedID(v uint32) ID { return ID(v) & 0x1FFFFFFF }

// Compose packs a standard part and an 18-bit extended part into the
// composite layout used by extended identifiers, masks and filters.
func Compose(sid uint16, eid uint32) ID {
	return ID(sid&0x7FF)<<18 | ID(eid&0x3FFFF)
}

// Standard projects the 11-bit identifier of a standard frame.
func (id ID) Standard() uint16 { return uint16(id) & 0x7FF }

// Extended projects the 29-bit identifier of an extended frame.
func (id ID) Extended() uint32 { return uint32(id) & 0x1FFFFFFF }

// StandardPart extracts bits 28:18 of the composite layout.
func (id ID) StandardPart() uint16 { return uint16(id>>18) & 0x7FF }

// ExtendedPart extracts bits 17:0 of the composite layout.
func (id ID) ExtendedPart() uint32 { return uint32(id) & 0x3FFFF }

// encodeID packs id into the four-byte {SIDH, SIDL, EID8, EID0} register
// layout. Extended identifiers use the composite packing with EXIDE set in
// SIDL; standard identifiers occupy SIDH plus the top three bits of SIDL,
// with the EID bytes and EXIDE sent as zeros.
func encodeID(dst []byte, id ID, extended bool) {
	if extended {
		v := uint32(id)
		dst[0] = byte(v >> 21)
		dst[1] = byte(v>>13)&spiproto.SIDLStdMask | byte(v>>16)&spiproto.EIDHiMask | spiproto.EXIDE
		dst[2] = byte(v >> 8)
		dst[3] = byte(v)
		return
	}
	sid := uint32(id.Standard())
	dst[0] = byte(sid >> 3)
	dst[1] = byte(sid << 5)
	dst[2] = 0
	dst[3] = 0
}

// encodeMatch is encodeID for the mask and filter banks: the value is always
// the composite layout and EXIDE is driven by the extended-only flag rather
// than by the identifier itself.
func encodeMatch(dst []byte, id ID, extendedOnly bool) {
	v := uint32(id)
	dst[0] = byte(v >> 21)
	dst[1] = byte(v>>13)&spiproto.SIDLStdMask | byte(v>>16)&spiproto.EIDHiMask
	if extendedOnly {
		dst[1] |= spiproto.EXIDE
	}
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}

// decodeID is the inverse of encodeID over a received {SIDH, SIDL, EID8,
// EID0} quad; the IDE bit in SIDL selects the layout.
func decodeID(b []byte) (ID, bool) {
	if b[1]&spiproto.IDE != 0 {
		v := uint32(b[0])<<21 |
			uint32(b[1]&spiproto.SIDLStdMask)<<13 |
			uint32(b[1]&spiproto.EIDHiMask)<<16 |
			uint32(b[2])<<8 |
			uint32(b[3])
		return ID(v), true
	}
	return ID(uint32(b[0])<<3 | uint32(b[1])>>5), false
}
