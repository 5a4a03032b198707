package mcp2515

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardIDRoundTrip(t *testing.T) {
	var quad [4]byte
	for sid := uint16(0); sid <= 0x7FF; sid++ {
		encodeID(quad[:], StandardID(sid), false)
		id, extended := decodeID(quad[:])
		require.False(t, extended, "sid 0x%03X decoded as extended", sid)
		require.Equal(t, sid, id.Standard(), "sid 0x%03X", sid)
	}
}

func TestExtendedIDRoundTrip(t *testing.T) {
	ids := []uint32{0, 1, 0x34D, 0x1D0CAFC8, 0x1FFFFFFF, 0x0003FFFF, 0x1FFC0000}
	for bit := 0; bit < 29; bit++ {
		ids = append(ids, 1<<bit)
	}
	var quad [4]byte
	for _, v := range ids {
		encodeID(quad[:], ExtendedID(v), true)
		assert.NotZero(t, quad[1]&0x08, "EXIDE missing for 0x%08X", v)
		id, extended := decodeID(quad[:])
		require.True(t, extended, "0x%08X decoded as standard", v)
		require.Equal(t, v, id.Extended(), "0x%08X", v)
	}
}

func TestComposeProjections(t *testing.T) {
	id := Compose(0x555, 0x2AFC8)
	assert.Equal(t, ID(0x1556AFC8), id)
	assert.Equal(t, uint16(0x555), id.StandardPart())
	assert.Equal(t, uint32(0x2AFC8), id.ExtendedPart())
}

func TestEncodeIDRegisterLayout(t *testing.T) {
	var quad [4]byte

	// standard: SIDH = id[10:3], SIDL = id[2:0]<<5, EID bytes zero.
	encodeID(quad[:], StandardID(0x555), false)
	assert.Equal(t, [4]byte{0xAA, 0xA0, 0x00, 0x00}, quad)

	// extended composite: EXIDE set, EID[17:16] in SIDL low bits.
	encodeID(quad[:], ExtendedID(0x1D0CAFC8), true)
	assert.Equal(t, [4]byte{0xE8, 0x68, 0xAF, 0xC8}, quad)
}

func TestEncodeMatchExtendedFlag(t *testing.T) {
	var quad [4]byte
	encodeMatch(quad[:], ExtendedID(0x1D0CAFC8), true)
	assert.Equal(t, [4]byte{0xE8, 0x68, 0xAF, 0xC8}, quad)
	encodeMatch(quad[:], ExtendedID(0x1D0CAFC8), false)
	assert.Equal(t, [4]byte{0xE8, 0x60, 0xAF, 0xC8}, quad)
}
