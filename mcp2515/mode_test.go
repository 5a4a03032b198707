package mcp2515

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Post-reset defaults: configuration mode, no pending interrupts, no errors.
func TestResetDefaults(t *testing.T) {
	d, sim := newSimDev(Config{Rate: Rate125k, Mode: Normal})
	require.NoError(t, d.Init())
	require.NoError(t, d.Reset())

	assert.Equal(t, byte(0x80), sim.Peek(0x0E)&0xE0, "CANSTAT not in configuration mode")
	assert.Equal(t, Configuration, d.Mode())

	st, err := d.InterruptStatus()
	require.NoError(t, err)
	assert.Zero(t, st)

	ef, err := d.ErrorStatus()
	require.NoError(t, err)
	assert.Zero(t, ef)
}

// Mask and filter banks only take writes in configuration mode and keep
// their values across a mode round-trip.
func TestMaskFilterPersistence(t *testing.T) {
	d, sim := newSimDev(Config{Rate: Rate125k, Mode: Configuration})
	require.NoError(t, d.Init())

	mc := &MaskConfig{Select: Mask0 | Mask1, Value: [2]ID{ID(0x1FFC0000), ID(0x1FFFFFFF)}}
	fc := &FilterConfig{Select: Filter0 | Filter2, Extended: Filter2,
		Value: [6]ID{ID(0x15540000), 0, ExtendedID(0x1D0CAFC8)}}
	require.NoError(t, d.SetMasks(mc))
	require.NoError(t, d.SetFilters(fc))

	mask0 := []byte{sim.Peek(0x20), sim.Peek(0x21), sim.Peek(0x22), sim.Peek(0x23)}
	assert.Equal(t, []byte{0xFF, 0xE0, 0x00, 0x00}, mask0)
	filt2 := []byte{sim.Peek(0x08), sim.Peek(0x09), sim.Peek(0x0A), sim.Peek(0x0B)}
	assert.Equal(t, []byte{0xE8, 0x68, 0xAF, 0xC8}, filt2)

	// Outside configuration mode the same writes must have no effect.
	require.NoError(t, d.SetMode(Normal))
	other := &MaskConfig{Select: Mask0, Value: [2]ID{ID(0x07FF0000)}}
	require.NoError(t, d.SetMasks(other))
	assert.Equal(t, mask0[0], sim.Peek(0x20), "mask write stuck outside configuration mode")

	// Back in configuration mode everything reads back unchanged.
	require.NoError(t, d.SetMode(Configuration))
	assert.Equal(t, mask0, []byte{sim.Peek(0x20), sim.Peek(0x21), sim.Peek(0x22), sim.Peek(0x23)})
	assert.Equal(t, filt2, []byte{sim.Peek(0x08), sim.Peek(0x09), sim.Peek(0x0A), sim.Peek(0x0B)})
}

// Bit timing writes are likewise gated on configuration mode.
func TestBitTimingGatedOnMode(t *testing.T) {
	d, sim := newSimDev(Config{Rate: Rate125k, Mode: Normal})
	require.NoError(t, d.Init())

	before := sim.Peek(0x28)
	require.NoError(t, d.SetBitRate(Rate500k))
	assert.Equal(t, before, sim.Peek(0x28), "CNF write stuck outside configuration mode")
}

// Error-passive state clears by entering configuration mode and returning to
// normal: TEC/REC drop to zero and the derived EFLG bits follow.
func TestCounterClearThroughConfiguration(t *testing.T) {
	d, sim := newSimDev(Config{Rate: Rate125k, Mode: Normal})
	require.NoError(t, d.Init())

	sim.Poke(0x1C, 150)  // TEC >= 128
	sim.Poke(0x2D, 0x11) // TXEP | EWARN

	ef, err := d.ErrorStatus()
	require.NoError(t, err)
	require.NotZero(t, ef&ErrorTxPassive)

	require.NoError(t, d.SetMode(Configuration))
	require.NoError(t, d.SetMode(Normal))

	ef, err = d.ErrorStatus()
	require.NoError(t, err)
	assert.Zero(t, ef&ErrorTxPassive)
	assert.Zero(t, ef&ErrorWarning)

	tec, rec, err := d.ErrorCounters()
	require.NoError(t, err)
	assert.Zero(t, tec)
	assert.Zero(t, rec)
}
