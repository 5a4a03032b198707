package mcp2515

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableInterruptsWritesWholeRegister(t *testing.T) {
	d, sim := newSimDev(Config{Rate: Rate125k, Mode: Normal})
	require.NoError(t, d.Init())

	require.NoError(t, d.EnableInterrupts(IntRXB0Full|IntRXB1Full|IntError))
	assert.Equal(t, byte(0x23), sim.Peek(0x2B))

	// Bits absent from a later mask become disabled.
	require.NoError(t, d.EnableInterrupts(IntRXB0Full))
	assert.Equal(t, byte(0x01), sim.Peek(0x2B))
}

func TestClearInterruptsSelective(t *testing.T) {
	d, sim := newSimDev(Config{Rate: Rate125k, Mode: Normal})
	require.NoError(t, d.Init())

	sim.Poke(0x2C, 0x23) // RX0IF | RX1IF | ERRIF
	require.NoError(t, d.ClearInterrupts(IntRXB0Full))

	st, err := d.InterruptStatus()
	require.NoError(t, err)
	assert.Equal(t, IntRXB1Full|IntError, st, "unselected flags must stay")
}

// Only the RX overflow flags clear through EFLG; the counter-derived bits
// ignore the write.
func TestClearErrorsOnlyOverflow(t *testing.T) {
	d, sim := newSimDev(Config{Rate: Rate125k, Mode: Normal})
	require.NoError(t, d.Init())

	sim.Poke(0x2D, 0xFF)
	require.NoError(t, d.ClearErrors(0xFF))

	ef, err := d.ErrorStatus()
	require.NoError(t, err)
	assert.Equal(t, ErrorFlag(0x3F), ef)
}

func TestErrorCounters(t *testing.T) {
	d, sim := newSimDev(Config{Rate: Rate125k, Mode: Normal})
	require.NoError(t, d.Init())

	sim.Poke(0x1C, 130)
	sim.Poke(0x1D, 7)
	tec, rec, err := d.ErrorCounters()
	require.NoError(t, err)
	assert.Equal(t, uint8(130), tec)
	assert.Equal(t, uint8(7), rec)
}
