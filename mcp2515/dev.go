package mcp2515

import (
	"errors"
	"log/slog"

	"github.com/jbmendez/go-mcp2515/internal/logging"
	"github.com/jbmendez/go-mcp2515/spi"
	"github.com/jbmendez/go-mcp2515/spiproto"
)

// Sentinel errors. Every operation validates its inputs before touching the
// bus, so any of these errors implies the chip was left exactly as it was.
// A transport error can come back after earlier transactions of the same
// call have already reached the chip.
var (
	ErrNoTransport = errors.New("mcp2515: no transport bound to handle")
	ErrBitRate     = errors.New("mcp2515: unsupported bit rate")
	ErrMode        = errors.New("mcp2515: unknown operation mode")
	ErrDLC         = errors.New("mcp2515: data length code out of range")
	ErrBuffer      = errors.New("mcp2515: invalid buffer selection")
)

// Mode is an MCP2515 operating mode. The modes form a complete graph: any
// mode reaches any other with a single CANCTRL write. Configuration is the
// only mode in which the bit-timing, mask and filter banks are writable.
type Mode uint8

const (
	Normal Mode = iota
	Sleep
	Loopback
	ListenOnly
	Configuration
)

var modeReqop = map[Mode]byte{
	Normal:        spiproto.REQOPNormal,
	Sleep:         spiproto.REQOPSleep,
	Loopback:      spiproto.REQOPLoopback,
	ListenOnly:    spiproto.REQOPListen,
	Configuration: spiproto.REQOPConfig,
}

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Sleep:
		return "sleep"
	case Loopback:
		return "loopback"
	case ListenOnly:
		return "listen-only"
	case Configuration:
		return "configuration"
	}
	return "unknown"
}

// TxBufSet selects transmit buffers.
type TxBufSet uint8

const (
	TXB0 TxBufSet = 1 << iota
	TXB1
	TXB2
)

// RxBufSet selects receive buffers.
type RxBufSet uint8

const (
	RXB0 RxBufSet = 1 << iota
	RXB1
)

// Config is the per-chip configuration. It is immutable after Init except
// for the operating mode, which changes only through SetMode.
type Config struct {
	// Bus is the SPI transport backing this chip. The Dev owns it
	// exclusively for the duration of every call.
	Bus spi.Conn
	// Rate selects one of the precomputed bit timings.
	Rate BitRate
	// OneShot disables transmission reattempts (OSM in CANCTRL).
	OneShot bool
	// TripleSample latches the bus level three times per bit instead of
	// once.
	TripleSample bool
	// WakeFilter enables the low-pass wake-up filter on the RX line.
	WakeFilter bool
	// AcceptAny marks receive buffers that ignore masks and filters.
	AcceptAny RxBufSet
	// Rollover lets a frame arriving at a full RXB0 spill into RXB1.
	Rollover bool
	// Mode is the operating mode committed at the end of Init.
	Mode Mode
}

// Dev is a handle to one controller chip.
type Dev struct {
	cfg   Config
	p     *spiproto.Proto
	delay spi.DelayFunc
	log   *slog.Logger
	mode  Mode
}

// Option customizes a Dev.
type Option func(*Dev)

// WithLogger routes the handle's debug logging to l.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dev) {
		if l != nil {
			d.log = l
		}
	}
}

// WithDelay substitutes the blocking microsecond delay service. Intended for
// tests; the default sleeps on the host clock.
func WithDelay(fn spi.DelayFunc) Option {
	return func(d *Dev) {
		if fn != nil {
			d.delay = fn
			if d.cfg.Bus != nil {
				d.p = spiproto.New(d.cfg.Bus, fn)
			}
		}
	}
}

// New builds a handle from cfg. Nothing is sent on the bus until Init.
func New(cfg Config, opts ...Option) *Dev {
	d := &Dev{
		cfg:   cfg,
		delay: spi.Sleep,
		log:   logging.L(),
		mode:  Configuration,
	}
	if cfg.Bus != nil {
		d.p = spiproto.New(cfg.Bus, spi.Sleep)
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Config returns the handle's configuration.
func (d *Dev) Config() Config { return d.cfg }

// Mode returns the most recently requested operating mode.
func (d *Dev) Mode() Mode { return d.mode }

func (d *Dev) check() error {
	if d.p == nil {
		return ErrNoTransport
	}
	return nil
}

// Init brings the chip from power-on to the configured state: reset (which
// leaves it in configuration mode), bit timing, receive-buffer operating
// modes, and finally the requested operating mode. The SPI transport itself
// must already be up; see the spi package.
func (d *Dev) Init() error {
	if err := d.check(); err != nil {
		return err
	}
	if _, ok := bitTimings[d.cfg.Rate]; !ok {
		return ErrBitRate
	}
	if _, ok := modeReqop[d.cfg.Mode]; !ok {
		return ErrMode
	}
	if err := d.Reset(); err != nil {
		return err
	}
	if err := d.SetBitRate(d.cfg.Rate); err != nil {
		return err
	}
	var rxb0 byte
	if d.cfg.AcceptAny&RXB0 != 0 {
		rxb0 |= spiproto.RXMAny
	}
	if d.cfg.Rollover {
		rxb0 |= spiproto.BUKT
	}
	if rxb0 != 0 {
		if err := d.p.Write(spiproto.RXB0CTRL, []byte{rxb0}); err != nil {
			return err
		}
	}
	if d.cfg.AcceptAny&RXB1 != 0 {
		if err := d.p.Write(spiproto.RXB1CTRL, []byte{spiproto.RXMAny}); err != nil {
			return err
		}
	}
	if err := d.SetMode(d.cfg.Mode); err != nil {
		return err
	}
	d.log.Debug("mcp2515_init",
		"rate", uint32(d.cfg.Rate),
		"mode", d.cfg.Mode.String(),
		"accept_any", uint8(d.cfg.AcceptAny),
		"rollover", d.cfg.Rollover,
		"one_shot", d.cfg.OneShot,
	)
	return nil
}

// Reset issues the RESET instruction and waits out the oscillator start-up
// timer. All registers return to their datasheet defaults and the chip lands
// in configuration mode.
func (d *Dev) Reset() error {
	if err := d.check(); err != nil {
		return err
	}
	if err := d.p.Reset(); err != nil {
		return err
	}
	d.mode = Configuration
	return nil
}

// SetMode commits the requested operating mode together with the handle's
// one-shot setting in a single CANCTRL write. The mode is observable after
// one SPI round-trip; the post-write settling delay covers that, so CANSTAT
// is not polled. Entering configuration mode resets the TEC/REC error
// counters and restores error-active state.
func (d *Dev) SetMode(m Mode) error {
	if err := d.check(); err != nil {
		return err
	}
	reqop, ok := modeReqop[m]
	if !ok {
		return ErrMode
	}
	ctrl := reqop
	if d.cfg.OneShot {
		ctrl |= spiproto.OSM
	}
	if err := d.p.Write(spiproto.CANCTRL, []byte{ctrl}); err != nil {
		return err
	}
	d.mode = m
	d.log.Debug("mcp2515_mode", "mode", m.String())
	return nil
}
