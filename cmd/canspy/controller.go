package main

import (
	"fmt"
	"log/slog"

	"github.com/jbmendez/go-mcp2515/internal/filtercfg"
	"github.com/jbmendez/go-mcp2515/mcp2515"
	"github.com/jbmendez/go-mcp2515/spi"
)

// busConn is what openController needs from the transport: the driver's
// capability plus teardown.
type busConn interface {
	spi.Conn
	Close() error
}

// openBus is swapped out by tests.
var openBus = func(path string) (busConn, error) {
	return spi.Open(path)
}

// openController brings up the SPI transport and the chip behind it and
// returns the initialized handle plus a transport cleanup.
func openController(cfg *appConfig, l *slog.Logger) (*mcp2515.Dev, func(), error) {
	bus, err := openBus(cfg.spidevPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", cfg.spidevPath, err)
	}
	dev, err := initController(bus, cfg, l)
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return dev, func() { _ = bus.Close() }, nil
}

// initController configures the chip on an already-open bus: init to the
// target mode, then — when a filter file is given — a round-trip through
// configuration mode to program the mask and filter banks.
func initController(bus spi.Conn, cfg *appConfig, l *slog.Logger) (*mcp2515.Dev, error) {
	dev := mcp2515.New(mcp2515.Config{
		Bus:          bus,
		Rate:         rateByKbps[cfg.rateKbps],
		OneShot:      cfg.oneShot,
		TripleSample: cfg.tripleSample,
		WakeFilter:   cfg.wakeFilter,
		AcceptAny:    cfg.acceptAnySet(),
		Rollover:     cfg.rollover,
		Mode:         modeByName[cfg.mode],
	}, mcp2515.WithLogger(l))
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("controller init: %w", err)
	}
	if cfg.filterFile != "" {
		fcfg, err := filtercfg.Load(cfg.filterFile)
		if err != nil {
			return nil, err
		}
		if err := applyFilters(dev, fcfg); err != nil {
			return nil, fmt.Errorf("program filters: %w", err)
		}
		l.Info("filters_programmed",
			"masks", fmt.Sprintf("0x%02X", uint8(fcfg.Masks.Select)),
			"filters", fmt.Sprintf("0x%02X", uint8(fcfg.Filters.Select)),
		)
	}
	return dev, nil
}

// applyFilters programs the mask/filter banks inside a configuration-mode
// window and restores the mode the handle was in.
func applyFilters(dev *mcp2515.Dev, fcfg *filtercfg.Config) error {
	if fcfg.Empty() {
		return nil
	}
	restore := dev.Mode()
	if err := dev.SetMode(mcp2515.Configuration); err != nil {
		return err
	}
	if fcfg.Masks.Select != 0 {
		if err := dev.SetMasks(&fcfg.Masks); err != nil {
			return err
		}
	}
	if fcfg.Filters.Select != 0 {
		if err := dev.SetFilters(&fcfg.Filters); err != nil {
			return err
		}
	}
	return dev.SetMode(restore)
}
