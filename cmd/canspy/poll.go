package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jbmendez/go-mcp2515/internal/metrics"
	"github.com/jbmendez/go-mcp2515/mcp2515"
)

// The Dev is not safe for concurrent use; the poll loop and the async
// transmitter both go through mu so the chip only ever sees one caller.
type guardedDev struct {
	mu  sync.Mutex
	dev *mcp2515.Dev
}

func (g *guardedDev) send(req *mcp2515.TxRequest) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dev.Send(req)
}

// runPoll watches CANINTF at the configured interval, drains the receive
// buffers, surfaces error flags, and clears what it serviced.
func runPoll(ctx context.Context, g *guardedDev, cfg *appConfig, l *slog.Logger, wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(cfg.pollInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				pollOnce(g, l)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func pollOnce(g *guardedDev, l *slog.Logger) {
	g.mu.Lock()
	defer g.mu.Unlock()
	st, err := g.dev.InterruptStatus()
	if err != nil {
		metrics.IncError(metrics.ErrSPI)
		l.Error("interrupt_status_error", "error", err)
		return
	}
	if st == 0 {
		return
	}
	var sel mcp2515.RxBufSet
	if st&mcp2515.IntRXB0Full != 0 {
		sel |= mcp2515.RXB0
	}
	if st&mcp2515.IntRXB1Full != 0 {
		sel |= mcp2515.RXB1
	}
	if sel != 0 {
		res, err := g.dev.Read(sel)
		if err != nil {
			metrics.IncError(metrics.ErrRead)
			l.Error("frame_read_error", "error", err)
		} else {
			logFrames(l, res)
		}
	}
	if st&(mcp2515.IntError|mcp2515.IntMessageError) != 0 {
		reportErrors(g.dev, l)
	}
	if err := g.dev.ClearInterrupts(mcp2515.Interrupt(st)); err != nil {
		metrics.IncError(metrics.ErrSPI)
		l.Error("interrupt_clear_error", "error", err)
	}
}

func logFrames(l *slog.Logger, res *mcp2515.RxResult) {
	for i := 0; i < 2; i++ {
		if res.Buffers&(mcp2515.RxBufSet(1)<<i) == 0 {
			continue
		}
		f := res.Frames[i]
		id := fmt.Sprintf("%03X", f.ID.Standard())
		if f.Type == mcp2515.ExtendedData || f.Type == mcp2515.ExtendedRemote {
			id = fmt.Sprintf("%08X", f.ID.Extended())
		}
		l.Info("can_frame",
			"buffer", i,
			"type", f.Type.String(),
			"id", id,
			"dlc", f.DLC,
			"data", fmt.Sprintf("% X", f.Data[:frameDataLen(f)]),
			"filter", f.Filter,
			"rollover", i == 0 && res.Rollover,
		)
	}
}

func frameDataLen(f mcp2515.RxFrame) int {
	if f.Type == mcp2515.StandardRemote || f.Type == mcp2515.ExtendedRemote {
		return 0
	}
	if f.DLC > 8 {
		return 8
	}
	return int(f.DLC)
}

func reportErrors(dev *mcp2515.Dev, l *slog.Logger) {
	metrics.IncBusError()
	ef, err := dev.ErrorStatus()
	if err != nil {
		metrics.IncError(metrics.ErrSPI)
		l.Error("error_status_error", "error", err)
		return
	}
	l.Warn("can_error_flags", "eflg", fmt.Sprintf("0x%02X", byte(ef)))
	overflow := ef & (mcp2515.ErrorRXB0Overflow | mcp2515.ErrorRXB1Overflow)
	if overflow != 0 {
		metrics.IncOverflow()
		if err := dev.ClearErrors(overflow); err != nil {
			metrics.IncError(metrics.ErrSPI)
			l.Error("error_clear_error", "error", err)
		}
	}
}

// runSender periodically submits the configured test frame through the
// async transmitter.
func runSender(ctx context.Context, ax interface {
	Submit(*mcp2515.TxRequest) error
}, cfg *appConfig, l *slog.Logger, wg *sync.WaitGroup) {
	if cfg.sendID == "" {
		return
	}
	req, err := cfg.testFrame()
	if err != nil {
		// validate() already rejected this; keep the guard for direct
		// callers.
		l.Error("send_config_error", "error", err)
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(cfg.sendEvery)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if err := ax.Submit(req); err != nil {
					metrics.IncError(metrics.ErrTxOverrun)
					l.Warn("test_frame_dropped", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
