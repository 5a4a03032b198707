package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jbmendez/go-mcp2515/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"spi_transactions", snap.SPITransactions,
					"frames_tx", snap.FramesTx,
					"frames_rx", snap.FramesRx,
					"rollovers", snap.Rollovers,
					"bus_errors", snap.BusErrors,
					"overflows", snap.Overflows,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
