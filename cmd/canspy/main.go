// Command canspy is a CAN bus monitor for an MCP2515 controller on a spidev
// bus: it initializes the chip, polls its interrupt flags, logs every
// received frame, and optionally transmits a periodic test frame. Counters
// are exported as Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/jbmendez/go-mcp2515/internal/metrics"
	"github.com/jbmendez/go-mcp2515/internal/transport"
	"github.com/jbmendez/go-mcp2515/mcp2515"
)

func main() {
	cfg, showVersion := parseFlags()
	if showVersion {
		fmt.Printf("canspy %s (commit %s, built %s)\n", version, commit, date)
		return
	}
	if cfg == nil {
		os.Exit(1)
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	dev, cleanup, err := openController(cfg, l)
	if err != nil {
		metrics.IncError(metrics.ErrInit)
		l.Error("controller_init_error", "error", err)
		os.Exit(1)
	}
	defer cleanup()
	l.Info("controller_up",
		"spidev", cfg.spidevPath,
		"rate", fmt.Sprintf("%dk", cfg.rateKbps),
		"mode", cfg.mode,
	)

	g := &guardedDev{dev: dev}
	ax := transport.NewAsyncTx(ctx, 16, g.send, transport.Hooks{
		OnError: func(err error) {
			metrics.IncError(metrics.ErrSend)
			l.Error("can_send_error", "error", err)
		},
		OnDrop: func() error {
			metrics.IncError(metrics.ErrTxOverrun)
			return errors.New("tx queue full")
		},
	})
	defer ax.Close()

	runPoll(ctx, g, cfg, l, &wg)
	runSender(ctx, ax, cfg, l, &wg)

	metrics.SetReadinessFunc(func() bool {
		return ctx.Err() == nil && dev.Mode() != mcp2515.Configuration
	})
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()

		if cfg.mdnsEnable {
			port := 0
			if _, p, err := net.SplitHostPort(cfg.metricsAddr); err == nil {
				if pn, perr := strconv.Atoi(p); perr == nil {
					port = pn
				}
			}
			cleanupMDNS, err := startMDNS(ctx, cfg, port)
			if err != nil {
				l.Warn("mdns_start_failed", "error", err)
			} else {
				l.Info("mdns_started", "service", mdnsServiceType, "name", cfg.mdnsName, "port", port)
				defer cleanupMDNS()
			}
		}
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	s := <-sigCh
	l.Info("shutdown_signal", "signal", s.String())
	cancel()
	wg.Wait()
}
