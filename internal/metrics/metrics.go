package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/jbmendez/go-mcp2515/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	SPITransactions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spi_transactions_total",
		Help: "Total chip-select-framed SPI transactions issued to the controller.",
	})
	FramesTx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "can_tx_frames_total",
		Help: "Total CAN frames loaded into a TX buffer and requested for transmission.",
	})
	FramesRx = promauto.NewCounter(prometheus.CounterOpts{
		Name: "can_rx_frames_total",
		Help: "Total CAN frames read out of the RX buffers.",
	})
	RxRollovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "can_rx_rollovers_total",
		Help: "Total RXB0 frames that rolled over into RXB1.",
	})
	TxStates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "can_tx_state_total",
		Help: "TX status query results by decoded state.",
	}, []string{"state"})
	BusErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "can_bus_errors_total",
		Help: "Error interrupts observed while polling the controller.",
	})
	RxOverflows = promauto.NewCounter(prometheus.CounterOpts{
		Name: "can_rx_overflows_total",
		Help: "RX buffer overflow flags observed in EFLG.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrSPI       = "spi"
	ErrInit      = "init"
	ErrRead      = "can_read"
	ErrSend      = "can_send"
	ErrTxOverrun = "tx_overrun"
	ErrFilterCfg = "filter_config"
)

// StartHTTP serves Prometheus metrics at /metrics on the given address along
// with a /ready probe backed by SetReadinessFunc.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// SetReadinessFunc installs the probe consulted by /ready.
func SetReadinessFunc(fn func() bool) {
	readinessMu.Lock()
	defer readinessMu.Unlock()
	readinessFn = fn
}

// IsReady reports the current readiness probe result (false when unset).
func IsReady() bool {
	readinessMu.RLock()
	defer readinessMu.RUnlock()
	if readinessFn == nil {
		return false
	}
	return readinessFn()
}

// InitBuildInfo publishes the build metadata gauge.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localSPI       uint64
	localTx        uint64
	localRx        uint64
	localRollover  uint64
	localBusErrors uint64
	localOverflows uint64
	localErrors    uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	SPITransactions uint64
	FramesTx        uint64
	FramesRx        uint64
	Rollovers       uint64
	BusErrors       uint64
	Overflows       uint64
	Errors          uint64 // sum across error labels
}

func Snap() Snapshot {
	return Snapshot{
		SPITransactions: atomic.LoadUint64(&localSPI),
		FramesTx:        atomic.LoadUint64(&localTx),
		FramesRx:        atomic.LoadUint64(&localRx),
		Rollovers:       atomic.LoadUint64(&localRollover),
		BusErrors:       atomic.LoadUint64(&localBusErrors),
		Overflows:       atomic.LoadUint64(&localOverflows),
		Errors:          atomic.LoadUint64(&localErrors),
	}
}

// Wrapper helpers to keep call sites simple.
func IncSPI() {
	SPITransactions.Inc()
	atomic.AddUint64(&localSPI, 1)
}

func IncFramesTx() {
	FramesTx.Inc()
	atomic.AddUint64(&localTx, 1)
}

func IncFramesRx() {
	FramesRx.Inc()
	atomic.AddUint64(&localRx, 1)
}

func IncRollover() {
	RxRollovers.Inc()
	atomic.AddUint64(&localRollover, 1)
}

func IncBusError() {
	BusErrors.Inc()
	atomic.AddUint64(&localBusErrors, 1)
}

func IncOverflow() {
	RxOverflows.Inc()
	atomic.AddUint64(&localOverflows, 1)
}

// IncError increments the labeled error counter and the local mirror.
func IncError(where string) {
	Errors.WithLabelValues(where).Inc()
	atomic.AddUint64(&localErrors, 1)
}
