package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jbmendez/go-mcp2515/mcp2515"
)

type appConfig struct {
	spidevPath      string
	rateKbps        int
	mode            string
	acceptAny       string
	rollover        bool
	oneShot         bool
	tripleSample    bool
	wakeFilter      bool
	filterFile      string
	pollInterval    time.Duration
	logFormat       string
	logLevel        string
	metricsAddr     string
	logMetricsEvery time.Duration
	mdnsEnable      bool
	mdnsName        string
	sendID          string
	sendExtended    bool
	sendRemote      bool
	sendData        string
	sendEvery       time.Duration
}

func parseFlags() (*appConfig, bool) {
	cfg := &appConfig{}
	spidevPath := flag.String("spidev", "/dev/spidev0.0", "SPI device node for the controller")
	rate := flag.Int("rate", 125, "CAN bit rate in kbit/s: 50|100|125|250|500")
	mode := flag.String("mode", "listen-only", "Operating mode: normal|listen-only|loopback|sleep")
	acceptAny := flag.String("accept-any", "", "Receive buffers that bypass masks/filters: rxb0|rxb1|both (empty = none)")
	rollover := flag.Bool("rollover", true, "Spill frames into RXB1 when RXB0 is full")
	oneShot := flag.Bool("one-shot", false, "Do not reattempt failed transmissions")
	tripleSample := flag.Bool("triple-sample", false, "Sample the bus three times per bit")
	wakeFilter := flag.Bool("wake-filter", false, "Enable the wake-up low-pass filter")
	filterFile := flag.String("filters", "", "INI file with acceptance masks/filters (empty disables)")
	pollInterval := flag.Duration("poll-interval", 5*time.Millisecond, "Interrupt-flag poll interval")
	logFormat := flag.String("log-format", "text", "Log format: text|json")
	logLevel := flag.String("log-level", "info", "Log level: debug|info|warn|error")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP listen address (e.g., :9100); empty disables")
	logMetricsEvery := flag.Duration("log-metrics-interval", 0, "If >0, periodically log metrics counters (for non-Prometheus setups)")
	mdnsEnable := flag.Bool("mdns-enable", false, "Advertise the metrics endpoint via mDNS")
	mdnsName := flag.String("mdns-name", "", "mDNS instance name (default canspy-<hostname>)")
	sendID := flag.String("send-id", "", "Identifier of a periodic test frame (e.g. 0x555); empty disables")
	sendExtended := flag.Bool("send-extended", false, "Send the test frame with a 29-bit identifier")
	sendRemote := flag.Bool("send-remote", false, "Send the test frame as a remote request")
	sendData := flag.String("send-data", "", "Test frame payload as hex (up to 8 bytes)")
	sendEvery := flag.Duration("send-every", time.Second, "Test frame period")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	// Track which flags were explicitly set to give them precedence over env.
	setFlags := map[string]struct{}{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = struct{}{} })
	cfg.spidevPath = *spidevPath
	cfg.rateKbps = *rate
	cfg.mode = *mode
	cfg.acceptAny = *acceptAny
	cfg.rollover = *rollover
	cfg.oneShot = *oneShot
	cfg.tripleSample = *tripleSample
	cfg.wakeFilter = *wakeFilter
	cfg.filterFile = *filterFile
	cfg.pollInterval = *pollInterval
	cfg.logFormat = *logFormat
	cfg.logLevel = *logLevel
	cfg.metricsAddr = *metricsAddr
	cfg.logMetricsEvery = *logMetricsEvery
	cfg.mdnsEnable = *mdnsEnable
	cfg.mdnsName = *mdnsName
	cfg.sendID = *sendID
	cfg.sendExtended = *sendExtended
	cfg.sendRemote = *sendRemote
	cfg.sendData = *sendData
	cfg.sendEvery = *sendEvery

	if err := applyEnvOverrides(cfg, setFlags); err != nil {
		fmt.Printf("environment override error: %v\n", err)
		return nil, *showVersion
	}
	if err := cfg.validate(); err != nil {
		fmt.Printf("configuration error: %v\n", err)
		return nil, *showVersion
	}
	return cfg, *showVersion
}

var rateByKbps = map[int]mcp2515.BitRate{
	50:  mcp2515.Rate50k,
	100: mcp2515.Rate100k,
	125: mcp2515.Rate125k,
	250: mcp2515.Rate250k,
	500: mcp2515.Rate500k,
}

var modeByName = map[string]mcp2515.Mode{
	"normal":      mcp2515.Normal,
	"listen-only": mcp2515.ListenOnly,
	"loopback":    mcp2515.Loopback,
	"sleep":       mcp2515.Sleep,
}

// validate performs basic semantic validation of the parsed configuration.
// It does not attempt to open the SPI device – only checks values/ranges.
func (c *appConfig) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if _, ok := rateByKbps[c.rateKbps]; !ok {
		return fmt.Errorf("invalid rate: %d kbit/s", c.rateKbps)
	}
	if _, ok := modeByName[c.mode]; !ok {
		return fmt.Errorf("invalid mode: %s", c.mode)
	}
	switch c.acceptAny {
	case "", "rxb0", "rxb1", "both":
	default:
		return fmt.Errorf("invalid accept-any: %s", c.acceptAny)
	}
	switch c.logFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log-format: %s", c.logFormat)
	}
	switch c.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log-level: %s", c.logLevel)
	}
	if c.pollInterval <= 0 {
		return errors.New("poll-interval must be > 0")
	}
	if c.sendID != "" {
		if _, err := c.testFrame(); err != nil {
			return err
		}
		if c.sendEvery <= 0 {
			return errors.New("send-every must be > 0")
		}
	}
	return nil
}

// acceptAnySet maps the flag spelling to the driver's buffer set.
func (c *appConfig) acceptAnySet() mcp2515.RxBufSet {
	switch c.acceptAny {
	case "rxb0":
		return mcp2515.RXB0
	case "rxb1":
		return mcp2515.RXB1
	case "both":
		return mcp2515.RXB0 | mcp2515.RXB1
	}
	return 0
}

// testFrame builds the periodic test frame from the send-* flags.
func (c *appConfig) testFrame() (*mcp2515.TxRequest, error) {
	id64, err := strconv.ParseUint(c.sendID, 0, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid send-id %q: %w", c.sendID, err)
	}
	data, err := hex.DecodeString(c.sendData)
	if err != nil {
		return nil, fmt.Errorf("invalid send-data %q: %w", c.sendData, err)
	}
	if len(data) > 8 {
		return nil, fmt.Errorf("send-data is %d bytes, max 8", len(data))
	}
	f := mcp2515.TxFrame{DLC: uint8(len(data))}
	switch {
	case c.sendExtended && c.sendRemote:
		f.Type = mcp2515.ExtendedRemote
	case c.sendExtended:
		f.Type = mcp2515.ExtendedData
	case c.sendRemote:
		f.Type = mcp2515.StandardRemote
	default:
		f.Type = mcp2515.StandardData
	}
	if c.sendExtended {
		if id64 > 0x1FFFFFFF {
			return nil, fmt.Errorf("send-id 0x%X exceeds 29 bits", id64)
		}
		f.ID = mcp2515.ExtendedID(uint32(id64))
	} else {
		if id64 > 0x7FF {
			return nil, fmt.Errorf("send-id 0x%X exceeds 11 bits", id64)
		}
		f.ID = mcp2515.StandardID(uint16(id64))
	}
	copy(f.Data[:], data)
	req := &mcp2515.TxRequest{Buffers: mcp2515.TXB0}
	req.Frames[0] = f
	return req, nil
}

// applyEnvOverrides maps CANSPY_* environment variables to config fields
// unless a corresponding flag was explicitly set. Boolean & numeric parsing
// is lax: empty values ignored. Duration accepts Go time.ParseDuration
// format.
func applyEnvOverrides(c *appConfig, set map[string]struct{}) error {
	var firstErr error
	get := func(k string) (string, bool) { v, ok := os.LookupEnv(k); return strings.TrimSpace(v), ok }
	str := func(flagName, env string, dst *string) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(flagName, env string, dst *bool) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("invalid %s: %w", env, err)
				}
				return
			}
			*dst = b
		}
	}
	duration := func(flagName, env string, dst *time.Duration) {
		if _, ok := set[flagName]; ok {
			return
		}
		if v, ok := get(env); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("invalid %s: %w", env, err)
				}
				return
			}
			*dst = d
		}
	}

	str("spidev", "CANSPY_SPIDEV", &c.spidevPath)
	if _, ok := set["rate"]; !ok {
		if v, ok := get("CANSPY_RATE"); ok && v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.rateKbps = n
			} else if firstErr == nil {
				firstErr = fmt.Errorf("invalid CANSPY_RATE: %w", err)
			}
		}
	}
	str("mode", "CANSPY_MODE", &c.mode)
	str("accept-any", "CANSPY_ACCEPT_ANY", &c.acceptAny)
	boolean("rollover", "CANSPY_ROLLOVER", &c.rollover)
	boolean("one-shot", "CANSPY_ONE_SHOT", &c.oneShot)
	boolean("triple-sample", "CANSPY_TRIPLE_SAMPLE", &c.tripleSample)
	boolean("wake-filter", "CANSPY_WAKE_FILTER", &c.wakeFilter)
	str("filters", "CANSPY_FILTERS", &c.filterFile)
	duration("poll-interval", "CANSPY_POLL_INTERVAL", &c.pollInterval)
	str("log-format", "CANSPY_LOG_FORMAT", &c.logFormat)
	str("log-level", "CANSPY_LOG_LEVEL", &c.logLevel)
	if _, ok := set["metrics-addr"]; !ok {
		if v, ok := get("CANSPY_METRICS"); ok {
			c.metricsAddr = v
		}
	}
	duration("log-metrics-interval", "CANSPY_LOG_METRICS_INTERVAL", &c.logMetricsEvery)
	boolean("mdns-enable", "CANSPY_MDNS_ENABLE", &c.mdnsEnable)
	str("mdns-name", "CANSPY_MDNS_NAME", &c.mdnsName)
	str("send-id", "CANSPY_SEND_ID", &c.sendID)
	boolean("send-extended", "CANSPY_SEND_EXTENDED", &c.sendExtended)
	boolean("send-remote", "CANSPY_SEND_REMOTE", &c.sendRemote)
	str("send-data", "CANSPY_SEND_DATA", &c.sendData)
	duration("send-every", "CANSPY_SEND_EVERY", &c.sendEvery)
	return firstErr
}
