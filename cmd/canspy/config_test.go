package main

import (
	"testing"
	"time"

	"github.com/jbmendez/go-mcp2515/mcp2515"
)

func baseConfig() *appConfig {
	return &appConfig{
		spidevPath:   "/dev/spidev0.0",
		rateKbps:     125,
		mode:         "listen-only",
		acceptAny:    "",
		rollover:     true,
		pollInterval: 5 * time.Millisecond,
		logFormat:    "text",
		logLevel:     "info",
		sendEvery:    time.Second,
	}
}

func TestValidateAccepts(t *testing.T) {
	cfg := baseConfig()
	if err := cfg.validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	cfg.acceptAny = "both"
	cfg.mode = "loopback"
	cfg.rateKbps = 500
	cfg.sendID = "0x555"
	cfg.sendData = "0DD0"
	if err := cfg.validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	mut := []func(*appConfig){
		func(c *appConfig) { c.rateKbps = 1000 },
		func(c *appConfig) { c.mode = "configuration" },
		func(c *appConfig) { c.mode = "fast" },
		func(c *appConfig) { c.acceptAny = "rxb2" },
		func(c *appConfig) { c.logFormat = "xml" },
		func(c *appConfig) { c.logLevel = "trace" },
		func(c *appConfig) { c.pollInterval = 0 },
		func(c *appConfig) { c.sendID = "zzz" },
		func(c *appConfig) { c.sendID = "0x800" }, // 11-bit overflow
		func(c *appConfig) { c.sendID = "0x555"; c.sendData = "0102030405060708AA" },
		func(c *appConfig) { c.sendID = "0x555"; c.sendEvery = 0 },
	}
	for i, m := range mut {
		cfg := baseConfig()
		m(cfg)
		if err := cfg.validate(); err == nil {
			t.Errorf("case %d: invalid config accepted", i)
		}
	}
}

func TestTestFrame(t *testing.T) {
	cfg := baseConfig()
	cfg.sendID = "0x555"
	cfg.sendData = "0DD0"
	req, err := cfg.testFrame()
	if err != nil {
		t.Fatalf("testFrame: %v", err)
	}
	if req.Buffers != mcp2515.TXB0 {
		t.Fatalf("buffers = %v", req.Buffers)
	}
	f := req.Frames[0]
	if f.Type != mcp2515.StandardData || f.ID.Standard() != 0x555 || f.DLC != 2 {
		t.Fatalf("frame = %+v", f)
	}
	if f.Data[0] != 0x0D || f.Data[1] != 0xD0 {
		t.Fatalf("data = % X", f.Data[:2])
	}

	cfg.sendExtended = true
	cfg.sendRemote = true
	cfg.sendID = "0x1D0CAFC8"
	cfg.sendData = ""
	req, err = cfg.testFrame()
	if err != nil {
		t.Fatalf("testFrame: %v", err)
	}
	f = req.Frames[0]
	if f.Type != mcp2515.ExtendedRemote || f.ID.Extended() != 0x1D0CAFC8 || f.DLC != 0 {
		t.Fatalf("frame = %+v", f)
	}
}

func TestAcceptAnySet(t *testing.T) {
	cases := map[string]mcp2515.RxBufSet{
		"":     0,
		"rxb0": mcp2515.RXB0,
		"rxb1": mcp2515.RXB1,
		"both": mcp2515.RXB0 | mcp2515.RXB1,
	}
	for in, want := range cases {
		cfg := baseConfig()
		cfg.acceptAny = in
		if got := cfg.acceptAnySet(); got != want {
			t.Errorf("acceptAnySet(%q) = %v, want %v", in, got, want)
		}
	}
}
