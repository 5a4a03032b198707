package mcp2515

import (
	"bytes"
	"testing"
)

func TestInitSequence(t *testing.T) {
	d, conn, dl := newRecordedDev(Config{
		Rate:     Rate125k,
		Rollover: true,
		OneShot:  true,
		Mode:     Normal,
	})
	if err := d.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	want := [][]byte{
		{0xC0},                         // reset
		{0x02, 0x28, 0x05, 0xAA, 0x01}, // bit timing
		{0x02, 0x60, 0x04},             // RXB0CTRL: BUKT
		{0x02, 0x0F, 0x08},             // CANCTRL: normal + one-shot
	}
	if len(conn.tx) != len(want) {
		t.Fatalf("transaction count = %d, want %d: %#v", len(conn.tx), len(want), conn.tx)
	}
	for i := range want {
		if !bytes.Equal(conn.tx[i], want[i]) {
			t.Errorf("transaction %d = % X, want % X", i, conn.tx[i], want[i])
		}
	}
	// 50 µs after every transaction, plus the 16 ms OST after reset.
	wantDelays := []uint32{50, 16000, 50, 50, 50}
	if len(dl.us) != len(wantDelays) {
		t.Fatalf("delays = %v, want %v", dl.us, wantDelays)
	}
	for i := range wantDelays {
		if dl.us[i] != wantDelays[i] {
			t.Fatalf("delays = %v, want %v", dl.us, wantDelays)
		}
	}
}

func TestInitAcceptAnyBothBuffers(t *testing.T) {
	d, conn, _ := newRecordedDev(Config{
		Rate:      Rate500k,
		AcceptAny: RXB0 | RXB1,
		Mode:      Loopback,
	})
	if err := d.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	want := [][]byte{
		{0xC0},
		{0x02, 0x28, 0x02, 0x89, 0x00},
		{0x02, 0x60, 0x60}, // RXB0CTRL: RXM = accept any
		{0x02, 0x70, 0x60}, // RXB1CTRL: RXM = accept any
		{0x02, 0x0F, 0x40}, // CANCTRL: loopback
	}
	if len(conn.tx) != len(want) {
		t.Fatalf("transaction count = %d, want %d", len(conn.tx), len(want))
	}
	for i := range want {
		if !bytes.Equal(conn.tx[i], want[i]) {
			t.Errorf("transaction %d = % X, want % X", i, conn.tx[i], want[i])
		}
	}
}

func TestInitFiltersOnlySkipsRxCtrl(t *testing.T) {
	d, conn, _ := newRecordedDev(Config{Rate: Rate250k, Mode: Normal})
	if err := d.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	for _, tx := range conn.tx {
		if tx[0] == 0x02 && (tx[1] == 0x60 || tx[1] == 0x70) {
			t.Fatalf("RXBnCTRL written without accept-any or rollover: % X", tx)
		}
	}
}

func TestInitValidatesBeforeTraffic(t *testing.T) {
	d, conn, _ := newRecordedDev(Config{Rate: BitRate(9600), Mode: Normal})
	if err := d.Init(); err != ErrBitRate {
		t.Fatalf("err = %v, want ErrBitRate", err)
	}
	if len(conn.tx) != 0 {
		t.Fatalf("invalid rate reached the bus: %#v", conn.tx)
	}

	d, conn, _ = newRecordedDev(Config{Rate: Rate125k, Mode: Mode(9)})
	if err := d.Init(); err != ErrMode {
		t.Fatalf("err = %v, want ErrMode", err)
	}
	if len(conn.tx) != 0 {
		t.Fatalf("invalid mode reached the bus: %#v", conn.tx)
	}
}

func TestNoTransport(t *testing.T) {
	d := New(Config{Rate: Rate125k, Mode: Normal})
	if err := d.Init(); err != ErrNoTransport {
		t.Fatalf("Init err = %v, want ErrNoTransport", err)
	}
	if err := d.Send(&TxRequest{Buffers: TXB0}); err != ErrNoTransport {
		t.Fatalf("Send err = %v, want ErrNoTransport", err)
	}
	if _, err := d.Read(RXB0); err != ErrNoTransport {
		t.Fatalf("Read err = %v, want ErrNoTransport", err)
	}
	if _, err := d.InterruptStatus(); err != ErrNoTransport {
		t.Fatalf("InterruptStatus err = %v, want ErrNoTransport", err)
	}
}

func TestSetModeIdempotent(t *testing.T) {
	d, conn, _ := newRecordedDev(Config{Rate: Rate125k})
	if err := d.SetMode(Loopback); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if err := d.SetMode(Loopback); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if len(conn.tx) != 2 {
		t.Fatalf("transaction count = %d, want 2", len(conn.tx))
	}
	if !bytes.Equal(conn.tx[0], conn.tx[1]) {
		t.Fatalf("repeated mode writes differ: % X vs % X", conn.tx[0], conn.tx[1])
	}
	if !bytes.Equal(conn.tx[0], []byte{0x02, 0x0F, 0x40}) {
		t.Fatalf("mode write = % X", conn.tx[0])
	}
	if d.Mode() != Loopback {
		t.Fatalf("Mode() = %v, want Loopback", d.Mode())
	}
}

func TestSetModeUnknown(t *testing.T) {
	d, conn, _ := newRecordedDev(Config{})
	if err := d.SetMode(Mode(7)); err != ErrMode {
		t.Fatalf("err = %v, want ErrMode", err)
	}
	if len(conn.tx) != 0 {
		t.Fatalf("unknown mode reached the bus")
	}
}
