package spiproto

import (
	"bytes"
	"testing"
)

// recordConn captures every transaction and plays back scripted responses.
type recordConn struct {
	tx  [][]byte
	rsp map[byte][]byte // keyed by start address of READ
}

func (r *recordConn) TxRx(tx, rx []byte) error {
	cp := make([]byte, len(tx))
	copy(cp, tx)
	r.tx = append(r.tx, cp)
	if rx != nil && tx[0] == insRead {
		if data, ok := r.rsp[tx[1]]; ok {
			copy(rx[2:], data)
		}
	}
	return nil
}

type delayLog struct {
	us []uint32
}

func (d *delayLog) delay(us uint32) { d.us = append(d.us, us) }

func TestResetFraming(t *testing.T) {
	conn := &recordConn{}
	dl := &delayLog{}
	p := New(conn, dl.delay)
	if err := p.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(conn.tx) != 1 || !bytes.Equal(conn.tx[0], []byte{0xC0}) {
		t.Fatalf("unexpected reset transaction: %#v", conn.tx)
	}
	// 50 µs instruction processing, then the 16 ms oscillator start-up.
	want := []uint32{50, 16000}
	if len(dl.us) != 2 || dl.us[0] != want[0] || dl.us[1] != want[1] {
		t.Fatalf("delays = %v, want %v", dl.us, want)
	}
}

func TestWriteFraming(t *testing.T) {
	conn := &recordConn{}
	dl := &delayLog{}
	p := New(conn, dl.delay)
	if err := p.Write(CNF3, []byte{0x05, 0xAA, 0x01}); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := []byte{0x02, 0x28, 0x05, 0xAA, 0x01}
	if len(conn.tx) != 1 || !bytes.Equal(conn.tx[0], want) {
		t.Fatalf("write transaction = % X, want % X", conn.tx[0], want)
	}
	if len(dl.us) != 1 || dl.us[0] != 50 {
		t.Fatalf("delays = %v, want [50]", dl.us)
	}
}

func TestReadFraming(t *testing.T) {
	conn := &recordConn{rsp: map[byte][]byte{0x2C: {0x03}}}
	p := New(conn, (&delayLog{}).delay)
	var b [1]byte
	if err := p.Read(CANINTF, b[:]); err != nil {
		t.Fatalf("read: %v", err)
	}
	if b[0] != 0x03 {
		t.Fatalf("read value = 0x%02X, want 0x03", b[0])
	}
	want := []byte{0x03, 0x2C, 0x00}
	if !bytes.Equal(conn.tx[0], want) {
		t.Fatalf("read transaction = % X, want % X", conn.tx[0], want)
	}
}

func TestBitModifyFraming(t *testing.T) {
	conn := &recordConn{}
	p := New(conn, (&delayLog{}).delay)
	if err := p.BitModify(CANINTF, 0x03, 0x00); err != nil {
		t.Fatalf("bit modify: %v", err)
	}
	want := []byte{0x05, 0x2C, 0x03, 0x00}
	if !bytes.Equal(conn.tx[0], want) {
		t.Fatalf("bit-modify transaction = % X, want % X", conn.tx[0], want)
	}
}

func TestWriteTooLong(t *testing.T) {
	conn := &recordConn{}
	p := New(conn, (&delayLog{}).delay)
	if err := p.Write(0, make([]byte, 31)); err == nil {
		t.Fatal("expected oversized write to fail")
	}
	if len(conn.tx) != 0 {
		t.Fatalf("oversized write reached the bus: %#v", conn.tx)
	}
}

func TestOSTMicros(t *testing.T) {
	if got := OSTMicros(8_000_000); got != 16000 {
		t.Fatalf("OST at 8 MHz = %d µs, want 16000", got)
	}
}
