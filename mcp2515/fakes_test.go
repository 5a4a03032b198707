package mcp2515

import (
	"github.com/jbmendez/go-mcp2515/internal/chipsim"
)

// recordConn captures transactions for wire-level assertions and answers
// READs from a scripted register map.
type recordConn struct {
	tx   [][]byte
	regs map[byte][]byte
}

func (r *recordConn) TxRx(tx, rx []byte) error {
	cp := make([]byte, len(tx))
	copy(cp, tx)
	r.tx = append(r.tx, cp)
	if rx != nil && tx[0] == 0x03 {
		if data, ok := r.regs[tx[1]]; ok {
			copy(rx[2:], data)
		}
	}
	return nil
}

// delayLog records every blocking delay request.
type delayLog struct {
	us []uint32
}

func (d *delayLog) delay(us uint32) { d.us = append(d.us, us) }

func newRecordedDev(cfg Config) (*Dev, *recordConn, *delayLog) {
	conn := &recordConn{regs: map[byte][]byte{}}
	dl := &delayLog{}
	cfg.Bus = conn
	return New(cfg, WithDelay(dl.delay)), conn, dl
}

func newSimDev(cfg Config) (*Dev, *chipsim.Chip) {
	sim := chipsim.New()
	cfg.Bus = sim
	return New(cfg, WithDelay(func(uint32) {})), sim
}
