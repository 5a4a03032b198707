// Package transport funnels transmit requests into a single worker
// goroutine. The controller driver is strictly sequential and owns its SPI
// bus exclusively, so anything that wants to transmit from several places
// (a poll loop, a periodic beacon, an HTTP trigger) must serialize through
// one submitter; AsyncTx is that submitter.
package transport

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jbmendez/go-mcp2515/mcp2515"
)

// AsyncTx queues mcp2515 transmit requests and drives them through a single
// goroutine. Submit never blocks: when the buffer is full the configured
// OnDrop hook decides the returned error, so producers are never stuck
// behind a slow bus (a worst-case 50 kbit/s frame wait is milliseconds).
//
// Life-cycle:
//
//	a := NewAsyncTx(ctx, buf, sendFn, hooks)
//	a.Submit(req)
//	a.Close()
//
// After Close no more requests are processed; late Submit calls return
// ErrAsyncTxClosed.
type AsyncTx struct {
	mu     sync.Mutex
	ch     chan *mcp2515.TxRequest
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	send   func(*mcp2515.TxRequest) error
	hooks  Hooks
	closed atomic.Bool
}

// Hooks customize AsyncTx behavior.
type Hooks struct {
	// OnError is called when send returns a non-nil error (request not
	// transmitted).
	OnError func(error)
	// OnAfter is called only after a successful send.
	OnAfter func()
	// OnDrop is called when the buffer is full; its returned error is
	// returned from Submit. If nil, the overflow is silent.
	OnDrop func() error
}

// NewAsyncTx constructs an AsyncTx with a buffered channel of size buf.
func NewAsyncTx(parent context.Context, buf int, send func(*mcp2515.TxRequest) error, hooks Hooks) *AsyncTx {
	ctx, cancel := context.WithCancel(parent)
	a := &AsyncTx{
		ch:     make(chan *mcp2515.TxRequest, buf),
		ctx:    ctx,
		cancel: cancel,
		send:   send,
		hooks:  hooks,
	}
	a.wg.Add(1)
	go a.loop()
	return a
}

func (a *AsyncTx) loop() {
	defer a.wg.Done()
	for {
		select {
		case req, ok := <-a.ch:
			if !ok {
				return
			}
			if err := a.send(req); err != nil {
				if a.hooks.OnError != nil {
					a.hooks.OnError(err)
				}
				continue
			}
			if a.hooks.OnAfter != nil {
				a.hooks.OnAfter()
			}
		case <-a.ctx.Done():
			return
		}
	}
}

// ErrAsyncTxClosed is returned from Submit after Close.
var ErrAsyncTxClosed = errors.New("async tx closed")

// Submit queues a request for asynchronous transmission or returns the drop
// error if the buffer is full.
func (a *AsyncTx) Submit(req *mcp2515.TxRequest) error {
	// Fast-path check so steady-state submits avoid the lock when already
	// shut down.
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed.Load() {
		return ErrAsyncTxClosed
	}
	select {
	case a.ch <- req:
		return nil
	default:
		if a.hooks.OnDrop != nil {
			return a.hooks.OnDrop()
		}
		return nil
	}
}

// Close stops the worker and waits for it to exit.
func (a *AsyncTx) Close() {
	if a.closed.Swap(true) {
		return
	}
	a.cancel()
	a.mu.Lock()
	close(a.ch)
	a.mu.Unlock()
	a.wg.Wait()
}
