package channel

import (
	"context"
	"sync"
)

// Gate is a single-permit readiness signal. It starts closed; Open releases
// every current and future waiter and can be called any number of times.
type Gate struct {
	once sync.Once
	ch   chan struct{}
}

func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Open fires the gate. Only the first call has an effect.
func (g *Gate) Open() {
	g.once.Do(func() { close(g.ch) })
}

// Opened reports whether Open has been called.
func (g *Gate) Opened() bool {
	select {
	case <-g.ch:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the gate opens.
func (g *Gate) Done() <-chan struct{} { return g.ch }

// Wait blocks until the gate opens or ctx is done.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
