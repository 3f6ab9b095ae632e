package gridfetch

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// generation is one dialed store. It stays open while leases on it are
// outstanding, even after the Conn has moved on to a newer generation.
type generation struct {
	store   Store
	refs    int
	retired bool
	closed  bool
}

// Conn is a lazily established, shared connection to one backend.
type Conn struct {
	backend string
	dial    Dialer

	mu  sync.RWMutex
	gen *generation

	group singleflight.Group
}

// NewConn returns an unconnected Conn for backend.
func NewConn(backend string, dial Dialer) *Conn {
	return &Conn{backend: backend, dial: dial}
}

// Backend returns the address this connection dials.
func (c *Conn) Backend() string {
	return c.backend
}

// EnsureConnected returns the live store, dialing it first if needed.
// Concurrent callers share a single dial. A failed dial is not retried; the
// next call dials again.
func (c *Conn) EnsureConnected(ctx context.Context) (Store, error) {
	g, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	return g.store, nil
}

func (c *Conn) current(ctx context.Context) (*generation, error) {
	c.mu.RLock()
	g := c.gen
	c.mu.RUnlock()
	if g != nil {
		return g, nil
	}

	v, err, _ := c.group.Do("dial", func() (any, error) {
		c.mu.RLock()
		g := c.gen
		c.mu.RUnlock()
		if g != nil {
			return g, nil
		}

		s, err := c.dial(context.WithoutCancel(ctx), c.backend)
		if err != nil {
			ce := ClassifyConnectError(c.backend, err)
			slog.Error("backend connect failed", "backend", c.backend, "reason", ce.Reason, "err", ce.Err)
			return nil, ce
		}

		g = &generation{store: s}
		c.mu.Lock()
		c.gen = g
		c.mu.Unlock()

		slog.Info("backend connected", "backend", c.backend)
		return g, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*generation), nil
}

// checkout returns the live generation with one more reference held on it.
func (c *Conn) checkout(ctx context.Context) (*generation, error) {
	for {
		g, err := c.current(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == g {
			g.refs++
			c.mu.Unlock()
			return g, nil
		}
		c.mu.Unlock()

		// retired between the dial and the checkout
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// release drops a reference taken by checkout. A retired generation is
// closed once its last reference is gone.
func (c *Conn) release(ctx context.Context, g *generation, broken bool) {
	c.mu.Lock()
	if broken {
		c.retireLocked(g)
	}
	g.refs--
	closeNow := g.retired && g.refs == 0 && !g.closed
	if closeNow {
		g.closed = true
	}
	c.mu.Unlock()

	if closeNow {
		c.closeStore(ctx, g.store)
	}
}

func (c *Conn) retireLocked(g *generation) {
	if c.gen == g {
		c.gen = nil
	}
	g.retired = true
}

func (c *Conn) closeStore(ctx context.Context, s Store) {
	if err := s.Close(ctx); err != nil {
		slog.Warn("failed to close broken backend connection", "backend", c.backend, "err", err)
	}
}

// MarkBroken drops the current store so the next EnsureConnected redials.
// The old store is closed once no lease still uses it.
func (c *Conn) MarkBroken(ctx context.Context) {
	c.mu.Lock()
	g := c.gen
	closeNow := false
	if g != nil {
		c.retireLocked(g)
		closeNow = g.refs == 0 && !g.closed
		if closeNow {
			g.closed = true
		}
	}
	c.mu.Unlock()

	if closeNow {
		c.closeStore(ctx, g.store)
	}
}

// Close closes the store if it is connected.
func (c *Conn) Close(ctx context.Context) error {
	c.mu.Lock()
	g := c.gen
	if g != nil {
		c.retireLocked(g)
		if g.closed {
			g = nil
		} else {
			g.closed = true
		}
	}
	c.mu.Unlock()

	if g == nil {
		return nil
	}
	return g.store.Close(ctx)
}
