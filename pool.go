package gridfetch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxInFlight bounds concurrent leases per backend when PoolConfig
// does not set a limit.
const DefaultMaxInFlight = 256

// PoolConfig holds configuration options for Pool.
type PoolConfig struct {
	// DefaultBackend is dialed for routes that do not override the backend.
	DefaultBackend string
	// MaxInFlight is the number of concurrent leases per backend (default: 256).
	MaxInFlight int
}

// Pool hands out leases on backend connections. Routes that name the same
// backend share one Conn; each lease occupies one of MaxInFlight slots until
// it is released.
type Pool struct {
	dial           Dialer
	defaultBackend string
	maxInFlight    int

	mu    sync.Mutex
	conns map[string]*pooledConn
}

type pooledConn struct {
	conn  *Conn
	slots *semaphore.Weighted
}

// NewPool creates a Pool that establishes connections with dial.
func NewPool(dial Dialer, cfg PoolConfig) *Pool {
	maxInFlight := cfg.MaxInFlight
	if maxInFlight <= 0 {
		maxInFlight = DefaultMaxInFlight
	}
	return &Pool{
		dial:           dial,
		defaultBackend: cfg.DefaultBackend,
		maxInFlight:    maxInFlight,
		conns:          make(map[string]*pooledConn),
	}
}

func (p *Pool) get(backend string) *pooledConn {
	if backend == "" {
		backend = p.defaultBackend
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pc, ok := p.conns[backend]
	if !ok {
		pc = &pooledConn{
			conn:  NewConn(backend, p.dial),
			slots: semaphore.NewWeighted(int64(p.maxInFlight)),
		}
		p.conns[backend] = pc
	}
	return pc
}

// Conn returns the shared connection for backend without leasing it.
func (p *Pool) Conn(backend string) *Conn {
	return p.get(backend).conn
}

// Acquire checks out a lease on backend, connecting first if needed.
// The caller must call Release on the returned lease.
func (p *Pool) Acquire(ctx context.Context, backend string) (*Lease, error) {
	pc := p.get(backend)

	if err := pc.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire %s: %w", pc.conn.Backend(), err)
	}

	gen, err := pc.conn.checkout(ctx)
	if err != nil {
		pc.slots.Release(1)
		return nil, err
	}

	return &Lease{Store: gen.store, pc: pc, gen: gen}, nil
}

// Backends lists the backends the pool has seen, sorted.
func (p *Pool) Backends() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.conns))
	for b := range p.conns {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

// Close closes every connection in the pool.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	conns := make([]*Conn, 0, len(p.conns))
	for _, pc := range p.conns {
		conns = append(conns, pc.conn)
	}
	p.mu.Unlock()

	var firstErr error
	for _, c := range conns {
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close pool: %w", err)
		}
	}
	return firstErr
}

// Lease is a checked-out connection slot.
type Lease struct {
	Store Store

	pc   *pooledConn
	gen  *generation
	once sync.Once
}

// Release returns the slot to the pool. It is safe to call more than once.
func (l *Lease) Release() {
	l.finish(context.Background(), false)
}

// Discard marks the store this lease was taken on as broken and releases
// the lease. The next Acquire dials a new store; leases still streaming from
// the old one keep it open until they are released.
func (l *Lease) Discard(ctx context.Context) {
	l.finish(ctx, true)
}

func (l *Lease) finish(ctx context.Context, broken bool) {
	l.once.Do(func() {
		l.pc.conn.release(ctx, l.gen, broken)
		l.pc.slots.Release(1)
	})
}
