package gridfetch_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/sagarc03/gridfetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type countingDialer struct {
	calls atomic.Int32
	delay time.Duration
	err   error
	store gridfetch.Store
}

func (d *countingDialer) Dial(ctx context.Context, backend string) (gridfetch.Store, error) {
	d.calls.Add(1)
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	if d.err != nil {
		return nil, d.err
	}
	return d.store, nil
}

func TestConn_EnsureConnected_Idempotent(t *testing.T) {
	store := new(SpyStore)
	d := &countingDialer{store: store}
	conn := gridfetch.NewConn("mongodb://localhost:27017", d.Dial)

	first, err := conn.EnsureConnected(context.Background())
	require.NoError(t, err)
	second, err := conn.EnsureConnected(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestConn_EnsureConnected_ConcurrentCallersShareDial(t *testing.T) {
	d := &countingDialer{store: new(SpyStore), delay: 50 * time.Millisecond}
	conn := gridfetch.NewConn("backend", d.Dial)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := conn.EnsureConnected(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), d.calls.Load())
}

func TestConn_EnsureConnected_FailureIsNotRetriedWithinCall(t *testing.T) {
	d := &countingDialer{err: gridfetch.NewConnectError(gridfetch.ReasonNotPrimary, errors.New("secondary"))}
	conn := gridfetch.NewConn("backend", d.Dial)

	_, err := conn.EnsureConnected(context.Background())
	var ce *gridfetch.ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, gridfetch.ReasonNotPrimary, ce.Reason)
	assert.Equal(t, "backend", ce.Backend)
	assert.Equal(t, int32(1), d.calls.Load())

	// the next request dials again
	d.err = nil
	d.store = new(SpyStore)
	_, err = conn.EnsureConnected(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int32(2), d.calls.Load())
}

func TestConn_MarkBroken_Redials(t *testing.T) {
	store := new(SpyStore)
	store.On("Close", mock.Anything).Return(nil)
	d := &countingDialer{store: store}
	conn := gridfetch.NewConn("backend", d.Dial)

	_, err := conn.EnsureConnected(context.Background())
	require.NoError(t, err)

	conn.MarkBroken(context.Background())

	_, err = conn.EnsureConnected(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), d.calls.Load())
	store.AssertNumberOfCalls(t, "Close", 1)
}

func TestClassifyConnectError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want gridfetch.ConnectReason
	}{
		{name: "explicit reason kept", err: gridfetch.NewConnectError(gridfetch.ReasonBadArguments, errors.New("bad uri")), want: gridfetch.ReasonBadArguments},
		{name: "too many open files", err: fmt.Errorf("dial: %w", syscall.EMFILE), want: gridfetch.ReasonNoSocket},
		{name: "connection refused", err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, want: gridfetch.ReasonConnectFailure},
		{name: "timeout", err: fmt.Errorf("server selection: %w", context.DeadlineExceeded), want: gridfetch.ReasonConnectFailure},
		{name: "anything else", err: errors.New("boom"), want: gridfetch.ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := gridfetch.ClassifyConnectError("backend", tt.err)
			assert.Equal(t, tt.want, ce.Reason)
			assert.Equal(t, "backend", ce.Backend)
			assert.Contains(t, ce.Error(), string(tt.want))
		})
	}
}

func TestPool_SharesConnPerBackend(t *testing.T) {
	d := &countingDialer{store: new(SpyStore)}
	pool := gridfetch.NewPool(d.Dial, gridfetch.PoolConfig{DefaultBackend: "default"})

	l1, err := pool.Acquire(context.Background(), "")
	require.NoError(t, err)
	l2, err := pool.Acquire(context.Background(), "default")
	require.NoError(t, err)
	l3, err := pool.Acquire(context.Background(), "other")
	require.NoError(t, err)

	l1.Release()
	l2.Release()
	l3.Release()

	assert.Equal(t, int32(2), d.calls.Load())
	assert.Equal(t, []string{"default", "other"}, pool.Backends())
	assert.Same(t, pool.Conn(""), pool.Conn("default"))
}

func TestPool_AcquireBlocksWhenFull(t *testing.T) {
	d := &countingDialer{store: new(SpyStore)}
	pool := gridfetch.NewPool(d.Dial, gridfetch.PoolConfig{MaxInFlight: 1})

	lease, err := pool.Acquire(context.Background(), "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx, "b")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// double release returns the slot once
	lease.Release()
	lease.Release()

	lease, err = pool.Acquire(context.Background(), "b")
	require.NoError(t, err)
	lease.Release()
}

func TestPool_AcquireReleasesSlotOnConnectFailure(t *testing.T) {
	d := &countingDialer{err: errors.New("refused")}
	pool := gridfetch.NewPool(d.Dial, gridfetch.PoolConfig{MaxInFlight: 1})

	_, err := pool.Acquire(context.Background(), "b")
	require.Error(t, err)

	d.err = nil
	d.store = new(SpyStore)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	lease, err := pool.Acquire(ctx, "b")
	require.NoError(t, err)
	lease.Release()
}

func TestPool_Close(t *testing.T) {
	store := new(SpyStore)
	store.On("Close", mock.Anything).Return(nil)
	d := &countingDialer{store: store}
	pool := gridfetch.NewPool(d.Dial, gridfetch.PoolConfig{})

	lease, err := pool.Acquire(context.Background(), "b")
	require.NoError(t, err)
	lease.Release()

	assert.NoError(t, pool.Close(context.Background()))
	store.AssertExpectations(t)
}

func TestPool_DiscardKeepsStoreOpenForOtherLeases(t *testing.T) {
	first := new(SpyStore)
	first.On("Close", mock.Anything).Return(nil)
	d := &countingDialer{store: first}
	pool := gridfetch.NewPool(d.Dial, gridfetch.PoolConfig{MaxInFlight: 2})

	streaming, err := pool.Acquire(context.Background(), "b")
	require.NoError(t, err)
	failing, err := pool.Acquire(context.Background(), "b")
	require.NoError(t, err)
	assert.Same(t, streaming.Store, failing.Store)

	failing.Discard(context.Background())
	first.AssertNotCalled(t, "Close", mock.Anything)

	// new leases go to a fresh store
	second := new(SpyStore)
	d.store = second
	next, err := pool.Acquire(context.Background(), "b")
	require.NoError(t, err)
	assert.Same(t, second, next.Store)
	assert.Equal(t, int32(2), d.calls.Load())
	next.Release()

	streaming.Release()
	first.AssertNumberOfCalls(t, "Close", 1)

	// the replacement store stays open
	second.AssertNotCalled(t, "Close", mock.Anything)
}

func TestPool_DiscardAfterRedialDoesNotRetireNewStore(t *testing.T) {
	first := new(SpyStore)
	first.On("Close", mock.Anything).Return(nil)
	d := &countingDialer{store: first}
	pool := gridfetch.NewPool(d.Dial, gridfetch.PoolConfig{MaxInFlight: 2})

	a, err := pool.Acquire(context.Background(), "b")
	require.NoError(t, err)
	b, err := pool.Acquire(context.Background(), "b")
	require.NoError(t, err)

	a.Discard(context.Background())
	d.store = new(SpyStore)
	c, err := pool.Acquire(context.Background(), "b")
	require.NoError(t, err)
	c.Release()

	b.Discard(context.Background())
	first.AssertNumberOfCalls(t, "Close", 1)

	// the redialed store is still the live one
	l, err := pool.Acquire(context.Background(), "b")
	require.NoError(t, err)
	l.Release()
	assert.Equal(t, int32(2), d.calls.Load())
}
