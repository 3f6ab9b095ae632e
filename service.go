package gridfetch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Service resolves request keys to stored objects through a Pool.
type Service struct {
	pool          *Pool
	lookupTimeout time.Duration
}

// ServiceConfig holds configuration options for Service.
type ServiceConfig struct {
	LookupTimeout time.Duration // Timeout for the lookup query (default: 10s)
}

func NewService(pool *Pool, cfg ServiceConfig) (*Service, error) {
	if pool == nil {
		return nil, fmt.Errorf("new service: %w: pool cannot be nil", ErrInvalidInput)
	}
	lookupTimeout := cfg.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = 10 * time.Second
	}
	return &Service{
		pool:          pool,
		lookupTimeout: lookupTimeout,
	}, nil
}

// Open decodes raw, looks it up on the location's backend and returns a handle
// on the matching object. Closing the handle also returns the backend lease.
//
// Error types returned:
//   - ErrMalformedInput: raw contains an invalid percent-escape
//   - *ConnectError: the backend could not be reached
//   - ErrNotFound: no object matches the key
//   - ErrAllocation, ErrCorruptObject: the object metadata cannot be streamed
//   - context.Canceled or context.DeadlineExceeded: the request ended
func (s *Service) Open(ctx context.Context, loc Location, raw string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}

	decoded, err := DecodeKey(raw)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}

	lease, err := s.pool.Acquire(ctx, loc.Backend)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}

	key := BuildLookupKey(loc.Field, loc.Type, decoded)

	lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
	obj, err := lease.Store.FindOne(lookupCtx, loc.Namespace(), key)
	cancel()
	if err != nil {
		if !errors.Is(err, ErrNotFound) && isConnectionError(err) {
			lease.Discard(context.WithoutCancel(ctx))
		} else {
			lease.Release()
		}
		return nil, fmt.Errorf("open object %s in %s: %w", key.String(), loc.Namespace(), err)
	}

	if err := obj.Info().Validate(); err != nil {
		_ = obj.Close()
		lease.Release()
		return nil, fmt.Errorf("open object %s in %s: %w", key.String(), loc.Namespace(), err)
	}

	return &leasedObject{Object: obj, lease: lease}, nil
}

func isConnectionError(err error) bool {
	var ce *ConnectError
	if errors.As(err, &ce) {
		return true
	}
	return ClassifyConnectError("", err).Reason != ReasonUnknown &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, context.Canceled)
}

type leasedObject struct {
	Object
	lease *Lease

	once sync.Once
	err  error
}

func (o *leasedObject) Close() error {
	o.once.Do(func() {
		o.err = o.Object.Close()
		o.lease.Release()
	})
	return o.err
}
