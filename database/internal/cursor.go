// Package internal holds the chunk plumbing shared by the database backends.
package internal

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/sagarc03/gridfetch"
)

// FetchFunc loads chunk n of an object. It returns nil data without error
// when the chunk does not exist.
type FetchFunc func(ctx context.Context, n int) ([]byte, error)

// Cursor is a gridfetch.Object that reads chunks one query at a time.
type Cursor struct {
	info  gridfetch.ObjectInfo
	fetch FetchFunc

	mu     sync.Mutex
	next   int
	closed bool
}

// NewCursor returns a cursor positioned before chunk 0.
func NewCursor(info gridfetch.ObjectInfo, fetch FetchFunc) *Cursor {
	return &Cursor{info: info, fetch: fetch}
}

func (c *Cursor) Info() gridfetch.ObjectInfo {
	return c.info
}

// ReadChunk returns the next chunk. A chunk missing from the store is
// reported as gridfetch.ErrCorruptObject.
func (c *Cursor) ReadChunk(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("read chunk: object closed")
	}
	if c.next >= c.info.NumChunks() {
		return nil, io.EOF
	}

	data, err := c.fetch(ctx, c.next)
	if err != nil {
		return nil, fmt.Errorf("read chunk %d: %w", c.next, err)
	}
	if data == nil {
		return nil, fmt.Errorf("read chunk %d: %w: chunk missing", c.next, gridfetch.ErrCorruptObject)
	}

	c.next++
	return data, nil
}

func (c *Cursor) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}
