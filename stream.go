package gridfetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ChunkWriter receives a stored object as response headers followed by an
// ordered sequence of body chunks.
type ChunkWriter interface {
	// WriteHeader is called exactly once, before any chunk.
	WriteHeader(info ObjectInfo) error
	// WriteChunk hands one chunk to the transport. final is true exactly on
	// the chunk with index NumChunks()-1.
	WriteChunk(p []byte, final bool) error
}

// StreamOptions tune Stream.
type StreamOptions struct {
	// ReadTimeout bounds each chunk read. Zero means no per-chunk timeout.
	ReadTimeout time.Duration
}

// StreamStats reports how much of an object was written.
type StreamStats struct {
	HeaderSent bool
	Chunks     int
	Bytes      int64
}

// StreamError reports a failure at a chunk boundary.
type StreamError struct {
	Index int
	Op    string
	Err   error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream chunk %d: %s: %v", e.Index, e.Op, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// Stream writes obj to w: headers first, then chunks 0..N-1 in order. It stops
// at the first failed read or write; no chunk is written after a failure and
// the final flag is only set on a complete stream. The caller still owns obj
// and must close it.
func Stream(ctx context.Context, obj Object, w ChunkWriter, opts StreamOptions) (StreamStats, error) {
	var stats StreamStats
	info := obj.Info()

	if err := info.Validate(); err != nil {
		return stats, fmt.Errorf("stream: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("stream: %w", err)
	}

	if err := w.WriteHeader(info); err != nil {
		return stats, fmt.Errorf("stream: write header: %w: %w", ErrTransport, err)
	}
	stats.HeaderSent = true

	n := info.NumChunks()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return stats, &StreamError{Index: i, Op: "read", Err: err}
		}

		data, err := readChunk(ctx, obj, opts.ReadTimeout)
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = fmt.Errorf("%w: object ended after %d of %d chunks", ErrCorruptObject, i, n)
			}
			return stats, &StreamError{Index: i, Op: "read", Err: err}
		}

		if want := info.ChunkLength(i); int64(len(data)) != want {
			return stats, &StreamError{
				Index: i,
				Op:    "read",
				Err:   fmt.Errorf("%w: chunk is %d bytes, expected %d", ErrCorruptObject, len(data), want),
			}
		}

		if err := w.WriteChunk(data, i == n-1); err != nil {
			return stats, &StreamError{Index: i, Op: "write", Err: fmt.Errorf("%w: %w", ErrTransport, err)}
		}

		stats.Chunks++
		stats.Bytes += int64(len(data))
	}

	return stats, nil
}

func readChunk(ctx context.Context, obj Object, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		return obj.ReadChunk(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return obj.ReadChunk(ctx)
}
