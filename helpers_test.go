package gridfetch_test

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"

	"github.com/sagarc03/gridfetch"
	"github.com/stretchr/testify/mock"
)

// SpyStore is a mock implementation of gridfetch.Store
type SpyStore struct {
	mock.Mock
}

func (s *SpyStore) Ping(ctx context.Context) error {
	args := s.Called(ctx)
	return args.Error(0)
}

func (s *SpyStore) FindOne(ctx context.Context, ns gridfetch.Namespace, key gridfetch.LookupKey) (gridfetch.Object, error) {
	args := s.Called(ctx, ns, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(gridfetch.Object), args.Error(1)
}

func (s *SpyStore) Close(ctx context.Context) error {
	args := s.Called(ctx)
	return args.Error(0)
}

// memObject serves chunks of an in-memory byte slice.
type memObject struct {
	info    gridfetch.ObjectInfo
	data    []byte
	next    int
	failAt  int
	failErr error
	reads   int
	closed  atomic.Int32
}

func newMemObject(length, chunkSize int64) *memObject {
	data := bytes.Repeat([]byte("0123456789abcdef"), int(length/16)+1)[:length]
	return &memObject{
		info: gridfetch.ObjectInfo{
			ID:          "obj",
			Filename:    "obj.bin",
			Length:      length,
			ChunkSize:   chunkSize,
			ContentType: "application/x-test",
		},
		data:   data,
		failAt: -1,
	}
}

func (o *memObject) Info() gridfetch.ObjectInfo { return o.info }

func (o *memObject) ReadChunk(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	o.reads++
	if o.next == o.failAt {
		return nil, o.failErr
	}
	start := int64(o.next) * o.info.ChunkSize
	if start >= int64(len(o.data)) {
		return nil, io.EOF
	}
	end := min(start+o.info.ChunkSize, int64(len(o.data)))
	o.next++
	out := make([]byte, end-start)
	copy(out, o.data[start:end])
	return out, nil
}

func (o *memObject) Close() error {
	o.closed.Add(1)
	return nil
}

type writtenChunk struct {
	size  int
	final bool
}

// recordingWriter records what Stream hands to the transport.
type recordingWriter struct {
	headers   int
	info      gridfetch.ObjectInfo
	chunks    []writtenChunk
	body      bytes.Buffer
	failAt    int
	failErr   error
	headerErr error
}

func newRecordingWriter() *recordingWriter {
	return &recordingWriter{failAt: -1}
}

func (w *recordingWriter) WriteHeader(info gridfetch.ObjectInfo) error {
	w.headers++
	w.info = info
	return w.headerErr
}

func (w *recordingWriter) WriteChunk(p []byte, final bool) error {
	if len(w.chunks) == w.failAt {
		return w.failErr
	}
	w.chunks = append(w.chunks, writtenChunk{size: len(p), final: final})
	w.body.Write(p)
	return nil
}

func (w *recordingWriter) finals() int {
	n := 0
	for _, c := range w.chunks {
		if c.final {
			n++
		}
	}
	return n
}
