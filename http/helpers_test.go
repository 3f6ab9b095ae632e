package http_test

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"

	"github.com/sagarc03/gridfetch"
	"github.com/stretchr/testify/mock"
)

// MockService is a mock implementation of http.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Open(ctx context.Context, loc gridfetch.Location, raw string) (gridfetch.Object, error) {
	args := m.Called(ctx, loc, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(gridfetch.Object), args.Error(1)
}

// testObject serves chunks from memory and can fail at a chosen chunk.
type testObject struct {
	info    gridfetch.ObjectInfo
	data    []byte
	next    int64
	failAt  int64
	failErr error
	onRead  func(n int64)
	closed  atomic.Int32
}

func newTestObject(length, chunkSize int64) *testObject {
	data := bytes.Repeat([]byte("gridfetch-"), int(length/10)+1)[:length]
	return &testObject{
		info: gridfetch.ObjectInfo{
			ID:        "5f1d7c2e9b1e8a3d4c6b2a10",
			Filename:  "object.bin",
			Length:    length,
			ChunkSize: chunkSize,
		},
		data:   data,
		failAt: -1,
	}
}

func (o *testObject) Info() gridfetch.ObjectInfo { return o.info }

func (o *testObject) ReadChunk(ctx context.Context) ([]byte, error) {
	if o.onRead != nil {
		o.onRead(o.next)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.next == o.failAt {
		return nil, o.failErr
	}
	start := o.next * o.info.ChunkSize
	if start >= int64(len(o.data)) {
		return nil, io.EOF
	}
	end := min(start+o.info.ChunkSize, int64(len(o.data)))
	o.next++
	return o.data[start:end], nil
}

func (o *testObject) Close() error {
	o.closed.Add(1)
	return nil
}
