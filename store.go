package gridfetch

import (
	"context"
	"io"
)

// Store defines the capabilities a chunked object store backend exposes.
// Implementations must be safe for concurrent use; each handle returned by
// FindOne is owned by a single caller.
type Store interface {
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// FindOne performs a single equality lookup of key in the files
	// collection of ns and opens a handle on the first match.
	//
	// Returns:
	//   - Object: handle positioned before chunk 0; the caller must Close it
	//   - error: ErrNotFound if nothing matches, or other backend errors
	FindOne(ctx context.Context, ns Namespace, key LookupKey) (Object, error)

	// Close releases the connection to the backend.
	Close(ctx context.Context) error
}

// Object is a handle on one stored object with a sequential chunk cursor.
type Object interface {
	// Info returns the metadata recorded for the object.
	Info() ObjectInfo

	// ReadChunk returns the next chunk and advances the cursor. The i-th
	// call returns chunk i; after Info().NumChunks() calls it returns io.EOF.
	// The returned slice is owned by the caller.
	ReadChunk(ctx context.Context) ([]byte, error)

	// Close releases the handle. It is safe to call more than once.
	Close() error
}

// Writer is implemented by backends that can import and delete objects.
// It is used by the administrative commands and never by the HTTP path.
type Writer interface {
	// Put splits content into chunks of obj.ChunkSize and records the object.
	Put(ctx context.Context, ns Namespace, obj PutObject, content io.Reader) (ObjectInfo, error)

	// Delete removes the first object matching key and all of its chunks.
	Delete(ctx context.Context, ns Namespace, key LookupKey) error
}

// Migrator is implemented by backends that need schema for a namespace.
type Migrator interface {
	Migrate(ctx context.Context, ns Namespace) error
	Validate(ctx context.Context, ns Namespace) error
}

// Dialer establishes a Store for a backend address.
type Dialer func(ctx context.Context, backend string) (Store, error)
