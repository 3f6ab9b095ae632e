package gridfetch

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Field is the stored-object attribute a route matches the request key against.
type Field string

const (
	FieldID       Field = "_id"
	FieldFilename Field = "filename"
)

func (f Field) IsValid() bool {
	switch f {
	case FieldID, FieldFilename:
		return true
	default:
		return false
	}
}

// FieldType is the type the decoded request key is coerced to before lookup.
type FieldType int

const (
	TypeUnset FieldType = iota
	TypeObjectID
	TypeInteger
	TypeString
)

func (t FieldType) String() string {
	switch t {
	case TypeObjectID:
		return "objectid"
	case TypeInteger:
		return "int"
	case TypeString:
		return "string"
	default:
		return "unset"
	}
}

func (t FieldType) IsValid() bool {
	switch t {
	case TypeObjectID, TypeInteger, TypeString:
		return true
	default:
		return false
	}
}

// ParseFieldType parses a configured type name. Names are case-insensitive and
// an empty name yields TypeUnset so the value is inherited on merge.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return TypeUnset, nil
	case "objectid":
		return TypeObjectID, nil
	case "int", "integer":
		return TypeInteger, nil
	case "string":
		return TypeString, nil
	default:
		return TypeUnset, fmt.Errorf("parse field type: %w: unsupported type %q (valid types: objectid, string, int)", ErrInvalidInput, s)
	}
}

// Namespace addresses the files and chunks collections of one object store root.
type Namespace struct {
	Database string
	Root     string
}

func (n Namespace) String() string {
	return n.Database + "." + n.Root
}

func (n Namespace) FilesCollection() string {
	return n.Root + ".files"
}

func (n Namespace) ChunksCollection() string {
	return n.Root + ".chunks"
}

// ObjectInfo describes a stored object as recorded in the files collection.
type ObjectInfo struct {
	ID          any       `json:"id"`
	Filename    string    `json:"filename"`
	Length      int64     `json:"length"`
	ChunkSize   int64     `json:"chunk_size"`
	ContentType string    `json:"content_type,omitempty"`
	UploadDate  time.Time `json:"upload_date"`
	MD5         string    `json:"md5,omitempty"`
}

// NumChunks is the number of chunk records holding the object's bytes.
func (o ObjectInfo) NumChunks() int {
	if o.Length <= 0 || o.ChunkSize <= 0 {
		return 0
	}
	return int((o.Length + o.ChunkSize - 1) / o.ChunkSize)
}

// ChunkLength is the expected byte length of chunk i.
func (o ObjectInfo) ChunkLength(i int) int64 {
	n := o.NumChunks()
	if i < 0 || i >= n {
		return 0
	}
	if i == n-1 {
		return o.Length - int64(n-1)*o.ChunkSize
	}
	return o.ChunkSize
}

// Validate checks that the object can be streamed with bounded buffers.
func (o ObjectInfo) Validate() error {
	if o.Length < 0 {
		return fmt.Errorf("validate object: %w: negative length %d", ErrCorruptObject, o.Length)
	}
	if o.Length == 0 {
		return nil
	}
	if o.ChunkSize <= 0 || o.ChunkSize > MaxChunkSize {
		return fmt.Errorf("validate object: %w: chunk size %d", ErrAllocation, o.ChunkSize)
	}
	return nil
}

// PutObject describes an object to be written into a store.
type PutObject struct {
	Key         LookupKey
	Filename    string
	ContentType string
	ChunkSize   int64
}

const (
	// DefaultChunkSize matches the GridFS default of 255 KiB.
	DefaultChunkSize int64 = 255 * 1024
	// MaxChunkSize bounds the per-chunk buffer a single request may hold.
	MaxChunkSize int64 = 16 * 1024 * 1024
)

var validIdentifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// IsValidIdentifier checks if a database or root name can be used as part of
// a SQL identifier (lowercase, alphanumeric with underscores, max 63 chars).
func IsValidIdentifier(name string) bool {
	return validIdentifierRegex.MatchString(name) && len(name) <= 63
}
