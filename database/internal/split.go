package internal

import (
	"crypto/md5" //nolint:gosec // GridFS records md5 as a content checksum
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"mime"
	"path/filepath"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sagarc03/gridfetch"
)

// Prepare fills defaults on obj before it is written: a fresh ObjectID key,
// the default chunk size and a content type guessed from the filename.
func Prepare(obj gridfetch.PutObject) (gridfetch.PutObject, error) {
	if obj.Key.Value == nil {
		obj.Key = gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeObjectID, primitive.NewObjectID().Hex())
	}
	if obj.Key.Field != gridfetch.FieldID {
		return obj, fmt.Errorf("prepare object: %w: objects are written by %s, not %s", gridfetch.ErrInvalidInput, gridfetch.FieldID, obj.Key.Field)
	}
	if obj.Key.Err != nil {
		return obj, fmt.Errorf("prepare object: %w: %w", gridfetch.ErrInvalidInput, obj.Key.Err)
	}

	if obj.ChunkSize == 0 {
		obj.ChunkSize = gridfetch.DefaultChunkSize
	}
	if obj.ChunkSize < 0 || obj.ChunkSize > gridfetch.MaxChunkSize {
		return obj, fmt.Errorf("prepare object: %w: chunk size %d out of range", gridfetch.ErrInvalidInput, obj.ChunkSize)
	}

	if obj.ContentType == "" && obj.Filename != "" {
		obj.ContentType = mime.TypeByExtension(filepath.Ext(obj.Filename))
	}

	return obj, nil
}

// Split reads r in chunkSize pieces and calls fn with each chunk index and its
// data. It returns the total length and the hex md5 of the content.
func Split(r io.Reader, chunkSize int64, fn func(n int, data []byte) error) (int64, string, error) {
	if chunkSize <= 0 {
		return 0, "", fmt.Errorf("split: %w: chunk size %d", gridfetch.ErrInvalidInput, chunkSize)
	}

	sum := NewChecksum(r)
	buf := make([]byte, chunkSize)

	for n := 0; ; n++ {
		read, err := io.ReadFull(sum, buf)
		if read > 0 {
			chunk := make([]byte, read)
			copy(chunk, buf[:read])
			if ferr := fn(n, chunk); ferr != nil {
				return sum.Length(), "", fmt.Errorf("split: chunk %d: %w", n, ferr)
			}
		}

		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return sum.Length(), "", fmt.Errorf("split: read: %w", err)
		}
	}

	return sum.Length(), sum.MD5(), nil
}

// Checksum counts and hashes everything read through it.
type Checksum struct {
	r io.Reader
	h hash.Hash
	n int64
}

// NewChecksum wraps r.
func NewChecksum(r io.Reader) *Checksum {
	return &Checksum{r: r, h: md5.New()} //nolint:gosec // checksum, not security
}

func (c *Checksum) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.h.Write(p[:n])
		c.n += int64(n)
	}
	return n, err
}

// Length returns the number of bytes read so far.
func (c *Checksum) Length() int64 { return c.n }

// MD5 returns the hex md5 of the bytes read so far.
func (c *Checksum) MD5() string { return hex.EncodeToString(c.h.Sum(nil)) }
