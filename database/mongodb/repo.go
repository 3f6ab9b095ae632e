package mongodb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/internal"
)

// fileDoc is a document of the <root>.files collection.
type fileDoc struct {
	ID          any       `bson:"_id"`
	Length      int64     `bson:"length"`
	ChunkSize   int64     `bson:"chunkSize"`
	UploadDate  time.Time `bson:"uploadDate"`
	Filename    string    `bson:"filename,omitempty"`
	ContentType string    `bson:"contentType,omitempty"`
	MD5         string    `bson:"md5,omitempty"`
	Metadata    *struct {
		ContentType string `bson:"contentType"`
	} `bson:"metadata,omitempty"`
}

func (f fileDoc) info() gridfetch.ObjectInfo {
	id := f.ID
	if v, ok := id.(int32); ok {
		id = int64(v)
	}

	contentType := f.ContentType
	if contentType == "" && f.Metadata != nil {
		contentType = f.Metadata.ContentType
	}

	return gridfetch.ObjectInfo{
		ID:          id,
		Filename:    f.Filename,
		Length:      f.Length,
		ChunkSize:   f.ChunkSize,
		ContentType: contentType,
		UploadDate:  f.UploadDate,
		MD5:         f.MD5,
	}
}

type chunkDoc struct {
	Data []byte `bson:"data"`
}

func keyFilter(key gridfetch.LookupKey) (bson.D, *options.FindOneOptions, error) {
	if err := key.Check(); err != nil {
		return nil, nil, err
	}

	switch key.Field {
	case gridfetch.FieldID:
		return bson.D{{Key: "_id", Value: key.Value}}, options.FindOne(), nil
	case gridfetch.FieldFilename:
		opts := options.FindOne().SetSort(bson.D{{Key: "uploadDate", Value: 1}, {Key: "_id", Value: 1}})
		return bson.D{{Key: "filename", Value: key.Value}}, opts, nil
	default:
		return nil, nil, fmt.Errorf("%w: unsupported field %q", gridfetch.ErrInvalidInput, key.Field)
	}
}

func (d *Database) findFile(ctx context.Context, ns gridfetch.Namespace, key gridfetch.LookupKey) (fileDoc, error) {
	filter, opts, err := keyFilter(key)
	if err != nil {
		return fileDoc{}, err
	}

	var doc fileDoc
	if err := d.files(ns).FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fileDoc{}, gridfetch.ErrNotFound
		}
		return fileDoc{}, fmt.Errorf("find file: %w", err)
	}
	return doc, nil
}

// FindOne looks up the first object matching key. Filename matches are
// ordered by upload date.
func (d *Database) FindOne(ctx context.Context, ns gridfetch.Namespace, key gridfetch.LookupKey) (gridfetch.Object, error) {
	doc, err := d.findFile(ctx, ns, key)
	if err != nil {
		return nil, fmt.Errorf("find one: %w", err)
	}

	chunks := d.chunks(ns)
	fetch := func(ctx context.Context, n int) ([]byte, error) {
		var c chunkDoc
		err := chunks.FindOne(ctx, bson.D{{Key: "files_id", Value: doc.ID}, {Key: "n", Value: n}}).Decode(&c)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if c.Data == nil {
			c.Data = []byte{}
		}
		return c.Data, nil
	}

	return internal.NewCursor(doc.info(), fetch), nil
}

func (d *Database) bucket(ns gridfetch.Namespace, chunkSize int64) (*gridfs.Bucket, error) {
	opts := options.GridFSBucket().SetName(ns.Root)
	if chunkSize > 0 {
		opts.SetChunkSizeBytes(int32(chunkSize)) //nolint:gosec // bounded by MaxChunkSize
	}
	bucket, err := gridfs.NewBucket(d.client.Database(ns.Database), opts)
	if err != nil {
		return nil, fmt.Errorf("open bucket %s: %w", ns, err)
	}
	return bucket, nil
}

// setDeadline carries the context deadline over to the bucket, which takes
// no context on uploads.
func setDeadline(ctx context.Context, bucket *gridfs.Bucket) error {
	if dl, ok := ctx.Deadline(); ok {
		return bucket.SetWriteDeadline(dl)
	}
	return nil
}

// Put uploads content as a new GridFS object through the driver's bucket.
// The content type goes into metadata.contentType and the md5 of the content
// is recorded on the files document.
func (d *Database) Put(ctx context.Context, ns gridfetch.Namespace, obj gridfetch.PutObject, content io.Reader) (gridfetch.ObjectInfo, error) {
	obj, err := internal.Prepare(obj)
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	files := d.files(ns)
	id := obj.Key.Value

	// a failed upload removes every chunk carrying its id, so an existing
	// object must be refused before the bucket touches its chunks
	n, err := files.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}}, options.Count().SetLimit(1))
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: check existing: %w", err)
	}
	if n > 0 {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w: object %s already exists", gridfetch.ErrInvalidInput, obj.Key.String())
	}

	bucket, err := d.bucket(ns, obj.ChunkSize)
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}
	if err := setDeadline(ctx, bucket); err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: %w", err)
	}

	upload := options.GridFSUpload()
	if obj.ContentType != "" {
		upload.SetMetadata(bson.D{{Key: "contentType", Value: obj.ContentType}})
	}

	sum := internal.NewChecksum(content)
	if err := bucket.UploadFromStreamWithID(id, obj.Filename, sum, upload); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			err = fmt.Errorf("%w: object %s already exists", gridfetch.ErrInvalidInput, obj.Key.String())
		}
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: upload: %w", err)
	}

	var doc fileDoc
	err = files.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "md5", Value: sum.MD5()}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return gridfetch.ObjectInfo{}, fmt.Errorf("put: record md5: %w", err)
	}

	return doc.info(), nil
}

// Delete removes the first object matching key and its chunks.
func (d *Database) Delete(ctx context.Context, ns gridfetch.Namespace, key gridfetch.LookupKey) error {
	doc, err := d.findFile(ctx, ns, key)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	bucket, err := d.bucket(ns, 0)
	if err != nil {
		return fmt.Errorf("delete: %w", err)
	}

	if err := bucket.DeleteContext(ctx, doc.ID); err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return fmt.Errorf("delete: %w", gridfetch.ErrNotFound)
		}
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
