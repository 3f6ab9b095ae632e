package mongodb_test

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // test checksum
	"encoding/hex"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/mongodb"
)

func readAll(t *testing.T, obj gridfetch.Object) []byte {
	t.Helper()
	var out []byte
	for {
		data, err := obj.ReadChunk(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, data...)
	}
}

func TestConnect_BadURI(t *testing.T) {
	_, err := mongodb.Connect(context.Background(), "mongodb://host:notaport", time.Second)

	var ce *gridfetch.ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, gridfetch.ReasonBadArguments, ce.Reason)
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := mongodb.Connect(context.Background(), "mongodb://127.0.0.1:1/?connect=direct", 200*time.Millisecond)

	var ce *gridfetch.ConnectError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, gridfetch.ReasonConnectFailure, ce.Reason)
}

func TestDatabase_MigrateAndValidate(t *testing.T) {
	ctx := context.Background()
	db, ns := setupTestDB(t)

	assert.NoError(t, db.Ping(ctx))
	assert.NoError(t, db.Validate(ctx, ns))
	assert.NoError(t, db.Migrate(ctx, ns), "migrate is idempotent")
	assert.Error(t, db.Validate(ctx, gridfetch.Namespace{Database: "gridfs", Root: "unmigrated"}))
}

func TestDatabase_PutFindOne(t *testing.T) {
	ctx := context.Background()
	db, ns := setupTestDB(t)

	content := bytes.Repeat([]byte{0, 1, 2, 3, 0xff}, 100_000)
	info, err := db.Put(ctx, ns, gridfetch.PutObject{Filename: "blob.bin", ChunkSize: 255 * 1024}, bytes.NewReader(content))
	require.NoError(t, err)
	assert.Equal(t, 2, info.NumChunks())

	oid, ok := info.ID.(primitive.ObjectID)
	require.True(t, ok)

	t.Run("by id", func(t *testing.T) {
		obj, err := db.FindOne(ctx, ns, gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeObjectID, oid.Hex()))
		require.NoError(t, err)
		defer func() { _ = obj.Close() }()

		got := obj.Info()
		assert.Equal(t, oid, got.ID)
		assert.Equal(t, int64(len(content)), got.Length)
		assert.Equal(t, info.MD5, got.MD5)
		assert.True(t, info.UploadDate.Equal(got.UploadDate))
		assert.Equal(t, content, readAll(t, obj))
	})

	t.Run("by filename", func(t *testing.T) {
		obj, err := db.FindOne(ctx, ns, gridfetch.BuildLookupKey(gridfetch.FieldFilename, gridfetch.TypeString, "blob.bin"))
		require.NoError(t, err)
		defer func() { _ = obj.Close() }()
		assert.Equal(t, oid, obj.Info().ID)
	})

	t.Run("unknown object id", func(t *testing.T) {
		_, err := db.FindOne(ctx, ns, gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeObjectID, primitive.NewObjectID().Hex()))
		assert.ErrorIs(t, err, gridfetch.ErrNotFound)
	})

	t.Run("malformed object id", func(t *testing.T) {
		_, err := db.FindOne(ctx, ns, gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeObjectID, "abc"))
		assert.ErrorIs(t, err, gridfetch.ErrNotFound)
	})
}

func TestDatabase_IntegerIDs(t *testing.T) {
	ctx := context.Background()
	db, ns := setupTestDB(t)

	_, err := db.Put(ctx, ns, gridfetch.PutObject{
		Key:      gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeInteger, "1001"),
		Filename: "n.txt",
	}, bytes.NewReader([]byte("one thousand and one")))
	require.NoError(t, err)

	obj, err := db.FindOne(ctx, ns, gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeInteger, "1001abc"))
	require.NoError(t, err)
	assert.Equal(t, int64(1001), obj.Info().ID)
	assert.Equal(t, "one thousand and one", string(readAll(t, obj)))
	_ = obj.Close()

	_, err = db.FindOne(ctx, ns, gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeString, "1001"))
	assert.ErrorIs(t, err, gridfetch.ErrNotFound)
}

func TestDatabase_PutDuplicate(t *testing.T) {
	ctx := context.Background()
	db, ns := setupTestDB(t)

	key := gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeString, "logo")
	_, err := db.Put(ctx, ns, gridfetch.PutObject{Key: key}, bytes.NewReader([]byte("a")))
	require.NoError(t, err)

	_, err = db.Put(ctx, ns, gridfetch.PutObject{Key: key}, bytes.NewReader([]byte("b")))
	assert.ErrorIs(t, err, gridfetch.ErrInvalidInput)

	obj, err := db.FindOne(ctx, ns, key)
	require.NoError(t, err)
	assert.Equal(t, "a", string(readAll(t, obj)))
}

func TestDatabase_Delete(t *testing.T) {
	ctx := context.Background()
	db, ns := setupTestDB(t)

	key := gridfetch.BuildLookupKey(gridfetch.FieldFilename, gridfetch.TypeString, "gone.txt")
	_, err := db.Put(ctx, ns, gridfetch.PutObject{Filename: "gone.txt", ChunkSize: 2}, bytes.NewReader([]byte("abcdef")))
	require.NoError(t, err)

	require.NoError(t, db.Delete(ctx, ns, key))

	_, err = db.FindOne(ctx, ns, key)
	assert.ErrorIs(t, err, gridfetch.ErrNotFound)
	assert.ErrorIs(t, db.Delete(ctx, ns, key), gridfetch.ErrNotFound)
}

func rawClient(t *testing.T) *mongo.Client {
	t.Helper()
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(getSharedTestURI(t)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client
}

func TestDatabase_Put_ReadableByGridFSClients(t *testing.T) {
	ctx := context.Background()
	db, ns := setupTestDB(t)
	client := rawClient(t)

	content := []byte(`{"hello":"gridfs"}`)
	info, err := db.Put(ctx, ns, gridfetch.PutObject{Filename: "hello.json", ChunkSize: 4}, bytes.NewReader(content))
	require.NoError(t, err)

	sum := md5.Sum(content) //nolint:gosec // test checksum
	assert.Equal(t, hex.EncodeToString(sum[:]), info.MD5)
	assert.Equal(t, "application/json", info.ContentType)
	assert.Equal(t, int64(4), info.ChunkSize)

	bucket, err := gridfs.NewBucket(client.Database(ns.Database), options.GridFSBucket().SetName(ns.Root))
	require.NoError(t, err)
	var buf bytes.Buffer
	_, err = bucket.DownloadToStream(info.ID, &buf)
	require.NoError(t, err)
	assert.Equal(t, content, buf.Bytes())

	var raw struct {
		Filename string `bson:"filename"`
		Metadata struct {
			ContentType string `bson:"contentType"`
		} `bson:"metadata"`
	}
	err = client.Database(ns.Database).Collection(ns.FilesCollection()).
		FindOne(ctx, bson.D{{Key: "_id", Value: info.ID}}).Decode(&raw)
	require.NoError(t, err)
	assert.Equal(t, "hello.json", raw.Filename)
	assert.Equal(t, "application/json", raw.Metadata.ContentType)

	chunks := client.Database(ns.Database).Collection(ns.ChunksCollection())
	n, err := chunks.CountDocuments(ctx, bson.D{{Key: "files_id", Value: info.ID}})
	require.NoError(t, err)
	assert.Equal(t, int64(info.NumChunks()), n)

	require.NoError(t, db.Delete(ctx, ns, gridfetch.BuildLookupKey(gridfetch.FieldFilename, gridfetch.TypeString, "hello.json")))
	n, err = chunks.CountDocuments(ctx, bson.D{{Key: "files_id", Value: info.ID}})
	require.NoError(t, err)
	assert.Zero(t, n)
}
