package internal_test

import (
	"strings"
	"testing"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/database/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTablesFor(t *testing.T) {
	t.Parallel()

	tables, err := internal.TablesFor(gridfetch.Namespace{Database: "gridfs", Root: "fs"})
	require.NoError(t, err)
	assert.Equal(t, "gridfs_fs_files", tables.Files)
	assert.Equal(t, "gridfs_fs_chunks", tables.Chunks)

	invalid := []gridfetch.Namespace{
		{Database: "GridFS", Root: "fs"},
		{Database: "gridfs", Root: "fs; drop"},
		{Database: "", Root: "fs"},
		{Database: strings.Repeat("a", 40), Root: strings.Repeat("b", 20)},
	}
	for _, ns := range invalid {
		_, err := internal.TablesFor(ns)
		assert.ErrorIs(t, err, gridfetch.ErrInvalidInput, "namespace %s", ns)
	}
}

func TestDecodeID(t *testing.T) {
	t.Parallel()

	oid := primitive.NewObjectID()
	v, err := internal.DecodeID("objectid", oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, v)

	v, err = internal.DecodeID("int", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = internal.DecodeID("string", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "a.txt", v)

	_, err = internal.DecodeID("objectid", "zz")
	assert.ErrorIs(t, err, gridfetch.ErrCorruptObject)

	_, err = internal.DecodeID("uuid", "x")
	assert.ErrorIs(t, err, gridfetch.ErrInvalidInput)
}

func TestKeyCondition(t *testing.T) {
	t.Parallel()

	question := func(int) string { return "?" }
	dollar := func(i int) string { return "$" + string(rune('0'+i)) }

	cond, args, err := internal.KeyCondition(gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeInteger, "007"), dollar)
	require.NoError(t, err)
	assert.Equal(t, "id = $1 AND id_type = $2", cond)
	assert.Equal(t, []any{"7", "int"}, args)

	cond, args, err = internal.KeyCondition(gridfetch.BuildLookupKey(gridfetch.FieldFilename, gridfetch.TypeString, "a.txt"), question)
	require.NoError(t, err)
	assert.Equal(t, "filename = ?", cond)
	assert.Equal(t, []any{"a.txt"}, args)

	_, _, err = internal.KeyCondition(gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeObjectID, "xyz"), question)
	assert.ErrorIs(t, err, gridfetch.ErrNotFound)

	_, _, err = internal.KeyCondition(gridfetch.BuildLookupKey("md5", gridfetch.TypeString, "x"), question)
	assert.ErrorIs(t, err, gridfetch.ErrInvalidInput)
}
