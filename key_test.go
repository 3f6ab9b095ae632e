package gridfetch_test

import (
	"math"
	"testing"

	"github.com/sagarc03/gridfetch"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildLookupKey_ObjectID(t *testing.T) {
	hex := "5f1d7c2e9b1e8a3d4c6b2a10"
	key := gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeObjectID, hex)

	want, err := primitive.ObjectIDFromHex(hex)
	assert.NoError(t, err)

	assert.Equal(t, gridfetch.FieldID, key.Field)
	assert.Equal(t, gridfetch.TypeObjectID, key.Type)
	assert.Equal(t, want, key.Value)
	assert.NoError(t, key.Check())
	assert.Equal(t, hex, key.String())
}

func TestBuildLookupKey_InvalidObjectIDFailsAtLookup(t *testing.T) {
	key := gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeObjectID, "not-an-id")

	assert.Error(t, key.Err)
	assert.ErrorIs(t, key.Check(), gridfetch.ErrNotFound)
}

func TestBuildLookupKey_Integer(t *testing.T) {
	key := gridfetch.BuildLookupKey(gridfetch.FieldID, gridfetch.TypeInteger, "42")

	assert.Equal(t, gridfetch.TypeInteger, key.Type)
	assert.Equal(t, int64(42), key.Value)
	assert.NoError(t, key.Check())
	assert.Equal(t, "42", key.String())
}

func TestBuildLookupKey_String(t *testing.T) {
	key := gridfetch.BuildLookupKey(gridfetch.FieldFilename, gridfetch.TypeString, "docs/a b.pdf")

	assert.Equal(t, gridfetch.FieldFilename, key.Field)
	assert.Equal(t, gridfetch.TypeString, key.Type)
	assert.Equal(t, "docs/a b.pdf", key.Value)
	assert.Equal(t, "docs/a b.pdf", key.String())
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"123", 123},
		{"-17", -17},
		{"+8", 8},
		{"  \t42", 42},
		{"12abc", 12},
		{"abc", 0},
		{"", 0},
		{"-", 0},
		{"9223372036854775807", math.MaxInt64},
		{"99999999999999999999", math.MaxInt64},
		{"-9223372036854775808", math.MinInt64},
		{"-99999999999999999999", math.MinInt64},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, gridfetch.ParseInteger(tt.in))
		})
	}
}

func TestParseFieldType(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    gridfetch.FieldType
		wantErr bool
	}{
		{name: "objectid", in: "objectid", want: gridfetch.TypeObjectID},
		{name: "case insensitive", in: "ObjectId", want: gridfetch.TypeObjectID},
		{name: "string", in: "string", want: gridfetch.TypeString},
		{name: "int", in: "int", want: gridfetch.TypeInteger},
		{name: "integer", in: "INTEGER", want: gridfetch.TypeInteger},
		{name: "empty is unset", in: "", want: gridfetch.TypeUnset},
		{name: "unsupported", in: "double", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gridfetch.ParseFieldType(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, gridfetch.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
