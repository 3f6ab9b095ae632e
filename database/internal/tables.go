package internal

import (
	"fmt"

	"github.com/sagarc03/gridfetch"
)

// Tables names the SQL tables that hold one namespace.
type Tables struct {
	Files  string
	Chunks string
}

// TablesFor maps a namespace onto table names of the form
// <database>_<root>_files and <database>_<root>_chunks.
func TablesFor(ns gridfetch.Namespace) (Tables, error) {
	if !gridfetch.IsValidIdentifier(ns.Database) {
		return Tables{}, fmt.Errorf("tables for %s: %w: invalid database name %q", ns, gridfetch.ErrInvalidInput, ns.Database)
	}
	if !gridfetch.IsValidIdentifier(ns.Root) {
		return Tables{}, fmt.Errorf("tables for %s: %w: invalid root collection %q", ns, gridfetch.ErrInvalidInput, ns.Root)
	}

	t := Tables{
		Files:  ns.Database + "_" + ns.Root + "_files",
		Chunks: ns.Database + "_" + ns.Root + "_chunks",
	}
	if !gridfetch.IsValidIdentifier(t.Chunks) {
		return Tables{}, fmt.Errorf("tables for %s: %w: table name too long", ns, gridfetch.ErrInvalidInput)
	}
	return t, nil
}

// DecodeID rebuilds the typed object id stored as canonical text.
func DecodeID(idType, id string) (any, error) {
	typ, err := gridfetch.ParseFieldType(idType)
	if err != nil {
		return nil, fmt.Errorf("decode id: %w", err)
	}
	key := gridfetch.BuildLookupKey(gridfetch.FieldID, typ, id)
	if key.Err != nil {
		return nil, fmt.Errorf("decode id: %w: %w", gridfetch.ErrCorruptObject, key.Err)
	}
	return key.Value, nil
}

// KeyCondition returns the WHERE condition matching key against a files
// table and its arguments. ph renders the i-th placeholder, starting at 1.
func KeyCondition(key gridfetch.LookupKey, ph func(i int) string) (string, []any, error) {
	if err := key.Check(); err != nil {
		return "", nil, err
	}

	switch key.Field {
	case gridfetch.FieldID:
		return fmt.Sprintf("id = %s AND id_type = %s", ph(1), ph(2)), []any{key.String(), key.Type.String()}, nil
	case gridfetch.FieldFilename:
		return fmt.Sprintf("filename = %s", ph(1)), []any{key.String()}, nil
	default:
		return "", nil, fmt.Errorf("key condition: %w: unsupported field %q", gridfetch.ErrInvalidInput, key.Field)
	}
}
