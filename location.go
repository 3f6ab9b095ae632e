package gridfetch

import (
	"fmt"
	"strings"
)

const (
	DefaultDatabase       = "gridfs"
	DefaultRootCollection = "fs"
	DefaultContentType    = "application/octet-stream"
)

// Location is the per-route configuration. It is built once when the
// configuration is loaded, merged with its parent, and read-only afterwards.
type Location struct {
	Prefix         string
	Database       string
	RootCollection string
	Field          Field
	Type           FieldType
	// Backend overrides the store address or DSN for this route.
	// Empty means the store's own default.
	Backend     string
	DefaultType string
	Locations   []Location
}

// Namespace returns the files/chunks namespace the route reads from.
func (l Location) Namespace() Namespace {
	return Namespace{Database: l.Database, Root: l.RootCollection}
}

// Merge fills unset values from parent, then from the built-in defaults, and
// validates the result. A nil parent merges against the defaults only.
func (l Location) Merge(parent *Location) (Location, error) {
	if parent != nil {
		l.Database = firstNonEmpty(l.Database, parent.Database)
		l.RootCollection = firstNonEmpty(l.RootCollection, parent.RootCollection)
		l.Field = Field(firstNonEmpty(string(l.Field), string(parent.Field)))
		if l.Type == TypeUnset {
			l.Type = parent.Type
		}
		l.Backend = firstNonEmpty(l.Backend, parent.Backend)
		l.DefaultType = firstNonEmpty(l.DefaultType, parent.DefaultType)
	}

	l.Database = firstNonEmpty(l.Database, DefaultDatabase)
	l.RootCollection = firstNonEmpty(l.RootCollection, DefaultRootCollection)
	l.Field = Field(firstNonEmpty(string(l.Field), string(FieldID)))
	if l.Type == TypeUnset {
		l.Type = TypeObjectID
	}
	l.DefaultType = firstNonEmpty(l.DefaultType, DefaultContentType)

	if err := l.Validate(); err != nil {
		return Location{}, err
	}

	children := make([]Location, 0, len(l.Locations))
	for _, child := range l.Locations {
		merged, err := child.Merge(&l)
		if err != nil {
			return Location{}, err
		}
		children = append(children, merged)
	}
	l.Locations = children

	return l, nil
}

// Validate checks a merged location.
func (l Location) Validate() error {
	if l.Prefix == "" || !strings.HasPrefix(l.Prefix, "/") || !strings.HasSuffix(l.Prefix, "/") {
		return fmt.Errorf("validate location %q: %w: prefix must start and end with /", l.Prefix, ErrInvalidInput)
	}

	if !l.Field.IsValid() {
		return fmt.Errorf("validate location %s: %w: unsupported field: %s", l.Prefix, ErrInvalidInput, l.Field)
	}

	if !l.Type.IsValid() {
		return fmt.Errorf("validate location %s: %w: unsupported type: %s", l.Prefix, ErrInvalidInput, l.Type)
	}

	if l.Field == FieldFilename && l.Type != TypeString {
		return fmt.Errorf("validate location %s: %w: field: filename, must be of type: string", l.Prefix, ErrInvalidInput)
	}

	if l.Database == "" || l.RootCollection == "" {
		return fmt.Errorf("validate location %s: %w: database and root collection cannot be empty", l.Prefix, ErrInvalidInput)
	}

	return nil
}

// Flatten returns the location and all nested locations, children first so
// that longer prefixes are registered before their parents.
func (l Location) Flatten() []Location {
	var out []Location
	for _, child := range l.Locations {
		out = append(out, child.Flatten()...)
	}
	l.Locations = nil
	return append(out, l)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
