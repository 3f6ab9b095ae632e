package gridfetch

import (
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LookupKey is the typed field/value pair used to find exactly one stored object.
type LookupKey struct {
	Field Field
	Type  FieldType
	// Value holds a primitive.ObjectID, an int64 or a string depending on Type.
	Value any
	// Raw is the decoded request key the value was built from.
	Raw string
	// Err records a value that could not be coerced to Type.
	Err error
}

// BuildLookupKey coerces a decoded request key into the configured field type.
// It never fails: an ObjectID that does not parse is recorded on the key and
// reported by the store at lookup time.
func BuildLookupKey(field Field, typ FieldType, decoded string) LookupKey {
	key := LookupKey{Field: field, Type: typ, Raw: decoded}

	switch typ {
	case TypeObjectID:
		oid, err := primitive.ObjectIDFromHex(decoded)
		if err != nil {
			key.Err = fmt.Errorf("build lookup key: invalid object id %q: %w", decoded, err)
		}
		key.Value = oid
	case TypeInteger:
		key.Value = ParseInteger(decoded)
	default:
		key.Type = TypeString
		key.Value = decoded
	}

	return key
}

// Check reports whether the key can match any stored object. A key whose value
// failed coercion matches nothing and yields ErrNotFound.
func (k LookupKey) Check() error {
	if k.Err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, k.Err)
	}
	return nil
}

// String returns the canonical text form of the key value, as stored by the
// SQL backends.
func (k LookupKey) String() string {
	switch v := k.Value.(type) {
	case primitive.ObjectID:
		return v.Hex()
	case int64:
		return fmt.Sprintf("%d", v)
	case string:
		return v
	default:
		return k.Raw
	}
}

// ParseInteger parses s the way C atoi does: leading whitespace is skipped,
// an optional sign is accepted, and the longest run of digits is converted.
// Input without a numeric prefix yields 0. Values saturate at the int64 range.
func ParseInteger(s string) int64 {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	var n uint64
	limit := uint64(math.MaxInt64)
	if neg {
		limit++
	}
	for ; i < len(s) && '0' <= s[i] && s[i] <= '9'; i++ {
		d := uint64(s[i] - '0')
		if n > (limit-d)/10 {
			n = limit
			break
		}
		n = n*10 + d
	}

	if neg {
		if n == uint64(math.MaxInt64)+1 {
			return math.MinInt64
		}
		return -int64(n)
	}
	return int64(n)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}
