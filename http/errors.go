package http

import "errors"

// ErrPrefixMismatch is returned when the request path does not start with the
// prefix of the route that matched it.
var ErrPrefixMismatch = errors.New("path does not match route prefix")
