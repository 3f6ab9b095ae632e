// Package gridfetch serves objects from a chunked large object store (the
// GridFS layout: a files collection plus fixed-size chunk records) over HTTP.
//
// A request path is resolved into one stored object and its bytes are streamed
// chunk by chunk, so an object is never held in memory as a whole.
//
// # Key Components
//
//   - DecodeKey: percent-decodes the request key taken from the URL path
//   - BuildLookupKey: coerces the decoded key to the configured field type
//   - Store / Object: backend lookup and sequential chunk reads (MongoDB,
//     PostgreSQL, SQLite implementations live under database/)
//   - Conn / Pool: lazily established, shared backend connections with
//     per-backend leases
//   - Service: decode, connect, lookup
//   - Stream: headers then chunks in order, stopping at the first failure
//
// # Locations
//
// Each route is described by a Location: prefix, database, root collection,
// lookup field (_id or filename) and field type (objectid, int or string).
// Locations nest and inherit unset values from their parent; a filename
// lookup must be typed string.
//
// # Example Usage
//
//	pool := gridfetch.NewPool(database.Dialer(cfg), gridfetch.PoolConfig{})
//	service, err := gridfetch.NewService(pool, gridfetch.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	obj, err := service.Open(ctx, loc, "5f1d7c2e9b1e8a3d4c6b2a10")
//	if err != nil {
//	    return err
//	}
//	defer obj.Close()
//
//	_, err = gridfetch.Stream(ctx, obj, writer, gridfetch.StreamOptions{})
//
// See the http package for the HTTP handler.
package gridfetch
