// Package http serves stored objects over HTTP.
//
// Every configured location becomes a GET route on its prefix. The rest of
// the escaped request path is the object key:
//
//	GET /gridfs/5f1d7c2e9b1e8a3d4c6b2a10
//	GET /images/photos%2Fcat.png
//
// The key is handed to the Service undecoded; the Service decodes it, looks
// it up and returns an open object, which is streamed chunk by chunk through
// an ObjectWriter.
//
// # Responses
//
// Before any object bytes are written, errors map to status codes:
//
//   - malformed percent-escape in the key: 400 with a JSON error body
//   - no matching object: 404 with an empty body
//   - backend unreachable, bad metadata, timeouts: 500 with a JSON error body
//
// Once the status line is sent the status cannot change. A failed chunk read
// or write then aborts the connection with http.ErrAbortHandler so the client
// sees a truncated transfer.
//
// Successful responses carry Content-Type, Content-Length, Last-Modified,
// ETag (when the object has an md5) and Accept-Ranges: none.
//
// # Usage
//
//	handlerCfg := http.HandlerConfig{
//	    Routes:            cfg.Routes,
//	    ChunkWriteTimeout: 30 * time.Second,
//	    MetricsPath:       "/metrics",
//	}
//	handler := http.NewHandler(&handlerCfg, service)
//	http.ListenAndServe(":8080", handler.Router())
//
// # Middleware
//
// RequestLogger assigns each request an X-Request-ID and logs it when the
// request ends. Prometheus metrics are recorded for every request.
package http
