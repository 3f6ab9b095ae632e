package http

import (
	"errors"
	"mime"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/sagarc03/gridfetch"
	"github.com/sagarc03/gridfetch/metrics"
)

// ObjectWriter writes a stored object to an http.ResponseWriter. It
// implements gridfetch.ChunkWriter.
type ObjectWriter struct {
	w            http.ResponseWriter
	rc           *http.ResponseController
	key          string
	defaultType  string
	writeTimeout time.Duration
}

// NewObjectWriter returns a writer for the object stored under the decoded
// key. defaultType is used when neither the stored content type nor the key's
// extension names one. A positive writeTimeout bounds every chunk write.
func NewObjectWriter(w http.ResponseWriter, key, defaultType string, writeTimeout time.Duration) *ObjectWriter {
	return &ObjectWriter{
		w:            w,
		rc:           http.NewResponseController(w),
		key:          key,
		defaultType:  defaultType,
		writeTimeout: writeTimeout,
	}
}

func (o *ObjectWriter) WriteHeader(info gridfetch.ObjectInfo) error {
	h := o.w.Header()
	h.Set("Content-Type", o.contentType(info))
	h.Set("Content-Length", strconv.FormatInt(info.Length, 10))
	h.Set("Accept-Ranges", "none")
	if !info.UploadDate.IsZero() {
		h.Set("Last-Modified", info.UploadDate.UTC().Format(http.TimeFormat))
	}
	if info.MD5 != "" {
		h.Set("ETag", `"`+info.MD5+`"`)
	}

	o.w.WriteHeader(http.StatusOK)
	return nil
}

func (o *ObjectWriter) WriteChunk(p []byte, final bool) error {
	if o.writeTimeout > 0 {
		if err := o.rc.SetWriteDeadline(time.Now().Add(o.writeTimeout)); err != nil && !errors.Is(err, http.ErrNotSupported) {
			return err
		}
	}

	if _, err := o.w.Write(p); err != nil {
		return err
	}
	metrics.ChunksServed.Inc()
	metrics.BytesServed.Add(float64(len(p)))

	if !final {
		return nil
	}

	if err := o.rc.Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return err
	}
	if o.writeTimeout > 0 {
		_ = o.rc.SetWriteDeadline(time.Time{})
	}
	return nil
}

func (o *ObjectWriter) contentType(info gridfetch.ObjectInfo) string {
	if info.ContentType != "" {
		return info.ContentType
	}
	if ext := path.Ext(o.key); ext != "" {
		if t := mime.TypeByExtension(ext); t != "" {
			return t
		}
	}
	if o.defaultType != "" {
		return o.defaultType
	}
	return gridfetch.DefaultContentType
}
