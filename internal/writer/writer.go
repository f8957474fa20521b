// Package writer provides the container writer backends behind the
// encoding pipeline.
package writer

import (
	"github.com/ahzs645/screencapture/internal/capture"
)

// Backend names accepted by the WRITER_BACKEND setting.
const (
	BackendGst  = "gst"
	BackendNull = "null"
)

// New returns the writer for the configured backend. Unknown names fall
// back to the gst backend.
func New(backend string) capture.Writer {
	if backend == BackendNull {
		return NewNull()
	}
	return NewGst()
}
