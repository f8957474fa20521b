package writer

import (
	"context"
	"os"
	"sync/atomic"

	"github.com/ahzs645/screencapture/internal/capture"
)

// Null discards frames and writes an empty output file. Useful for
// benchmarking the capture path without encoder cost.
type Null struct {
	path        string
	videoFrames atomic.Uint64
	audioFrames atomic.Uint64
}

// NewNull creates a discarding writer.
func NewNull() *Null {
	return &Null{}
}

// Open records the path and creates an empty placeholder file.
func (n *Null) Open(ctx context.Context, path string, video capture.VideoParams, audio *capture.AudioParams) error {
	n.path = path
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// WriteVideo discards the frame.
func (n *Null) WriteVideo(f *capture.SampleFrame) error {
	n.videoFrames.Add(1)
	return nil
}

// WriteAudio discards the frame.
func (n *Null) WriteAudio(f *capture.SampleFrame) error {
	n.audioFrames.Add(1)
	return nil
}

// Finalize is a no-op.
func (n *Null) Finalize(ctx context.Context) error {
	return nil
}

// Counts reports how many frames were discarded.
func (n *Null) Counts() (video, audio uint64) {
	return n.videoFrames.Load(), n.audioFrames.Load()
}

var _ capture.Writer = (*Null)(nil)
