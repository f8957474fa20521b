// Package stats provides thread-safe recording counters with lock-free
// snapshot reads. The bridge and the pipeline update counters from their
// own goroutines; callers read a consistent-enough snapshot at any time.
package stats

import (
	"sync/atomic"
	"time"

	"github.com/ahzs645/screencapture/internal/capture"
)

// Collector accumulates per-session counters via atomic operations.
type Collector struct {
	videoFrames     atomic.Uint64
	audioSamples    atomic.Uint64
	droppedFrames   atomic.Uint64
	duplicateFrames atomic.Uint64
	startedAt       atomic.Int64 // unix nano, 0 = not started
	stoppedAt       atomic.Int64 // unix nano, 0 = still running
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{}
}

// MarkStart records the session start instant. Idempotent.
func (c *Collector) MarkStart(t time.Time) {
	c.startedAt.CompareAndSwap(0, t.UnixNano())
}

// MarkStop freezes the elapsed clock. Idempotent.
func (c *Collector) MarkStop(t time.Time) {
	c.stoppedAt.CompareAndSwap(0, t.UnixNano())
}

// AddVideoFrame counts one video frame committed to the container.
func (c *Collector) AddVideoFrame() { c.videoFrames.Add(1) }

// AddAudioSample counts one audio sample buffer committed to the container.
func (c *Collector) AddAudioSample() { c.audioSamples.Add(1) }

// AddDropped counts a frame lost to queue overflow or timestamp regression.
func (c *Collector) AddDropped() { c.droppedFrames.Add(1) }

// AddDuplicate counts a video frame elided by perceptual-hash dedup.
func (c *Collector) AddDuplicate() { c.duplicateFrames.Add(1) }

// VideoFrames returns the committed video frame count.
func (c *Collector) VideoFrames() uint64 { return c.videoFrames.Load() }

// Dropped returns the dropped frame count.
func (c *Collector) Dropped() uint64 { return c.droppedFrames.Load() }

// Elapsed returns wall time since MarkStart, frozen at MarkStop.
func (c *Collector) Elapsed() time.Duration {
	start := c.startedAt.Load()
	if start == 0 {
		return 0
	}
	end := c.stoppedAt.Load()
	if end == 0 {
		end = time.Now().UnixNano()
	}
	return time.Duration(end - start)
}

// Snapshot assembles an immutable stats view. isRecording and outputPath
// belong to the session controller, which owns that state.
func (c *Collector) Snapshot(isRecording bool, outputPath string) capture.RecordingStats {
	return capture.RecordingStats{
		IsRecording:       isRecording,
		VideoFrameCount:   c.videoFrames.Load(),
		AudioSampleCount:  c.audioSamples.Load(),
		DroppedFrameCount: c.droppedFrames.Load(),
		DuplicateFrames:   c.duplicateFrames.Load(),
		ElapsedSeconds:    c.Elapsed().Seconds(),
		OutputPath:        outputPath,
	}
}
