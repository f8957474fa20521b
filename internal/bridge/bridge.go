// Package bridge adapts provider callbacks into session-owned queues.
//
// This is the thread boundary of the recorder: the provider invokes the
// callbacks on threads it owns, potentially video and audio concurrently.
// Every callback copies the bytes it needs into an owned SampleFrame before
// returning and never retains the raw buffer or anything derived from it;
// the provider frees or recycles that memory the moment the callback
// returns. Callbacks are allocation-light and never block on I/O, consumer
// locks, or other subsystems.
package bridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/stats"
)

// Bridge implements capture.Callbacks over two bounded per-track queues.
type Bridge struct {
	videoQ *Queue
	audioQ *Queue
	stats  *stats.Collector

	sealed atomic.Bool

	stopOnce sync.Once
	stopCh   chan struct{}
	stopErr  error
}

// New creates a bridge. Queue capacities default to roughly one second of
// frames at the configured fps when zero.
func New(videoCapacity, audioCapacity, fps int, st *stats.Collector) *Bridge {
	if videoCapacity <= 0 {
		videoCapacity = fps
		if videoCapacity < 1 {
			videoCapacity = 30
		}
	}
	if audioCapacity <= 0 {
		// Audio arrives in larger, less frequent buffers than video.
		audioCapacity = 64
	}
	return &Bridge{
		videoQ: NewQueue(videoCapacity, st.AddDropped),
		audioQ: NewQueue(audioCapacity, st.AddDropped),
		stats:  st,
		stopCh: make(chan struct{}),
	}
}

// OnVideoFrame copies raw into an owned frame and enqueues it. Invoked on
// a provider-owned thread.
func (b *Bridge) OnVideoFrame(raw []byte, info capture.FrameInfo) {
	if b.sealed.Load() || len(raw) == 0 {
		return
	}
	b.videoQ.Push(&capture.SampleFrame{
		Kind:        capture.FrameVideo,
		PTS:         time.Duration(info.PTS),
		Data:        append([]byte(nil), raw...),
		PixelFormat: info.PixelFormat,
		Width:       info.Width,
		Height:      info.Height,
	})
}

// OnAudioFrame copies raw into an owned frame and enqueues it. Invoked on
// a provider-owned thread, possibly concurrently with OnVideoFrame.
func (b *Bridge) OnAudioFrame(raw []byte, info capture.FrameInfo) {
	if b.sealed.Load() || len(raw) == 0 {
		return
	}
	b.audioQ.Push(&capture.SampleFrame{
		Kind:       capture.FrameAudio,
		PTS:        time.Duration(info.PTS),
		Data:       append([]byte(nil), raw...),
		SampleRate: info.SampleRate,
		Channels:   info.Channels,
	})
}

// OnStopped marks the session for teardown. It only latches the request;
// finalization is the controller's job so there is a single finalize path
// whether the stop came from the caller or the provider.
func (b *Bridge) OnStopped(err error) {
	b.stopOnce.Do(func() {
		b.stopErr = err
		close(b.stopCh)
	})
}

// Seal stops accepting new frames. Frames arriving afterwards are ignored;
// already-queued frames stay available for draining.
func (b *Bridge) Seal() { b.sealed.Store(true) }

// StopRequested is closed once the provider reports the stream stopped.
func (b *Bridge) StopRequested() <-chan struct{} { return b.stopCh }

// StopErr returns the provider's stop error, if any. Valid only after
// StopRequested is closed.
func (b *Bridge) StopErr() error { return b.stopErr }

// VideoFrames exposes the video consumer side for the pipeline.
func (b *Bridge) VideoFrames() <-chan *capture.SampleFrame { return b.videoQ.Frames() }

// AudioFrames exposes the audio consumer side for the pipeline.
func (b *Bridge) AudioFrames() <-chan *capture.SampleFrame { return b.audioQ.Frames() }

var _ capture.Callbacks = (*Bridge)(nil)
