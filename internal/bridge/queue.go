package bridge

import (
	"github.com/ahzs645/screencapture/internal/capture"
)

// Queue is a bounded multi-producer single-consumer frame queue. Push never
// blocks: on overflow the OLDEST queued frame is evicted, keeping the
// recording a continuous recent timeline instead of stalling the provider's
// delivery thread (which can deadlock its internal pipeline).
type Queue struct {
	frames    chan *capture.SampleFrame
	onEvicted func()
}

// NewQueue creates a queue with the given capacity. onEvicted fires once
// per frame lost to overflow; it must be non-blocking (atomic counter bump).
func NewQueue(capacity int, onEvicted func()) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		frames:    make(chan *capture.SampleFrame, capacity),
		onEvicted: onEvicted,
	}
}

// Push enqueues a frame, evicting the oldest entry when full.
func (q *Queue) Push(f *capture.SampleFrame) {
	select {
	case q.frames <- f:
		return
	default:
	}

	// Full: make room by dropping the head, then retry once. A concurrent
	// consumer may have drained in between, so both selects stay
	// non-blocking.
	select {
	case <-q.frames:
		q.onEvicted()
	default:
	}

	select {
	case q.frames <- f:
	default:
		q.onEvicted()
	}
}

// Frames exposes the consumer side.
func (q *Queue) Frames() <-chan *capture.SampleFrame { return q.frames }

// Len returns the current queue depth.
func (q *Queue) Len() int { return len(q.frames) }
