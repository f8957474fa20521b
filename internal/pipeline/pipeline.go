// Package pipeline drains bridged frame queues and commits frames to the
// output container in timestamp order.
package pipeline

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/ahzs645/screencapture/internal/bridge"
	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/errors"
	"github.com/ahzs645/screencapture/internal/stats"
	"github.com/ahzs645/screencapture/internal/syncx"
	"github.com/ahzs645/screencapture/internal/trace"
)

const noTimestamp = -1

// Pipeline is the single consumer of a session's frame queues. One
// goroutine drains both tracks, interleaving approximately by timestamp,
// and may block on writer I/O; the bounded queues decouple it from the
// provider's delivery threads.
type Pipeline struct {
	writer capture.Writer
	br     *bridge.Bridge
	st     *stats.Collector
	cfg    capture.Config
	dedupe *deduper

	drainCh chan struct{}
	done    chan struct{}

	finalized syncx.Latch[string]
	writeErr  atomic.Pointer[writeFailure]

	// Consumer-goroutine state; untouched by other goroutines.
	haveZero   bool
	timeZero   int64 // provider-clock nanos of the first frame seen
	lastVideo  int64
	lastAudio  int64
	pendingVid *capture.SampleFrame
	pendingAud *capture.SampleFrame
}

type writeFailure struct{ err error }

// Options tunes pipeline behavior beyond the session config.
type Options struct {
	// SkipDuplicateFrames elides video frames whose perceptual hash
	// matches the previously written frame. Useful for mostly-static
	// screen content.
	SkipDuplicateFrames bool
	// DuplicateHashSize is the downscale edge length before hashing.
	DuplicateHashSize int
}

// New creates a pipeline over an opened-later writer.
func New(writer capture.Writer, br *bridge.Bridge, st *stats.Collector, cfg capture.Config, opts Options) *Pipeline {
	p := &Pipeline{
		writer:    writer,
		br:        br,
		st:        st,
		cfg:       cfg,
		drainCh:   make(chan struct{}),
		done:      make(chan struct{}),
		lastVideo: noTimestamp,
		lastAudio: noTimestamp,
	}
	if opts.SkipDuplicateFrames {
		p.dedupe = newDeduper(opts.DuplicateHashSize)
	}
	return p
}

// Start opens the writer and launches the consumer goroutine. On a
// parameter rejection from the encoder backend, retries once with the
// reduced codec/width/height set before reporting EncodingFailure.
func (p *Pipeline) Start(ctx context.Context) error {
	video := capture.DeriveVideoParams(p.cfg)
	var audio *capture.AudioParams
	if p.cfg.CaptureAudio {
		audio = &capture.AudioParams{Codec: "aac", SampleRate: 48000, Channels: 2}
	}

	log := trace.Logger(ctx)
	err := p.writer.Open(ctx, p.cfg.OutputPath, video, audio)
	if stderrors.Is(err, capture.ErrParamsRejected) {
		log.Warn("encoder rejected parameter hints, retrying with reduced set",
			"codec", video.Codec, "bitrate", video.AverageBitrate)
		err = p.writer.Open(ctx, p.cfg.OutputPath, video.Reduced(), audio)
	}
	if err != nil {
		return errors.Wrap(err, errors.KindEncodingFailure, "writer initialization failed")
	}

	go p.run(ctx)
	return nil
}

// Finalize performs the two-phase shutdown: stop intake and drain queued
// frames, then commit the container and await the writer's completion.
// Idempotent: later calls return the first result without re-invoking the
// writer. A finalize failure never deletes already-written bytes; partial
// output on disk is a documented outcome.
func (p *Pipeline) Finalize(ctx context.Context) (string, error) {
	return p.finalized.Do(func() (string, error) {
		p.br.Seal()
		close(p.drainCh)
		select {
		case <-p.done:
		case <-ctx.Done():
			return p.cfg.OutputPath, errors.Wrap(ctx.Err(), errors.KindEncodingFailure, "drain interrupted")
		}

		if f := p.writeErr.Load(); f != nil {
			// Still attempt the container commit so the bytes written so
			// far stay playable.
			_ = p.writer.Finalize(ctx)
			return p.cfg.OutputPath, errors.Wrap(f.err, errors.KindEncodingFailure, "frame write failed during session")
		}

		if err := p.writer.Finalize(ctx); err != nil {
			return p.cfg.OutputPath, errors.Wrap(err, errors.KindEncodingFailure, "container finalize failed")
		}
		return p.cfg.OutputPath, nil
	})
}

func (p *Pipeline) run(ctx context.Context) {
	defer close(p.done)

	videoCh, audioCh := p.br.VideoFrames(), p.br.AudioFrames()

	for {
		if p.pendingVid == nil {
			select {
			case f := <-videoCh:
				p.pendingVid = f
			default:
			}
		}
		if p.pendingAud == nil {
			select {
			case f := <-audioCh:
				p.pendingAud = f
			default:
			}
		}

		if p.pendingVid == nil && p.pendingAud == nil {
			if p.draining() {
				return
			}
			select {
			case f := <-videoCh:
				p.pendingVid = f
			case f := <-audioCh:
				p.pendingAud = f
			case <-p.drainCh:
				// Re-enter the loop; non-blocking reads drain what's left.
			case <-ctx.Done():
				return
			}
			continue
		}

		var f *capture.SampleFrame
		if p.pendingAud == nil || (p.pendingVid != nil && p.pendingVid.PTS <= p.pendingAud.PTS) {
			f, p.pendingVid = p.pendingVid, nil
		} else {
			f, p.pendingAud = p.pendingAud, nil
		}
		p.write(f)
	}
}

func (p *Pipeline) draining() bool {
	select {
	case <-p.drainCh:
		return true
	default:
		return false
	}
}

// write rebases the frame to session time and commits it, enforcing
// non-decreasing timestamps per track. Most container formats reject
// regressions, so out-of-order frames are dropped, not written.
func (p *Pipeline) write(f *capture.SampleFrame) {
	if p.writeErr.Load() != nil {
		return
	}

	// First frame of either track establishes session time zero.
	if !p.haveZero {
		p.haveZero = true
		p.timeZero = int64(f.PTS)
	}
	rel := int64(f.PTS) - p.timeZero

	last := &p.lastVideo
	if f.Kind == capture.FrameAudio {
		last = &p.lastAudio
	}
	if *last != noTimestamp && rel < *last {
		p.st.AddDropped()
		return
	}

	if f.Kind == capture.FrameVideo && p.dedupe != nil && p.dedupe.isDuplicate(f) {
		p.st.AddDuplicate()
		return
	}

	f.PTS = time.Duration(rel)
	var err error
	if f.Kind == capture.FrameVideo {
		err = p.writer.WriteVideo(f)
	} else {
		err = p.writer.WriteAudio(f)
	}
	if err != nil {
		p.writeErr.CompareAndSwap(nil, &writeFailure{err: err})
		return
	}

	*last = rel
	if f.Kind == capture.FrameVideo {
		p.st.AddVideoFrame()
	} else {
		p.st.AddAudioSample()
	}
}
