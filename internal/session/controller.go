// Package session owns the recording lifecycle: one controller, one
// session at a time, explicit states, and a single finalize path no matter
// who initiated the stop.
package session

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahzs645/screencapture/internal/bridge"
	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/config"
	"github.com/ahzs645/screencapture/internal/errors"
	"github.com/ahzs645/screencapture/internal/pipeline"
	"github.com/ahzs645/screencapture/internal/stats"
	"github.com/ahzs645/screencapture/internal/trace"
)

// PermissionChecker reports whether recording is authorized right now.
type PermissionChecker interface {
	Check() capture.PermissionState
}

// WriterFactory produces a fresh writer per session.
type WriterFactory func() capture.Writer

// Transcriber accepts finished recordings for speech-to-text. Submission
// failures never invalidate the recording; they are logged and dropped.
type Transcriber interface {
	Submit(ctx context.Context, mediaPath string) (jobID string, err error)
}

// AudioTap is an optional secondary audio source (microphone) feeding the
// same callback bridge as the capture provider.
type AudioTap interface {
	Start(ctx context.Context, cb capture.Callbacks) error
	Stop()
}

// Options wires the controller's collaborators.
type Options struct {
	Permissions PermissionChecker
	NewWriter   WriterFactory
	Env         *config.Config
	Transcriber Transcriber
	MicTap      AudioTap
}

type finalResult struct {
	path string
	err  error
}

// Controller drives a session through Idle -> Starting -> Active ->
// Stopping -> Stopped (or Failed). One mutex serializes Start and Stop: a
// Stop issued while a Start is in flight waits for the start to settle and
// then stops the session it produced.
type Controller struct {
	provider capture.Provider
	opts     Options

	mu      sync.Mutex
	state   State
	id      string
	cfg     capture.Config
	handle  capture.SessionHandle
	br      *bridge.Bridge
	pipe    *pipeline.Pipeline
	st      *stats.Collector
	done    chan struct{}
	tapOn   bool
	final   *finalResult
	lastErr error
}

// New creates an idle controller.
func New(provider capture.Provider, opts Options) *Controller {
	if opts.Env == nil {
		opts.Env = config.Load()
	}
	return &Controller{provider: provider, opts: opts}
}

// Start validates, authorizes, and brings up a capture session. Returns
// the session id. Config validation and the permission check happen before
// the provider is touched at all.
func (c *Controller) Start(ctx context.Context, source capture.Source, cfg capture.Config) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Starting, Active, Stopping:
		return "", errors.New(errors.KindAlreadyRecording, "a recording session is already in progress")
	}

	if dir := filepath.Dir(cfg.OutputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", errors.Wrapf(err, errors.KindInvalidConfiguration, "cannot create output directory %s", dir)
		}
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	if perm := c.opts.Permissions.Check(); !perm.Ready() {
		return "", errors.New(errors.KindPermissionDenied, "screen recording is not authorized").
			WithMetadata("screen_recording_granted", boolWord(perm.ScreenRecordingGranted)).
			WithMetadata("system_compatible", boolWord(perm.SystemCompatible))
	}

	ctx, span := trace.StartSpan(ctx, "start_session")
	defer span.End()
	log := trace.Logger(ctx)

	c.state = Starting
	c.final = nil
	c.lastErr = nil

	env := c.opts.Env
	st := stats.New()
	br := bridge.New(env.VideoQueueCapacity, env.AudioQueueCapacity, cfg.FPS, st)
	pipe := pipeline.New(c.opts.NewWriter(), br, st, cfg, pipeline.Options{
		SkipDuplicateFrames: env.SkipDuplicateFrames,
		DuplicateHashSize:   env.DuplicateHashSize,
	})

	if err := pipe.Start(ctx); err != nil {
		c.state = Idle
		return "", err
	}

	h, err := c.provider.CreateSession(source, cfg)
	if err != nil {
		c.abortStart(ctx, pipe)
		return "", errors.Wrap(err, errors.KindProviderError, "provider session creation failed")
	}
	if err := c.provider.Subscribe(h, br); err != nil {
		c.provider.Release(h)
		c.abortStart(ctx, pipe)
		return "", errors.Wrap(err, errors.KindProviderError, "callback subscription failed")
	}
	if err := c.provider.StartDelivery(ctx, h); err != nil {
		c.provider.Release(h)
		c.abortStart(ctx, pipe)
		return "", errors.Wrap(err, errors.KindProviderError, "provider refused to start delivery")
	}

	// The provider may report a stop before the start settles (display
	// unplugged mid-handshake). Treat it as a failed start, not an active
	// session that dies immediately.
	select {
	case <-br.StopRequested():
		c.provider.Release(h)
		c.abortStart(ctx, pipe)
		return "", errors.Wrap(br.StopErr(), errors.KindProviderError, "provider stopped during session start")
	default:
	}

	c.id = uuid.NewString()
	c.cfg = cfg
	c.handle = h
	c.br = br
	c.pipe = pipe
	c.st = st
	c.done = make(chan struct{})
	st.MarkStart(time.Now())
	c.state = Active

	if c.opts.MicTap != nil && cfg.CaptureAudio {
		if err := c.opts.MicTap.Start(ctx, br); err != nil {
			log.Warn("microphone tap unavailable, continuing without it", "error", err)
		} else {
			c.tapOn = true
		}
	}

	go c.watch(c.done, br)

	log.Info("recording started",
		"session_id", c.id,
		"source", source.ID,
		"output", cfg.OutputPath)
	return c.id, nil
}

// Stop halts the session and finalizes the output. Idempotent: a second
// Stop returns the same path without re-running teardown. Stopping a
// provider-failed session returns the already-finalized path without
// touching the provider again.
func (c *Controller) Stop(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Idle:
		return "", errors.New(errors.KindNotRecording, "no recording session to stop")
	case Stopped, Failed:
		if c.final != nil {
			return c.final.path, c.final.err
		}
		return "", errors.New(errors.KindNotRecording, "no recording session to stop")
	}

	ctx, span := trace.StartSpan(ctx, "stop_session")
	defer span.End()

	c.state = Stopping
	c.teardown(ctx, true)
	if c.final.err != nil {
		c.state = Failed
	} else {
		c.state = Stopped
	}

	trace.Logger(ctx).Info("recording stopped",
		"session_id", c.id,
		"output", c.final.path,
		"video_frames", c.st.VideoFrames(),
		"dropped", c.st.Dropped())
	return c.final.path, c.final.err
}

// Stats snapshots the current or most recent session counters.
func (c *Controller) Stats() capture.RecordingStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st == nil {
		return capture.RecordingStats{}
	}
	return c.st.Snapshot(c.state == Active, c.cfg.OutputPath)
}

// State returns the current lifecycle phase.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ID returns the current session id, empty when idle.
func (c *Controller) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// LastError returns the cause of the most recent Failed transition.
func (c *Controller) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// watch waits for a provider-initiated stop and drives the session to
// Failed. A caller-initiated Stop closes done first and wins the race.
func (c *Controller) watch(done chan struct{}, br *bridge.Bridge) {
	select {
	case <-done:
		return
	case <-br.StopRequested():
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active {
		return
	}

	if cause := br.StopErr(); cause != nil {
		c.lastErr = errors.Wrap(cause, errors.KindProviderError, "provider stopped the stream")
	} else {
		c.lastErr = errors.New(errors.KindProviderError, "provider stopped the stream")
	}
	trace.Logger(context.Background()).Error("provider-initiated stop", "session_id", c.id, "error", c.lastErr)

	// The provider already stopped on its own; finalize without asking it
	// to stop again.
	c.teardown(context.Background(), false)
	c.state = Failed
}

// teardown is the single finalize path. Caller holds c.mu. stopProvider is
// false when the provider initiated the stop itself.
func (c *Controller) teardown(ctx context.Context, stopProvider bool) {
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	if c.tapOn {
		c.opts.MicTap.Stop()
		c.tapOn = false
	}
	if stopProvider {
		c.provider.StopDelivery(c.handle)
	}

	path, err := c.pipe.Finalize(ctx)
	c.provider.Release(c.handle)
	c.handle = nil
	c.st.MarkStop(time.Now())
	c.final = &finalResult{path: path, err: err}

	if c.opts.Env.WriteStatsSidecar {
		c.writeSidecar(ctx, path)
	}
	if err == nil && c.opts.Transcriber != nil && c.opts.Env.TranscriptionEnabled {
		if jobID, terr := c.opts.Transcriber.Submit(ctx, path); terr != nil {
			trace.Logger(ctx).Warn("transcription submission failed, recording unaffected", "error", terr)
		} else {
			trace.Logger(ctx).Info("transcription submitted", "job_id", jobID)
		}
	}
}

// abortStart unwinds a half-started session. Caller holds c.mu.
func (c *Controller) abortStart(ctx context.Context, pipe *pipeline.Pipeline) {
	if _, err := pipe.Finalize(context.WithoutCancel(ctx)); err != nil {
		trace.Logger(ctx).Warn("cleanup of aborted start failed", "error", err)
	}
	c.state = Idle
}

// writeSidecar drops a stats JSON next to the output file. Best effort.
func (c *Controller) writeSidecar(ctx context.Context, path string) {
	snap := c.st.Snapshot(false, path)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(path+".stats.json", data, 0o644); err != nil {
		trace.Logger(ctx).Warn("stats sidecar write failed", "error", err)
	}
}

func boolWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
