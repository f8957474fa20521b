package session

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/config"
	"github.com/ahzs645/screencapture/internal/errors"
)

type fakeHandle struct{ id string }

func (h *fakeHandle) ID() string { return h.id }

type fakeProvider struct {
	mu           sync.Mutex
	createCalls  int
	startCalls   int
	stopCalls    int
	releaseCalls int
	createErr    error
	startErr     error
	cb           capture.Callbacks
}

func (p *fakeProvider) DiscoverSources(ctx context.Context) ([]capture.Source, error) {
	return nil, nil
}

func (p *fakeProvider) CreateSession(source capture.Source, cfg capture.Config) (capture.SessionHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &fakeHandle{id: "h1"}, nil
}

func (p *fakeProvider) Subscribe(h capture.SessionHandle, cb capture.Callbacks) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cb = cb
	return nil
}

func (p *fakeProvider) StartDelivery(ctx context.Context, h capture.SessionHandle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startCalls++
	return p.startErr
}

func (p *fakeProvider) StopDelivery(h capture.SessionHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopCalls++
}

func (p *fakeProvider) Release(h capture.SessionHandle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseCalls++
}

func (p *fakeProvider) callbacks() capture.Callbacks {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cb
}

func (p *fakeProvider) counts() (create, start, stop, release int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.createCalls, p.startCalls, p.stopCalls, p.releaseCalls
}

type countingWriter struct {
	mu            sync.Mutex
	videoFrames   int
	finalizeCalls int
}

func (w *countingWriter) Open(ctx context.Context, path string, video capture.VideoParams, audio *capture.AudioParams) error {
	return nil
}

func (w *countingWriter) WriteVideo(f *capture.SampleFrame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.videoFrames++
	return nil
}

func (w *countingWriter) WriteAudio(f *capture.SampleFrame) error { return nil }

func (w *countingWriter) Finalize(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.finalizeCalls++
	return nil
}

func (w *countingWriter) stats() (video, finalize int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.videoFrames, w.finalizeCalls
}

type grantAll struct{}

func (grantAll) Check() capture.PermissionState {
	return capture.PermissionState{ScreenRecordingGranted: true, SystemCompatible: true, ProviderAvailable: true}
}

type denyAll struct{}

func (denyAll) Check() capture.PermissionState { return capture.PermissionState{} }

func testEnv() *config.Config {
	return &config.Config{VideoQueueCapacity: 1024, AudioQueueCapacity: 64}
}

func newController(t *testing.T, p *fakeProvider, w *countingWriter) (*Controller, capture.Config) {
	t.Helper()
	c := New(p, Options{
		Permissions: grantAll{},
		NewWriter:   func() capture.Writer { return w },
		Env:         testEnv(),
	})
	cfg := capture.DefaultConfig(filepath.Join(t.TempDir(), "out.mp4"))
	return c, cfg
}

func displaySource() capture.Source {
	return capture.Source{ID: "display:1", Kind: capture.SourceDisplay, DisplayName: "Built-in Display"}
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("controller state = %v, want %v", c.State(), want)
}

func TestSecondStartRejectedWithoutProviderContact(t *testing.T) {
	p := &fakeProvider{}
	c, cfg := newController(t, p, &countingWriter{})

	if _, err := c.Start(context.Background(), displaySource(), cfg); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	_, err := c.Start(context.Background(), displaySource(), cfg)
	if !errors.IsKind(err, errors.KindAlreadyRecording) {
		t.Fatalf("err = %v, want AlreadyRecording", err)
	}

	create, _, _, _ := p.counts()
	if create != 1 {
		t.Errorf("createCalls = %d; the rejected Start must not touch the provider", create)
	}
}

func TestInvalidConfigNeverReachesProvider(t *testing.T) {
	p := &fakeProvider{}
	c, cfg := newController(t, p, &countingWriter{})
	cfg.FPS = 0

	_, err := c.Start(context.Background(), displaySource(), cfg)
	if !errors.IsKind(err, errors.KindInvalidConfiguration) {
		t.Fatalf("err = %v, want InvalidConfiguration", err)
	}
	if create, _, _, _ := p.counts(); create != 0 {
		t.Error("CreateSession must never be called for an invalid config")
	}
	if c.State() != Idle {
		t.Errorf("state = %v, want Idle", c.State())
	}
}

func TestPermissionDeniedBeforeProviderContact(t *testing.T) {
	p := &fakeProvider{}
	w := &countingWriter{}
	c := New(p, Options{Permissions: denyAll{}, NewWriter: func() capture.Writer { return w }, Env: testEnv()})
	cfg := capture.DefaultConfig(filepath.Join(t.TempDir(), "out.mp4"))

	_, err := c.Start(context.Background(), displaySource(), cfg)
	if !errors.IsKind(err, errors.KindPermissionDenied) {
		t.Fatalf("err = %v, want PermissionDenied", err)
	}
	if create, _, _, _ := p.counts(); create != 0 {
		t.Error("provider must not be touched when permission is denied")
	}
}

func TestStopIdempotent(t *testing.T) {
	p := &fakeProvider{}
	w := &countingWriter{}
	c, cfg := newController(t, p, w)

	if _, err := c.Start(context.Background(), displaySource(), cfg); err != nil {
		t.Fatal(err)
	}

	path1, err1 := c.Stop(context.Background())
	path2, err2 := c.Stop(context.Background())

	if err1 != nil || err2 != nil {
		t.Fatalf("stop errors: %v, %v", err1, err2)
	}
	if path1 != cfg.OutputPath || path1 != path2 {
		t.Errorf("paths: %q, %q, want both %q", path1, path2, cfg.OutputPath)
	}
	if _, finalize := w.stats(); finalize != 1 {
		t.Errorf("writer finalized %d times, want exactly 1", finalize)
	}
	if _, _, stop, release := p.counts(); stop != 1 || release != 1 {
		t.Errorf("provider stop=%d release=%d, want 1/1", stop, release)
	}
}

func TestStopWithoutStart(t *testing.T) {
	c, _ := newController(t, &fakeProvider{}, &countingWriter{})
	_, err := c.Stop(context.Background())
	if !errors.IsKind(err, errors.KindNotRecording) {
		t.Fatalf("err = %v, want NotRecording", err)
	}
}

func TestProviderInitiatedStopFailsSession(t *testing.T) {
	p := &fakeProvider{}
	w := &countingWriter{}
	c, cfg := newController(t, p, w)

	if _, err := c.Start(context.Background(), displaySource(), cfg); err != nil {
		t.Fatal(err)
	}

	cause := stderrors.New("display disconnected")
	p.callbacks().OnStopped(cause)
	waitForState(t, c, Failed)

	if !errors.IsKind(c.LastError(), errors.KindProviderError) {
		t.Errorf("LastError = %v, want ProviderError", c.LastError())
	}
	if !stderrors.Is(c.LastError(), cause) {
		t.Error("provider cause must be preserved in the chain")
	}

	// Stop after the failure returns the finalized path without asking the
	// provider to stop again.
	path, err := c.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop after provider failure: %v", err)
	}
	if path != cfg.OutputPath {
		t.Errorf("path = %q, want %q", path, cfg.OutputPath)
	}
	if _, _, stop, release := p.counts(); stop != 0 || release != 1 {
		t.Errorf("provider stop=%d release=%d, want 0/1", stop, release)
	}
	if _, finalize := w.stats(); finalize != 1 {
		t.Errorf("writer finalized %d times, want exactly 1", finalize)
	}
}

func TestCreateSessionFailureUnwindsToIdle(t *testing.T) {
	p := &fakeProvider{createErr: stderrors.New("no such display")}
	c, cfg := newController(t, p, &countingWriter{})

	_, err := c.Start(context.Background(), displaySource(), cfg)
	if !errors.IsKind(err, errors.KindProviderError) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if c.State() != Idle {
		t.Errorf("state = %v, want Idle so a retry is possible", c.State())
	}
}

func TestStartDeliveryFailureReleasesSession(t *testing.T) {
	p := &fakeProvider{startErr: stderrors.New("stream refused")}
	c, cfg := newController(t, p, &countingWriter{})

	_, err := c.Start(context.Background(), displaySource(), cfg)
	if !errors.IsKind(err, errors.KindProviderError) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if _, _, _, release := p.counts(); release != 1 {
		t.Errorf("releaseCalls = %d, want 1", release)
	}
	if c.State() != Idle {
		t.Errorf("state = %v, want Idle", c.State())
	}
}

func TestRestartAfterStop(t *testing.T) {
	p := &fakeProvider{}
	c, cfg := newController(t, p, &countingWriter{})

	if _, err := c.Start(context.Background(), displaySource(), cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	id2, err := c.Start(context.Background(), displaySource(), cfg)
	if err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	if id2 == "" {
		t.Error("restarted session must get a fresh id")
	}
	if _, err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestEndToEndFrameAccounting(t *testing.T) {
	p := &fakeProvider{}
	w := &countingWriter{}
	c, cfg := newController(t, p, w)

	if _, err := c.Start(context.Background(), displaySource(), cfg); err != nil {
		t.Fatal(err)
	}
	if c.State() != Active {
		t.Fatalf("state = %v, want Active", c.State())
	}

	// Ten seconds of 30fps video on the provider's delivery thread.
	cb := p.callbacks()
	frameDur := time.Second / 30
	for i := 0; i < 300; i++ {
		cb.OnVideoFrame([]byte{byte(i)}, capture.FrameInfo{
			PTS:         int64(time.Duration(i) * frameDur),
			PixelFormat: capture.PixelFormatBGRA,
			Width:       4,
			Height:      4,
		})
	}

	path, err := c.Stop(context.Background())
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if path != cfg.OutputPath {
		t.Errorf("path = %q, want %q", path, cfg.OutputPath)
	}

	snap := c.Stats()
	if snap.IsRecording {
		t.Error("stats must report not recording after stop")
	}
	if snap.VideoFrameCount != 300 {
		t.Errorf("video frames = %d, want all 300 with ample queue capacity", snap.VideoFrameCount)
	}
	if snap.DroppedFrameCount != 0 {
		t.Errorf("dropped = %d, want 0", snap.DroppedFrameCount)
	}
	if video, _ := w.stats(); video != 300 {
		t.Errorf("writer received %d frames, want 300", video)
	}
}

func TestStatsSidecarWritten(t *testing.T) {
	p := &fakeProvider{}
	env := testEnv()
	env.WriteStatsSidecar = true
	c := New(p, Options{
		Permissions: grantAll{},
		NewWriter:   func() capture.Writer { return &countingWriter{} },
		Env:         env,
	})
	cfg := capture.DefaultConfig(filepath.Join(t.TempDir(), "out.mp4"))

	if _, err := c.Start(context.Background(), displaySource(), cfg); err != nil {
		t.Fatal(err)
	}
	p.callbacks().OnVideoFrame([]byte{1}, capture.FrameInfo{PTS: 0, PixelFormat: capture.PixelFormatBGRA, Width: 4, Height: 4})
	if _, err := c.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(cfg.OutputPath + ".stats.json")
	if err != nil {
		t.Fatalf("sidecar not written: %v", err)
	}
	var snap capture.RecordingStats
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("sidecar not valid JSON: %v", err)
	}
	if snap.VideoFrameCount != 1 || snap.OutputPath != cfg.OutputPath {
		t.Errorf("sidecar contents off: %+v", snap)
	}
}

type recordingTranscriber struct {
	mu    sync.Mutex
	paths []string
	err   error
}

func (tr *recordingTranscriber) Submit(ctx context.Context, mediaPath string) (string, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.paths = append(tr.paths, mediaPath)
	return "job-1", tr.err
}

func TestTranscriptionFailureDoesNotInvalidateRecording(t *testing.T) {
	p := &fakeProvider{}
	env := testEnv()
	env.TranscriptionEnabled = true
	tr := &recordingTranscriber{err: stderrors.New("service unavailable")}
	c := New(p, Options{
		Permissions: grantAll{},
		NewWriter:   func() capture.Writer { return &countingWriter{} },
		Env:         env,
		Transcriber: tr,
	})
	cfg := capture.DefaultConfig(filepath.Join(t.TempDir(), "out.mp4"))

	if _, err := c.Start(context.Background(), displaySource(), cfg); err != nil {
		t.Fatal(err)
	}
	path, err := c.Stop(context.Background())
	if err != nil {
		t.Fatalf("transcription failure must not fail the stop: %v", err)
	}
	if path != cfg.OutputPath {
		t.Errorf("path = %q, want %q", path, cfg.OutputPath)
	}
	if len(tr.paths) != 1 || tr.paths[0] != cfg.OutputPath {
		t.Errorf("transcriber got %v, want the output path once", tr.paths)
	}
	if c.State() != Stopped {
		t.Errorf("state = %v, want Stopped", c.State())
	}
}
