// Package screenshot implements a capture provider on top of the native
// screenshot CLI tools. It delivers JPEG frames on a fixed tick; the real
// streaming stacks plug in behind the same capture.Provider interface.
package screenshot

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/errors"
	"github.com/ahzs645/screencapture/internal/session"
	"github.com/ahzs645/screencapture/internal/trace"
)

// backend implements platform-specific enumeration and frame grabs.
type backend interface {
	listSources() ([]capture.Source, error)

	// grab captures one JPEG frame of the source.
	grab(sourceID string, showCursor bool) ([]byte, error)

	cleanup()
}

// Provider streams periodic screenshot frames. Delivery goroutines carry
// only a registry token, so a grab that outlives its session resolves to
// nothing instead of reaching freed callbacks.
type Provider struct {
	b        backend
	registry *session.Registry

	mu       sync.Mutex
	sessions map[string]*captureSession
}

type captureSession struct {
	id     string
	source capture.Source
	cfg    capture.Config

	token      uint64
	subscribed bool

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *captureSession) ID() string { return s.id }

// New creates a provider over the platform screenshot backend.
func New() *Provider {
	return &Provider{
		b:        newBackend(),
		registry: session.NewRegistry(),
		sessions: make(map[string]*captureSession),
	}
}

// DiscoverSources enumerates displays (and windows where the platform
// tool can list them).
func (p *Provider) DiscoverSources(ctx context.Context) ([]capture.Source, error) {
	return p.b.listSources()
}

// CreateSession allocates a session for one source.
func (p *Provider) CreateSession(source capture.Source, cfg capture.Config) (capture.SessionHandle, error) {
	s := &captureSession{
		id:     uuid.NewString(),
		source: source,
		cfg:    cfg,
	}
	p.mu.Lock()
	p.sessions[s.id] = s
	p.mu.Unlock()
	return s, nil
}

// Subscribe registers the callbacks and hands the session its token.
func (p *Provider) Subscribe(h capture.SessionHandle, cb capture.Callbacks) error {
	s, err := p.lookup(h)
	if err != nil {
		return err
	}
	s.token = p.registry.Register(cb)
	s.subscribed = true
	return nil
}

// StartDelivery grabs one frame synchronously as the start acknowledgment,
// then streams on a ticker until stopped.
func (p *Provider) StartDelivery(ctx context.Context, h capture.SessionHandle) error {
	s, err := p.lookup(h)
	if err != nil {
		return err
	}
	if !s.subscribed {
		return errors.New(errors.KindProviderError, "session has no subscriber")
	}

	first, err := p.b.grab(s.source.ID, s.cfg.ShowCursor)
	if err != nil {
		return errors.Wrap(err, errors.KindProviderError, "initial frame grab failed").
			WithProviderCode("GRAB_FAILED")
	}

	deliveryCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	epoch := time.Now()
	p.registry.DeliverVideo(s.token, first, p.frameInfo(s, 0))

	go p.deliver(deliveryCtx, s, epoch)
	return nil
}

func (p *Provider) deliver(ctx context.Context, s *captureSession, epoch time.Time) {
	defer close(s.done)
	log := trace.Logger(ctx)

	interval := time.Second / time.Duration(s.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		data, err := p.b.grab(s.source.ID, s.cfg.ShowCursor)
		if err != nil {
			log.Error("frame grab failed, stopping delivery", "session_id", s.id, "error", err)
			p.registry.DeliverStopped(s.token, err)
			return
		}
		p.registry.DeliverVideo(s.token, data, p.frameInfo(s, time.Since(epoch)))
	}
}

func (p *Provider) frameInfo(s *captureSession, pts time.Duration) capture.FrameInfo {
	return capture.FrameInfo{
		PTS:         int64(pts),
		PixelFormat: capture.PixelFormatJPEG,
		Width:       s.cfg.Width,
		Height:      s.cfg.Height,
	}
}

// StopDelivery halts the delivery goroutine and waits for it to exit.
// Safe to call more than once.
func (p *Provider) StopDelivery(h capture.SessionHandle) {
	s, err := p.lookup(h)
	if err != nil {
		return
	}
	if s.cancel != nil {
		s.cancel()
		<-s.done
		s.cancel = nil
	}
}

// Release frees the session and its registry token.
func (p *Provider) Release(h capture.SessionHandle) {
	p.StopDelivery(h)

	p.mu.Lock()
	defer p.mu.Unlock()
	if s, ok := p.sessions[h.ID()]; ok {
		if s.subscribed {
			p.registry.Release(s.token)
		}
		delete(p.sessions, h.ID())
	}
}

// Close releases backend resources.
func (p *Provider) Close() {
	p.b.cleanup()
}

func (p *Provider) lookup(h capture.SessionHandle) (*captureSession, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sessions[h.ID()]
	if !ok {
		return nil, errors.Newf(errors.KindProviderError, "unknown session %s", h.ID())
	}
	return s, nil
}

var _ capture.Provider = (*Provider)(nil)
