package session

import (
	"sync/atomic"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/syncx"
)

// Registry is the token arena between provider delivery threads and session
// callbacks. Providers carry only an opaque token across the delivery
// boundary; after Release, deliveries for that token resolve to nothing and
// are dropped silently, so a straggling delivery thread can never reach a
// torn-down session.
type Registry struct {
	next    atomic.Uint64
	entries *syncx.RWGuard[map[uint64]capture.Callbacks]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: syncx.NewGuard(make(map[uint64]capture.Callbacks)),
	}
}

// Register stores cb and returns its token. Tokens are never reused within
// a process lifetime.
func (r *Registry) Register(cb capture.Callbacks) uint64 {
	token := r.next.Add(1)
	r.entries.Write(func(m *map[uint64]capture.Callbacks) {
		(*m)[token] = cb
	})
	return token
}

// Release removes the token. Safe to call with an unknown or already
// released token.
func (r *Registry) Release(token uint64) {
	r.entries.Write(func(m *map[uint64]capture.Callbacks) {
		delete(*m, token)
	})
}

func (r *Registry) resolve(token uint64) capture.Callbacks {
	cb := r.entries.Read(func(m map[uint64]capture.Callbacks) any {
		return m[token]
	})
	if cb == nil {
		return nil
	}
	return cb.(capture.Callbacks)
}

// DeliverVideo routes a video frame to the callbacks behind token.
func (r *Registry) DeliverVideo(token uint64, raw []byte, info capture.FrameInfo) {
	if cb := r.resolve(token); cb != nil {
		cb.OnVideoFrame(raw, info)
	}
}

// DeliverAudio routes an audio buffer to the callbacks behind token.
func (r *Registry) DeliverAudio(token uint64, raw []byte, info capture.FrameInfo) {
	if cb := r.resolve(token); cb != nil {
		cb.OnAudioFrame(raw, info)
	}
}

// DeliverStopped routes a provider stop notification to the callbacks
// behind token.
func (r *Registry) DeliverStopped(token uint64, err error) {
	if cb := r.resolve(token); cb != nil {
		cb.OnStopped(err)
	}
}
