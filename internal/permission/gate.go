// Package permission gates recording on system authorization state.
// Absence of capability is reported as state, never as an error; the caller
// needs something it can render a UI from.
package permission

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/trace"
)

// backend implements the platform-specific probes. All probes must be fast
// and side-effect free; only prompt may block or raise an OS dialog.
type backend interface {
	screenGranted() bool
	systemCompatible() bool
	providerAvailable() bool

	// prompt asks the OS for screen recording access. Blocks until the
	// user answers or ctx expires.
	prompt(ctx context.Context)
}

// Gate queries and refreshes authorization state. State is recomputed on
// demand and never cached across process restarts.
type Gate struct {
	b backend

	mu      sync.Mutex
	pending bool
}

// New creates a gate backed by the platform probes.
func New() *Gate {
	return &Gate{b: newBackend()}
}

func newGate(b backend) *Gate {
	return &Gate{b: b}
}

// Check returns the current authorization state. Fast, synchronous, no
// side effects.
func (g *Gate) Check() capture.PermissionState {
	return capture.PermissionState{
		ScreenRecordingGranted: g.b.screenGranted(),
		SystemCompatible:       g.b.systemCompatible(),
		ProviderAvailable:      g.b.providerAvailable(),
	}
}

// Request triggers an OS-level prompt if access is not yet granted.
// Idempotent: while a prompt is pending, concurrent calls return the
// current state instead of stacking dialogs.
func (g *Gate) Request(ctx context.Context) capture.PermissionState {
	state := g.Check()
	if state.ScreenRecordingGranted || !state.SystemCompatible {
		return state
	}

	g.mu.Lock()
	if g.pending {
		g.mu.Unlock()
		return state
	}
	g.pending = true
	g.mu.Unlock()

	trace.Logger(ctx).Info("requesting screen recording permission")
	g.b.prompt(ctx)

	g.mu.Lock()
	g.pending = false
	g.mu.Unlock()

	return g.Check()
}

// StatusReport renders a human-readable summary of the permission state.
func (g *Gate) StatusReport() string {
	s := g.Check()
	var b strings.Builder
	b.WriteString("Screen Recording Permission Status:\n")
	fmt.Fprintf(&b, "  screen recording: %s\n", grantedWord(s.ScreenRecordingGranted))
	fmt.Fprintf(&b, "  system compatible: %v\n", s.SystemCompatible)
	fmt.Fprintf(&b, "  capture provider available: %v\n", s.ProviderAvailable)
	if !s.ScreenRecordingGranted {
		b.WriteString("  enable under system privacy settings, then restart the recorder\n")
	}
	return b.String()
}

func grantedWord(granted bool) string {
	if granted {
		return "granted"
	}
	return "denied"
}
