//go:build windows

package screenshot

import (
	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/errors"
)

type windowsBackend struct{}

func newBackend() backend {
	return &windowsBackend{}
}

func (w *windowsBackend) listSources() ([]capture.Source, error) {
	return []capture.Source{{
		ID:          DisplayID(1),
		Kind:        capture.SourceDisplay,
		DisplayName: "Primary Display",
	}}, nil
}

func (w *windowsBackend) grab(sourceID string, showCursor bool) ([]byte, error) {
	// TODO: Implement using Windows GDI or DXGI
	return nil, errors.New(errors.KindProviderError, "windows screen capture not yet implemented")
}

func (w *windowsBackend) cleanup() {}
