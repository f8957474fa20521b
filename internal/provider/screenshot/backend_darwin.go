//go:build darwin

package screenshot

import (
	"bytes"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/ahzs645/screencapture/internal/capture"
)

type darwinBackend struct{ tempDir string }

func newBackend() backend {
	tmpDir, err := os.MkdirTemp("", "screencapture-frames-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return &darwinBackend{tempDir: tmpDir}
}

func (d *darwinBackend) listSources() ([]capture.Source, error) {
	// screencapture cannot enumerate; report the main display. Window
	// enumeration needs the ScreenCaptureKit picker, which lives behind
	// the native streaming provider.
	return []capture.Source{{
		ID:          DisplayID(1),
		Kind:        capture.SourceDisplay,
		DisplayName: "Main Display",
	}}, nil
}

func (d *darwinBackend) grab(sourceID string, showCursor bool) ([]byte, error) {
	kind, n, err := parseSourceID(sourceID)
	if err != nil {
		return nil, err
	}

	tmpFile := filepath.Join(d.tempDir, "frame.jpg")
	args := []string{"-x", "-t", "jpg"}
	if showCursor {
		args = append(args, "-C")
	}
	if kind == capture.SourceWindow {
		args = append(args, "-l", strconv.Itoa(n))
	} else {
		args = append(args, "-D", strconv.Itoa(n))
	}
	args = append(args, tmpFile)

	cmd := exec.Command("screencapture", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		slog.Error("screencapture failed", "error", err, "stderr", stderr.String())
		return nil, err
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, err
	}
	os.Remove(tmpFile)
	return data, nil
}

func (d *darwinBackend) cleanup() {
	if d.tempDir != "" {
		os.RemoveAll(d.tempDir)
	}
}
