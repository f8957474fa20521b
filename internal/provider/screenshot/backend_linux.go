//go:build linux

package screenshot

import (
	"bytes"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/errors"
)

type linuxBackend struct{ tempDir string }

func newBackend() backend {
	tmpDir, err := os.MkdirTemp("", "screencapture-frames-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return &linuxBackend{tempDir: tmpDir}
}

func (l *linuxBackend) listSources() ([]capture.Source, error) {
	return []capture.Source{{
		ID:          DisplayID(1),
		Kind:        capture.SourceDisplay,
		DisplayName: "Primary Display",
	}}, nil
}

func (l *linuxBackend) grab(sourceID string, showCursor bool) ([]byte, error) {
	if _, _, err := parseSourceID(sourceID); err != nil {
		return nil, err
	}

	tmpFile := filepath.Join(l.tempDir, "frame.jpg")

	// Try gnome-screenshot first, fall back to scrot
	var cmd *exec.Cmd
	if _, err := exec.LookPath("gnome-screenshot"); err == nil {
		args := []string{"-f", tmpFile}
		if showCursor {
			args = append(args, "-p")
		}
		cmd = exec.Command("gnome-screenshot", args...)
	} else if _, err := exec.LookPath("scrot"); err == nil {
		args := []string{"-o"}
		if showCursor {
			args = append(args, "-p")
		}
		cmd = exec.Command("scrot", append(args, tmpFile)...)
	} else {
		return nil, errors.New(errors.KindProviderError, "no screenshot tool found (install gnome-screenshot or scrot)")
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		slog.Error("screenshot failed", "error", err, "stderr", stderr.String())
		return nil, err
	}

	data, err := os.ReadFile(tmpFile)
	if err != nil {
		return nil, err
	}
	os.Remove(tmpFile)
	return data, nil
}

func (l *linuxBackend) cleanup() {
	if l.tempDir != "" {
		os.RemoveAll(l.tempDir)
	}
}
