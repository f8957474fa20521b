//go:build darwin

package permission

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const privacyPane = "x-apple.systempreferences:com.apple.preference.security?Privacy_ScreenCapture"

type darwinBackend struct{}

func newBackend() backend { return &darwinBackend{} }

// screenGranted probes by taking a throwaway capture; TCC makes the
// screencapture tool fail (or produce an empty file) when access is denied.
func (d *darwinBackend) screenGranted() bool {
	tmp := filepath.Join(os.TempDir(), "sc-permission-probe.jpg")
	defer os.Remove(tmp)
	if err := exec.Command("screencapture", "-x", "-t", "jpg", "-m", tmp).Run(); err != nil {
		return false
	}
	info, err := os.Stat(tmp)
	return err == nil && info.Size() > 0
}

// systemCompatible requires macOS 10.15 or later.
func (d *darwinBackend) systemCompatible() bool {
	out, err := exec.Command("sw_vers", "-productVersion").Output()
	if err != nil {
		return false
	}
	parts := strings.SplitN(strings.TrimSpace(string(out)), ".", 3)
	if len(parts) < 2 {
		return false
	}
	major, err1 := strconv.Atoi(parts[0])
	minor, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return false
	}
	return major > 10 || (major == 10 && minor >= 15)
}

func (d *darwinBackend) providerAvailable() bool {
	_, err := exec.LookPath("screencapture")
	return err == nil
}

// prompt opens the privacy pane; macOS only shows the grant dialog once per
// binary, after that the user has to flip the checkbox manually.
func (d *darwinBackend) prompt(ctx context.Context) {
	_ = exec.CommandContext(ctx, "open", privacyPane).Run()
}
