package capture

import (
	"os"
	"path/filepath"

	"github.com/ahzs645/screencapture/internal/errors"
)

// Validate checks a session config before any provider resource is touched.
// A config that fails here must never reach CreateSession.
func (c Config) Validate() error {
	if c.OutputPath == "" {
		return errors.New(errors.KindInvalidConfiguration, "output path is required")
	}
	if dir := filepath.Dir(c.OutputPath); dir != "." {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			return errors.Newf(errors.KindInvalidConfiguration, "output directory does not exist: %s", dir)
		}
	}
	if c.Width < MinDimension || c.Width > MaxWidth {
		return errors.Newf(errors.KindInvalidConfiguration, "width %d outside [%d, %d]", c.Width, MinDimension, MaxWidth)
	}
	if c.Height < MinDimension || c.Height > MaxHeight {
		return errors.Newf(errors.KindInvalidConfiguration, "height %d outside [%d, %d]", c.Height, MinDimension, MaxHeight)
	}
	if c.FPS < MinFPS || c.FPS > MaxFPS {
		return errors.Newf(errors.KindInvalidConfiguration, "fps %d outside [%d, %d]", c.FPS, MinFPS, MaxFPS)
	}
	switch c.PixelFormat {
	case PixelFormatBGRA, PixelFormatJPEG, PixelFormat420v:
	default:
		return errors.Newf(errors.KindInvalidConfiguration, "unsupported pixel format %q", c.PixelFormat)
	}
	return nil
}
