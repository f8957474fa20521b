package screenshot

import (
	"strconv"
	"strings"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/errors"
)

// Source IDs are "display:<n>" or "window:<n>", where n is the native
// display index or window number from the most recent enumeration.
const (
	displayPrefix = "display:"
	windowPrefix  = "window:"
)

// DisplayID formats a display source id.
func DisplayID(n int) string { return displayPrefix + strconv.Itoa(n) }

// WindowID formats a window source id.
func WindowID(n int) string { return windowPrefix + strconv.Itoa(n) }

func parseSourceID(id string) (capture.SourceKind, int, error) {
	var kind capture.SourceKind
	var raw string
	switch {
	case strings.HasPrefix(id, displayPrefix):
		kind = capture.SourceDisplay
		raw = strings.TrimPrefix(id, displayPrefix)
	case strings.HasPrefix(id, windowPrefix):
		kind = capture.SourceWindow
		raw = strings.TrimPrefix(id, windowPrefix)
	default:
		return 0, 0, errors.Newf(errors.KindProviderError, "malformed source id %q", id)
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, 0, errors.Newf(errors.KindProviderError, "malformed source id %q", id)
	}
	return kind, n, nil
}
