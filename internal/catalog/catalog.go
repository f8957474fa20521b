// Package catalog discovers capture sources with a hard deadline.
package catalog

import (
	"context"
	"time"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/errors"
	"github.com/ahzs645/screencapture/internal/trace"
)

// Window entries below this edge length are picker noise (tooltips, hidden
// helper windows) and are filtered out of discovery results.
const minWindowEdge = 100

// Catalog enumerates recordable sources from a provider. Results are never
// cached: window sets change constantly, so every Discover call is a fresh
// enumeration.
type Catalog struct {
	provider capture.Provider
}

// New creates a catalog over the given provider.
func New(provider capture.Provider) *Catalog {
	return &Catalog{provider: provider}
}

type discovery struct {
	sources []capture.Source
	err     error
}

// Discover enumerates sources, failing with DiscoveryTimeout if the
// provider does not respond within timeout. The deadline is the only
// cancellation mechanism; a late provider result is discarded, never
// delivered partially.
func (c *Catalog) Discover(ctx context.Context, timeout time.Duration) ([]capture.Source, error) {
	ctx, span := trace.StartSpan(ctx, "discover_sources")
	defer span.End()

	resultCh := make(chan discovery, 1) // buffered so a late result never blocks the goroutine
	go func() {
		sources, err := c.provider.DiscoverSources(ctx)
		resultCh <- discovery{sources: sources, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			span.SetAttr("error", res.err.Error())
			return nil, errors.Wrap(res.err, errors.KindProviderError, "source enumeration failed")
		}
		filtered := filterSources(res.sources)
		span.SetAttr("sources", len(filtered))
		return filtered, nil
	case <-timer.C:
		span.SetAttr("timeout_ms", timeout.Milliseconds())
		return nil, errors.Newf(errors.KindDiscoveryTimeout, "provider did not enumerate sources within %s", timeout)
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), errors.KindDiscoveryTimeout, "discovery cancelled")
	}
}

// filterSources drops window entries that are not meaningfully recordable:
// untitled windows and anything smaller than minWindowEdge on either axis.
func filterSources(sources []capture.Source) []capture.Source {
	result := make([]capture.Source, 0, len(sources))
	for _, s := range sources {
		if s.Kind == capture.SourceWindow {
			if s.DisplayName == "" || s.PixelWidth <= minWindowEdge || s.PixelHeight <= minWindowEdge {
				continue
			}
		}
		result = append(result, s)
	}
	return result
}
