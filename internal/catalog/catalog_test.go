package catalog

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/ahzs645/screencapture/internal/capture"
	"github.com/ahzs645/screencapture/internal/errors"
)

// stallProvider never answers enumeration.
type stallProvider struct{ nullProvider }

func (s *stallProvider) DiscoverSources(ctx context.Context) ([]capture.Source, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

// listProvider returns a fixed source list, optionally after a delay.
type listProvider struct {
	nullProvider
	sources []capture.Source
	delay   time.Duration
	err     error
}

func (l *listProvider) DiscoverSources(ctx context.Context) ([]capture.Source, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	return l.sources, l.err
}

// nullProvider stubs the parts of capture.Provider discovery doesn't touch.
type nullProvider struct{}

func (nullProvider) DiscoverSources(ctx context.Context) ([]capture.Source, error) { return nil, nil }
func (nullProvider) CreateSession(capture.Source, capture.Config) (capture.SessionHandle, error) {
	return nil, nil
}
func (nullProvider) Subscribe(capture.SessionHandle, capture.Callbacks) error     { return nil }
func (nullProvider) StartDelivery(context.Context, capture.SessionHandle) error   { return nil }
func (nullProvider) StopDelivery(capture.SessionHandle)                           {}
func (nullProvider) Release(capture.SessionHandle)                                {}

func TestDiscoverTimeout(t *testing.T) {
	c := New(&stallProvider{})

	start := time.Now()
	_, err := c.Discover(context.Background(), 0)
	elapsed := time.Since(start)

	if !errors.IsKind(err, errors.KindDiscoveryTimeout) {
		t.Fatalf("err = %v, want DiscoveryTimeout", err)
	}
	if elapsed > time.Second {
		t.Errorf("timeout took %v, should be near-immediate for timeout=0", elapsed)
	}
}

func TestDiscoverProviderError(t *testing.T) {
	cause := stderrors.New("enumeration handle invalid")
	c := New(&listProvider{err: cause})

	_, err := c.Discover(context.Background(), time.Second)
	if !errors.IsKind(err, errors.KindProviderError) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if !stderrors.Is(err, cause) {
		t.Error("provider diagnostic should be preserved as cause")
	}
}

func TestDiscoverFiltersWindows(t *testing.T) {
	c := New(&listProvider{sources: []capture.Source{
		{ID: "display:1", Kind: capture.SourceDisplay, DisplayName: "Built-in", PixelWidth: 2560, PixelHeight: 1600},
		{ID: "window:7", Kind: capture.SourceWindow, DisplayName: "Editor", PixelWidth: 1200, PixelHeight: 800},
		{ID: "window:8", Kind: capture.SourceWindow, DisplayName: "", PixelWidth: 1200, PixelHeight: 800},
		{ID: "window:9", Kind: capture.SourceWindow, DisplayName: "Tooltip", PixelWidth: 80, PixelHeight: 20},
	}})

	sources, err := c.Discover(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("got %d sources, want 2 (untitled and tiny windows filtered)", len(sources))
	}
	if sources[0].ID != "display:1" || sources[1].ID != "window:7" {
		t.Errorf("unexpected sources: %+v", sources)
	}
}

func TestDiscoverFreshEachCall(t *testing.T) {
	p := &listProvider{sources: []capture.Source{
		{ID: "display:1", Kind: capture.SourceDisplay, DisplayName: "A", PixelWidth: 1920, PixelHeight: 1080},
	}}
	c := New(p)

	if _, err := c.Discover(context.Background(), time.Second); err != nil {
		t.Fatal(err)
	}

	p.sources = append(p.sources, capture.Source{
		ID: "window:2", Kind: capture.SourceWindow, DisplayName: "New", PixelWidth: 500, PixelHeight: 500,
	})
	sources, err := c.Discover(context.Background(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if len(sources) != 2 {
		t.Error("second Discover should see the updated window set, not a cache")
	}
}
