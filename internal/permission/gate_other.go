//go:build !darwin && !linux

package permission

import "context"

// otherBackend covers platforms without a supported capture provider.
type otherBackend struct{}

func newBackend() backend { return &otherBackend{} }

func (o *otherBackend) screenGranted() bool     { return false }
func (o *otherBackend) systemCompatible() bool  { return false }
func (o *otherBackend) providerAvailable() bool { return false }

func (o *otherBackend) prompt(ctx context.Context) {}
