//go:build linux

package permission

import (
	"context"

	"github.com/godbus/dbus/v5"
)

const (
	portalBusName    = "org.freedesktop.portal.Desktop"
	portalObjectPath = "/org/freedesktop/portal/desktop"
	screenCastIface  = "org.freedesktop.portal.ScreenCast"
)

// linuxBackend speaks to the xdg desktop portal over the session bus. The
// portal handles per-capture consent itself, so "granted" here means the
// ScreenCast interface is reachable and advertises at least one source type.
type linuxBackend struct{}

func newBackend() backend { return &linuxBackend{} }

func (l *linuxBackend) screenGranted() bool {
	types, ok := l.availableSourceTypes()
	return ok && types != 0
}

func (l *linuxBackend) systemCompatible() bool {
	conn, err := dbus.SessionBus()
	if err != nil {
		return false
	}
	var version uint32
	obj := conn.Object(portalBusName, portalObjectPath)
	if err := obj.StoreProperty(screenCastIface+".version", &version); err != nil {
		return false
	}
	return version >= 2
}

func (l *linuxBackend) providerAvailable() bool {
	_, ok := l.availableSourceTypes()
	return ok
}

func (l *linuxBackend) availableSourceTypes() (uint32, bool) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, false
	}
	var types uint32
	obj := conn.Object(portalBusName, portalObjectPath)
	if err := obj.StoreProperty(screenCastIface+".AvailableSourceTypes", &types); err != nil {
		return 0, false
	}
	return types, true
}

// prompt is a no-op on linux: the portal raises its own source-picker
// dialog when a capture session starts.
func (l *linuxBackend) prompt(ctx context.Context) {}
