package picker

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"
)

const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	openFileMethod  = "org.freedesktop.portal.FileChooser.OpenFile"
	requestIface    = "org.freedesktop.portal.Request"
	responseMember  = "Response"
	responseSignal  = requestIface + "." + responseMember
	responseSuccess = uint32(0)
	dialogTitle     = "Select Image Folder"
)

// errCancelled is returned when the user dismissed the dialog
var errCancelled = errors.New("folder selection cancelled")

var tokenCounter atomic.Uint64

// PortalPicker asks xdg-desktop-portal for a directory
type PortalPicker struct {
	logger *zap.Logger
	conn   DBusClient
}

// NewPortalPicker creates a portal picker on an existing D-Bus client
func NewPortalPicker(logger *zap.Logger, conn DBusClient) *PortalPicker {
	return &PortalPicker{logger: logger, conn: conn}
}

// pick returns errCancelled when the user closed the dialog and any other
// error when the portal itself is unusable
func (p *PortalPicker) pick(ctx context.Context) (string, error) {
	match := []dbus.MatchOption{
		dbus.WithMatchInterface(requestIface),
		dbus.WithMatchMember(responseMember),
	}
	if err := p.conn.AddMatchSignal(match...); err != nil {
		return "", fmt.Errorf("failed to subscribe to portal responses: %w", err)
	}
	defer p.conn.RemoveMatchSignal(match...)

	// Registered before the call so an early response is buffered
	signals := make(chan *dbus.Signal, 8)
	p.conn.Signal(signals)
	defer p.conn.RemoveSignal(signals)

	options := map[string]dbus.Variant{
		"directory":    dbus.MakeVariant(true),
		"modal":        dbus.MakeVariant(true),
		"handle_token": dbus.MakeVariant("photowidget" + strconv.FormatUint(tokenCounter.Add(1), 10)),
	}
	body, err := p.conn.Call(portalDest, portalPath, openFileMethod, "", dialogTitle, options)
	if err != nil {
		return "", fmt.Errorf("portal OpenFile failed: %w", err)
	}
	if len(body) == 0 {
		return "", fmt.Errorf("portal OpenFile returned no request handle")
	}
	handle, ok := body[0].(dbus.ObjectPath)
	if !ok {
		return "", fmt.Errorf("unexpected request handle type %T", body[0])
	}

	p.logger.Debug("Waiting for portal response", zap.String("handle", string(handle)))

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case sig := <-signals:
			if sig == nil || sig.Path != handle || sig.Name != responseSignal {
				continue
			}
			return parseResponse(sig)
		}
	}
}

// parseResponse extracts the picked directory from a Request.Response signal
func parseResponse(sig *dbus.Signal) (string, error) {
	if len(sig.Body) < 2 {
		return "", fmt.Errorf("malformed portal response: %d values", len(sig.Body))
	}
	code, ok := sig.Body[0].(uint32)
	if !ok {
		return "", fmt.Errorf("malformed portal response code %T", sig.Body[0])
	}
	if code != responseSuccess {
		return "", errCancelled
	}

	results, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return "", fmt.Errorf("malformed portal results %T", sig.Body[1])
	}
	uris, ok := results["uris"].Value().([]string)
	if !ok || len(uris) == 0 {
		return "", errCancelled
	}
	return uriToPath(uris[0])
}

func uriToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return u.Path, nil
}
