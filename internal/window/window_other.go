//go:build !linux
// +build !linux

package window

import (
	"fmt"

	"github.com/genricoloni/photowidget/internal/domain"
	"github.com/genricoloni/photowidget/internal/render"
	"github.com/genricoloni/photowidget/internal/screen"
	"go.uber.org/zap"
)

// X11Window is unavailable on this platform
type X11Window struct {
	domain.Window
}

// NewX11Window returns an error indicating the platform is not supported
func NewX11Window(logger *zap.Logger, renderer *render.Renderer, displays screen.Displays) (*X11Window, error) {
	logger.Warn("Widget window is not yet implemented for this platform")
	return nil, fmt.Errorf("widget window not implemented for this platform (X11 only)")
}

// Run returns immediately
func (w *X11Window) Run() {}
