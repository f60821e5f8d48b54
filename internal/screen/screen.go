// Package screen detects monitor bounds and keeps the widget window on-screen.
package screen

import (
	"image"

	"github.com/genricoloni/photowidget/internal/domain"
	"github.com/kbinani/screenshot"
	"go.uber.org/zap"
)

var fallbackBounds = image.Rect(0, 0, 1920, 1080)

// Displays lists active display bounds in virtual-screen coordinates
type Displays func() []image.Rectangle

// ActiveDisplays queries the system for every active display
func ActiveDisplays() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}

// Detect returns the primary display bounds, falling back to 1920x1080
func Detect(logger *zap.Logger, displays Displays) domain.Rect {
	all := displays()
	if len(all) == 0 {
		logger.Warn("No active displays detected, falling back to 1920x1080")
		return toRect(fallbackBounds)
	}

	// Use primary monitor (index 0)
	logger.Info("Screen resolution detected",
		zap.Int("width", all[0].Dx()),
		zap.Int("height", all[0].Dy()))
	return toRect(all[0])
}

// MonitorFor returns the display containing the center of win.
// Falls back to the display with the largest overlap, then the primary display.
func MonitorFor(win image.Rectangle, displays Displays) (domain.Rect, bool) {
	all := displays()
	if len(all) == 0 {
		return domain.Rect{}, false
	}

	center := image.Pt(win.Min.X+win.Dx()/2, win.Min.Y+win.Dy()/2)
	for _, d := range all {
		if center.In(d) {
			return toRect(d), true
		}
	}

	best, bestArea := all[0], 0
	for _, d := range all {
		overlap := d.Intersect(win)
		if area := overlap.Dx() * overlap.Dy(); area > bestArea {
			best, bestArea = d, area
		}
	}
	return toRect(best), true
}

// ClampTo clamps pos within monitor bounds that may not start at the origin
func ClampTo(pos domain.Point, size domain.Size, bounds domain.Rect) domain.Point {
	local := domain.Point{X: pos.X - bounds.Min.X, Y: pos.Y - bounds.Min.Y}
	c := Clamp(local, size, bounds.Size())
	return domain.Point{X: c.X + bounds.Min.X, Y: c.Y + bounds.Min.Y}
}

func toRect(r image.Rectangle) domain.Rect {
	return domain.Rect{
		Min: domain.Point{X: float64(r.Min.X), Y: float64(r.Min.Y)},
		Max: domain.Point{X: float64(r.Max.X), Y: float64(r.Max.Y)},
	}
}
