package screen

import (
	"time"

	"github.com/genricoloni/photowidget/internal/domain"
)

// ClampInterval bounds how long a window may stay off-screen
const ClampInterval = 1 * time.Second

// Clamp nudges pos so that a window of size stays inside the monitor.
// The left/top edge wins when the window is larger than the monitor.
func Clamp(pos domain.Point, size, monitor domain.Size) domain.Point {
	return domain.Point{
		X: max(0, min(pos.X, monitor.W-size.W)),
		Y: max(0, min(pos.Y, monitor.H-size.H)),
	}
}
