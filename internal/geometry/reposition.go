package geometry

import (
	"github.com/genricoloni/photowidget/internal/domain"
)

// anchorOffset is how far the window origin must move back so the anchored
// point stays put when the size grows by delta.
func anchorOffset(anchor domain.ResizeAnchor, delta domain.Size) domain.Point {
	switch anchor {
	case domain.AnchorTopLeft:
		return domain.Point{}
	case domain.AnchorTopRight:
		return domain.Point{X: delta.W}
	case domain.AnchorBottomLeft:
		return domain.Point{Y: delta.H}
	case domain.AnchorBottomRight:
		return domain.Point{X: delta.W, Y: delta.H}
	default: // AnchorCenter
		return domain.Point{X: delta.W / 2, Y: delta.H / 2}
	}
}

// Reposition returns the window position that keeps the anchor visually
// fixed when the window is resized from oldSize to newSize.
// It must be applied in the same step as the resize.
func Reposition(oldSize, newSize domain.Size, anchor domain.ResizeAnchor, pos domain.Point) domain.Point {
	off := anchorOffset(anchor, newSize.Sub(oldSize))
	return domain.Point{X: pos.X - off.X, Y: pos.Y - off.Y}
}
