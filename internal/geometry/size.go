// Package geometry computes window sizes and anchor-preserving repositions
// from image dimensions, fit mode and the orientation presets.
package geometry

import (
	"github.com/genricoloni/photowidget/internal/domain"
)

// SettingsSize is the fixed window size while the settings panel is open
var SettingsSize = domain.Size{W: 500, H: 600}

// TargetSize returns the window size for an image of the given dimensions.
//
// Cover always returns the orientation-matched preset. Contain pins the
// preset width for landscape images and the preset height for portrait
// images and derives the other axis from the image aspect ratio.
func TargetSize(img domain.Size, mode domain.FitMode, presets domain.Presets) domain.Size {
	preset := presets.For(img)
	if img.W <= 0 || img.H <= 0 {
		return preset
	}

	switch mode {
	case domain.FitContain:
		aspect := img.W / img.H
		if img.IsLandscape() {
			return domain.Size{W: preset.W, H: preset.W / aspect}
		}
		return domain.Size{W: preset.H * aspect, H: preset.H}
	case domain.FitCover:
		return preset
	default:
		return preset
	}
}

// CoverUV returns the centered UV window that crops an image of size img to
// fill a box of size box without distortion.
func CoverUV(img, box domain.Size) domain.Rect {
	if img.W <= 0 || img.H <= 0 || box.W <= 0 || box.H <= 0 {
		return domain.FullUV
	}
	imageAspect := img.W / img.H
	boxAspect := box.W / box.H

	if imageAspect > boxAspect {
		uvWidth := boxAspect / imageAspect
		uvX := (1 - uvWidth) / 2
		return domain.Rect{
			Min: domain.Point{X: uvX, Y: 0},
			Max: domain.Point{X: uvX + uvWidth, Y: 1},
		}
	}

	uvHeight := imageAspect / boxAspect
	uvY := (1 - uvHeight) / 2
	return domain.Rect{
		Min: domain.Point{X: 0, Y: uvY},
		Max: domain.Point{X: 1, Y: uvY + uvHeight},
	}
}

// UVFor returns the UV window used to draw img into box under mode
func UVFor(img, box domain.Size, mode domain.FitMode) domain.Rect {
	if mode == domain.FitCover {
		return CoverUV(img, box)
	}
	return domain.FullUV
}
