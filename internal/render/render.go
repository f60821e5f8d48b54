// Package render composes controller frames into rasters for the window backend.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
	"github.com/genricoloni/photowidget/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	// DragBarHeight is the height of the drag handle strip at the top of the image
	DragBarHeight = 24
	hintHeight    = 22
	textMargin    = 12
	lineHeight    = 18
	dragBarAlpha  = 0.55
	hintAlpha     = 0.6

	// HintText is drawn along the bottom edge while the image is hovered
	HintText = "Left-click: Next | Right-click: Settings"
	// EmptyText is the empty-state prompt
	EmptyText = "No images found. Please add a folder in the settings."
	// EmptyAction labels the empty-state settings action
	EmptyAction = "[ Open Settings ]"
)

var (
	backgroundColor = color.NRGBA{R: 24, G: 24, B: 28, A: 255}
	panelColor      = color.NRGBA{R: 38, G: 38, B: 44, A: 255}
	textColor       = color.NRGBA{R: 230, G: 230, B: 230, A: 255}
	accentColor     = color.NRGBA{R: 120, G: 180, B: 255, A: 255}
)

// Renderer turns domain frames into window-sized images
type Renderer struct {
	logger *zap.Logger
}

// NewRenderer creates a renderer
func NewRenderer(logger *zap.Logger) *Renderer {
	return &Renderer{logger: logger}
}

// Compose draws f at its target size. Cover fills and crops the center,
// Contain scales to the window without cropping.
func (r *Renderer) Compose(f domain.Frame) (*image.NRGBA, error) {
	w, h := pixelSize(f.Size)
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("invalid frame size: %vx%v", f.Size.W, f.Size.H)
	}

	if f.State == domain.StateSettingsOpen {
		return r.settingsPanel(w, h, f.Config), nil
	}
	if f.Image == nil {
		return r.emptyState(w, h), nil
	}

	var out *image.NRGBA
	switch f.FitMode {
	case domain.FitContain:
		out = imaging.Resize(f.Image, w, h, imaging.Lanczos)
	default:
		out = imaging.Fill(f.Image, w, h, imaging.Center, imaging.Lanczos)
	}

	if f.ShowDragBar {
		bar := imaging.New(w, min(DragBarHeight, h), color.NRGBA{A: 255})
		out = imaging.Overlay(out, bar, image.Pt(0, 0), dragBarAlpha)
		drawGrip(out, w)
	}
	if f.ShowHint && h > hintHeight {
		strip := imaging.New(w, hintHeight, color.NRGBA{A: 255})
		out = imaging.Overlay(out, strip, image.Pt(0, h-hintHeight), hintAlpha)
		drawText(out, HintText, textMargin, h-7, textColor)
	}

	r.logger.Debug("Frame composed",
		zap.Int("w", w),
		zap.Int("h", h),
		zap.String("fitMode", f.FitMode.String()))
	return out, nil
}

// HitDragBar reports whether window-local point (x, y) lies on the drag handle
func HitDragBar(x, y int) bool {
	return x >= 0 && y >= 0 && y < DragBarHeight
}

// HitEmptyAction reports whether (x, y) lies on the empty-state settings action
func HitEmptyAction(size domain.Size, x, y int) bool {
	w, h := pixelSize(size)
	rect := emptyActionRect(w, h)
	return image.Pt(x, y).In(rect)
}

func (r *Renderer) emptyState(w, h int) *image.NRGBA {
	out := imaging.New(w, h, backgroundColor)
	drawText(out, EmptyText, textMargin, h/2-lineHeight/2, textColor)

	rect := emptyActionRect(w, h)
	draw.Draw(out, rect, image.NewUniform(panelColor), image.Point{}, draw.Src)
	drawText(out, EmptyAction, rect.Min.X+6, rect.Max.Y-6, accentColor)
	return out
}

func emptyActionRect(w, h int) image.Rectangle {
	tw := textWidth(EmptyAction) + 12
	x := (w - tw) / 2
	y := h/2 + lineHeight/2
	return image.Rect(x, y, x+tw, y+lineHeight+6)
}

// settingsPanel lists the configuration being edited. The form itself runs
// in the settings collaborator; the window mirrors its state.
func (r *Renderer) settingsPanel(w, h int, cfg domain.AppConfig) *image.NRGBA {
	out := imaging.New(w, h, panelColor)

	lines := []string{
		"Settings",
		"",
		"Folders:",
	}
	if len(cfg.Folders) == 0 {
		lines = append(lines, "  (none)")
	}
	for i, folder := range cfg.Folders {
		lines = append(lines, fmt.Sprintf("  %d. %s", i+1, folder))
	}
	refresh := "off"
	if cfg.RefreshInterval > 0 {
		refresh = fmt.Sprintf("%d %s", cfg.RefreshValue, cfg.RefreshUnit)
	}
	lines = append(lines,
		"",
		fmt.Sprintf("Refresh:      %s", refresh),
		fmt.Sprintf("Fit mode:     %s", cfg.FitMode),
		fmt.Sprintf("Anchor:       %s", cfg.ResizeAnchor),
		fmt.Sprintf("Orientation:  %s", cfg.OrientationFilter),
		fmt.Sprintf("Always on top: %t", cfg.AlwaysOnTop),
		fmt.Sprintf("Landscape:    %.0fx%.0f", cfg.LandscapeWidth, cfg.LandscapeHeight),
		fmt.Sprintf("Portrait:     %.0fx%.0f", cfg.PortraitWidth, cfg.PortraitHeight),
		"",
		"a: add folder   1-9: remove folder",
		"Edit the rest in the terminal form, then Save & Close.",
	)

	y := textMargin + lineHeight
	for i, line := range lines {
		if y > h-textMargin {
			break
		}
		c := textColor
		if i == 0 {
			c = accentColor
		}
		drawText(out, line, textMargin, y, c)
		y += lineHeight
	}
	return out
}

func drawGrip(dst *image.NRGBA, w int) {
	grip := image.Rect(w/2-20, DragBarHeight/2-2, w/2+20, DragBarHeight/2+2)
	draw.Draw(dst, grip.Intersect(dst.Bounds()), image.NewUniform(textColor), image.Point{}, draw.Over)
}

func drawText(dst draw.Image, s string, x, baseline int, c color.Color) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, baseline),
	}
	d.DrawString(s)
}

func textWidth(s string) int {
	return font.MeasureString(basicfont.Face7x13, s).Round()
}

func pixelSize(s domain.Size) (int, int) {
	if s.W < 1 || s.H < 1 || math.IsNaN(s.W) || math.IsNaN(s.H) {
		return 0, 0
	}
	return int(math.Round(s.W)), int(math.Round(s.H))
}
