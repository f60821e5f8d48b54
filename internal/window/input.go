// Package window hosts the widget window backends. The pointer and key
// translation in this file is shared by every backend.
package window

import (
	"github.com/genricoloni/photowidget/internal/domain"
	"github.com/genricoloni/photowidget/internal/render"
)

// Pointer buttons as reported by X11
const (
	buttonPrimary   = 1
	buttonSecondary = 3
)

// tracker turns raw pointer/key events into domain input events for the
// frame currently on screen
type tracker struct {
	frame      domain.Frame
	dragging   bool
	overImage  bool
	overHandle bool
}

func (t *tracker) setFrame(f domain.Frame) {
	t.frame = f
}

func (t *tracker) browsingImage() bool {
	return t.frame.State == domain.StateBrowsing && t.frame.Image != nil
}

// press handles a button press at window-local (x, y). It reports whether a
// window drag starts.
func (t *tracker) press(button, x, y int) ([]domain.InputEvent, bool) {
	if t.frame.State != domain.StateBrowsing {
		return nil, false
	}

	if t.frame.Image == nil {
		if button == buttonPrimary && render.HitEmptyAction(t.frame.Size, x, y) {
			return []domain.InputEvent{{Kind: domain.InputOpenSettings}}, false
		}
		if button == buttonSecondary {
			return []domain.InputEvent{{Kind: domain.InputSecondaryClick}}, false
		}
		return nil, false
	}

	switch button {
	case buttonPrimary:
		if render.HitDragBar(x, y) {
			t.dragging = true
			return nil, true
		}
		return []domain.InputEvent{{Kind: domain.InputPrimaryClick, OverImage: true}}, false
	case buttonSecondary:
		return []domain.InputEvent{{Kind: domain.InputSecondaryClick, OverImage: true}}, false
	}
	return nil, false
}

// release ends a drag started by press
func (t *tracker) release(button int) []domain.InputEvent {
	if button != buttonPrimary || !t.dragging {
		return nil
	}
	t.dragging = false
	return []domain.InputEvent{{Kind: domain.InputDragReleased}}
}

// motion reports hover changes; inside=false means the pointer left the window
func (t *tracker) motion(x, y int, inside bool) []domain.InputEvent {
	overImage := inside && t.browsingImage()
	overHandle := overImage && render.HitDragBar(x, y)
	if t.dragging {
		overImage, overHandle = true, true
	}
	if overImage == t.overImage && overHandle == t.overHandle {
		return nil
	}
	t.overImage, t.overHandle = overImage, overHandle
	return []domain.InputEvent{{Kind: domain.InputHover, OverImage: overImage, OverHandle: overHandle}}
}

// key maps settings-panel shortcuts: "a" adds a folder, "1".."9" remove one
func (t *tracker) key(s string) []domain.InputEvent {
	if t.frame.State != domain.StateSettingsOpen || len(s) != 1 {
		return nil
	}
	switch c := s[0]; {
	case c == 'a' || c == 'A':
		return []domain.InputEvent{{Kind: domain.InputAddFolder}}
	case c >= '1' && c <= '9':
		idx := int(c - '1')
		if idx >= len(t.frame.Config.Folders) {
			return nil
		}
		return []domain.InputEvent{{Kind: domain.InputRemoveFolder, FolderIndex: idx}}
	}
	return nil
}
