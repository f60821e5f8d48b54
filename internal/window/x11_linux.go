//go:build linux
// +build linux

package window

import (
	"image"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xgraphics"
	"github.com/BurntSushi/xgbutil/xwindow"
	"github.com/genricoloni/photowidget/internal/domain"
	"github.com/genricoloni/photowidget/internal/render"
	"github.com/genricoloni/photowidget/internal/screen"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	windowTitle   = "Photo Widget"
	windowClass   = "photowidget"
	inputBuffer   = 64
	initialWidth  = 400
	initialHeight = 300
	backgroundRGB = 0x18181c

	eventMask = xproto.EventMaskButtonPress |
		xproto.EventMaskButtonRelease |
		xproto.EventMaskPointerMotion |
		xproto.EventMaskLeaveWindow |
		xproto.EventMaskKeyPress |
		xproto.EventMaskExposure |
		xproto.EventMaskStructureNotify
)

// X11Window implements domain.Window on a plain X11 window drawn with xgraphics
type X11Window struct {
	logger   *zap.Logger
	xu       *xgbutil.XUtil
	win      *xwindow.Window
	renderer *render.Renderer
	displays screen.Displays
	primary  domain.Rect
	inputs   chan domain.InputEvent

	mu       sync.Mutex
	tracker  tracker
	surface  *xgraphics.Image
	dragFrom image.Point // pointer offset from the window origin while dragging

	closeOnce       sync.Once
	lastDropWarning time.Time // Rate limiting for input overflow warnings
}

// NewX11Window connects to the X server and maps an undecorated window
func NewX11Window(logger *zap.Logger, renderer *render.Renderer, displays screen.Displays) (*X11Window, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, err
	}
	keybind.Initialize(xu)

	win, err := xwindow.Generate(xu)
	if err != nil {
		xu.Conn().Close()
		return nil, err
	}
	if err := win.Create(xu.RootWin(), 0, 0, initialWidth, initialHeight,
		xproto.CwBackPixel|xproto.CwEventMask, backgroundRGB, eventMask); err != nil {
		xu.Conn().Close()
		return nil, err
	}

	w := &X11Window{
		logger:   logger,
		xu:       xu,
		win:      win,
		renderer: renderer,
		displays: displays,
		primary:  screen.Detect(logger, displays),
		inputs:   make(chan domain.InputEvent, inputBuffer),
	}

	if err := ewmh.WmNameSet(xu, win.Id, windowTitle); err != nil {
		logger.Debug("Failed to set window name", zap.Error(err))
	}
	if err := icccm.WmClassSet(xu, win.Id, &icccm.WmClass{Instance: windowClass, Class: windowTitle}); err != nil {
		logger.Debug("Failed to set window class", zap.Error(err))
	}
	if err := ewmh.WmWindowTypeSet(xu, win.Id, []string{"_NET_WM_WINDOW_TYPE_UTILITY"}); err != nil {
		logger.Debug("Failed to set window type", zap.Error(err))
	}
	w.SetDecorations(false)

	w.connectHandlers()
	win.Map()

	logger.Info("X11 window created", zap.Uint32("id", uint32(win.Id)))
	return w, nil
}

// Run processes X events until Close (blocking)
func (w *X11Window) Run() {
	xevent.Main(w.xu)
}

func (w *X11Window) connectHandlers() {
	xevent.ButtonPressFun(func(xu *xgbutil.XUtil, ev xevent.ButtonPressEvent) {
		w.mu.Lock()
		events, drag := w.tracker.press(int(ev.Detail), int(ev.EventX), int(ev.EventY))
		if drag {
			w.dragFrom = image.Pt(int(ev.EventX), int(ev.EventY))
		}
		w.mu.Unlock()
		w.emit(events...)
	}).Connect(w.xu, w.win.Id)

	xevent.ButtonReleaseFun(func(xu *xgbutil.XUtil, ev xevent.ButtonReleaseEvent) {
		w.mu.Lock()
		events := w.tracker.release(int(ev.Detail))
		w.mu.Unlock()
		w.emit(events...)
	}).Connect(w.xu, w.win.Id)

	xevent.MotionNotifyFun(func(xu *xgbutil.XUtil, ev xevent.MotionNotifyEvent) {
		w.mu.Lock()
		events := w.tracker.motion(int(ev.EventX), int(ev.EventY), true)
		dragging, from := w.tracker.dragging, w.dragFrom
		w.mu.Unlock()

		if dragging {
			w.win.Move(int(ev.RootX)-from.X, int(ev.RootY)-from.Y)
		}
		w.emit(events...)
	}).Connect(w.xu, w.win.Id)

	xevent.LeaveNotifyFun(func(xu *xgbutil.XUtil, ev xevent.LeaveNotifyEvent) {
		w.mu.Lock()
		events := w.tracker.motion(0, 0, false)
		w.mu.Unlock()
		w.emit(events...)
	}).Connect(w.xu, w.win.Id)

	xevent.KeyPressFun(func(xu *xgbutil.XUtil, ev xevent.KeyPressEvent) {
		s := keybind.LookupString(xu, ev.State, ev.Detail)
		w.mu.Lock()
		events := w.tracker.key(s)
		w.mu.Unlock()
		w.emit(events...)
	}).Connect(w.xu, w.win.Id)

	xevent.ExposeFun(func(xu *xgbutil.XUtil, ev xevent.ExposeEvent) {
		if ev.Count != 0 {
			return
		}
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.surface != nil {
			w.surface.XPaint(w.win.Id)
		}
	}).Connect(w.xu, w.win.Id)
}

// emit queues events without blocking the X event loop
func (w *X11Window) emit(events ...domain.InputEvent) {
	for _, ev := range events {
		select {
		case w.inputs <- ev:
		default:
			w.logDropWarning()
		}
	}
}

func (w *X11Window) logDropWarning() {
	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(w.lastDropWarning) >= warningInterval {
		w.logger.Warn("Input queue full, dropping event")
		w.lastDropWarning = now
	}
}

// Position returns the frame origin in root coordinates
func (w *X11Window) Position() (domain.Point, bool) {
	geom, err := w.win.DecorGeometry()
	if err != nil {
		return domain.Point{}, false
	}
	return domain.Point{X: float64(geom.X()), Y: float64(geom.Y())}, true
}

// MonitorBounds returns the display hosting the window center, or the
// primary display detected at startup when displays cannot be listed
func (w *X11Window) MonitorBounds() (domain.Rect, bool) {
	geom, err := w.win.DecorGeometry()
	if err != nil {
		return domain.Rect{}, false
	}
	rect := image.Rect(geom.X(), geom.Y(), geom.X()+geom.Width(), geom.Y()+geom.Height())
	if bounds, ok := screen.MonitorFor(rect, w.displays); ok {
		return bounds, true
	}
	return w.primary, true
}

func (w *X11Window) SetPosition(p domain.Point) {
	w.win.Move(int(p.X), int(p.Y))
}

func (w *X11Window) SetSize(s domain.Size) {
	if s.W < 1 || s.H < 1 {
		return
	}
	w.win.Resize(int(s.W), int(s.H))
}

func (w *X11Window) SetAlwaysOnTop(on bool) {
	action := ewmh.StateRemove
	if on {
		action = ewmh.StateAdd
	}
	if err := ewmh.WmStateReq(w.xu, w.win.Id, action, "_NET_WM_STATE_ABOVE"); err != nil {
		w.logger.Debug("Failed to change always-on-top", zap.Bool("on", on), zap.Error(err))
	}
}

func (w *X11Window) SetDecorations(on bool) {
	hints := &motif.Hints{Flags: motif.HintDecorations, Decoration: motif.DecorationNone}
	if on {
		hints.Decoration = motif.DecorationAll
	}
	if err := motif.WmHintsSet(w.xu, w.win.Id, hints); err != nil {
		w.logger.Debug("Failed to change decorations", zap.Bool("on", on), zap.Error(err))
	}
}

func (w *X11Window) Focus() {
	if err := ewmh.ActiveWindowReq(w.xu, w.win.Id); err != nil {
		w.win.Focus()
	}
}

// Present composes f and paints it on the window
func (w *X11Window) Present(f domain.Frame) {
	img, err := w.renderer.Compose(f)
	if err != nil {
		w.logger.Debug("Skipping frame", zap.Error(err))
		return
	}

	ximg := xgraphics.NewConvert(w.xu, img)
	if err := ximg.XSurfaceSet(w.win.Id); err != nil {
		w.logger.Warn("Failed to create window surface", zap.Error(err))
		ximg.Destroy()
		return
	}
	ximg.XDraw()
	ximg.XPaint(w.win.Id)

	w.mu.Lock()
	old := w.surface
	w.surface = ximg
	w.tracker.setFrame(f)
	w.mu.Unlock()

	if old != nil {
		old.Destroy()
	}
}

func (w *X11Window) Inputs() <-chan domain.InputEvent {
	return w.inputs
}

// Close stops the event loop and destroys the window
func (w *X11Window) Close() error {
	var err error
	w.closeOnce.Do(func() {
		xevent.Quit(w.xu)
		xevent.Detach(w.xu, w.win.Id)

		w.mu.Lock()
		if w.surface != nil {
			w.surface.Destroy()
			w.surface = nil
		}
		w.mu.Unlock()

		err = multierr.Append(err, xproto.DestroyWindowChecked(w.xu.Conn(), w.win.Id).Check())
		w.xu.Conn().Close()
		w.logger.Info("X11 window closed")
	})
	return err
}
