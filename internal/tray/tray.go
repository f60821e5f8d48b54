// Package tray exposes the widget controls in the system tray.
package tray

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"fyne.io/systray"
	"github.com/disintegration/imaging"
	"github.com/genricoloni/photowidget/internal/domain"
	"go.uber.org/zap"
)

const (
	commandBuffer = 8
	iconSize      = 32
)

// Tray implements domain.TrayMenu with a StatusNotifier tray icon
type Tray struct {
	logger   *zap.Logger
	commands chan domain.TrayCommand
	done     chan struct{}
	end      func()
	once     sync.Once

	mu              sync.Mutex
	lastDropWarning time.Time // Rate limiting for queue overflow warnings
}

// NewTray creates a tray; the icon appears on Start
func NewTray(logger *zap.Logger) *Tray {
	return &Tray{
		logger:   logger,
		commands: make(chan domain.TrayCommand, commandBuffer),
		done:     make(chan struct{}),
	}
}

// Commands returns the channel tray clicks are delivered on
func (t *Tray) Commands() <-chan domain.TrayCommand {
	return t.commands
}

// Start registers the tray icon without taking over the main loop
func (t *Tray) Start() {
	start, end := systray.RunWithExternalLoop(t.onReady, t.onExit)
	t.end = end
	start()
}

// Stop removes the tray icon
func (t *Tray) Stop() {
	t.once.Do(func() {
		close(t.done)
		if t.end != nil {
			t.end()
		}
	})
}

func (t *Tray) onReady() {
	icon, err := iconPNG()
	if err != nil {
		t.logger.Warn("Failed to build tray icon", zap.Error(err))
	} else {
		systray.SetIcon(icon)
	}
	systray.SetTitle("Photo Widget")
	systray.SetTooltip("Photo Widget")

	show := systray.AddMenuItem("Show Window", "Bring the widget to the front")
	settings := systray.AddMenuItem("Settings", "Open the settings")
	systray.AddSeparator()
	quit := systray.AddMenuItem("Quit", "Exit the widget")

	t.logger.Info("Tray icon ready")

	go func() {
		for {
			select {
			case <-t.done:
				return
			case <-show.ClickedCh:
				t.dispatch(domain.TrayFocusWindow)
			case <-settings.ClickedCh:
				t.dispatch(domain.TrayShowSettings)
			case <-quit.ClickedCh:
				t.dispatch(domain.TrayQuit)
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.logger.Debug("Tray exited")
}

// dispatch queues cmd without blocking the tray goroutine
func (t *Tray) dispatch(cmd domain.TrayCommand) {
	select {
	case t.commands <- cmd:
		t.logger.Debug("Tray command", zap.String("command", cmd.String()))
	default:
		t.logDropWarning(cmd)
	}
}

func (t *Tray) logDropWarning(cmd domain.TrayCommand) {
	t.mu.Lock()
	defer t.mu.Unlock()

	const warningInterval = 5 * time.Second
	now := time.Now()
	if now.Sub(t.lastDropWarning) >= warningInterval {
		t.logger.Warn("Tray command queue full, dropping command", zap.String("command", cmd.String()))
		t.lastDropWarning = now
	}
}

// iconPNG draws a small framed-photo glyph
func iconPNG() ([]byte, error) {
	frame := imaging.New(iconSize, iconSize, color.NRGBA{R: 240, G: 240, B: 240, A: 255})
	sky := imaging.New(iconSize-8, iconSize-8, color.NRGBA{R: 90, G: 150, B: 220, A: 255})
	hill := imaging.New(iconSize-8, (iconSize-8)/3, color.NRGBA{R: 70, G: 160, B: 80, A: 255})
	photo := imaging.Paste(sky, hill, image.Pt(0, (iconSize-8)*2/3))
	icon := imaging.Paste(frame, photo, image.Pt(4, 4))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, icon, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode tray icon: %w", err)
	}
	return buf.Bytes(), nil
}
