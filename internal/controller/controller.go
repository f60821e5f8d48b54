// Package controller runs the display controller loop: it owns the
// configuration, the playlist and the window geometry, and reacts to
// decoded images, user input, tray commands and filesystem changes.
package controller

import (
	"context"
	"errors"
	"image"
	"reflect"
	"sync"
	"time"

	"github.com/genricoloni/photowidget/internal/domain"
	"github.com/genricoloni/photowidget/internal/geometry"
	"github.com/genricoloni/photowidget/internal/playlist"
	"github.com/genricoloni/photowidget/internal/screen"
	"go.uber.org/zap"
)

const (
	// TickInterval is the controller loop period
	TickInterval = 50 * time.Millisecond

	// DragBarGrace is how long the drag bar stays visible after the pointer leaves
	DragBarGrace = 100 * time.Millisecond
)

// FolderScanner lists the playable images of a folder set
type FolderScanner interface {
	Scan(folders []string, filter domain.OrientationFilter) []string
}

type settingsOutcome struct {
	result domain.SettingsResult
	err    error
}

// Deps groups the collaborators of the controller
type Deps struct {
	Store    domain.ConfigStore
	Window   domain.Window
	Loader   domain.ImageLoader
	Scanner  FolderScanner
	Form     domain.SettingsForm
	Picker   domain.FolderPicker
	Tray     domain.TrayMenu      // optional
	Notifier domain.ChangeNotifier // optional
	Playlist *playlist.Playlist    // optional, randomly seeded when nil
}

// Controller is the display controller. All fields below the collaborators
// are owned by the loop goroutine.
type Controller struct {
	logger   *zap.Logger
	store    domain.ConfigStore
	window   domain.Window
	loader   domain.ImageLoader
	scanner  FolderScanner
	form     domain.SettingsForm
	picker   domain.FolderPicker
	tray     domain.TrayMenu
	notifier domain.ChangeNotifier
	playlist *playlist.Playlist
	quit     func()

	cfg   domain.AppConfig
	state domain.ControllerState

	current     image.Image
	currentPath string
	currentDims domain.Size
	generation  uint64
	lastChange  time.Time
	lastClamp   time.Time

	size        domain.Size
	sizeApplied bool
	onTop       bool
	onTopKnown  bool

	hoverImage  bool
	hoverHandle bool
	lastHover   time.Time
	showDragBar bool
	dirty       bool

	formOpen       bool
	pickOpen       bool
	sessionAdded   []string
	sessionRemoved []string

	settingsResults chan settingsOutcome
	picks           chan string

	workerCtx    context.Context
	workerCancel context.CancelFunc
	workers      sync.WaitGroup
	cancel       context.CancelFunc
	done         chan struct{}
}

// NewController creates a controller. quit is called when the tray asks
// the application to exit.
func NewController(logger *zap.Logger, deps Deps, quit func()) *Controller {
	pl := deps.Playlist
	if pl == nil {
		pl = playlist.New(nil)
	}
	if quit == nil {
		quit = func() {}
	}
	workerCtx, workerCancel := context.WithCancel(context.Background())

	return &Controller{
		logger:          logger,
		store:           deps.Store,
		window:          deps.Window,
		loader:          deps.Loader,
		scanner:         deps.Scanner,
		form:            deps.Form,
		picker:          deps.Picker,
		tray:            deps.Tray,
		notifier:        deps.Notifier,
		playlist:        pl,
		quit:            quit,
		cfg:             domain.DefaultAppConfig(),
		settingsResults: make(chan settingsOutcome, 1),
		picks:           make(chan string, 1),
		workerCtx:       workerCtx,
		workerCancel:    workerCancel,
	}
}

// Start loads the configuration, builds the first playlist and launches the
// loop in a goroutine. It returns immediately (non-blocking).
func (c *Controller) Start(ctx context.Context) error {
	c.logger.Info("Controller starting...")

	c.Init(time.Now())

	runCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.Run(runCtx)
	return nil
}

// Init applies the persisted configuration and requests the first image
func (c *Controller) Init(now time.Time) {
	c.cfg = c.store.Load()
	c.state = domain.StateBrowsing

	c.window.SetDecorations(false)
	c.applyAlwaysOnTop()
	if c.cfg.WindowPos != nil {
		c.window.SetPosition(*c.cfg.WindowPos)
	}

	c.rescan()
	c.advance(now)
	c.lastClamp = now
	c.dirty = true
}

// Run ticks until ctx is cancelled
func (c *Controller) Run(ctx context.Context) {
	if c.done != nil {
		defer close(c.done)
	}
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Controller loop stopped")
			return
		case now := <-ticker.C:
			c.Tick(now)
		}
	}
}

// Stop ends the loop and waits for the picker and form workers
func (c *Controller) Stop(ctx context.Context) error {
	c.logger.Info("Controller stopping...")

	if c.cancel != nil {
		c.cancel()
		select {
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.workerCancel()
	waited := make(chan struct{})
	go func() {
		c.workers.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state machine position
func (c *Controller) State() domain.ControllerState {
	return c.state
}

// Config returns a copy of the live configuration
func (c *Controller) Config() domain.AppConfig {
	return c.cfg.Clone()
}

// Tick runs one controller iteration
func (c *Controller) Tick(now time.Time) {
	c.clampIfDue(now)
	c.pollTray()
	c.pollPick(now)
	c.pollDecode()
	c.pollWatcher(now)
	c.pollSettings(now)
	c.drainInputs(now)

	if c.state == domain.StateBrowsing && c.cfg.RefreshInterval > 0 && now.Sub(c.lastChange) >= c.cfg.Refresh() {
		c.logger.Debug("Refresh interval elapsed")
		c.advance(now)
	}

	c.updateGeometry()
	c.applyAlwaysOnTop()
	c.updateDragBar(now)

	if c.dirty {
		c.present()
		c.dirty = false
	}
}

func (c *Controller) clampIfDue(now time.Time) {
	if now.Sub(c.lastClamp) < screen.ClampInterval || !c.sizeApplied {
		return
	}
	c.lastClamp = now

	pos, ok := c.window.Position()
	if !ok {
		return
	}
	bounds, ok := c.window.MonitorBounds()
	if !ok {
		return
	}
	if clamped := screen.ClampTo(pos, c.size, bounds); clamped != pos {
		c.logger.Debug("Window clamped into monitor",
			zap.Float64("x", clamped.X),
			zap.Float64("y", clamped.Y))
		c.window.SetPosition(clamped)
	}
}

func (c *Controller) pollTray() {
	if c.tray == nil {
		return
	}
	select {
	case cmd := <-c.tray.Commands():
		c.logger.Info("Tray command", zap.String("command", cmd.String()))
		switch cmd {
		case domain.TrayShowSettings:
			c.openSettings()
		case domain.TrayFocusWindow:
			c.window.Focus()
		case domain.TrayQuit:
			c.quit()
		}
	default:
	}
}

func (c *Controller) pollPick(now time.Time) {
	select {
	case path := <-c.picks:
		c.pickOpen = false
		if path == "" {
			return
		}
		if c.cfg.HasFolder(path) {
			c.logger.Info("Folder already configured", zap.String("path", path))
			return
		}
		c.logger.Info("Folder added", zap.String("path", path))
		c.cfg.Folders = append(append([]string{}, c.cfg.Folders...), path)
		c.sessionAdded = appendUnique(c.sessionAdded, path)
		c.sessionRemoved = without(c.sessionRemoved, path)
		c.rescan()
		c.advance(now)
		c.dirty = true
	default:
	}
}

func (c *Controller) pollDecode() {
	select {
	case res := <-c.loader.Results():
		if res.Generation != c.generation {
			c.logger.Debug("Discarding stale decode",
				zap.String("path", res.Path),
				zap.Uint64("generation", res.Generation),
				zap.Uint64("latest", c.generation))
			return
		}
		c.current = res.Image
		c.currentPath = res.Path
		c.currentDims = res.Dims()
		c.dirty = true
		c.logger.Debug("Image displayed", zap.String("path", res.Path))
	default:
	}
}

func (c *Controller) pollWatcher(now time.Time) {
	if c.notifier == nil {
		return
	}
	select {
	case <-c.notifier.FolderChanges():
		c.logger.Info("Image folders changed, rescanning")
		c.rescan()
		if c.current == nil || !c.inPlaylist(c.currentPath) {
			c.advance(now)
		}
	default:
	}

	select {
	case <-c.notifier.ConfigChanges():
		c.reloadConfig(now)
	default:
	}
}

// reloadConfig picks up external edits of the config file while browsing
func (c *Controller) reloadConfig(now time.Time) {
	if c.state != domain.StateBrowsing {
		return
	}
	loaded := c.store.Load()
	if sameConfig(loaded, c.cfg) {
		return
	}
	c.logger.Info("Config file changed on disk, reloading")

	rescan := !reflect.DeepEqual(loaded.Folders, c.cfg.Folders) || loaded.OrientationFilter != c.cfg.OrientationFilter
	if loaded.WindowPos == nil {
		loaded.WindowPos = c.cfg.WindowPos
	}
	c.cfg = loaded
	if rescan {
		c.rescan()
		c.advance(now)
	}
	c.dirty = true
}

func (c *Controller) pollSettings(now time.Time) {
	select {
	case out := <-c.settingsResults:
		c.formOpen = false
		switch {
		case errors.Is(out.err, context.Canceled):
			return
		case out.err != nil:
			c.logger.Warn("Settings form closed without saving", zap.Error(out.err))
		case !out.result.Saved:
			c.logger.Info("Settings not saved, panel stays open")
		case c.state == domain.StateSettingsOpen:
			c.applySettings(now, out.result.Config)
		}
	default:
	}
}

// applySettings is the save-and-close transition back to Browsing
func (c *Controller) applySettings(now time.Time, edited domain.AppConfig) {
	edited = edited.Clone()
	edited.Folders = mergeFolders(edited.Folders, c.sessionAdded, c.sessionRemoved)
	edited.ApplyRefreshValue()
	if pos, ok := c.window.Position(); ok {
		edited.WindowPos = &pos
	} else {
		edited.WindowPos = c.cfg.WindowPos
	}

	c.cfg = edited
	c.persist()

	c.state = domain.StateBrowsing
	c.window.SetDecorations(false)
	c.sessionAdded, c.sessionRemoved = nil, nil

	c.logger.Info("Settings saved",
		zap.Strings("folders", c.cfg.Folders),
		zap.Uint64("refreshInterval", c.cfg.RefreshInterval),
		zap.String("fitMode", c.cfg.FitMode.String()))

	c.rescan()
	c.advance(now)
	c.dirty = true
}

func (c *Controller) drainInputs(now time.Time) {
	inputs := c.window.Inputs()
	for {
		select {
		case ev := <-inputs:
			c.handleInput(now, ev)
		default:
			return
		}
	}
}

func (c *Controller) handleInput(now time.Time, ev domain.InputEvent) {
	switch ev.Kind {
	case domain.InputPrimaryClick:
		if c.state == domain.StateBrowsing {
			c.advance(now)
		}
	case domain.InputSecondaryClick, domain.InputOpenSettings:
		if c.state == domain.StateBrowsing {
			c.openSettings()
		}
	case domain.InputHover:
		if c.hoverImage || c.hoverHandle {
			c.lastHover = now
		}
		c.hoverImage, c.hoverHandle = ev.OverImage, ev.OverHandle
	case domain.InputDragReleased:
		pos, ok := c.window.Position()
		if !ok {
			return
		}
		c.cfg.WindowPos = &pos
		c.persist()
	case domain.InputAddFolder:
		c.startPick()
	case domain.InputRemoveFolder:
		c.removeFolder(now, ev.FolderIndex)
	}
}

func (c *Controller) openSettings() {
	if c.state != domain.StateSettingsOpen {
		c.logger.Info("Opening settings")
		c.state = domain.StateSettingsOpen
		c.window.SetDecorations(true)
		c.sessionAdded, c.sessionRemoved = nil, nil
		c.dirty = true
	}
	c.window.Focus()

	if c.formOpen {
		return
	}
	c.formOpen = true
	cfg := c.cfg.Clone()

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		res, err := c.form.Edit(c.workerCtx, cfg)
		select {
		case c.settingsResults <- settingsOutcome{result: res, err: err}:
		case <-c.workerCtx.Done():
		}
	}()
}

func (c *Controller) startPick() {
	if c.pickOpen {
		return
	}
	c.pickOpen = true

	c.workers.Add(1)
	go func() {
		defer c.workers.Done()
		path, ok := c.picker.PickFolder(c.workerCtx)
		if !ok {
			path = ""
		}
		select {
		case c.picks <- path:
		case <-c.workerCtx.Done():
		}
	}()
}

func (c *Controller) removeFolder(now time.Time, index int) {
	if index < 0 || index >= len(c.cfg.Folders) {
		return
	}
	removed := c.cfg.Folders[index]
	folders := make([]string, 0, len(c.cfg.Folders)-1)
	folders = append(folders, c.cfg.Folders[:index]...)
	c.cfg.Folders = append(folders, c.cfg.Folders[index+1:]...)

	c.sessionRemoved = appendUnique(c.sessionRemoved, removed)
	c.sessionAdded = without(c.sessionAdded, removed)
	c.logger.Info("Folder removed", zap.String("path", removed))

	c.rescan()
	c.advance(now)
	c.dirty = true
}

// rescan rebuilds the playlist from the configured folders
func (c *Controller) rescan() {
	paths := c.scanner.Scan(c.cfg.Folders, c.cfg.OrientationFilter)
	c.playlist.Rebuild(paths)
	if c.notifier != nil {
		c.notifier.WatchFolders(c.cfg.Folders)
	}

	if c.playlist.Len() == 0 {
		// Nothing left to show: drop the image and any load in flight
		c.generation++
		if c.current != nil {
			c.current = nil
			c.currentPath = ""
			c.dirty = true
		}
	}
}

// advance requests the next image and resets the refresh timer
func (c *Controller) advance(now time.Time) {
	path, ok := c.playlist.Advance()
	if !ok {
		return
	}
	c.generation++
	c.lastChange = now
	c.loader.Submit(path, c.generation)
	c.logger.Debug("Image requested", zap.String("path", path), zap.Uint64("generation", c.generation))
}

func (c *Controller) inPlaylist(path string) bool {
	for _, p := range c.playlist.Paths() {
		if p == path {
			return true
		}
	}
	return false
}

// targetSize is the window size for the current state
func (c *Controller) targetSize() domain.Size {
	switch {
	case c.state == domain.StateSettingsOpen:
		return geometry.SettingsSize
	case c.current != nil:
		return geometry.TargetSize(c.currentDims, c.cfg.FitMode, c.cfg.Presets())
	default:
		return c.cfg.Presets().Landscape
	}
}

// updateGeometry resizes the window, moving it so the anchor stays put
func (c *Controller) updateGeometry() {
	target := c.targetSize()
	if c.sizeApplied && target == c.size {
		return
	}

	if c.sizeApplied {
		if pos, ok := c.window.Position(); ok {
			c.window.SetPosition(geometry.Reposition(c.size, target, c.cfg.ResizeAnchor, pos))
		}
	}
	c.window.SetSize(target)
	c.size = target
	c.sizeApplied = true
	c.dirty = true
}

func (c *Controller) applyAlwaysOnTop() {
	if c.onTopKnown && c.onTop == c.cfg.AlwaysOnTop {
		return
	}
	c.window.SetAlwaysOnTop(c.cfg.AlwaysOnTop)
	c.onTop = c.cfg.AlwaysOnTop
	c.onTopKnown = true
}

func (c *Controller) updateDragBar(now time.Time) {
	hovering := c.hoverImage || c.hoverHandle
	show := c.showDragBar
	switch {
	case hovering:
		c.lastHover = now
		show = true
	case show && now.Sub(c.lastHover) >= DragBarGrace:
		show = false
	}
	if show != c.showDragBar {
		c.showDragBar = show
		c.dirty = true
	}
}

func (c *Controller) present() {
	browsing := c.state == domain.StateBrowsing
	c.window.Present(domain.Frame{
		State:       c.state,
		Image:       c.current,
		Size:        c.size,
		FitMode:     c.cfg.FitMode,
		UV:          geometry.UVFor(c.currentDims, c.size, c.cfg.FitMode),
		ShowDragBar: browsing && c.current != nil && c.showDragBar,
		ShowHint:    browsing && c.current != nil && c.hoverImage,
		Config:      c.cfg.Clone(),
	})
}

// persist saves the configuration; failures are logged and dropped
func (c *Controller) persist() {
	if err := c.store.Save(c.cfg); err != nil {
		c.logger.Warn("Failed to save config", zap.String("path", c.store.Path()), zap.Error(err))
	}
}

// sameConfig compares configs after normalizing the refresh display unit
func sameConfig(a, b domain.AppConfig) bool {
	a, b = a.Clone(), b.Clone()
	a.DeriveRefreshUnit()
	b.DeriveRefreshUnit()
	if a.WindowPos == nil || b.WindowPos == nil {
		a.WindowPos, b.WindowPos = nil, nil
	}
	return reflect.DeepEqual(a, b)
}

// mergeFolders applies folder picks and removals made while the form was open
func mergeFolders(folders, added, removed []string) []string {
	out := []string{}
	for _, f := range folders {
		if !contains(removed, f) {
			out = appendUnique(out, f)
		}
	}
	for _, f := range added {
		out = appendUnique(out, f)
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func appendUnique(list []string, s string) []string {
	if contains(list, s) {
		return list
	}
	return append(list, s)
}

func without(list []string, s string) []string {
	out := list[:0:0]
	for _, v := range list {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
