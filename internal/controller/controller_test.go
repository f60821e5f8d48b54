package controller

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"

	"github.com/genricoloni/photowidget/internal/domain"
	"github.com/genricoloni/photowidget/internal/domain/mocks"
	"github.com/genricoloni/photowidget/internal/geometry"
	"github.com/genricoloni/photowidget/internal/playlist"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
)

var photos = []string{"/photos/a.jpg", "/photos/b.jpg", "/photos/c.jpg"}

type harness struct {
	c        *Controller
	store    *mocks.MockConfigStore
	window   *fakeWindow
	loader   *fakeLoader
	scanner  *fakeScanner
	form     *fakeForm
	picker   *fakePicker
	tray     *fakeTray
	notifier *fakeNotifier

	saved   []domain.AppConfig
	saveErr error
	quits   int
	now     time.Time
}

// newHarness wires a controller whose store loads cfg on the first call
func newHarness(t *testing.T, cfg domain.AppConfig) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)

	h := &harness{
		store:   mocks.NewMockConfigStore(ctrl),
		window:  newFakeWindow(),
		loader:  newFakeLoader(),
		scanner: &fakeScanner{byFolder: map[string][]string{"/photos": photos, "/more": {"/more/d.png"}}},
		form:    newFakeForm(),
		picker:  &fakePicker{results: make(chan string, 1)},
		tray:    &fakeTray{commands: make(chan domain.TrayCommand, 4)},
		notifier: &fakeNotifier{
			folders: make(chan struct{}, 1),
			config:  make(chan struct{}, 1),
		},
		now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	h.store.EXPECT().Load().Return(cfg.Clone()).Times(1)
	h.store.EXPECT().Save(gomock.Any()).DoAndReturn(func(c domain.AppConfig) error {
		h.saved = append(h.saved, c.Clone())
		return h.saveErr
	}).AnyTimes()
	h.store.EXPECT().Path().Return("/tmp/photowidget/config.json").AnyTimes()

	h.c = NewController(zap.NewNop(), Deps{
		Store:    h.store,
		Window:   h.window,
		Loader:   h.loader,
		Scanner:  h.scanner,
		Form:     h.form,
		Picker:   h.picker,
		Tray:     h.tray,
		Notifier: h.notifier,
		Playlist: playlist.New(rand.New(rand.NewPCG(1, 2))),
	}, func() { h.quits++ })

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := h.c.Stop(ctx); err != nil {
			t.Errorf("Stop failed: %v", err)
		}
	})
	return h
}

func photoConfig() domain.AppConfig {
	cfg := domain.DefaultAppConfig()
	cfg.Folders = []string{"/photos"}
	return cfg
}

func (h *harness) init() {
	h.c.Init(h.now)
}

func (h *harness) tick(d time.Duration) {
	h.now = h.now.Add(d)
	h.c.Tick(h.now)
}

// tickUntil ticks until cond holds, giving worker goroutines time to report
func (h *harness) tickUntil(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		h.tick(TickInterval)
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func (h *harness) input(ev domain.InputEvent) {
	h.window.inputs <- ev
	h.tick(TickInterval)
}

// show delivers the latest submission as a w x h image and presents it
func (h *harness) show(w, hgt int) {
	h.loader.deliver(h.loader.last(), w, hgt)
	h.tick(TickInterval)
}

func (h *harness) awaitFormRequest(t *testing.T) domain.AppConfig {
	t.Helper()
	select {
	case cfg := <-h.form.requests:
		return cfg
	case <-time.After(2 * time.Second):
		t.Fatal("settings form was not opened")
	}
	return domain.AppConfig{}
}

func (h *harness) lastSaved(t *testing.T) domain.AppConfig {
	t.Helper()
	if len(h.saved) == 0 {
		t.Fatal("config was never saved")
	}
	return h.saved[len(h.saved)-1]
}

func TestController_InitRequestsFirstImage(t *testing.T) {
	cfg := photoConfig()
	cfg.WindowPos = &domain.Point{X: 10, Y: 20}
	h := newHarness(t, cfg)
	h.init()

	if len(h.loader.submits) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(h.loader.submits))
	}
	if s := h.loader.last(); s.generation != 1 {
		t.Errorf("expected generation 1, got %d", s.generation)
	}
	if !reflect.DeepEqual(h.window.positions, []domain.Point{{X: 10, Y: 20}}) {
		t.Errorf("expected persisted position to be applied, got %+v", h.window.positions)
	}
	if on, ok := h.window.lastDecoration(); !ok || on {
		t.Error("expected decorations off while browsing")
	}
	if !reflect.DeepEqual(h.window.onTop, []bool{false}) {
		t.Errorf("expected always-on-top applied once, got %v", h.window.onTop)
	}
	if h.c.State() != domain.StateBrowsing {
		t.Errorf("expected Browsing, got %v", h.c.State())
	}
	if len(h.notifier.watched) == 0 || !reflect.DeepEqual(h.notifier.watched[0], []string{"/photos"}) {
		t.Errorf("expected folders to be watched, got %v", h.notifier.watched)
	}
}

func TestController_StaleDecodeDiscarded(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()

	first := h.loader.last()
	h.input(domain.InputEvent{Kind: domain.InputPrimaryClick, OverImage: true})
	second := h.loader.last()
	if second.generation != first.generation+1 {
		t.Fatalf("expected generation bump, got %d -> %d", first.generation, second.generation)
	}

	h.loader.deliver(first, 400, 300)
	h.tick(TickInterval)
	if h.c.current != nil {
		t.Fatal("stale decode must not be displayed")
	}

	h.loader.deliver(second, 400, 300)
	h.tick(TickInterval)
	if h.c.current == nil || h.c.currentPath != second.path {
		t.Fatalf("expected %s to be displayed, got %q", second.path, h.c.currentPath)
	}
	if h.window.lastFrame().Image == nil {
		t.Error("expected presented frame to carry the image")
	}
}

func TestController_PrimaryClickAdvances(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()
	h.show(400, 300)

	h.input(domain.InputEvent{Kind: domain.InputPrimaryClick, OverImage: true})
	if len(h.loader.submits) != 2 {
		t.Errorf("expected click to request the next image, got %d submissions", len(h.loader.submits))
	}
}

func TestController_RefreshTimer(t *testing.T) {
	tests := []struct {
		name          string
		interval      uint64
		elapsed       time.Duration
		expectAdvance bool
	}{
		{"Before Interval", 300, 299 * time.Second, false},
		{"At Interval", 300, 300 * time.Second, true},
		{"Disabled", 0, time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := photoConfig()
			cfg.RefreshInterval = tt.interval
			h := newHarness(t, cfg)
			h.init()

			h.tick(tt.elapsed)
			advanced := len(h.loader.submits) == 2
			if advanced != tt.expectAdvance {
				t.Errorf("expected advance=%v, got %d submissions", tt.expectAdvance, len(h.loader.submits))
			}
		})
	}
}

func TestController_SettingsRoundTrip(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()
	h.show(400, 300)

	h.input(domain.InputEvent{Kind: domain.InputSecondaryClick, OverImage: true})
	if h.c.State() != domain.StateSettingsOpen {
		t.Fatalf("expected SettingsOpen, got %v", h.c.State())
	}
	if on, _ := h.window.lastDecoration(); !on {
		t.Error("expected decorations on while settings are open")
	}
	if h.window.focused != 1 {
		t.Errorf("expected window focus, got %d", h.window.focused)
	}
	if h.window.size != geometry.SettingsSize {
		t.Errorf("expected settings size, got %+v", h.window.size)
	}
	snapshot := h.awaitFormRequest(t)

	// Closing without saving keeps the panel open
	h.form.responses <- settingsOutcome{result: domain.SettingsResult{Config: snapshot}}
	h.tickUntil(t, func() bool { return !h.c.formOpen })
	if h.c.State() != domain.StateSettingsOpen {
		t.Fatalf("expected SettingsOpen after discard, got %v", h.c.State())
	}

	// A failing form behaves the same
	h.tray.commands <- domain.TrayShowSettings
	h.tick(TickInterval)
	h.awaitFormRequest(t)
	h.form.responses <- settingsOutcome{err: errors.New("terminal lost")}
	h.tickUntil(t, func() bool { return !h.c.formOpen })
	if h.c.State() != domain.StateSettingsOpen {
		t.Fatalf("expected SettingsOpen after form error, got %v", h.c.State())
	}

	h.tray.commands <- domain.TrayShowSettings
	h.tick(TickInterval)
	edited := h.awaitFormRequest(t)
	edited.RefreshValue = 10
	edited.RefreshUnit = domain.UnitSeconds
	edited.FitMode = domain.FitContain
	edited.AlwaysOnTop = true
	h.window.pos = domain.Point{X: 640, Y: 360}
	h.form.responses <- settingsOutcome{result: domain.SettingsResult{Config: edited, Saved: true}}
	h.tickUntil(t, func() bool { return h.c.State() == domain.StateBrowsing })

	saved := h.lastSaved(t)
	if saved.RefreshInterval != 10 {
		t.Errorf("expected refresh interval 10s, got %d", saved.RefreshInterval)
	}
	if saved.WindowPos == nil || *saved.WindowPos != (domain.Point{X: 640, Y: 360}) {
		t.Errorf("expected window position to be saved, got %+v", saved.WindowPos)
	}
	if saved.FitMode != domain.FitContain {
		t.Errorf("expected Contain, got %v", saved.FitMode)
	}
	if on, _ := h.window.lastDecoration(); on {
		t.Error("expected decorations off after save")
	}
	if !h.window.onTop[len(h.window.onTop)-1] {
		t.Error("expected always-on-top to follow the saved config")
	}
}

func TestController_ClicksIgnoredWhileSettingsOpen(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()
	h.show(400, 300)

	h.input(domain.InputEvent{Kind: domain.InputSecondaryClick, OverImage: true})
	h.awaitFormRequest(t)
	before := len(h.loader.submits)

	h.input(domain.InputEvent{Kind: domain.InputPrimaryClick, OverImage: true})
	h.tick(time.Hour)
	if len(h.loader.submits) != before {
		t.Errorf("expected no image changes in settings, got %d new", len(h.loader.submits)-before)
	}
}

func TestController_ResizeKeepsAnchor(t *testing.T) {
	tests := []struct {
		name     string
		anchor   domain.ResizeAnchor
		expected domain.Point
	}{
		{"Center", domain.AnchorCenter, domain.Point{X: 150, Y: 50}},
		{"Top Left", domain.AnchorTopLeft, domain.Point{X: 100, Y: 100}},
		{"Top Right", domain.AnchorTopRight, domain.Point{X: 200, Y: 100}},
		{"Bottom Left", domain.AnchorBottomLeft, domain.Point{X: 100, Y: 0}},
		{"Bottom Right", domain.AnchorBottomRight, domain.Point{X: 200, Y: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := photoConfig()
			cfg.ResizeAnchor = tt.anchor
			cfg.WindowPos = &domain.Point{X: 100, Y: 100}
			h := newHarness(t, cfg)
			h.init()

			// Empty window starts at the landscape preset
			h.tick(TickInterval)
			if h.window.size != (domain.Size{W: 400, H: 300}) {
				t.Fatalf("expected landscape preset, got %+v", h.window.size)
			}

			h.show(300, 400)
			if h.window.size != (domain.Size{W: 300, H: 400}) {
				t.Fatalf("expected portrait preset, got %+v", h.window.size)
			}
			if h.window.pos != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, h.window.pos)
			}
		})
	}
}

func TestController_ContainSizing(t *testing.T) {
	cfg := photoConfig()
	cfg.FitMode = domain.FitContain
	h := newHarness(t, cfg)
	h.init()
	h.show(800, 400)

	if h.window.size != (domain.Size{W: 400, H: 200}) {
		t.Errorf("expected 400x200, got %+v", h.window.size)
	}
	if f := h.window.lastFrame(); f.UV != (domain.Rect{Max: domain.Point{X: 1, Y: 1}}) {
		t.Errorf("expected full UV in contain mode, got %+v", f.UV)
	}
}

func TestController_ClampIntoMonitor(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.window.pos = domain.Point{X: -10, Y: 50}
	h.init()

	h.tick(TickInterval)
	if len(h.window.positions) != 0 {
		t.Fatalf("clamp must wait for the interval, got %+v", h.window.positions)
	}

	h.tick(time.Second)
	if h.window.pos != (domain.Point{X: 0, Y: 50}) {
		t.Errorf("expected clamp to (0,50), got %+v", h.window.pos)
	}
}

func TestController_DragBarGrace(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()
	h.show(400, 300)

	h.input(domain.InputEvent{Kind: domain.InputHover, OverImage: true})
	if f := h.window.lastFrame(); !f.ShowDragBar || !f.ShowHint {
		t.Fatalf("expected drag bar and hint on hover, got %+v", f)
	}

	h.input(domain.InputEvent{Kind: domain.InputHover})
	if !h.c.showDragBar {
		t.Error("drag bar should linger right after the pointer leaves")
	}

	h.tick(DragBarGrace)
	if h.c.showDragBar {
		t.Error("drag bar should hide after the grace period")
	}
	if h.window.lastFrame().ShowDragBar {
		t.Error("expected a frame without the drag bar")
	}
}

func TestController_DragReleasePersists(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()

	h.window.pos = domain.Point{X: 300, Y: 200}
	h.input(domain.InputEvent{Kind: domain.InputDragReleased})

	saved := h.lastSaved(t)
	if saved.WindowPos == nil || *saved.WindowPos != (domain.Point{X: 300, Y: 200}) {
		t.Errorf("expected dragged position to be saved, got %+v", saved.WindowPos)
	}
}

func TestController_SaveFailureTolerated(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.saveErr = errors.New("read-only file system")
	h.init()

	h.window.pos = domain.Point{X: 42, Y: 24}
	h.input(domain.InputEvent{Kind: domain.InputDragReleased})

	if pos := h.c.Config().WindowPos; pos == nil || *pos != (domain.Point{X: 42, Y: 24}) {
		t.Errorf("expected live config to keep the position, got %+v", pos)
	}
	if h.c.State() != domain.StateBrowsing {
		t.Errorf("expected Browsing, got %v", h.c.State())
	}
}

func TestController_FolderEditsDuringSettings(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()

	h.input(domain.InputEvent{Kind: domain.InputSecondaryClick})
	snapshot := h.awaitFormRequest(t)

	h.input(domain.InputEvent{Kind: domain.InputAddFolder})
	h.picker.results <- "/more"
	h.tickUntil(t, func() bool { return h.c.Config().HasFolder("/more") })

	h.input(domain.InputEvent{Kind: domain.InputRemoveFolder, FolderIndex: 0})
	if got := h.c.Config().Folders; !reflect.DeepEqual(got, []string{"/more"}) {
		t.Fatalf("expected [/more], got %v", got)
	}

	// The form still holds the folder list from when it opened
	h.form.responses <- settingsOutcome{result: domain.SettingsResult{Config: snapshot, Saved: true}}
	h.tickUntil(t, func() bool { return h.c.State() == domain.StateBrowsing })

	if got := h.lastSaved(t).Folders; !reflect.DeepEqual(got, []string{"/more"}) {
		t.Errorf("expected session folder edits to survive the save, got %v", got)
	}
}

func TestController_PickCancelledOrDuplicate(t *testing.T) {
	tests := []struct {
		name   string
		result string
	}{
		{"Cancelled", ""},
		{"Duplicate", "/photos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, photoConfig())
			h.init()
			h.input(domain.InputEvent{Kind: domain.InputSecondaryClick})
			h.awaitFormRequest(t)

			h.input(domain.InputEvent{Kind: domain.InputAddFolder})
			h.picker.results <- tt.result
			h.tickUntil(t, func() bool { return !h.c.pickOpen })

			if got := h.c.Config().Folders; !reflect.DeepEqual(got, []string{"/photos"}) {
				t.Errorf("expected folders unchanged, got %v", got)
			}
		})
	}
}

func TestController_EmptyPlaylist(t *testing.T) {
	h := newHarness(t, domain.DefaultAppConfig())
	h.init()
	h.tick(TickInterval)

	if len(h.loader.submits) != 0 {
		t.Errorf("expected no decode requests, got %d", len(h.loader.submits))
	}
	f := h.window.lastFrame()
	if f.Image != nil || f.ShowDragBar {
		t.Errorf("expected empty-state frame, got %+v", f)
	}
	if h.window.size != (domain.Size{W: 400, H: 300}) {
		t.Errorf("expected landscape preset, got %+v", h.window.size)
	}

	h.input(domain.InputEvent{Kind: domain.InputOpenSettings})
	if h.c.State() != domain.StateSettingsOpen {
		t.Errorf("expected empty-state action to open settings, got %v", h.c.State())
	}
}

func TestController_FoldersEmptiedOnDisk(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()
	h.show(400, 300)

	h.scanner.byFolder["/photos"] = nil
	h.notifier.folders <- struct{}{}
	h.tick(TickInterval)

	if h.c.current != nil {
		t.Error("expected current image to be dropped")
	}
	if h.window.lastFrame().Image != nil {
		t.Error("expected empty-state frame")
	}
}

func TestController_FoldersEmptiedBeforeFirstDecode(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()
	pending := h.loader.last()

	h.scanner.byFolder["/photos"] = nil
	h.notifier.folders <- struct{}{}
	h.tick(TickInterval)

	h.loader.deliver(pending, 400, 300)
	h.tick(TickInterval)

	if h.c.current != nil {
		t.Errorf("in-flight decode of %s displayed after its folder emptied", pending.path)
	}
	if h.window.lastFrame().Image != nil {
		t.Error("expected empty-state frame")
	}
}

func TestController_FolderChangeKeepsCurrent(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()
	h.show(400, 300)
	before := len(h.loader.submits)

	h.scanner.byFolder["/photos"] = append(append([]string{}, photos...), "/photos/new.jpg")
	h.notifier.folders <- struct{}{}
	h.tick(TickInterval)

	if len(h.loader.submits) != before {
		t.Error("current image still exists, it should stay on screen")
	}
	if h.c.playlist.Len() != 4 {
		t.Errorf("expected rescanned playlist of 4, got %d", h.c.playlist.Len())
	}
}

func TestController_ConfigFileReload(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()

	external := photoConfig()
	external.AlwaysOnTop = true
	external.OrientationFilter = domain.FilterLandscape
	h.store.EXPECT().Load().Return(external).Times(1)

	h.notifier.config <- struct{}{}
	h.tick(TickInterval)

	if !h.c.Config().AlwaysOnTop {
		t.Error("expected reloaded config to be live")
	}
	if last := h.window.onTop[len(h.window.onTop)-1]; !last {
		t.Error("expected always-on-top to be applied")
	}
	if got := h.scanner.filters[len(h.scanner.filters)-1]; got != domain.FilterLandscape {
		t.Errorf("expected rescan with the new filter, got %v", got)
	}
}

func TestController_TrayCommands(t *testing.T) {
	h := newHarness(t, photoConfig())
	h.init()

	h.tray.commands <- domain.TrayFocusWindow
	h.tick(TickInterval)
	if h.window.focused != 1 {
		t.Errorf("expected focus, got %d", h.window.focused)
	}

	h.tray.commands <- domain.TrayQuit
	h.tick(TickInterval)
	if h.quits != 1 {
		t.Errorf("expected quit to be called once, got %d", h.quits)
	}
}

func TestController_StartStop(t *testing.T) {
	h := newHarness(t, photoConfig())
	if err := h.c.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(3 * TickInterval)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.c.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if len(h.window.frames) == 0 {
		t.Error("expected the loop to present at least one frame")
	}
}

func TestSameConfig(t *testing.T) {
	base := photoConfig()
	base.WindowPos = &domain.Point{X: 1, Y: 2}

	tests := []struct {
		name     string
		mutate   func(c *domain.AppConfig)
		expected bool
	}{
		{"Identical", func(c *domain.AppConfig) {}, true},
		{"Different Unit Same Interval", func(c *domain.AppConfig) { c.RefreshValue, c.RefreshUnit = 300, domain.UnitSeconds }, true},
		{"Missing Position", func(c *domain.AppConfig) { c.WindowPos = nil }, true},
		{"Moved", func(c *domain.AppConfig) { c.WindowPos = &domain.Point{X: 5, Y: 5} }, false},
		{"Folders", func(c *domain.AppConfig) { c.Folders = append(c.Folders, "/x") }, false},
		{"Fit Mode", func(c *domain.AppConfig) { c.FitMode = domain.FitContain }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base.Clone()
			tt.mutate(&other)
			if got := sameConfig(base, other); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestMergeFolders(t *testing.T) {
	tests := []struct {
		name     string
		folders  []string
		added    []string
		removed  []string
		expected []string
	}{
		{"Nothing", []string{"/a"}, nil, nil, []string{"/a"}},
		{"Added", []string{"/a"}, []string{"/b"}, nil, []string{"/a", "/b"}},
		{"Removed", []string{"/a", "/b"}, nil, []string{"/a"}, []string{"/b"}},
		{"Added Twice", []string{"/a", "/b"}, []string{"/b"}, nil, []string{"/a", "/b"}},
		{"All Removed", []string{"/a"}, nil, []string{"/a"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergeFolders(tt.folders, tt.added, tt.removed); !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
