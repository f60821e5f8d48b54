package controller

import (
	"context"
	"image"

	"github.com/genricoloni/photowidget/internal/domain"
)

type fakeWindow struct {
	pos         domain.Point
	posKnown    bool
	bounds      domain.Rect
	size        domain.Size
	decorations []bool
	onTop       []bool
	focused     int
	positions   []domain.Point
	frames      []domain.Frame
	inputs      chan domain.InputEvent
}

func newFakeWindow() *fakeWindow {
	return &fakeWindow{
		pos:      domain.Point{X: 100, Y: 100},
		posKnown: true,
		bounds:   domain.Rect{Max: domain.Point{X: 1920, Y: 1080}},
		inputs:   make(chan domain.InputEvent, 16),
	}
}

func (w *fakeWindow) Position() (domain.Point, bool)      { return w.pos, w.posKnown }
func (w *fakeWindow) MonitorBounds() (domain.Rect, bool) { return w.bounds, true }
func (w *fakeWindow) SetSize(s domain.Size)              { w.size = s }
func (w *fakeWindow) SetAlwaysOnTop(on bool)             { w.onTop = append(w.onTop, on) }
func (w *fakeWindow) SetDecorations(on bool)             { w.decorations = append(w.decorations, on) }
func (w *fakeWindow) Focus()                             { w.focused++ }
func (w *fakeWindow) Present(f domain.Frame)             { w.frames = append(w.frames, f) }
func (w *fakeWindow) Inputs() <-chan domain.InputEvent   { return w.inputs }
func (w *fakeWindow) Close() error                       { return nil }

func (w *fakeWindow) SetPosition(p domain.Point) {
	w.pos = p
	w.positions = append(w.positions, p)
}

func (w *fakeWindow) lastFrame() domain.Frame {
	if len(w.frames) == 0 {
		return domain.Frame{}
	}
	return w.frames[len(w.frames)-1]
}

func (w *fakeWindow) lastDecoration() (bool, bool) {
	if len(w.decorations) == 0 {
		return false, false
	}
	return w.decorations[len(w.decorations)-1], true
}

type submission struct {
	path       string
	generation uint64
}

type fakeLoader struct {
	submits []submission
	results chan domain.DecodeResult
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{results: make(chan domain.DecodeResult, 8)}
}

func (l *fakeLoader) Submit(path string, generation uint64) {
	l.submits = append(l.submits, submission{path: path, generation: generation})
}

func (l *fakeLoader) Results() <-chan domain.DecodeResult { return l.results }

func (l *fakeLoader) last() submission {
	if len(l.submits) == 0 {
		return submission{}
	}
	return l.submits[len(l.submits)-1]
}

// deliver completes the latest submission with a w x h raster
func (l *fakeLoader) deliver(s submission, w, h int) {
	l.results <- domain.DecodeResult{
		Path:       s.path,
		Generation: s.generation,
		Image:      image.NewRGBA(image.Rect(0, 0, w, h)),
	}
}

type fakeScanner struct {
	byFolder map[string][]string
	calls    int
	filters  []domain.OrientationFilter
}

func (s *fakeScanner) Scan(folders []string, filter domain.OrientationFilter) []string {
	s.calls++
	s.filters = append(s.filters, filter)
	var out []string
	for _, f := range folders {
		out = append(out, s.byFolder[f]...)
	}
	return out
}

type fakeForm struct {
	requests  chan domain.AppConfig
	responses chan settingsOutcome
}

func newFakeForm() *fakeForm {
	return &fakeForm{
		requests:  make(chan domain.AppConfig, 4),
		responses: make(chan settingsOutcome, 4),
	}
}

func (f *fakeForm) Edit(ctx context.Context, cfg domain.AppConfig) (domain.SettingsResult, error) {
	f.requests <- cfg
	select {
	case out := <-f.responses:
		return out.result, out.err
	case <-ctx.Done():
		return domain.SettingsResult{}, ctx.Err()
	}
}

type fakePicker struct {
	results chan string
}

func (p *fakePicker) PickFolder(ctx context.Context) (string, bool) {
	select {
	case path := <-p.results:
		return path, path != ""
	case <-ctx.Done():
		return "", false
	}
}

type fakeTray struct {
	commands chan domain.TrayCommand
}

func (t *fakeTray) Commands() <-chan domain.TrayCommand { return t.commands }

type fakeNotifier struct {
	folders chan struct{}
	config  chan struct{}
	watched [][]string
}

func (n *fakeNotifier) FolderChanges() <-chan struct{} { return n.folders }
func (n *fakeNotifier) ConfigChanges() <-chan struct{} { return n.config }
func (n *fakeNotifier) WatchFolders(folders []string) {
	n.watched = append(n.watched, append([]string(nil), folders...))
}
