// Package settingsform edits the widget configuration in an interactive
// terminal form.
package settingsform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/huh"
	"github.com/genricoloni/photowidget/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// ErrNoTerminal is returned when stdin/stdout are not TTYs
var ErrNoTerminal = errors.New("settings form requires an interactive terminal (stdin/stdout must be TTYs)")

// ErrBusy is returned when a form is already open
var ErrBusy = errors.New("settings form already open")

var (
	unitNames   = []string{domain.UnitSeconds.String(), domain.UnitMinutes.String(), domain.UnitHours.String()}
	fitNames    = []string{domain.FitCover.String(), domain.FitContain.String()}
	filterNames = []string{domain.FilterBoth.String(), domain.FilterLandscape.String(), domain.FilterPortrait.String()}
	anchorNames = []string{
		domain.AnchorCenter.String(),
		domain.AnchorTopLeft.String(),
		domain.AnchorTopRight.String(),
		domain.AnchorBottomLeft.String(),
		domain.AnchorBottomRight.String(),
	}
)

// fields holds the string-typed form state
type fields struct {
	Folders         string
	AlwaysOnTop     bool
	RefreshValue    string
	RefreshUnit     string
	FitMode         string
	ResizeAnchor    string
	Filter          string
	LandscapeWidth  string
	LandscapeHeight string
	PortraitWidth   string
	PortraitHeight  string
	Save            bool
}

func newFields(cfg domain.AppConfig) fields {
	return fields{
		Folders:         strings.Join(cfg.Folders, "\n"),
		AlwaysOnTop:     cfg.AlwaysOnTop,
		RefreshValue:    strconv.FormatUint(cfg.RefreshValue, 10),
		RefreshUnit:     cfg.RefreshUnit.String(),
		FitMode:         cfg.FitMode.String(),
		ResizeAnchor:    cfg.ResizeAnchor.String(),
		Filter:          cfg.OrientationFilter.String(),
		LandscapeWidth:  formatSize(cfg.LandscapeWidth),
		LandscapeHeight: formatSize(cfg.LandscapeHeight),
		PortraitWidth:   formatSize(cfg.PortraitWidth),
		PortraitHeight:  formatSize(cfg.PortraitHeight),
		Save:            true,
	}
}

// apply writes the form state onto a copy of cfg. RefreshInterval is left
// for the controller to recompute from value and unit.
func (f fields) apply(cfg domain.AppConfig) (domain.AppConfig, error) {
	out := cfg.Clone()

	out.Folders = splitFolders(f.Folders)
	out.AlwaysOnTop = f.AlwaysOnTop

	value, err := strconv.ParseUint(strings.TrimSpace(f.RefreshValue), 10, 64)
	if err != nil {
		return cfg, fmt.Errorf("invalid refresh value %q: %w", f.RefreshValue, err)
	}
	out.RefreshValue = value

	if err := out.RefreshUnit.UnmarshalText([]byte(f.RefreshUnit)); err != nil {
		return cfg, err
	}
	if err := out.FitMode.UnmarshalText([]byte(f.FitMode)); err != nil {
		return cfg, err
	}
	if err := out.ResizeAnchor.UnmarshalText([]byte(f.ResizeAnchor)); err != nil {
		return cfg, err
	}
	if err := out.OrientationFilter.UnmarshalText([]byte(f.Filter)); err != nil {
		return cfg, err
	}

	sizes := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"landscape width", f.LandscapeWidth, &out.LandscapeWidth},
		{"landscape height", f.LandscapeHeight, &out.LandscapeHeight},
		{"portrait width", f.PortraitWidth, &out.PortraitWidth},
		{"portrait height", f.PortraitHeight, &out.PortraitHeight},
	}
	for _, s := range sizes {
		v, err := parseSize(s.raw)
		if err != nil {
			return cfg, fmt.Errorf("invalid %s: %w", s.name, err)
		}
		*s.dst = v
	}
	return out, nil
}

func splitFolders(text string) []string {
	folders := []string{}
	seen := make(map[string]bool)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		folders = append(folders, line)
	}
	return folders
}

func parseSize(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if v <= 0 {
		return 0, fmt.Errorf("must be positive, got %v", v)
	}
	return v, nil
}

func formatSize(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func validateUint(s string) error {
	_, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return errors.New("enter a whole number (0 disables)")
	}
	return nil
}

func validateSize(s string) error {
	if _, err := parseSize(s); err != nil {
		return errors.New("enter a positive number")
	}
	return nil
}

// TerminalForm implements domain.SettingsForm with huh
type TerminalForm struct {
	logger *zap.Logger
	input  *os.File
	output *os.File
	mu     sync.Mutex
}

// NewTerminalForm creates a form bound to the process stdin/stdout
func NewTerminalForm(logger *zap.Logger) *TerminalForm {
	return &TerminalForm{logger: logger, input: os.Stdin, output: os.Stdout}
}

// Available reports whether the form can open
func (t *TerminalForm) Available() bool {
	return term.IsTerminal(int(t.input.Fd())) && term.IsTerminal(int(t.output.Fd()))
}

// Edit runs the form on a copy of cfg until the user saves or aborts
func (t *TerminalForm) Edit(ctx context.Context, cfg domain.AppConfig) (domain.SettingsResult, error) {
	if !t.Available() {
		return domain.SettingsResult{}, ErrNoTerminal
	}
	if !t.mu.TryLock() {
		return domain.SettingsResult{}, ErrBusy
	}
	defer t.mu.Unlock()

	f := newFields(cfg)
	form := buildForm(&f, t.input, t.output)

	t.logger.Debug("Settings form opened")
	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			t.logger.Info("Settings form aborted")
			return domain.SettingsResult{Config: cfg}, nil
		}
		return domain.SettingsResult{}, fmt.Errorf("settings form failed: %w", err)
	}

	if !f.Save {
		t.logger.Info("Settings discarded")
		return domain.SettingsResult{Config: cfg}, nil
	}

	edited, err := f.apply(cfg)
	if err != nil {
		return domain.SettingsResult{}, fmt.Errorf("invalid settings: %w", err)
	}
	return domain.SettingsResult{Config: edited, Saved: true}, nil
}

func buildForm(f *fields, in io.Reader, out io.Writer) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Key("folders").
				Title("Folders").
				Description("One image folder per line").
				Lines(5).
				Value(&f.Folders),

			huh.NewInput().
				Key("refresh_value").
				Title("Refresh Every").
				Description("0 disables automatic changes").
				Validate(validateUint).
				Value(&f.RefreshValue),

			huh.NewSelect[string]().
				Key("refresh_unit").
				Title("Refresh Unit").
				Options(huh.NewOptions(unitNames...)...).
				Value(&f.RefreshUnit),

			huh.NewSelect[string]().
				Key("orientation_filter").
				Title("Orientation").
				Description("Which images join the slideshow").
				Options(huh.NewOptions(filterNames...)...).
				Value(&f.Filter),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("fit_mode").
				Title("Fit Mode").
				Description("Cover crops to the preset, Contain follows the image").
				Options(huh.NewOptions(fitNames...)...).
				Value(&f.FitMode),

			huh.NewSelect[string]().
				Key("resize_anchor").
				Title("Resize Anchor").
				Description("Window point kept fixed when the size changes").
				Options(huh.NewOptions(anchorNames...)...).
				Value(&f.ResizeAnchor),

			huh.NewConfirm().
				Key("always_on_top").
				Title("Always On Top").
				Value(&f.AlwaysOnTop),
		),
		huh.NewGroup(
			huh.NewInput().
				Key("landscape_width").
				Title("Landscape Width").
				Validate(validateSize).
				Value(&f.LandscapeWidth),
			huh.NewInput().
				Key("landscape_height").
				Title("Landscape Height").
				Validate(validateSize).
				Value(&f.LandscapeHeight),
			huh.NewInput().
				Key("portrait_width").
				Title("Portrait Width").
				Validate(validateSize).
				Value(&f.PortraitWidth),
			huh.NewInput().
				Key("portrait_height").
				Title("Portrait Height").
				Validate(validateSize).
				Value(&f.PortraitHeight),
		),
		huh.NewGroup(
			huh.NewConfirm().
				Key("save").
				Title("Save & Close?").
				Affirmative("Save").
				Negative("Discard").
				Value(&f.Save),
		),
	).WithInput(in).WithOutput(out).WithShowHelp(true).WithShowErrors(true)
}
