package domain

import (
	"fmt"
	"image"
	"time"
)

// Size is a width/height pair in logical pixels
type Size struct {
	W float64
	H float64
}

// Sub returns the component-wise difference s - o
func (s Size) Sub(o Size) Size {
	return Size{W: s.W - o.W, H: s.H - o.H}
}

// IsLandscape reports whether the size classifies as landscape (width >= height)
func (s Size) IsLandscape() bool {
	return s.W >= s.H
}

// Point is a screen position in logical pixels
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle, used for UV windows in [0,1] space
type Rect struct {
	Min Point
	Max Point
}

// Size returns the rectangle extent
func (r Rect) Size() Size {
	return Size{W: r.Max.X - r.Min.X, H: r.Max.Y - r.Min.Y}
}

// FullUV is the identity UV window covering the whole image
var FullUV = Rect{Min: Point{0, 0}, Max: Point{1, 1}}

// FitMode relates image aspect ratio to window size
type FitMode int

const (
	// FitCover keeps the window at the orientation preset and crops overflow
	FitCover FitMode = iota
	// FitContain resizes the window to the image aspect ratio without cropping
	FitContain
)

// ResizeAnchor is the window point kept fixed across a resize
type ResizeAnchor int

const (
	AnchorCenter ResizeAnchor = iota
	AnchorTopLeft
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomRight
)

// OrientationFilter restricts playlist membership by image orientation
type OrientationFilter int

const (
	FilterBoth OrientationFilter = iota
	FilterLandscape
	FilterPortrait
)

// TimeUnit is the display unit of the refresh interval
type TimeUnit int

const (
	UnitSeconds TimeUnit = iota
	UnitMinutes
	UnitHours
)

// Seconds returns the number of seconds in one unit
func (u TimeUnit) Seconds() uint64 {
	switch u {
	case UnitHours:
		return 3600
	case UnitMinutes:
		return 60
	default:
		return 1
	}
}

// TrayCommand is a fire-and-forget command from the tray menu
type TrayCommand int

const (
	TrayShowSettings TrayCommand = iota
	TrayFocusWindow
	TrayQuit
)

// ControllerState is the display controller state machine position
type ControllerState int

const (
	StateBrowsing ControllerState = iota
	StateSettingsOpen
)

var (
	fitModeNames     = []string{"Cover", "Contain"}
	anchorNames      = []string{"Center", "TopLeft", "TopRight", "BottomLeft", "BottomRight"}
	filterNames      = []string{"Both", "Landscape", "Portrait"}
	timeUnitNames    = []string{"Seconds", "Minutes", "Hours"}
	trayCommandNames = []string{"ShowSettings", "FocusWindow", "Quit"}
	stateNames       = []string{"Browsing", "SettingsOpen"}
)

func enumString(names []string, v int) string {
	if v < 0 || v >= len(names) {
		return fmt.Sprintf("Unknown(%d)", v)
	}
	return names[v]
}

func enumParse(kind string, names []string, text []byte) (int, error) {
	for i, name := range names {
		if name == string(text) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("invalid %s %q", kind, string(text))
}

func (m FitMode) String() string { return enumString(fitModeNames, int(m)) }

func (m FitMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *FitMode) UnmarshalText(text []byte) error {
	v, err := enumParse("fit mode", fitModeNames, text)
	if err != nil {
		return err
	}
	*m = FitMode(v)
	return nil
}

func (a ResizeAnchor) String() string { return enumString(anchorNames, int(a)) }

func (a ResizeAnchor) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *ResizeAnchor) UnmarshalText(text []byte) error {
	v, err := enumParse("resize anchor", anchorNames, text)
	if err != nil {
		return err
	}
	*a = ResizeAnchor(v)
	return nil
}

func (f OrientationFilter) String() string { return enumString(filterNames, int(f)) }

func (f OrientationFilter) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *OrientationFilter) UnmarshalText(text []byte) error {
	v, err := enumParse("orientation filter", filterNames, text)
	if err != nil {
		return err
	}
	*f = OrientationFilter(v)
	return nil
}

// Accepts reports whether an image of the given size passes the filter
func (f OrientationFilter) Accepts(s Size) bool {
	switch f {
	case FilterLandscape:
		return s.W >= s.H
	case FilterPortrait:
		return s.H > s.W
	default:
		return true
	}
}

func (u TimeUnit) String() string { return enumString(timeUnitNames, int(u)) }

func (u TimeUnit) MarshalText() ([]byte, error) { return []byte(u.String()), nil }

func (u *TimeUnit) UnmarshalText(text []byte) error {
	v, err := enumParse("time unit", timeUnitNames, text)
	if err != nil {
		return err
	}
	*u = TimeUnit(v)
	return nil
}

func (c TrayCommand) String() string { return enumString(trayCommandNames, int(c)) }

func (s ControllerState) String() string { return enumString(stateNames, int(s)) }

// Presets holds the orientation-specific window size presets
type Presets struct {
	Landscape Size
	Portrait  Size
}

// For returns the preset matching the orientation of an image of size img
func (p Presets) For(img Size) Size {
	if img.IsLandscape() {
		return p.Landscape
	}
	return p.Portrait
}

// AppConfig is the process-wide widget configuration
type AppConfig struct {
	Folders           []string
	AlwaysOnTop       bool
	RefreshInterval   uint64 // seconds, 0 disables
	RefreshValue      uint64
	RefreshUnit       TimeUnit
	LandscapeWidth    float64
	LandscapeHeight   float64
	PortraitWidth     float64
	PortraitHeight    float64
	FitMode           FitMode
	ResizeAnchor      ResizeAnchor
	OrientationFilter OrientationFilter
	WindowPos         *Point
}

// DefaultAppConfig returns the documented defaults.
// Must be a function so callers never share the Folders backing array.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Folders:           []string{},
		RefreshInterval:   300,
		RefreshValue:      5,
		RefreshUnit:       UnitMinutes,
		LandscapeWidth:    400,
		LandscapeHeight:   300,
		PortraitWidth:     300,
		PortraitHeight:    400,
		FitMode:           FitCover,
		ResizeAnchor:      AnchorCenter,
		OrientationFilter: FilterBoth,
	}
}

// Clone returns a deep copy safe to hand to another goroutine
func (c AppConfig) Clone() AppConfig {
	out := c
	out.Folders = make([]string, len(c.Folders))
	copy(out.Folders, c.Folders)
	if c.WindowPos != nil {
		p := *c.WindowPos
		out.WindowPos = &p
	}
	return out
}

// Presets returns the landscape/portrait presets of the config
func (c AppConfig) Presets() Presets {
	return Presets{
		Landscape: Size{W: c.LandscapeWidth, H: c.LandscapeHeight},
		Portrait:  Size{W: c.PortraitWidth, H: c.PortraitHeight},
	}
}

// Refresh returns the refresh interval as a duration (0 = disabled)
func (c AppConfig) Refresh() time.Duration {
	return time.Duration(c.RefreshInterval) * time.Second
}

// HasFolder reports whether path is already part of the folder set
func (c AppConfig) HasFolder(path string) bool {
	for _, f := range c.Folders {
		if f == path {
			return true
		}
	}
	return false
}

// DeriveRefreshUnit picks the largest unit that divides the interval evenly
// and updates RefreshValue/RefreshUnit accordingly. A zero interval is left untouched.
func (c *AppConfig) DeriveRefreshUnit() {
	interval := c.RefreshInterval
	if interval == 0 {
		return
	}
	switch {
	case interval%3600 == 0:
		c.RefreshUnit, c.RefreshValue = UnitHours, interval/3600
	case interval%60 == 0:
		c.RefreshUnit, c.RefreshValue = UnitMinutes, interval/60
	default:
		c.RefreshUnit, c.RefreshValue = UnitSeconds, interval
	}
}

// ApplyRefreshValue recomputes RefreshInterval from the display value and unit
func (c *AppConfig) ApplyRefreshValue() {
	c.RefreshInterval = c.RefreshValue * c.RefreshUnit.Seconds()
}

// DecodeResult is a decoded raster delivered by the async loader
type DecodeResult struct {
	Path       string
	Generation uint64
	Image      image.Image
}

// Dims returns the pixel dimensions of the decoded image
func (r DecodeResult) Dims() Size {
	b := r.Image.Bounds()
	return Size{W: float64(b.Dx()), H: float64(b.Dy())}
}

// SettingsResult is delivered by the settings form when it closes
type SettingsResult struct {
	Config AppConfig
	Saved  bool
}

// InputKind enumerates pointer/UI events reported by the window backend
type InputKind int

const (
	// InputPrimaryClick is a primary click on the displayed image
	InputPrimaryClick InputKind = iota
	// InputSecondaryClick is a secondary click on the displayed image
	InputSecondaryClick
	// InputOpenSettings is the empty-state "open settings" action
	InputOpenSettings
	// InputHover reports the pointer hover state of the image and drag handle
	InputHover
	// InputDragReleased is sent when a window drag ends
	InputDragReleased
	// InputAddFolder asks for the folder picker
	InputAddFolder
	// InputRemoveFolder removes Folders[Index]
	InputRemoveFolder
)

// InputEvent is a UI event from the window backend
type InputEvent struct {
	Kind        InputKind
	OverImage   bool
	OverHandle  bool
	FolderIndex int
}

// Frame is everything the window backend needs to draw one state
type Frame struct {
	State       ControllerState
	Image       image.Image // nil in empty state
	Size        Size
	FitMode     FitMode
	UV          Rect
	ShowDragBar bool
	ShowHint    bool
	Config      AppConfig // settings panel contents while SettingsOpen
}
