package domain

import (
	"context"
	"image"
)

// ImageDecoder decodes a full raster from a file
//
//go:generate mockgen -destination=mocks/decoder_mock.go -package=mocks github.com/genricoloni/photowidget/internal/domain ImageDecoder
type ImageDecoder interface {
	// Decode opens path, sniffs its format and decodes the pixels
	Decode(path string) (image.Image, error)
}

// DimensionProber reads image dimensions without decoding pixels
type DimensionProber interface {
	Probe(path string) (Size, error)
}

// Window is the rendering/windowing collaborator.
// All methods are called from the controller loop only.
type Window interface {
	// Position returns the outer window position, false if unknown
	Position() (Point, bool)

	// MonitorBounds returns the bounds of the monitor hosting the window, false if unknown
	MonitorBounds() (Rect, bool)

	SetPosition(p Point)
	SetSize(s Size)
	SetAlwaysOnTop(on bool)
	SetDecorations(on bool)
	Focus()

	// Present draws the frame on the next redraw
	Present(f Frame)

	// Inputs returns the channel of UI events produced by the backend
	Inputs() <-chan InputEvent

	// Close destroys the window
	Close() error
}

// ConfigStore persists AppConfig
//
//go:generate mockgen -destination=mocks/store_mock.go -package=mocks github.com/genricoloni/photowidget/internal/domain ConfigStore
type ConfigStore interface {
	// Load never fails: missing or invalid data falls back to defaults
	Load() AppConfig

	// Save overwrites the persisted record
	Save(cfg AppConfig) error

	// Path returns the backing file path
	Path() string
}

// FolderPicker asks the user for a folder
type FolderPicker interface {
	// PickFolder blocks until the user picks a folder or cancels.
	// It returns false when nothing was picked.
	PickFolder(ctx context.Context) (string, bool)
}

// SettingsForm edits a copy of the configuration
type SettingsForm interface {
	// Edit blocks until the form closes
	Edit(ctx context.Context, cfg AppConfig) (SettingsResult, error)
}

// TrayMenu emits tray commands
type TrayMenu interface {
	Commands() <-chan TrayCommand
}

// ChangeNotifier signals filesystem changes relevant to the controller
type ChangeNotifier interface {
	// FolderChanges fires after an image folder changed
	FolderChanges() <-chan struct{}

	// ConfigChanges fires after the config file changed on disk
	ConfigChanges() <-chan struct{}

	// WatchFolders replaces the set of watched folders
	WatchFolders(folders []string)
}

// ImageLoader decodes images off the controller loop
type ImageLoader interface {
	// Submit never blocks; a result is delivered on Results at most once
	Submit(path string, generation uint64)

	Results() <-chan DecodeResult
}
