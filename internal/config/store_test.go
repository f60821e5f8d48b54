package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/genricoloni/photowidget/internal/domain"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestStore_Load(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string // empty means: do not create the file
		validate func(t *testing.T, cfg domain.AppConfig)
	}{
		{
			name: "Missing File - Defaults",
			file: "absent.json",
			validate: func(t *testing.T, cfg domain.AppConfig) {
				if !reflect.DeepEqual(cfg, domain.DefaultAppConfig()) {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
		{
			name:    "Corrupt JSON - Defaults",
			file:    "corrupt.json",
			content: `{"folders": ["/a"`,
			validate: func(t *testing.T, cfg domain.AppConfig) {
				if !reflect.DeepEqual(cfg, domain.DefaultAppConfig()) {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
		{
			name:    "Top-Level Array - Defaults",
			file:    "array.json",
			content: `[1, 2, 3]`,
			validate: func(t *testing.T, cfg domain.AppConfig) {
				if !reflect.DeepEqual(cfg, domain.DefaultAppConfig()) {
					t.Errorf("expected defaults, got %+v", cfg)
				}
			},
		},
		{
			name: "Full Record Without Window Position",
			file: "full.json",
			content: `{
  "folders": ["/photos/a", "/photos/b"],
  "always_on_top": true,
  "refresh_interval": 7200,
  "refresh_value": 1,
  "refresh_unit": "Seconds",
  "landscape_width": 640,
  "landscape_height": 480,
  "portrait_width": 480,
  "portrait_height": 640,
  "fit_mode": "Contain",
  "resize_anchor": "BottomRight",
  "orientation_filter": "Portrait"
}`,
			validate: func(t *testing.T, cfg domain.AppConfig) {
				if cfg.WindowPos != nil {
					t.Errorf("expected unset window position, got %+v", *cfg.WindowPos)
				}
				if len(cfg.Folders) != 2 || cfg.Folders[1] != "/photos/b" {
					t.Errorf("unexpected folders %v", cfg.Folders)
				}
				if !cfg.AlwaysOnTop {
					t.Error("expected always_on_top")
				}
				if cfg.FitMode != domain.FitContain || cfg.ResizeAnchor != domain.AnchorBottomRight ||
					cfg.OrientationFilter != domain.FilterPortrait {
					t.Errorf("enum fields not decoded: %+v", cfg)
				}
				if cfg.LandscapeWidth != 640 || cfg.PortraitHeight != 640 {
					t.Errorf("presets not decoded: %+v", cfg)
				}
				// Display unit is re-derived from the interval
				if cfg.RefreshUnit != domain.UnitHours || cfg.RefreshValue != 2 {
					t.Errorf("expected 2 Hours, got %d %s", cfg.RefreshValue, cfg.RefreshUnit)
				}
			},
		},
		{
			name:    "Window Position Present",
			file:    "pos.json",
			content: `{"window_pos": [120.5, 33]}`,
			validate: func(t *testing.T, cfg domain.AppConfig) {
				if cfg.WindowPos == nil || *cfg.WindowPos != (domain.Point{X: 120.5, Y: 33}) {
					t.Errorf("expected {120.5 33}, got %v", cfg.WindowPos)
				}
			},
		},
		{
			name:    "Null Window Position",
			file:    "nullpos.json",
			content: `{"window_pos": null, "fit_mode": "Contain"}`,
			validate: func(t *testing.T, cfg domain.AppConfig) {
				if cfg.WindowPos != nil {
					t.Error("expected unset window position")
				}
				if cfg.FitMode != domain.FitContain {
					t.Error("expected Contain")
				}
			},
		},
		{
			name: "Invalid Fields Fall Back Individually",
			file: "partial.json",
			content: `{
  "folders": "not-a-list",
  "fit_mode": "Stretch",
  "resize_anchor": "TopRight",
  "landscape_width": -5,
  "portrait_height": "tall",
  "refresh_interval": 45,
  "window_pos": [1]
}`,
			validate: func(t *testing.T, cfg domain.AppConfig) {
				def := domain.DefaultAppConfig()
				if len(cfg.Folders) != 0 {
					t.Errorf("folders should fall back, got %v", cfg.Folders)
				}
				if cfg.FitMode != def.FitMode {
					t.Errorf("fit_mode should fall back, got %s", cfg.FitMode)
				}
				if cfg.ResizeAnchor != domain.AnchorTopRight {
					t.Errorf("valid anchor lost, got %s", cfg.ResizeAnchor)
				}
				if cfg.LandscapeWidth != def.LandscapeWidth || cfg.PortraitHeight != def.PortraitHeight {
					t.Errorf("presets should fall back, got %v/%v", cfg.LandscapeWidth, cfg.PortraitHeight)
				}
				if cfg.RefreshInterval != 45 || cfg.RefreshUnit != domain.UnitSeconds || cfg.RefreshValue != 45 {
					t.Errorf("expected 45 Seconds, got %d %d %s", cfg.RefreshInterval, cfg.RefreshValue, cfg.RefreshUnit)
				}
				if cfg.WindowPos != nil {
					t.Errorf("short window_pos should fall back to unset, got %+v", *cfg.WindowPos)
				}
			},
		},
		{
			name:    "Window Position With Extra Elements",
			file:    "long_pos.json",
			content: `{"window_pos": [1, 2, 3], "always_on_top": true}`,
			validate: func(t *testing.T, cfg domain.AppConfig) {
				if cfg.WindowPos != nil {
					t.Errorf("expected unset window position, got %+v", *cfg.WindowPos)
				}
				if !cfg.AlwaysOnTop {
					t.Error("valid fields must survive a bad window_pos")
				}
			},
		},
		{
			name: "YAML Record",
			file: "config.yaml",
			content: `folders:
  - /srv/pics
always_on_top: true
refresh_interval: 0
refresh_value: 3
refresh_unit: Minutes
fit_mode: Contain
resize_anchor: TopLeft
orientation_filter: Landscape
window_pos: [10, 20]
`,
			validate: func(t *testing.T, cfg domain.AppConfig) {
				if len(cfg.Folders) != 1 || cfg.Folders[0] != "/srv/pics" {
					t.Errorf("unexpected folders %v", cfg.Folders)
				}
				if cfg.RefreshInterval != 0 || cfg.RefreshValue != 3 || cfg.RefreshUnit != domain.UnitMinutes {
					t.Errorf("disabled refresh should keep display fields, got %+v", cfg)
				}
				if cfg.FitMode != domain.FitContain || cfg.ResizeAnchor != domain.AnchorTopLeft ||
					cfg.OrientationFilter != domain.FilterLandscape {
					t.Errorf("enum fields not decoded: %+v", cfg)
				}
				if cfg.WindowPos == nil || *cfg.WindowPos != (domain.Point{X: 10, Y: 20}) {
					t.Errorf("unexpected window position %v", cfg.WindowPos)
				}
				if cfg.LandscapeWidth != 400 {
					t.Errorf("missing preset should default, got %v", cfg.LandscapeWidth)
				}
			},
		},
		{
			name:    "YAML Invalid Enum",
			file:    "bad.yml",
			content: "orientation_filter: Diagonal\nalways_on_top: true\n",
			validate: func(t *testing.T, cfg domain.AppConfig) {
				if cfg.OrientationFilter != domain.FilterBoth {
					t.Errorf("expected fallback to Both, got %s", cfg.OrientationFilter)
				}
				if !cfg.AlwaysOnTop {
					t.Error("valid field lost")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if tt.content != "" {
				writeFile(t, path, tt.content)
			}
			store := NewStore(zap.NewNop(), path)
			tt.validate(t, store.Load())
		})
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", name)
			store := NewStore(zap.NewNop(), path)

			cfg := domain.DefaultAppConfig()
			cfg.Folders = []string{"/x", "/y"}
			cfg.RefreshInterval = 90
			cfg.FitMode = domain.FitContain
			cfg.ResizeAnchor = domain.AnchorBottomLeft
			cfg.WindowPos = &domain.Point{X: 5, Y: 6}
			cfg.DeriveRefreshUnit()

			if err := store.Save(cfg); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := store.Load()
			if !reflect.DeepEqual(got, cfg) {
				t.Errorf("round trip mismatch:\nwant %+v\ngot  %+v", cfg, got)
			}
		})
	}
}

func TestStore_SaveWritesReadableEnums(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewStore(zap.NewNop(), path)

	if err := store.Save(domain.DefaultAppConfig()); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"fit_mode": "Cover"`, `"resize_anchor": "Center"`, `"refresh_unit": "Minutes"`, `"folders": []`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in saved file:\n%s", want, data)
		}
	}
}

func TestStore_SaveFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	writeFile(t, blocker, "x")

	// Parent "directory" is a regular file
	store := NewStore(zap.NewNop(), filepath.Join(blocker, "config.json"))
	if err := store.Save(domain.DefaultAppConfig()); err == nil {
		t.Error("expected error when the directory cannot be created")
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(envConfigPath, "$PW_TEST_DIR/custom.yaml")
	t.Setenv("PW_TEST_DIR", "/tmp/pw")

	if got := ResolvePath(zap.NewNop()); got != "/tmp/pw/custom.yaml" {
		t.Errorf("expected /tmp/pw/custom.yaml, got %s", got)
	}

	t.Setenv(envConfigPath, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got := ResolvePath(zap.NewNop()); got != filepath.Join("/tmp/xdg", appDirName, DefaultFileName) {
		t.Errorf("unexpected default path %s", got)
	}
}
