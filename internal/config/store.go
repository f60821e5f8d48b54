// Package config loads and persists the widget configuration record.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/genricoloni/photowidget/internal/domain"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// record is the persisted shape of domain.AppConfig
type record struct {
	Folders           []string                 `json:"folders" yaml:"folders"`
	AlwaysOnTop       bool                     `json:"always_on_top" yaml:"always_on_top"`
	RefreshInterval   uint64                   `json:"refresh_interval" yaml:"refresh_interval"`
	RefreshValue      uint64                   `json:"refresh_value" yaml:"refresh_value"`
	RefreshUnit       domain.TimeUnit          `json:"refresh_unit" yaml:"refresh_unit"`
	LandscapeWidth    float64                  `json:"landscape_width" yaml:"landscape_width"`
	LandscapeHeight   float64                  `json:"landscape_height" yaml:"landscape_height"`
	PortraitWidth     float64                  `json:"portrait_width" yaml:"portrait_width"`
	PortraitHeight    float64                  `json:"portrait_height" yaml:"portrait_height"`
	FitMode           domain.FitMode           `json:"fit_mode" yaml:"fit_mode"`
	ResizeAnchor      domain.ResizeAnchor      `json:"resize_anchor" yaml:"resize_anchor"`
	OrientationFilter domain.OrientationFilter `json:"orientation_filter" yaml:"orientation_filter"`
	WindowPos         *[2]float64              `json:"window_pos" yaml:"window_pos"`
}

func toRecord(cfg domain.AppConfig) record {
	r := record{
		Folders:           cfg.Folders,
		AlwaysOnTop:       cfg.AlwaysOnTop,
		RefreshInterval:   cfg.RefreshInterval,
		RefreshValue:      cfg.RefreshValue,
		RefreshUnit:       cfg.RefreshUnit,
		LandscapeWidth:    cfg.LandscapeWidth,
		LandscapeHeight:   cfg.LandscapeHeight,
		PortraitWidth:     cfg.PortraitWidth,
		PortraitHeight:    cfg.PortraitHeight,
		FitMode:           cfg.FitMode,
		ResizeAnchor:      cfg.ResizeAnchor,
		OrientationFilter: cfg.OrientationFilter,
	}
	if r.Folders == nil {
		r.Folders = []string{}
	}
	if cfg.WindowPos != nil {
		r.WindowPos = &[2]float64{cfg.WindowPos.X, cfg.WindowPos.Y}
	}
	return r
}

// fieldSource decodes one top-level key of a parsed config file
type fieldSource interface {
	// field reports whether key is present and non-null, decoding it into dst
	field(key string, dst any) (bool, error)
}

type jsonSource map[string]json.RawMessage

func (s jsonSource) field(key string, dst any) (bool, error) {
	raw, ok := s[key]
	if !ok || string(raw) == "null" {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

type yamlSource map[string]yaml.Node

func (s yamlSource) field(key string, dst any) (bool, error) {
	node, ok := s[key]
	if !ok || node.Tag == "!!null" {
		return false, nil
	}
	return true, node.Decode(dst)
}

// Store reads and writes the config file. JSON is the default format;
// a .yaml or .yml path switches to YAML.
type Store struct {
	logger *zap.Logger
	path   string
}

// NewStore creates a store bound to path
func NewStore(logger *zap.Logger, path string) *Store {
	return &Store{logger: logger, path: path}
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

func (s *Store) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(s.path))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the config file. It never fails: an unreadable or malformed
// file yields full defaults, and each missing or invalid field falls back
// to its own default.
func (s *Store) Load() domain.AppConfig {
	cfg := domain.DefaultAppConfig()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("No config file, using defaults", zap.String("path", s.path))
		} else {
			s.logger.Warn("Config file unreadable, using defaults", zap.String("path", s.path), zap.Error(err))
		}
		return cfg
	}

	src, err := s.parse(data)
	if err != nil {
		s.logger.Warn("Config file corrupt, using defaults", zap.String("path", s.path), zap.Error(err))
		return domain.DefaultAppConfig()
	}

	s.apply(src, &cfg)
	cfg.DeriveRefreshUnit()

	s.logger.Info("Configuration loaded",
		zap.Strings("folders", cfg.Folders),
		zap.String("fitMode", cfg.FitMode.String()),
		zap.String("anchor", cfg.ResizeAnchor.String()),
		zap.String("filter", cfg.OrientationFilter.String()),
		zap.Uint64("refreshInterval", cfg.RefreshInterval))
	return cfg
}

func (s *Store) parse(data []byte) (fieldSource, error) {
	if s.isYAML() {
		src := yamlSource{}
		if err := yaml.Unmarshal(data, &src); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
		return src, nil
	}
	src := jsonSource{}
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("failed to parse json: %w", err)
	}
	return src, nil
}

func (s *Store) apply(src fieldSource, cfg *domain.AppConfig) {
	decodeField(s, src, "folders", &cfg.Folders)
	decodeField(s, src, "always_on_top", &cfg.AlwaysOnTop)
	decodeField(s, src, "refresh_interval", &cfg.RefreshInterval)
	decodeField(s, src, "refresh_value", &cfg.RefreshValue)
	decodeField(s, src, "refresh_unit", &cfg.RefreshUnit)
	decodeField(s, src, "fit_mode", &cfg.FitMode)
	decodeField(s, src, "resize_anchor", &cfg.ResizeAnchor)
	decodeField(s, src, "orientation_filter", &cfg.OrientationFilter)
	decodePreset(s, src, "landscape_width", &cfg.LandscapeWidth)
	decodePreset(s, src, "landscape_height", &cfg.LandscapeHeight)
	decodePreset(s, src, "portrait_width", &cfg.PortraitWidth)
	decodePreset(s, src, "portrait_height", &cfg.PortraitHeight)

	var pos []float64
	if decodeField(s, src, "window_pos", &pos) && pos != nil {
		if len(pos) != 2 {
			s.logger.Warn("Invalid config field, using default",
				zap.String("field", "window_pos"),
				zap.Int("elements", len(pos)))
			return
		}
		cfg.WindowPos = &domain.Point{X: pos[0], Y: pos[1]}
	}
}

// decodeField overwrites *dst only when key is present and valid
func decodeField[T any](s *Store, src fieldSource, key string, dst *T) bool {
	var v T
	ok, err := src.field(key, &v)
	if err != nil {
		s.logger.Warn("Invalid config field, using default",
			zap.String("field", key),
			zap.Error(err))
		return false
	}
	if !ok {
		return false
	}
	*dst = v
	return true
}

// decodePreset rejects non-positive sizes
func decodePreset(s *Store, src fieldSource, key string, dst *float64) {
	v := *dst
	if !decodeField(s, src, key, &v) {
		return
	}
	if v <= 0 {
		s.logger.Warn("Non-positive preset, using default", zap.String("field", key), zap.Float64("value", v))
		return
	}
	*dst = v
}

// Save overwrites the config file with cfg. The write is not atomic.
func (s *Store) Save(cfg domain.AppConfig) error {
	rec := toRecord(cfg)

	var data []byte
	var err error
	if s.isYAML() {
		data, err = yaml.Marshal(rec)
	} else {
		data, err = json.MarshalIndent(rec, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	s.logger.Debug("Configuration saved", zap.String("path", s.path), zap.Int("bytes", len(data)))
	return nil
}
