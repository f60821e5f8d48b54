package config

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	// DefaultFileName is the config file name inside the config directory
	DefaultFileName = "photo_widget_config.json"
	appDirName      = "photowidget"
	envConfigPath   = "PHOTOWIDGET_CONFIG"
)

// ResolvePath returns the config file location.
// PHOTOWIDGET_CONFIG wins; otherwise the user config directory is used,
// falling back to the working directory when none is available.
func ResolvePath(logger *zap.Logger) string {
	path := os.Getenv(envConfigPath)
	if path == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			logger.Warn("No user config directory, using working directory", zap.Error(err))
			return DefaultFileName
		}
		path = filepath.Join(dir, appDirName, DefaultFileName)
	}

	// Expand path if it contains ~ or environment variables
	path = os.ExpandEnv(path)
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[1:])
		}
	}

	logger.Info("Configuration path resolved", zap.String("path", path))
	return path
}
