//go:build !linux
// +build !linux

package picker

import "go.uber.org/zap"

// detectCommand finds no dialog tool on unsupported platforms
func detectCommand(logger *zap.Logger) DialogCommand {
	logger.Warn("Folder dialog commands are not implemented for this platform")
	return DialogCommand{}
}
