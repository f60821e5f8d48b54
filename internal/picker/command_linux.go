//go:build linux
// +build linux

package picker

import (
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

var (
	// Ordered list of dialog commands to try (highest priority first)
	dialogCommands = []DialogCommand{
		// GNOME / GTK
		{Name: "zenity", Binary: "zenity", Args: []string{"--file-selection", "--directory", "--title=" + dialogTitle}},
		// KDE
		{Name: "kdialog", Binary: "kdialog", Args: []string{"--getexistingdirectory", "%s", "--title", dialogTitle}},
		// Generic GTK fork of zenity
		{Name: "yad", Binary: "yad", Args: []string{"--file", "--directory", "--title=" + dialogTitle}},
	}
)

// detectCommand picks the dialog tool matching the running desktop
func detectCommand(logger *zap.Logger) DialogCommand {
	desktop := strings.ToLower(os.Getenv("XDG_CURRENT_DESKTOP"))

	logger.Debug("Detecting folder dialog command", zap.String("desktop", desktop))

	if strings.Contains(desktop, "kde") {
		for _, cmd := range dialogCommands {
			if cmd.Name == "kdialog" && commandExists(cmd.Binary) {
				return cmd
			}
		}
	}

	// Fallback: try all commands in order
	for _, cmd := range dialogCommands {
		if commandExists(cmd.Binary) {
			return cmd
		}
	}

	return DialogCommand{} // No command found
}

// commandExists checks if a binary exists in PATH
func commandExists(binary string) bool {
	_, err := exec.LookPath(binary)
	return err == nil
}
