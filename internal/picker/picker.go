// Package picker implements the folder picker: xdg-desktop-portal over
// D-Bus first, then a desktop dialog command.
package picker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DialogCommand represents a detected folder dialog command
type DialogCommand struct {
	Name   string
	Binary string
	Args   []string // %s will be replaced with the start directory
}

type runFunc func(ctx context.Context, binary string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, binary string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, binary, args...).Output()
}

// CommandPicker runs a dialog tool and reads the chosen path from stdout
type CommandPicker struct {
	logger  *zap.Logger
	command DialogCommand
	run     runFunc
}

// NewCommandPicker returns nil when no dialog tool is installed
func NewCommandPicker(logger *zap.Logger) *CommandPicker {
	cmd := detectCommand(logger)
	if cmd.Binary == "" {
		return nil
	}
	logger.Info("Folder dialog detected", zap.String("name", cmd.Name), zap.String("binary", cmd.Binary))
	return &CommandPicker{logger: logger, command: cmd, run: runCommand}
}

func (c *CommandPicker) pick(ctx context.Context) (string, error) {
	start, err := os.UserHomeDir()
	if err != nil {
		start = "."
	}
	args := make([]string, len(c.command.Args))
	for i, arg := range c.command.Args {
		args[i] = strings.ReplaceAll(arg, "%s", start)
	}

	c.logger.Debug("Opening folder dialog", zap.String("command", c.command.Binary), zap.Strings("args", args))

	out, err := c.run(ctx, c.command.Binary, args...)
	if err != nil {
		var exitErr *exec.ExitError
		// Dialog tools exit 1 on cancel
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", errCancelled
		}
		return "", fmt.Errorf("failed to run %s: %w", c.command.Name, err)
	}

	path := strings.TrimSpace(string(out))
	if path == "" {
		return "", errCancelled
	}
	return path, nil
}

// Picker implements domain.FolderPicker. The portal is tried first; when it
// is unavailable the dialog command takes over.
type Picker struct {
	logger  *zap.Logger
	conn    DBusClient
	portal  *PortalPicker
	command *CommandPicker
}

// NewPicker connects to the session bus and detects a dialog command.
// Either may be missing; with neither, PickFolder always reports no pick.
func NewPicker(logger *zap.Logger) *Picker {
	p := &Picker{logger: logger, command: NewCommandPicker(logger)}

	conn, err := NewStdDBusClient()
	if err != nil {
		logger.Warn("Session bus unavailable, folder portal disabled", zap.Error(err))
	} else {
		p.conn = conn
		p.portal = NewPortalPicker(logger, conn)
	}

	if p.portal == nil && p.command == nil {
		logger.Warn("No folder picker available")
	}
	return p
}

// PickFolder blocks until a folder is chosen or the dialog is dismissed
func (p *Picker) PickFolder(ctx context.Context) (string, bool) {
	var errs error

	if p.portal != nil {
		path, err := p.portal.pick(ctx)
		switch {
		case err == nil:
			p.logger.Info("Folder picked", zap.String("path", path), zap.String("via", "portal"))
			return path, true
		case errors.Is(err, errCancelled), ctx.Err() != nil:
			return "", false
		}
		errs = multierr.Append(errs, err)
	}

	if p.command != nil {
		path, err := p.command.pick(ctx)
		switch {
		case err == nil:
			p.logger.Info("Folder picked", zap.String("path", path), zap.String("via", p.command.command.Name))
			return path, true
		case errors.Is(err, errCancelled), ctx.Err() != nil:
			return "", false
		}
		errs = multierr.Append(errs, err)
	}

	if errs != nil {
		p.logger.Warn("Folder picker failed", zap.Error(errs))
	}
	return "", false
}

// Close releases the session bus connection
func (p *Picker) Close() error {
	if p.conn == nil {
		return nil
	}
	return p.conn.Close()
}
