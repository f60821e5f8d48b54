package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/genricoloni/photowidget/internal/config"
	"github.com/genricoloni/photowidget/internal/controller"
	"github.com/genricoloni/photowidget/internal/domain"
	"github.com/genricoloni/photowidget/internal/loader"
	"github.com/genricoloni/photowidget/internal/picker"
	"github.com/genricoloni/photowidget/internal/playlist"
	"github.com/genricoloni/photowidget/internal/render"
	"github.com/genricoloni/photowidget/internal/screen"
	"github.com/genricoloni/photowidget/internal/settingsform"
	"github.com/genricoloni/photowidget/internal/tray"
	"github.com/genricoloni/photowidget/internal/watch"
	"github.com/genricoloni/photowidget/internal/window"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

const usage = `usage: photowidget [command]

commands:
  run       show the widget (default)
  settings  edit the configuration in the terminal
  scan      print the images the widget would play
`

// AppOptions is the dependency graph of the widget
var AppOptions = fx.Options(
	// Logger configuration
	fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
		return &fxevent.ZapLogger{Logger: log}
	}),

	// Provide dependencies
	fx.Provide(
		newLogger,
		newStore,
		newLoader,
		newScanner,
		render.NewRenderer,
		newDisplays,
		newWindow,
		settingsform.NewTerminalForm,
		newPicker,
		newTray,
		newWatcher,
		newController,
	),

	// Lifecycle hooks
	fx.Invoke(registerHooks),
)

func main() {
	cmd := "run"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "run":
		runWidget()
	case "settings", "scan":
		if err := runOffline(cmd); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
}

func runWidget() {
	app := fx.New(AppOptions)

	// Handle graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Start the application
	if err := app.Start(ctx); err != nil {
		panic(err)
	}

	// Wait for interrupt signal or a tray quit
	select {
	case <-ctx.Done():
	case <-app.Done():
	}

	// Stop the application gracefully
	if err := app.Stop(context.Background()); err != nil {
		panic(err)
	}
}

// runOffline runs a one-shot command without opening the widget window
func runOffline(cmd string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	store := newStore(logger)
	switch cmd {
	case "settings":
		return runSettings(context.Background(), logger, store, settingsform.NewTerminalForm(logger))
	default:
		return runScan(store, playlist.NewScanner(logger, nil), os.Stdout)
	}
}

// runSettings edits the stored configuration and saves it on confirmation
func runSettings(ctx context.Context, logger *zap.Logger, store domain.ConfigStore, form domain.SettingsForm) error {
	res, err := form.Edit(ctx, store.Load())
	if err != nil {
		return err
	}
	if !res.Saved {
		logger.Info("Settings unchanged")
		return nil
	}

	cfg := res.Config
	cfg.ApplyRefreshValue()
	if err := store.Save(cfg); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	logger.Info("Settings saved", zap.String("path", store.Path()))
	return nil
}

// runScan prints the images matching the configured folders and filter
func runScan(store domain.ConfigStore, scanner controller.FolderScanner, out io.Writer) error {
	cfg := store.Load()
	for _, path := range scanner.Scan(cfg.Folders, cfg.OrientationFilter) {
		if _, err := fmt.Fprintln(out, path); err != nil {
			return err
		}
	}
	return nil
}

// newLogger creates a new zap logger instance; PHOTOWIDGET_DEBUG=1 enables debug output
func newLogger() (*zap.Logger, error) {
	if os.Getenv("PHOTOWIDGET_DEBUG") == "1" {
		return zap.NewDevelopment()
	}
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return logger, nil
}

func newStore(logger *zap.Logger) domain.ConfigStore {
	return config.NewStore(logger, config.ResolvePath(logger))
}

func newLoader(lc fx.Lifecycle, logger *zap.Logger) *loader.Loader {
	l := loader.NewLoader(logger, nil)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			l.Close()
			return nil
		},
	})
	return l
}

func newScanner(logger *zap.Logger) *playlist.Scanner {
	return playlist.NewScanner(logger, nil)
}

func newDisplays() screen.Displays {
	return screen.ActiveDisplays
}

func newWindow(lc fx.Lifecycle, logger *zap.Logger, renderer *render.Renderer, displays screen.Displays) (*window.X11Window, error) {
	w, err := window.NewX11Window(logger, renderer, displays)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go w.Run()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return w.Close()
		},
	})
	return w, nil
}

func newPicker(lc fx.Lifecycle, logger *zap.Logger) *picker.Picker {
	p := picker.NewPicker(logger)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.Close()
		},
	})
	return p
}

func newTray(lc fx.Lifecycle, logger *zap.Logger) *tray.Tray {
	t := tray.NewTray(logger)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			t.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			t.Stop()
			return nil
		},
	})
	return t
}

func newWatcher(lc fx.Lifecycle, logger *zap.Logger, store domain.ConfigStore) (*watch.Watcher, error) {
	w, err := watch.NewWatcher(logger, store.Path())
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			w.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return w.Close()
		},
	})
	return w, nil
}

type controllerParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *zap.Logger
	Store      domain.ConfigStore
	Window     *window.X11Window
	Loader     *loader.Loader
	Scanner    *playlist.Scanner
	Form       *settingsform.TerminalForm
	Picker     *picker.Picker
	Tray       *tray.Tray
	Watcher    *watch.Watcher
}

func newController(p controllerParams) *controller.Controller {
	quit := func() {
		if err := p.Shutdowner.Shutdown(); err != nil {
			p.Logger.Warn("Shutdown request failed", zap.Error(err))
		}
	}

	c := controller.NewController(p.Logger, controller.Deps{
		Store:    p.Store,
		Window:   p.Window,
		Loader:   p.Loader,
		Scanner:  p.Scanner,
		Form:     p.Form,
		Picker:   p.Picker,
		Tray:     p.Tray,
		Notifier: p.Watcher,
	}, quit)

	p.Lifecycle.Append(fx.Hook{
		OnStart: c.Start,
		OnStop:  c.Stop,
	})
	return c
}

// registerHooks sets up application lifecycle hooks
func registerHooks(lc fx.Lifecycle, logger *zap.Logger, _ *controller.Controller) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Photo widget started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Shutting down")
			return nil
		},
	})
}
