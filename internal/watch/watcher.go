// Package watch turns filesystem events on image folders and the config file
// into coalesced change signals for the controller.
package watch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// DefaultDebounce coalesces bursts of writes (copying a batch of photos,
// editors saving through a temp file) into one signal
const DefaultDebounce = 500 * time.Millisecond

// Watcher implements domain.ChangeNotifier on top of fsnotify.
// Folders are watched recursively by adding every subdirectory.
type Watcher struct {
	logger     *zap.Logger
	fs         *fsnotify.Watcher
	configPath string
	configDir  string
	debounce   time.Duration

	mu      sync.Mutex
	watched map[string]struct{} // directories belonging to image folders

	folderCh chan struct{}
	configCh chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewWatcher creates a watcher for configPath. Folder watches are installed
// later through WatchFolders.
func NewWatcher(logger *zap.Logger, configPath string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		logger:     logger,
		fs:         fw,
		configPath: filepath.Clean(configPath),
		configDir:  filepath.Dir(filepath.Clean(configPath)),
		debounce:   DefaultDebounce,
		watched:    make(map[string]struct{}),
		folderCh:   make(chan struct{}, 1),
		configCh:   make(chan struct{}, 1),
		done:       make(chan struct{}),
	}

	// Watch the directory so atomic-rename saves are seen too
	if err := fw.Add(w.configDir); err != nil {
		logger.Warn("Cannot watch config directory", zap.String("dir", w.configDir), zap.Error(err))
	}
	return w, nil
}

// Start launches the event loop
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
	w.logger.Info("File watcher started", zap.String("config", w.configPath))
}

// FolderChanges fires after a watched image folder changed
func (w *Watcher) FolderChanges() <-chan struct{} {
	return w.folderCh
}

// ConfigChanges fires after the config file changed on disk
func (w *Watcher) ConfigChanges() <-chan struct{} {
	return w.configCh
}

// WatchFolders replaces the watched folder set. Missing folders are skipped.
func (w *Watcher) WatchFolders(folders []string) {
	want := make(map[string]struct{})
	for _, folder := range folders {
		root := filepath.Clean(folder)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if path == root {
					return err
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				want[path] = struct{}{}
			}
			return nil
		})
		if err != nil {
			w.logger.Debug("Folder not watched", zap.String("folder", root), zap.Error(err))
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for dir := range w.watched {
		if _, ok := want[dir]; ok {
			continue
		}
		delete(w.watched, dir)
		if dir == w.configDir {
			continue
		}
		if err := w.fs.Remove(dir); err != nil && !errors.Is(err, fsnotify.ErrNonExistentWatch) {
			w.logger.Debug("Failed to remove watch", zap.String("dir", dir), zap.Error(err))
		}
	}
	for dir := range want {
		if _, ok := w.watched[dir]; ok {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			w.logger.Debug("Failed to add watch", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.watched[dir] = struct{}{}
	}

	w.logger.Debug("Watching folders", zap.Int("folders", len(folders)), zap.Int("dirs", len(w.watched)))
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var folderFire, configFire <-chan time.Time
	for {
		select {
		case <-w.done:
			return

		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			if filepath.Clean(ev.Name) == w.configPath {
				configFire = time.After(w.debounce)
				continue
			}
			if w.ownsEvent(ev) {
				folderFire = time.After(w.debounce)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", zap.Error(err))

		case <-folderFire:
			folderFire = nil
			w.notify(w.folderCh, "folders")

		case <-configFire:
			configFire = nil
			w.notify(w.configCh, "config")
		}
	}
}

// ownsEvent reports whether ev happened inside a watched image folder,
// extending the watch to newly created subdirectories
func (w *Watcher) ownsEvent(ev fsnotify.Event) bool {
	name := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	_, parentWatched := w.watched[filepath.Dir(name)]
	_, selfWatched := w.watched[name]
	if !parentWatched && !selfWatched {
		return false
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			if err := w.fs.Add(name); err == nil {
				w.watched[name] = struct{}{}
			}
		}
	}
	if selfWatched && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
		delete(w.watched, name)
	}
	return true
}

// notify never blocks; a pending signal already covers this change
func (w *Watcher) notify(ch chan struct{}, what string) {
	select {
	case ch <- struct{}{}:
		w.logger.Debug("Change detected", zap.String("source", what))
	default:
	}
}

// Close stops the event loop and releases the inotify handles
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = multierr.Append(err, w.fs.Close())
		w.wg.Wait()
		w.logger.Info("File watcher stopped")
	})
	return err
}
