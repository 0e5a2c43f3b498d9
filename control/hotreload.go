// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// File-driven hot reload of the configuration store.

package control

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/joeycumines/logiface"
)

// FileWatcher reloads a config file into a ConfigStore whenever it changes.
// A file that fails to load leaves the store untouched.
type FileWatcher struct {
	path   string
	store  *ConfigStore
	logger *logiface.Logger[logiface.Event]
	w      *fsnotify.Watcher
}

// NewFileWatcher starts watching the directory holding path. The watch is
// armed on return, so writes made after this call are observed by Run.
func NewFileWatcher(path string, store *ConfigStore, logger *logiface.Logger[logiface.Event]) (*FileWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("control: watcher: %w", err)
	}
	// Editors often replace files by rename, so watch the parent.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("control: watch %s: %w", abs, err)
	}
	return &FileWatcher{path: abs, store: store, logger: logger, w: w}, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (fw *FileWatcher) Run(ctx context.Context) error {
	defer fw.w.Close()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != fw.path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			fw.reload()
		case err, ok := <-fw.w.Errors:
			if !ok {
				return nil
			}
			fw.logger.Warning().Err(err).Str("path", fw.path).Log("config watch error")
		}
	}
}

// Close stops the watcher; a running Run returns.
func (fw *FileWatcher) Close() error {
	return fw.w.Close()
}

func (fw *FileWatcher) reload() {
	cfg, err := LoadFile(fw.path)
	if err != nil {
		fw.logger.Warning().Err(err).Str("path", fw.path).Log("config reload rejected")
		return
	}
	fw.store.SetConfig(cfg)
	fw.logger.Info().Str("path", fw.path).Log("config reloaded")
}
