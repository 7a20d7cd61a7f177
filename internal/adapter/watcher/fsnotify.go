// Package watcher reports changes to the document source so the index
// can be rebuilt while the service runs.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"qarag/internal/port"
)

// FSNotifyWatcher watches a source file or directory tree. Bursts of
// events closer together than the debounce window are emitted once.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	debounce   time.Duration
	extensions map[string]bool
	log        *slog.Logger
}

var _ port.SourceWatcher = (*FSNotifyWatcher)(nil)

func NewFSNotifyWatcher(debounce time.Duration, log *slog.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &FSNotifyWatcher{
		watcher:    w,
		debounce:   debounce,
		extensions: map[string]bool{".pdf": true, ".md": true, ".markdown": true, ".txt": true},
		log:        log,
	}, nil
}

// Watch starts monitoring path. A single file is watched through its
// parent directory so editors that replace the file are still seen.
func (w *FSNotifyWatcher) Watch(ctx context.Context, path string) (<-chan string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	var match func(name string) bool
	if info.IsDir() {
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return w.watcher.Add(p)
			}
			return nil
		})
		match = func(name string) bool { return w.extensions[filepath.Ext(name)] }
	} else {
		target := filepath.Clean(path)
		err = w.watcher.Add(filepath.Dir(target))
		match = func(name string) bool { return filepath.Clean(name) == target }
	}
	if err != nil {
		return nil, err
	}

	changes := make(chan string, 1)
	go w.loop(ctx, path, match, changes)
	return changes, nil
}

func (w *FSNotifyWatcher) loop(ctx context.Context, root string, match func(string) bool, changes chan<- string) {
	defer close(changes)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					w.watcher.Add(event.Name)
					continue
				}
			}
			if !match(event.Name) {
				continue
			}
			w.log.Debug("source event", "path", event.Name, "op", event.Op.String())
			if !pending {
				pending = true
			} else if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timer.C:
			pending = false
			select {
			case changes <- root:
			case <-ctx.Done():
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("source watcher error", "error", err)
		}
	}
}

func (w *FSNotifyWatcher) Close() error {
	return w.watcher.Close()
}
