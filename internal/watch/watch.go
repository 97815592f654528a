// Package watch monitors a directory for newly dropped .3b bundle
// archives and invokes a callback once each one is stable (done being
// written), so a user can auto-publish by copying a file into a watched
// folder instead of driving the uploader interactively. It pairs an
// fsnotify watcher with a completeness poll over a single flat directory.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Kavex/Third3D-uploader/internal/logging"
)

// Callback is invoked once for each newly stable archive found in the
// watched directory, with its full path.
type Callback func(archivePath string)

// Watcher monitors one directory for new .3b files.
type Watcher struct {
	dir      string
	callback Callback

	fsWatcher *fsnotify.Watcher
	known     map[string]bool
	mu        sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

// Start begins watching dir for new .3b archives, calling cb once per
// archive after it has stopped changing size. Cancel ctx, or call Stop,
// to end the watch.
func Start(ctx context.Context, dir string, cb Callback) (*Watcher, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	wctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		dir:       dir,
		callback:  cb,
		fsWatcher: fsWatcher,
		known:     make(map[string]bool),
		ctx:       wctx,
		cancel:    cancel,
	}

	w.scanExisting()
	go w.loop()
	return w, nil
}

// Stop closes the underlying fsnotify watcher and ends the watch loop.
func (w *Watcher) Stop() {
	w.cancel()
	w.fsWatcher.Close()
}

func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".3b") {
			go w.awaitStableAndNotify(filepath.Join(w.dir, entry.Name()))
		}
	}
}

func (w *Watcher) loop() {
	l := logging.L()
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".3b") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			go w.awaitStableAndNotify(event.Name)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			l.Error().Err(err).Str("dir", w.dir).Msg("watch: fsnotify error")
		}
	}
}

// awaitStableAndNotify polls path's size until it stops changing, then
// fires the callback exactly once per path.
func (w *Watcher) awaitStableAndNotify(path string) {
	w.mu.Lock()
	if w.known[path] {
		w.mu.Unlock()
		return
	}
	w.known[path] = true
	w.mu.Unlock()

	if !w.waitUntilStable(path) {
		w.mu.Lock()
		delete(w.known, path)
		w.mu.Unlock()
		return
	}

	if w.callback != nil {
		w.callback(path)
	}
}

func (w *Watcher) waitUntilStable(path string) bool {
	var lastSize int64 = -1
	for i := 0; i < 120; i++ {
		select {
		case <-w.ctx.Done():
			return false
		default:
		}

		info, err := os.Stat(path)
		if err != nil {
			time.Sleep(250 * time.Millisecond)
			continue
		}
		if info.Size() == lastSize && info.Size() > 0 {
			return true
		}
		lastSize = info.Size()
		time.Sleep(250 * time.Millisecond)
	}
	return false
}
