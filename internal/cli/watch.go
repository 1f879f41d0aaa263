package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// SessionWatcher reports changes to the session file made by other hubctl processes.
type SessionWatcher struct {
	watcher *fsnotify.Watcher
	file    string
}

func NewSessionWatcher(path string) (*SessionWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &SessionWatcher{watcher: w, file: filepath.Clean(path)}, nil
}

// Watch emits once per change of the file. The directory is watched rather than the
// file, since saves replace the file and logouts remove it.
func (w *SessionWatcher) Watch(ctx context.Context) (<-chan struct{}, <-chan error, error) {
	dir := filepath.Dir(w.file)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create session dir: %w", err)
	}
	if err := w.watcher.Add(dir); err != nil {
		return nil, nil, err
	}

	changes := make(chan struct{}, 1)
	errs := make(chan error, 1)

	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != w.file {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				// Coalesce bursts; the reader reloads the whole file anyway.
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				select {
				case errs <- err:
				default:
				}
			}
		}
	}()

	return changes, errs, nil
}

func (w *SessionWatcher) Stop() error {
	return w.watcher.Close()
}
