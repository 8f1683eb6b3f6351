package store

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher notifies observers when pipeline records in a project are
// rewritten on disk. A detached UI uses this to re-read state mid-run
// instead of polling.
type Watcher struct {
	watcher *fsnotify.Watcher
	changes chan string
	done    chan struct{}
}

// WatchPipelines starts watching the pipelines directory of a project.
// The directory must exist; create it by saving a pipeline first.
func (s *Store) WatchPipelines(projectID string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := fw.Add(s.pipelinesDir(projectID)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		changes: make(chan string, 16),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes returns a channel of pipeline ids whose records changed.
func (w *Watcher) Changes() <-chan string {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	defer close(w.changes)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			base := filepath.Base(event.Name)
			// Atomic saves land via rename; ignore the temp files themselves.
			if strings.HasPrefix(base, ".tmp-") || !strings.HasSuffix(base, ".json") {
				continue
			}
			id := strings.TrimSuffix(base, ".json")
			select {
			case w.changes <- id:
			case <-w.done:
				return
			default:
				// Observer is behind; it will re-read on the next event.
			}
		case <-w.watcher.Errors:
			// Ignore errors, keep watching.
		}
	}
}
