package config

import (
	"log"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a tunables file whenever it changes on disk and reapplies
// the result to the allocator. It follows the same fsnotify event-loop
// shape used for filesystem watching elsewhere in this codebase: a single
// goroutine forwarding fsnotify's Events/Errors channels, started from the
// constructor and stopped via Close.
type Watcher struct {
	w    *fsnotify.Watcher
	path string
	done chan struct{}
}

// NewWatcher starts watching path and applies its current contents
// immediately. Subsequent writes to path are reloaded and re-applied as
// they happen; a reload that fails validation is logged and the previous,
// still-applied tunables are left in effect.
func NewWatcher(path string) (*Watcher, error) {
	t, err := Load(path)
	if err != nil {
		return nil, err
	}

	t.Apply()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	watcher := &Watcher{w: w, path: path, done: make(chan struct{})}
	go watcher.loop()

	return watcher, nil
}

func (watcher *Watcher) loop() {
	for {
		select {
		case ev, ok := <-watcher.w.Events:
			if !ok {
				return
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			t, err := Load(watcher.path)
			if err != nil {
				log.Printf("config: reload %s failed, keeping previous tunables: %v", watcher.path, err)
				continue
			}

			t.Apply()
		case err, ok := <-watcher.w.Errors:
			if !ok {
				return
			}

			log.Printf("config: watcher error on %s: %v", watcher.path, err)
		case <-watcher.done:
			return
		}
	}
}

// Close stops the watch goroutine and releases the underlying fsnotify
// watcher.
func (watcher *Watcher) Close() error {
	close(watcher.done)
	return watcher.w.Close()
}
