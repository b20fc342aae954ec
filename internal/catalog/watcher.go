package catalog

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// debounceDelay absorbs the write/rename event bursts editors and atomic
// writers produce for a single logical change.
const debounceDelay = 250 * time.Millisecond

// Watcher reloads a file-backed catalog when its file changes on disk.
type Watcher struct {
	catalog  *Catalog
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
	onReload func()
}

// NewWatcher creates a watcher for a catalog loaded from a file.
func NewWatcher(c *Catalog) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		catalog:  c,
		watcher:  watcher,
		stopChan: make(chan struct{}),
	}, nil
}

// SetReloadCallback registers a function invoked after each successful reload.
func (w *Watcher) SetReloadCallback(callback func()) {
	w.onReload = callback
}

// Start begins watching the catalog file's directory. Watching the directory
// instead of the file survives atomic replace-by-rename updates.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.catalog.Path())
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	go w.watchForChanges()
	log.Info().Str("path", w.catalog.Path()).Msg("Watching pack catalog for changes")
	return nil
}

// Stop ends the watch loop.
func (w *Watcher) Stop() {
	close(w.stopChan)
	if err := w.watcher.Close(); err != nil {
		log.Warn().Err(err).Msg("Failed to close catalog watcher")
	}
}

func (w *Watcher) watchForChanges() {
	target := filepath.Clean(w.catalog.Path())
	var timer *time.Timer

	for {
		select {
		case <-w.stopChan:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounceDelay, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Catalog watcher error")
		}
	}
}

func (w *Watcher) reload() {
	if err := w.catalog.Reload(); err != nil {
		log.Error().Err(err).Str("path", w.catalog.Path()).Msg("Failed to reload pack catalog, keeping previous packs")
		return
	}
	log.Info().Str("path", w.catalog.Path()).Int("packs", len(w.catalog.Packs())).Msg("Pack catalog reloaded")
	if w.onReload != nil {
		w.onReload()
	}
}
