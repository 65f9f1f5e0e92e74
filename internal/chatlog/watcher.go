package chatlog

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const defaultPollInterval = time.Second

// Watcher drives a Tailer from file system notifications.
// The parent directory is watched so rotation and recreation are seen;
// a poll ticker covers platforms and file systems where events are lost.
type Watcher struct {
	tailer    *Tailer
	pollEvery time.Duration
}

// NewWatcher creates a watcher for t. pollEvery <= 0 uses one second.
func NewWatcher(t *Tailer, pollEvery time.Duration) *Watcher {
	if pollEvery <= 0 {
		pollEvery = defaultPollInterval
	}
	return &Watcher{tailer: t, pollEvery: pollEvery}
}

// Run blocks until ctx is done or the tailer hits a fatal error.
// A fatal error is returned once; transient read errors are logged and tailing continues.
func (w *Watcher) Run(ctx context.Context) error {
	path := w.tailer.Path()
	name := filepath.Base(path)

	var events <-chan fsnotify.Event
	var errs <-chan error

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("File notifications unavailable, polling only")
	} else {
		defer fw.Close()
		if err := fw.Add(filepath.Dir(path)); err != nil {
			log.Warn().Err(err).Str("dir", filepath.Dir(path)).Msg("Failed to watch directory, polling only")
		} else {
			events = fw.Events
			errs = fw.Errors
		}
	}

	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	log.Info().
		Str("file", path).
		Dur("poll_interval", w.pollEvery).
		Bool("notifications", events != nil).
		Msg("Watching chat log")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if err := w.changed(); err != nil {
				return err
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Warn().Err(err).Msg("File watcher error")

		case <-ticker.C:
			if err := w.changed(); err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) changed() error {
	err := w.tailer.OnChange()
	if err == nil {
		return nil
	}
	if IsFatal(err) {
		log.Error().Err(err).Str("file", w.tailer.Path()).Msg("Chat log tailing stopped")
		return err
	}
	log.Warn().Err(err).Msg("Error reading chat log, will retry")
	return nil
}
