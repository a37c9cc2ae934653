package snapshot

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the snapshot file's directory and
// reloads the snapshot when the file changes, until ctx is cancelled. It
// calls cb (if non-nil) after each successful reload.
//
// The parent directory is watched rather than the file itself because the
// sync-snapshot command replaces the file with a rename, which would drop
// a watch on the file's inode. Bursts of events are debounced.
func (l *Loader) Watch(ctx context.Context, cb func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	target := filepath.Base(l.path)

	l.logger.Info("snapshot watcher: started", slog.String("path", l.path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			l.logger.Info("snapshot watcher: stopped")
			return nil

		case <-reloadCh:
			if err := l.Load(); err != nil {
				l.logger.Warn("snapshot watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			l.logger.Debug("snapshot watcher: reloaded")
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Error("snapshot watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
