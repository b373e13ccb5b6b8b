package kvstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called with the key whose stored value was changed by
// someone other than this process.
type ChangeCallback func(key string)

// debounce collapses the burst of events a single atomic replace produces.
const debounce = 100 * time.Millisecond

// Watch observes the FS store directory until ctx is cancelled and calls cb
// for every key whose file was created, replaced, or removed by another
// writer. Writes made through f itself are recognised by checksum and
// ignored.
func Watch(ctx context.Context, f *FS, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.Root()); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", f.Root()))

	pending := make(map[string]struct{})
	var timer *time.Timer
	var timerCh <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	flush := func() {
		for key := range pending {
			delete(pending, key)
			value, found, getErr := f.Get(key)
			if getErr != nil {
				logger.Warn("watcher: read failed", slog.String("key", key), slog.String("error", getErr.Error()))
				continue
			}
			if found && f.OwnWrite(key, value) {
				continue
			}
			logger.Debug("watcher: external change", slog.String("key", key), slog.Bool("present", found))
			if cb != nil {
				cb(key)
			}
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-timerCh:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			key, ok := f.KeyForPath(ev.Name)
			if !ok {
				continue
			}
			pending[key] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
