package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jhenstridge/go-inotify"
)

// Watch re-parses filename whenever it is rewritten and hands the new
// backing section to onChange. Invalid files are logged and skipped. Watch
// returns when ctx is done.
func Watch(ctx context.Context, filename string, log *slog.Logger, onChange func(*BackingCfg)) error {
	watcher, err := inotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("could not create inotify watcher: %w", err)
	}
	defer func(watcher *inotify.Watcher) {
		err := watcher.Close()
		if err != nil {
			return
		}
	}(watcher)

	_, err = watcher.Watch(filename)
	if err != nil {
		return fmt.Errorf("could not watch %s: %w", filename, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Event:
			if !ok {
				return nil
			}
			if ev.Mask&inotify.IN_CLOSE_WRITE == 0 {
				continue
			}
			log.Debug("reloading config due to inotify event")
			time.Sleep(100 * time.Millisecond)

			cfg, err := Parse(filename)
			if err != nil {
				log.Error("could not reload config", slog.Any("error", err))
				continue
			}
			onChange(cfg.Backing)
		}
	}
}
