package refdata

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"

	"shotsmith/internal/logging"
)

// Watch reloads the library whenever its file changes on disk. Setup
// errors are returned synchronously; the watch loop itself runs in a
// background goroutine that exits when ctx is cancelled. A reload
// failure keeps the previous data and logs a warning.
func (l *FileLibrary) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create library watcher: %w", err)
	}
	if err := watcher.Add(l.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", l.path, err)
	}
	logging.RefData("watching reference library %s", l.path)

	go l.watchLoop(ctx, watcher)
	return nil
}

func (l *FileLibrary) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := l.Reload(); err != nil {
				logging.Get(logging.CategoryRefData).Warn("reload failed, keeping previous data: %v", err)
				continue
			}
			logging.RefData("reference library reloaded after %s", event.Op)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryRefData).Warn("watcher error: %v", err)
		}
	}
}
