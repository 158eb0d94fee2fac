package capture

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long a new file must stay quiet before it is treated as
// complete; screenshot tools usually create the file and then write it.
const settle = 300 * time.Millisecond

// IsImage reports whether path has an extension Watch picks up.
func IsImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg":
		return true
	}
	return false
}

// Watch turns image files appearing in dir into captures. Every new PNG or
// JPEG is reported once to onImage after it stops changing. Watch blocks
// until ctx is cancelled.
func Watch(ctx context.Context, dir string, onImage func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}

	pending := make(map[string]time.Time)
	seen := make(map[string]bool)
	tick := time.NewTicker(settle / 3)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !IsImage(event.Name) || seen[event.Name] {
				continue
			}
			pending[event.Name] = time.Now()

		case now := <-tick.C:
			for p, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, p)
				if info, err := os.Stat(p); err != nil || info.IsDir() || info.Size() == 0 {
					continue
				}
				seen[p] = true
				onImage(p)
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}
