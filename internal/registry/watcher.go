package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watch loads module files as they appear in dir, until ctx is canceled.
// Load failures are logged and skipped, matching LoadAll's best-effort
// contract. Already-registered names are left alone; hot replacement of
// a live module is deliberately not supported.
func (r *Registry) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	r.logger.Info("watching module directory", "dir", dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !strings.HasSuffix(event.Name, moduleExt) {
				continue
			}
			name := strings.TrimSuffix(filepath.Base(event.Name), moduleExt)
			if _, err := r.Load(ctx, name, event.Name); err != nil {
				r.logger.Warn("skipping watched module", "name", name, "path", event.Name, "error", err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("watcher error", "dir", dir, "error", err)
		}
	}
}
