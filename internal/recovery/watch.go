package recovery

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"fitflow-backend/internal/shared/telemetry"
)

// Watch reloads path whenever it is written or replaced and installs the new
// Scorer into p. A file that fails to parse or validate leaves the previous
// Scorer active. It blocks until ctx is cancelled.
//
// The parent directory is watched so that rename-over saves, which swap the
// file's inode, keep triggering reloads.
func Watch(ctx context.Context, path string, p *Provider) error {
	path = filepath.Clean(path)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	telemetry.Info("recovery.rules.watching", map[string]any{"path": path})

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			reload(path, p)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			telemetry.Error("recovery.rules.watch_error", map[string]any{"path": path, "error": err.Error()})
		}
	}
}

func reload(path string, p *Provider) {
	cfg, err := LoadConfig(path)
	if err != nil {
		telemetry.Error("recovery.rules.reload_failed", map[string]any{"path": path, "error": err.Error()})
		return
	}
	s, err := NewScorer(cfg)
	if err != nil {
		telemetry.Error("recovery.rules.reload_failed", map[string]any{"path": path, "error": err.Error()})
		return
	}
	p.Swap(s)
	telemetry.Info("recovery.rules.reloaded", map[string]any{
		"path":           path,
		"rest_below":     cfg.Thresholds.RestBelow,
		"progression_at": cfg.Thresholds.ProgressionAt,
	})
}
