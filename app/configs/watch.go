package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"taskpilot/app/pkg/logger"
)

const watchDebounce = 200 * time.Millisecond

// Watch reloads the config file on change and calls onChange with the new
// snapshot. It watches the containing directory so editors that replace the
// file (rename + create) are still picked up. Blocks until ctx is done.
func (m *Manager) Watch(ctx context.Context, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	target := filepath.Clean(m.path)
	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
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
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("Config watch error: %v", err)
		case <-fire:
			cfg, changed, err := m.reload()
			if err != nil {
				logger.Error("Config reload failed, keeping previous config: %v", err)
				continue
			}
			if changed {
				logger.Info("Config reloaded from %s", m.path)
				onChange(cfg)
			}
		}
	}
}
