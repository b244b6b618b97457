package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/TimurManjosov/licadvisor/internal/telemetry"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce collapses the burst of events editors emit for a single save.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads a Holder when its catalog file changes on disk.
type Watcher struct {
	holder   *Holder
	path     string
	debounce time.Duration
	log      zerolog.Logger
}

// NewWatcher creates a watcher for path. A non-positive debounce uses DefaultDebounce.
func NewWatcher(holder *Holder, path string, debounce time.Duration, log zerolog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		holder:   holder,
		path:     filepath.Clean(path),
		debounce: debounce,
		log:      log.With().Str("component", "catalog_watcher").Str("path", path).Logger(),
	}
}

// Run watches until ctx is cancelled. The parent directory is watched so
// atomic rename-over saves are seen too.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}
	w.log.Info().Dur("debounce", w.debounce).Msg("watching catalog file")

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("file watcher error")

		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	snap, err := w.holder.Reload(ctx)
	if err != nil {
		telemetry.CatalogReloads.WithLabelValues("error").Inc()
		w.log.Error().Err(err).Str("etag", snap.ETag).Msg("catalog reload failed, keeping previous snapshot")
		return
	}
	telemetry.CatalogReloads.WithLabelValues("ok").Inc()
	w.log.Info().Str("etag", snap.ETag).Int("rules", len(snap.Rules)).Msg("catalog reloaded")
}
