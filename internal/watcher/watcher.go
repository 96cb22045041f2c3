package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/logger"
)

// DefaultExtensions are the source files picked up when Config.Extensions is empty.
// WebP is left out so outputs written next to the inputs are not converted again.
var DefaultExtensions = []string{
	".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".svg",
	".mp4", ".mov", ".m4v", ".webm", ".mkv", ".avi", ".3gp",
}

// Handler is called once per settled file
type Handler func(ctx context.Context, path string) error

// Config holds the watched folder and debounce window
type Config struct {
	Dir        string
	Debounce   time.Duration
	Extensions []string
}

// Watcher reports files in a folder once they stop changing
type Watcher interface {
	// Run blocks until ctx is cancelled or the underlying watcher fails
	Run(ctx context.Context, handler Handler) error
}

type watcher struct {
	cfg        Config
	extensions map[string]struct{}
}

type settled struct {
	path string
	gen  uint64
}

// NewWatcher creates a hot-folder watcher
func NewWatcher(cfg Config) Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	exts := cfg.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	w := &watcher{
		cfg:        cfg,
		extensions: make(map[string]struct{}, len(exts)),
	}
	for _, ext := range exts {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.extensions[ext] = struct{}{}
	}
	return w
}

// Run watches the folder and calls handler from a single goroutine
func (w *watcher) Run(ctx context.Context, handler Handler) error {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer func() {
		if err := fsWatcher.Close(); err != nil {
			logger.WarnCtx(ctx, "Failed to close fsnotify watcher", zap.Error(err))
		}
	}()

	if err := fsWatcher.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", w.cfg.Dir, err)
	}
	logger.InfoCtx(ctx, "Watching folder", zap.String("dir", w.cfg.Dir), zap.Duration("debounce", w.cfg.Debounce))

	// pending is only touched by this goroutine; timers report back through fired
	pending := make(map[string]uint64)
	timers := make(map[string]*time.Timer)
	fired := make(chan settled)
	var gen uint64

	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsWatcher.Events:
			if !ok {
				return nil
			}
			if !w.accepts(event) {
				continue
			}

			gen++
			current := settled{path: event.Name, gen: gen}
			pending[event.Name] = gen
			if t, exists := timers[event.Name]; exists {
				t.Stop()
			}
			timers[event.Name] = time.AfterFunc(w.cfg.Debounce, func() {
				select {
				case fired <- current:
				case <-ctx.Done():
				}
			})

		case s := <-fired:
			// A later event restarted the window
			if pending[s.path] != s.gen {
				continue
			}
			delete(pending, s.path)
			delete(timers, s.path)

			logger.InfoCtx(ctx, "File settled", zap.String("path", s.path))
			if err := handler(ctx, s.path); err != nil {
				logger.WarnCtx(ctx, "Failed to handle file", zap.String("path", s.path), zap.Error(err))
			}

		case err, ok := <-fsWatcher.Errors:
			if !ok {
				return nil
			}
			logger.WarnCtx(ctx, "Watcher error", zap.Error(err))
		}
	}
}

// accepts keeps writes and creates of visible files with a known extension
func (w *watcher) accepts(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}

	_, ok := w.extensions[strings.ToLower(filepath.Ext(base))]
	return ok
}
