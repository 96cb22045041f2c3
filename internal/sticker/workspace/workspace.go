// Package workspace hands out scoped temporary files for external transcoders.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/feral-file/ff-sticker/internal/adapter"
	"github.com/feral-file/ff-sticker/internal/logger"
)

// filePrefix marks files owned by the workspace so the sweeper leaves anything else alone
const filePrefix = "sticker-"

// Manager owns a temp directory and the files created in it
type Manager struct {
	fs    adapter.FileSystem
	clock adapter.Clock
	dir   string
}

// NewManager creates the workspace directory if needed
func NewManager(fs adapter.FileSystem, clock adapter.Clock, dir string) (*Manager, error) {
	if dir == "" {
		dir = filepath.Join(fs.TempDir(), "ff-sticker")
	}
	if err := fs.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create workspace directory: %w", err)
	}

	return &Manager{
		fs:    fs,
		clock: clock,
		dir:   dir,
	}, nil
}

// Dir returns the workspace directory
func (m *Manager) Dir() string {
	return m.dir
}

// Acquire opens a scope. Every path handed out by the scope is removed by Release.
func (m *Manager) Acquire() *Scope {
	return &Scope{manager: m}
}

// newName returns a fresh file name derived from the current millisecond timestamp
func (m *Manager) newName(ext string) string {
	id := ulid.MustNew(ulid.Timestamp(m.clock.Now()), ulid.DefaultEntropy())
	name := filePrefix + strings.ToLower(id.String())
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	return filepath.Join(m.dir, name)
}

// Sweep removes workspace files older than maxAge and returns how many were removed
func (m *Manager) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	entries, err := m.fs.ReadDir(m.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list workspace directory: %w", err)
	}

	cutoff := m.clock.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}
		if entry.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(m.dir, entry.Name())
		if err := m.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.WarnCtx(ctx, "Failed to remove stale workspace file", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.InfoCtx(ctx, "Swept stale workspace files", zap.Int("removed", removed), zap.Duration("maxAge", maxAge))
	}
	return removed, nil
}

// RunSweeper calls Sweep every interval until ctx is done
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration, maxAge time.Duration) {
	logger.InfoCtx(ctx, "Starting workspace sweeper",
		zap.String("dir", m.dir),
		zap.Duration("interval", interval),
		zap.Duration("maxAge", maxAge),
	)

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(interval):
			if _, err := m.Sweep(ctx, maxAge); err != nil {
				logger.WarnCtx(ctx, "Workspace sweep failed", zap.Error(err))
			}
		}
	}
}

// Scope tracks temp paths for a single transcode
type Scope struct {
	manager *Manager

	mu       sync.Mutex
	paths    []string
	released bool
}

// Path reserves a new temp path with the given extension without creating the file
func (s *Scope) Path(ext string) string {
	path := s.manager.newName(ext)

	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()

	return path
}

// Write stores data in a new temp file and returns its path
func (s *Scope) Write(ext string, data []byte) (string, error) {
	path := s.Path(ext)
	if err := s.manager.fs.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, nil
}

// Release removes every path reserved by the scope. It is safe to call more than once.
func (s *Scope) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return
	}
	s.released = true

	for _, path := range s.paths {
		if err := s.manager.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to remove temp file", zap.String("path", path), zap.Error(err))
		}
	}
	s.paths = nil
}
