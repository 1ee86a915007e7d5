package cafe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Service is the read-only data access layer. The current snapshot can be
// swapped at any time by Reload; readers always see a complete snapshot.
type Service struct {
	mu   sync.RWMutex
	data *Data
	path string
	log  *slog.Logger
}

// NewService serves a fixed snapshot. Reload and Watch are no-ops without a path.
func NewService(data *Data, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{data: data, log: log}
}

// Open loads the data file at path, or the built-in sample when path is empty.
func Open(path string, log *slog.Logger) (*Service, error) {
	if path == "" {
		return NewService(Default(), log), nil
	}
	d, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	s := NewService(d, log)
	s.path = path
	return s, nil
}

func loadFile(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cafe: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Reload re-reads the data file. On error the current snapshot is kept.
func (s *Service) Reload() error {
	if s.path == "" {
		return nil
	}
	d, err := loadFile(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
	return nil
}

// Watch reloads the data file whenever it changes, until ctx is done.
// The parent directory is watched so editors that replace the file by
// rename are handled.
func (s *Service) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cafe: create watcher: %w", err)
	}
	defer w.Close()

	target := filepath.Clean(s.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("cafe: watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if err := s.Reload(); err != nil {
				s.log.Warn("cafe: reload failed, keeping previous data",
					slog.String("path", s.path),
					slog.String("error", err.Error()),
				)
				continue
			}
			s.log.Info("cafe: data reloaded", slog.String("path", s.path))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("cafe: watcher error", slog.String("error", err.Error()))
		}
	}
}

func (s *Service) snapshot() *Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data
}

// Info returns general cafe information.
func (s *Service) Info() Info { return s.snapshot().Info }

// Menu returns the full menu.
func (s *Service) Menu() Menu { return s.snapshot().Menu }

// AvailableMenu returns the menu filtered to available items.
func (s *Service) AvailableMenu() Menu { return s.snapshot().Menu.Available() }

// BusinessHours returns the weekly schedule.
func (s *Service) BusinessHours() BusinessHours { return s.snapshot().BusinessHours }

// Facilities returns facility information.
func (s *Service) Facilities() Facilities { return s.snapshot().Facilities }
