// Package settings persists the user-managed folder lists: the watched
// folders scanned for new files and the destination folders the oracle
// may move files into. The store is a single JSON file written
// atomically.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"curator/internal/logging"
)

// Settings is the persisted document.
type Settings struct {
	WatchedFolders     []string `json:"watched_folders"`
	DestinationFolders []string `json:"destination_folders"`
}

// Store provides thread-safe access to the settings file.
type Store struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
	data   Settings
}

// NewStore creates a store backed by path. The file is created lazily on
// the first mutation; a missing file means empty lists.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("settings path cannot be empty")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Store{
		path:   path,
		logger: logging.NewComponentLogger(logger, "settings"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// WatchedFolders returns the watched folder list, sorted.
func (s *Store) WatchedFolders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.data.WatchedFolders...)
}

// DestinationFolders returns the destination folder list, sorted.
func (s *Store) DestinationFolders() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.data.DestinationFolders...)
}

// AddWatched adds dir to the watched folder list. Adding a folder twice
// is a no-op.
func (s *Store) AddWatched(dir string) error {
	return s.add(dir, func(d *Settings) *[]string { return &d.WatchedFolders })
}

// RemoveWatched removes dir from the watched folder list. Removing an
// absent folder is a no-op.
func (s *Store) RemoveWatched(dir string) error {
	return s.remove(dir, func(d *Settings) *[]string { return &d.WatchedFolders })
}

// AddDestination adds dir to the destination folder list.
func (s *Store) AddDestination(dir string) error {
	return s.add(dir, func(d *Settings) *[]string { return &d.DestinationFolders })
}

// RemoveDestination removes dir from the destination folder list.
func (s *Store) RemoveDestination(dir string) error {
	return s.remove(dir, func(d *Settings) *[]string { return &d.DestinationFolders })
}

func (s *Store) add(dir string, list func(*Settings) *[]string) error {
	cleaned, err := normalizeDir(dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := list(&s.data)
	for _, existing := range *target {
		if existing == cleaned {
			return nil
		}
	}
	*target = append(*target, cleaned)
	sort.Strings(*target)
	return s.save()
}

func (s *Store) remove(dir string, list func(*Settings) *[]string) error {
	cleaned, err := normalizeDir(dir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	target := list(&s.data)
	kept := (*target)[:0]
	removed := false
	for _, existing := range *target {
		if existing == cleaned {
			removed = true
			continue
		}
		kept = append(kept, existing)
	}
	if !removed {
		return nil
	}
	*target = kept
	return s.save()
}

func normalizeDir(dir string) (string, error) {
	cleaned := strings.TrimSpace(dir)
	if cleaned == "" {
		return "", errors.New("folder path cannot be empty")
	}
	absolute, err := filepath.Abs(filepath.Clean(cleaned))
	if err != nil {
		return "", fmt.Errorf("resolve folder path: %w", err)
	}
	return absolute, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil // fresh start
		}
		return fmt.Errorf("read settings file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &s.data); err != nil {
		return fmt.Errorf("parse settings file: %w", err)
	}
	sort.Strings(s.data.WatchedFolders)
	sort.Strings(s.data.DestinationFolders)

	s.logger.Debug("loaded settings",
		logging.Int("watched_count", len(s.data.WatchedFolders)),
		logging.Int("destination_count", len(s.data.DestinationFolders)),
		logging.String("path", s.path))
	return nil
}

// save writes the settings to disk atomically.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath) // cleanup on failure
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
