package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"log/slog"

	"golang.org/x/sys/unix"

	"cardcast/internal/logging"
)

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Store answers cache-hit questions and cleans up superseded artifacts for a
// single cache directory.
type Store struct {
	dir    string
	force  bool
	logger *slog.Logger
	statfs statfsFunc
}

// NewStore builds a store rooted at dir. When force is true every lookup
// reports a miss, which regenerates the full artifact set without touching
// the hashing scheme.
func NewStore(dir string, force bool, logger *slog.Logger) *Store {
	store := &Store{
		dir:    strings.TrimSpace(dir),
		force:  force,
		statfs: realStatfs,
	}
	store.logger = logging.NewComponentLogger(logger, "cache")
	return store
}

// Dir returns the cache directory backing the store.
func (s *Store) Dir() string {
	if s == nil {
		return ""
	}
	return s.dir
}

// IsCached reports whether path already holds a valid artifact. Absence is the
// normal "needs rebuild" signal, never an error.
func (s *Store) IsCached(path string) bool {
	if s == nil || s.force {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// RemoveStale deletes every file in the store's directory whose name starts
// with prefix and ends with "."+ext, except the paths listed in keep. Cleanup
// is a best-effort optimization: deletion failures are deliberately discarded
// after a debug log, never escalated.
func (s *Store) RemoveStale(prefix, ext string, keep ...string) {
	if s == nil || strings.TrimSpace(prefix) == "" {
		return
	}
	keepSet := make(map[string]struct{}, len(keep))
	for _, path := range keep {
		keepSet[filepath.Base(path)] = struct{}{}
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	suffix := "." + strings.TrimPrefix(ext, ".")
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, suffix) {
			continue
		}
		if _, ok := keepSet[name]; ok {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("stale artifact removal failed",
				logging.String("artifact", name),
				logging.Error(err),
			)
		}
	}
}

// Stats describes current cache usage.
type Stats struct {
	Entries      int     `json:"entries"`
	TotalBytes   int64   `json:"total_bytes"`
	FreeBytes    uint64  `json:"free_bytes"`
	TotalFSBytes uint64  `json:"total_fs_bytes"`
	FreeRatio    float64 `json:"free_ratio"`
	OldestEntry  string  `json:"oldest_entry"`
	NewestEntry  string  `json:"newest_entry"`
}

// Stats scans the cache directory and reports entry counts alongside
// filesystem free-space information.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	if s == nil {
		return stats, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return stats, nil
		}
		return stats, fmt.Errorf("cache: list %s: %w", s.dir, err)
	}
	type fileInfo struct {
		name    string
		modTime time.Time
	}
	files := make([]fileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Entries++
		stats.TotalBytes += info.Size()
		files = append(files, fileInfo{name: entry.Name(), modTime: info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	if len(files) > 0 {
		stats.OldestEntry = files[0].name
		stats.NewestEntry = files[len(files)-1].name
	}
	total, free, err := s.statfs(s.dir)
	if err != nil {
		return stats, fmt.Errorf("cache: statfs %s: %w", s.dir, err)
	}
	stats.TotalFSBytes = total
	stats.FreeBytes = free
	if total > 0 {
		stats.FreeRatio = float64(free) / float64(total)
	} else {
		stats.FreeRatio = 1.0
	}
	return stats, nil
}

// Clear removes every regular file in the cache directory. Unlike stale
// cleanup this is an explicit operator action, so failures are reported.
func (s *Store) Clear() (int, error) {
	if s == nil {
		return 0, nil
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache: list %s: %w", s.dir, err)
	}
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			return removed, fmt.Errorf("cache: remove %s: %w", entry.Name(), err)
		}
		removed++
	}
	return removed, nil
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
