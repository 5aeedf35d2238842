package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/sys/unix"

	errs "vodarchiver/pkg/errors"
)

// mediaExts are the file types the resume check recognizes as a finished
// download.
var mediaExts = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".webm": true,
	".ts":   true,
	".flv":  true,
}

// partialExts are leftovers from an interrupted fetch.
var partialExts = map[string]bool{
	".part": true,
	".tmp":  true,
	".ytdl": true,
}

var (
	invalidFilenameChars = regexp.MustCompile(`[<>:"/\\|?*]`)
	repeatedSpaces       = regexp.MustCompile(`\s+`)
)

// DiskUsage reports the filesystem holding the download directory.
type DiskUsage struct {
	Free  uint64 `json:"free"`
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
}

// Manager owns the local download directory: resume detection, partial
// cleanup, and disk space accounting.
type Manager struct {
	dir string
}

// NewManager creates the download directory if needed.
func NewManager(dir string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the download directory path.
func (m *Manager) Dir() string {
	return m.dir
}

// FindExisting looks for a finished artifact for the given VOD: a file named
// "<vodID>_*" with a recognized media extension and non-zero size. This is
// the resume check; a hit means the fetch stage is skipped entirely.
func (m *Manager) FindExisting(vodID string) (string, bool) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return "", false
	}

	prefix := vodID + "_"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if !mediaExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		return filepath.Join(m.dir, entry.Name()), true
	}

	return "", false
}

// RemovePartials deletes leftover partial files for a VOD. Best effort: the
// first error is returned but every candidate is attempted.
func (m *Manager) RemovePartials(vodID string) error {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("failed to read download directory: %w", err)
	}

	var firstErr error
	prefix := vodID + "_"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		name := entry.Name()
		if !partialExts[strings.ToLower(filepath.Ext(name))] && !strings.Contains(name, ".part") {
			continue
		}
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

// Remove deletes an artifact.
func (m *Manager) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		return errs.Wrap(errs.ErrorTypeFile, err)
	}
	return nil
}

// SanitizeFilename strips characters that are invalid in filenames, collapses
// whitespace, and caps the length.
func SanitizeFilename(title string) string {
	s := invalidFilenameChars.ReplaceAllString(title, "")
	s = repeatedSpaces.ReplaceAllString(s, " ")
	if len(s) > 200 {
		s = s[:200]
	}
	return strings.TrimSpace(s)
}

// Usage returns free/used/total bytes for the filesystem holding the
// download directory.
func (m *Manager) Usage() (DiskUsage, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(m.dir, &stat); err != nil {
		return DiskUsage{}, errs.Wrap(errs.ErrorTypeDisk, err)
	}

	bs := uint64(stat.Bsize)
	total := stat.Blocks * bs
	free := stat.Bavail * bs
	return DiskUsage{
		Free:  free,
		Used:  total - free,
		Total: total,
	}, nil
}

// CheckSpace verifies there is room for an estimated download on top of the
// configured free-space floor.
func (m *Manager) CheckSpace(estimatedSize int64, minFreeGB float64) error {
	usage, err := m.Usage()
	if err != nil {
		return err
	}

	minFree := uint64(minFreeGB * 1024 * 1024 * 1024)
	freeGB := float64(usage.Free) / (1 << 30)

	if usage.Free < minFree {
		return errs.New(errs.ErrorTypeDisk,
			fmt.Sprintf("insufficient disk space: %.2fGB free (need at least %.1fGB)", freeGB, minFreeGB))
	}
	if estimatedSize > 0 && usage.Free < uint64(estimatedSize)+minFree {
		neededGB := float64(uint64(estimatedSize)+minFree) / (1 << 30)
		return errs.New(errs.ErrorTypeDisk,
			fmt.Sprintf("insufficient disk space: %.2fGB free (need %.2fGB)", freeGB, neededGB))
	}

	return nil
}
