package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/retry"
)

// Entry records that a single VOD has been handled. YouTubeID is nil for
// entries migrated from the legacy bare-ID format, where the destination
// video was never recorded.
type Entry struct {
	VODID      string     `json:"vod_id"`
	YouTubeID  *string    `json:"youtube_id"`
	Title      string     `json:"title,omitempty"`
	StreamedAt *time.Time `json:"streamed_at,omitempty"`
	ArchivedAt time.Time  `json:"archived_at"`
}

// Legacy reports whether this entry came from the old bare-ID list and
// therefore has no destination video recorded.
func (e *Entry) Legacy() bool {
	return e.YouTubeID == nil
}

// Store is the sole source of truth for which VODs have already been
// archived. The in-memory map and the persisted snapshot are written back
// after every successful mutation, so a crash mid-cycle loses at most the
// single in-flight item.
type Store struct {
	path    string
	entries map[string]*Entry
	logger  logger.Logger
	mu      sync.RWMutex
}

// NewStore creates a store backed by the given snapshot file and loads it.
// A missing or corrupt snapshot yields an empty store: the archiver prefers
// staying live (and at worst re-publishing) over refusing to start.
func NewStore(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	s := &Store{
		path:    path,
		entries: make(map[string]*Entry),
		logger:  log,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// load reads the snapshot, migrating the legacy bare-array format in place.
// Migration happens before any IsProcessed query so legacy items are never
// re-downloaded.
func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.InfoWithFields("no checkpoint file, starting empty", map[string]interface{}{
				"path": s.path,
			})
			return nil
		}
		return fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var entries map[string]*Entry
	if err := json.Unmarshal(data, &entries); err == nil {
		for id, e := range entries {
			e.VODID = id
			s.entries[id] = e
		}
		s.logger.InfoWithFields("checkpoint loaded", map[string]interface{}{
			"path":    s.path,
			"entries": len(s.entries),
		})
		return nil
	}

	// Not a keyed map; try the legacy bare list of IDs.
	var legacyIDs []string
	if err := json.Unmarshal(data, &legacyIDs); err != nil {
		s.logger.ErrorWithFields("checkpoint file is corrupt, starting empty", map[string]interface{}{
			"path": s.path,
		})
		return nil
	}

	return s.migrateLegacy(legacyIDs)
}

// migrateLegacy converts a bare ID list into keyed entries and persists the
// new format immediately, exactly once.
func (s *Store) migrateLegacy(ids []string) error {
	now := time.Now()
	for _, id := range ids {
		if id == "" {
			continue
		}
		s.entries[id] = &Entry{
			VODID:      id,
			YouTubeID:  nil,
			ArchivedAt: now,
		}
	}

	if err := s.persist(); err != nil {
		return fmt.Errorf("failed to persist migrated checkpoint: %w", err)
	}

	s.logger.InfoWithFields("migrated legacy checkpoint format", map[string]interface{}{
		"path":    s.path,
		"entries": len(s.entries),
	})

	return nil
}

// IsProcessed reports whether the VOD has already been handled.
func (s *Store) IsProcessed(vodID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[vodID]
	return ok
}

// Entry returns the recorded entry for a VOD, or nil.
func (s *Store) Entry(vodID string) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.entries[vodID]; ok {
		copied := *e
		return &copied
	}
	return nil
}

// Record upserts an entry and persists the full snapshot before returning.
// The write is retried; if it ultimately fails the error is returned and the
// caller must treat the item as not checkpointed. Losing the write re-triggers
// a duplicate publish next poll, which is the accepted failure mode.
func (s *Store) Record(vodID, youtubeID, title string, streamedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &Entry{
		VODID:      vodID,
		Title:      title,
		ArchivedAt: time.Now(),
	}
	if youtubeID != "" {
		entry.YouTubeID = &youtubeID
	}
	if !streamedAt.IsZero() {
		t := streamedAt
		entry.StreamedAt = &t
	}
	s.entries[vodID] = entry

	err := retry.Do(s.persist, &retry.Config{
		MaxAttempts: 3,
		Backoff:     retry.NewLinearBackoff(250*time.Millisecond, time.Second),
		RetryIf:     func(error) bool { return true },
		Logger:      s.logger,
	})
	if err != nil {
		// Roll the in-memory map back so memory and disk agree.
		delete(s.entries, vodID)
		return fmt.Errorf("failed to persist checkpoint: %w", err)
	}

	s.logger.InfoWithFields("checkpoint recorded", map[string]interface{}{
		"vod_id":     vodID,
		"youtube_id": youtubeID,
	})

	return nil
}

// persist writes the snapshot atomically: temp file, fsync, rename. Callers
// hold the write lock.
func (s *Store) persist() error {
	tempPath := s.path + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(s.entries); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, s.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	return nil
}

// Count returns the number of checkpointed VODs.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// LegacyCount returns how many entries predate destination tracking.
func (s *Store) LegacyCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if e.Legacy() {
			n++
		}
	}
	return n
}

// Entries returns a snapshot of all entries, newest first.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ArchivedAt.After(out[j].ArchivedAt)
	})
	return out
}

// Path returns the snapshot file path.
func (s *Store) Path() string {
	return s.path
}
