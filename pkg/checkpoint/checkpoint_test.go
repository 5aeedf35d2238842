package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"vodarchiver/pkg/logger"
)

func storePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "processed_vods.json")
}

func TestNewStoreMissingFile(t *testing.T) {
	store, err := NewStore(storePath(t), logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	if store.Count() != 0 {
		t.Errorf("Expected empty store, got %d entries", store.Count())
	}
	if store.IsProcessed("12345") {
		t.Error("Expected no VOD to be processed in an empty store")
	}
}

func TestRecordAndReload(t *testing.T) {
	path := storePath(t)
	store, err := NewStore(path, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	streamed := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)
	if err := store.Record("111222333", "yt_abc123", "Friday Night Stream", streamed); err != nil {
		t.Fatalf("Failed to record: %v", err)
	}

	if !store.IsProcessed("111222333") {
		t.Error("Expected VOD to be processed after Record")
	}

	// Reload from disk and verify everything survived the round trip.
	reloaded, err := NewStore(path, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to reload store: %v", err)
	}

	entry := reloaded.Entry("111222333")
	if entry == nil {
		t.Fatal("Expected entry after reload, got nil")
	}
	if entry.VODID != "111222333" {
		t.Errorf("Expected VOD ID 111222333, got %s", entry.VODID)
	}
	if entry.YouTubeID == nil || *entry.YouTubeID != "yt_abc123" {
		t.Errorf("Expected YouTube ID yt_abc123, got %v", entry.YouTubeID)
	}
	if entry.Title != "Friday Night Stream" {
		t.Errorf("Expected title to survive reload, got %q", entry.Title)
	}
	if entry.StreamedAt == nil || !entry.StreamedAt.Equal(streamed) {
		t.Errorf("Expected streamed_at %v, got %v", streamed, entry.StreamedAt)
	}
	if entry.Legacy() {
		t.Error("Entry with a YouTube ID must not be legacy")
	}
}

func TestLegacyMigration(t *testing.T) {
	path := storePath(t)
	if err := os.WriteFile(path, []byte(`["111", "222"]`), 0644); err != nil {
		t.Fatalf("Failed to write legacy file: %v", err)
	}

	store, err := NewStore(path, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to load legacy store: %v", err)
	}

	if store.Count() != 2 {
		t.Fatalf("Expected 2 migrated entries, got %d", store.Count())
	}
	if !store.IsProcessed("111") || !store.IsProcessed("222") {
		t.Error("Expected migrated IDs to be processed")
	}
	if store.LegacyCount() != 2 {
		t.Errorf("Expected 2 legacy entries, got %d", store.LegacyCount())
	}

	entry := store.Entry("111")
	if entry == nil {
		t.Fatal("Expected migrated entry, got nil")
	}
	if !entry.Legacy() {
		t.Error("Migrated entry must be legacy")
	}
	if entry.YouTubeID != nil {
		t.Errorf("Expected nil YouTube ID for migrated entry, got %v", *entry.YouTubeID)
	}

	// Migration rewrites the file in the keyed format immediately.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read migrated file: %v", err)
	}
	var keyed map[string]*Entry
	if err := json.Unmarshal(data, &keyed); err != nil {
		t.Fatalf("Migrated file is not in keyed format: %v", err)
	}
	if len(keyed) != 2 {
		t.Errorf("Expected 2 keyed entries on disk, got %d", len(keyed))
	}

	// Loading a second time must not run migration again.
	again, err := NewStore(path, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to reload migrated store: %v", err)
	}
	if again.Count() != 2 || again.LegacyCount() != 2 {
		t.Errorf("Expected migration to be stable across reloads, got count=%d legacy=%d",
			again.Count(), again.LegacyCount())
	}
}

func TestCorruptFileStartsEmpty(t *testing.T) {
	path := storePath(t)
	if err := os.WriteFile(path, []byte(`{"broken`), 0644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}

	log := logger.NewTestLogger()
	store, err := NewStore(path, log)
	if err != nil {
		t.Fatalf("Corrupt file must not fail startup: %v", err)
	}

	if store.Count() != 0 {
		t.Errorf("Expected empty store after corrupt load, got %d entries", store.Count())
	}
	if len(log.MessagesByLevel("ERROR")) == 0 {
		t.Error("Expected corrupt checkpoint to be logged at error level")
	}
}

func TestRecordUpsertsExistingEntry(t *testing.T) {
	path := storePath(t)
	if err := os.WriteFile(path, []byte(`["999"]`), 0644); err != nil {
		t.Fatalf("Failed to write legacy file: %v", err)
	}

	store, err := NewStore(path, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to load store: %v", err)
	}

	// Re-recording a legacy entry fills in the destination.
	if err := store.Record("999", "yt_xyz", "Recovered Stream", time.Now()); err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}

	if store.Count() != 1 {
		t.Errorf("Expected upsert to keep a single entry, got %d", store.Count())
	}
	if store.LegacyCount() != 0 {
		t.Errorf("Expected no legacy entries after upsert, got %d", store.LegacyCount())
	}
}

func TestRecordRollsBackOnPersistFailure(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "processed_vods.json"), logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	// Removing the directory makes every persist attempt fail.
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("Failed to remove dir: %v", err)
	}

	if err := store.Record("555", "yt_fail", "Doomed", time.Now()); err == nil {
		t.Fatal("Expected Record to fail when persist cannot write")
	}

	if store.IsProcessed("555") {
		t.Error("Failed Record must not leave the entry in memory")
	}
}

func TestEntriesNewestFirst(t *testing.T) {
	store, err := NewStore(storePath(t), logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	for _, id := range []string{"1", "2", "3"} {
		if err := store.Record(id, "yt_"+id, "", time.Now()); err != nil {
			t.Fatalf("Failed to record %s: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	entries := store.Entries()
	if len(entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(entries))
	}
	if entries[0].VODID != "3" {
		t.Errorf("Expected newest entry first, got %s", entries[0].VODID)
	}
}
