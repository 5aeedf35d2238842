package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"vodarchiver/pkg/archiver"
	"vodarchiver/pkg/checkpoint"
	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/storage"
)

type fakeCycles struct {
	info archiver.CycleInfo
}

func (f *fakeCycles) LastCycle() archiver.CycleInfo { return f.info }

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()

	store, err := checkpoint.NewStore(filepath.Join(dir, "processed.json"), logger.NewTestLogger())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Record("1", "yt_1", "done", time.Now()); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	artifacts, err := storage.NewManager(filepath.Join(dir, "downloads"))
	if err != nil {
		t.Fatalf("Failed to create storage manager: %v", err)
	}

	logFile := filepath.Join(dir, "vodarchiver.log")

	srv := New(store, artifacts, &fakeCycles{info: archiver.CycleInfo{
		At:        time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
		Completed: 2,
	}}, Config{
		Channel:      "teststreamer",
		PollInterval: 30 * time.Minute,
		LogFile:      logFile,
		MarkerDir:    dir,
	}, logger.NewTestLogger())

	return srv, dir
}

func TestStatusEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Expected permissive CORS header, got %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); !strings.Contains(got, "no-cache") {
		t.Errorf("Expected no-cache header, got %q", got)
	}

	var resp statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("Failed to decode status: %v", err)
	}

	if !resp.Running {
		t.Error("Expected running=true")
	}
	if resp.Channel != "teststreamer" {
		t.Errorf("Expected channel teststreamer, got %s", resp.Channel)
	}
	if resp.ArchivedCount != 1 {
		t.Errorf("Expected 1 archived, got %d", resp.ArchivedCount)
	}
	if resp.LastCycle.Completed != 2 {
		t.Errorf("Expected last cycle completions from the controller, got %d", resp.LastCycle.Completed)
	}
	if resp.PollInterval != "30m0s" {
		t.Errorf("Expected 30m0s poll interval, got %s", resp.PollInterval)
	}
}

func TestStatusEndpointMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405 for POST /api/status, got %d", rec.Code)
	}
}

func TestLogEndpoint(t *testing.T) {
	srv, dir := newTestServer(t)

	var lines []string
	for i := 0; i < 150; i++ {
		lines = append(lines, time.Now().Format(time.RFC3339)+" line")
	}
	logFile := filepath.Join(dir, "vodarchiver.log")
	if err := os.WriteFile(logFile, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		t.Fatalf("Failed to write log: %v", err)
	}

	t.Run("default tail", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/log", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", rec.Code)
		}
		got := strings.Count(strings.TrimRight(rec.Body.String(), "\n"), "\n") + 1
		if got != 100 {
			t.Errorf("Expected 100 lines by default, got %d", got)
		}
	})

	t.Run("custom line count", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/log?lines=10", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		got := strings.Count(strings.TrimRight(rec.Body.String(), "\n"), "\n") + 1
		if got != 10 {
			t.Errorf("Expected 10 lines, got %d", got)
		}
	})

	t.Run("invalid line count", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/log?lines=-5", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})

	t.Run("missing log file", func(t *testing.T) {
		if err := os.Remove(logFile); err != nil {
			t.Fatalf("Failed to remove log: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/log", nil)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for missing log, got %d", rec.Code)
		}
	})
}

func TestTriggerEndpoints(t *testing.T) {
	for _, action := range []string{"reauth", "restart"} {
		t.Run(action, func(t *testing.T) {
			srv, dir := newTestServer(t)

			req := httptest.NewRequest(http.MethodPost, "/api/"+action, nil)
			rec := httptest.NewRecorder()
			srv.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}

			marker := filepath.Join(dir, action+".requested")
			if _, err := os.Stat(marker); err != nil {
				t.Errorf("Expected marker file %s: %v", marker, err)
			}

			var resp map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if resp["status"] != "requested" || resp["action"] != action {
				t.Errorf("Unexpected response: %v", resp)
			}
		})
	}
}
