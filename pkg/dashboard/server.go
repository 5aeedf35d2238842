package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"vodarchiver/pkg/archiver"
	"vodarchiver/pkg/checkpoint"
	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/storage"
)

const defaultLogLines = 100

// CycleSource reports the controller's most recent cycle.
type CycleSource interface {
	LastCycle() archiver.CycleInfo
}

// Config carries what the dashboard reports and where the trigger markers
// go.
type Config struct {
	Channel      string
	PollInterval time.Duration
	LogFile      string
	// MarkerDir is where reauth/restart request markers are written for the
	// hosting supervisor to act on.
	MarkerDir string
}

// Server exposes the read-only status endpoint beside the poll loop. It
// never mutates archiver state; the two trigger endpoints only leave marker
// files for the supervisor.
type Server struct {
	mux       *http.ServeMux
	store     *checkpoint.Store
	artifacts *storage.Manager
	cycles    CycleSource
	cfg       Config
	logger    logger.Logger
	started   time.Time
}

// New builds the dashboard server.
func New(store *checkpoint.Store, artifacts *storage.Manager, cycles CycleSource,
	cfg Config, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	s := &Server{
		mux:       http.NewServeMux(),
		store:     store,
		artifacts: artifacts,
		cycles:    cycles,
		cfg:       cfg,
		logger:    log,
		started:   time.Now(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/log", s.handleLog)
	s.mux.HandleFunc("POST /api/reauth", s.handleTrigger("reauth"))
	s.mux.HandleFunc("POST /api/restart", s.handleTrigger("restart"))
}

// ServeHTTP implements http.Handler, adding the headers the original
// dashboard relied on: permissive CORS for local use and no caching so the
// log tail is always fresh.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe blocks until the context is cancelled or the listener
// fails.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.WithField("port", port).Info("dashboard listening")
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

type statusResponse struct {
	Running       bool               `json:"running"`
	Channel       string             `json:"channel"`
	UptimeSeconds int64              `json:"uptime_seconds"`
	PollInterval  string             `json:"poll_interval"`
	LastCycle     archiver.CycleInfo `json:"last_cycle"`
	ArchivedCount int                `json:"archived_count"`
	LegacyCount   int                `json:"legacy_count"`
	Disk          storage.DiskUsage  `json:"disk"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	// Disk stats are best effort; the dashboard stays up even when the
	// download volume is gone.
	usage, err := s.artifacts.Usage()
	if err != nil {
		s.logger.WithError(err).Warn("failed to read disk usage")
	}

	resp := statusResponse{
		Running:       true,
		Channel:       s.cfg.Channel,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		PollInterval:  s.cfg.PollInterval.String(),
		ArchivedCount: s.store.Count(),
		LegacyCount:   s.store.LegacyCount(),
		Disk:          usage,
	}
	if s.cycles != nil {
		resp.LastCycle = s.cycles.LastCycle()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	lines := defaultLogLines
	if v := r.URL.Query().Get("lines"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid lines parameter", http.StatusBadRequest)
			return
		}
		if n > 1000 {
			n = 1000
		}
		lines = n
	}

	tail, err := tailFile(s.cfg.LogFile, lines)
	if err != nil {
		http.Error(w, "log unavailable: "+err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(tail))
}

// handleTrigger leaves a marker file for the hosting supervisor. The
// archiver process itself never re-execs or re-runs OAuth; both are
// supervisor concerns.
func (s *Server) handleTrigger(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		marker := filepath.Join(s.cfg.MarkerDir, action+".requested")
		content := time.Now().Format(time.RFC3339) + "\n"
		if err := os.WriteFile(marker, []byte(content), 0644); err != nil {
			http.Error(w, "failed to write marker: "+err.Error(), http.StatusInternalServerError)
			return
		}

		s.logger.WithField("action", action).Info("supervisor action requested")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"status": "requested",
			"action": action,
			"marker": marker,
		})
	}
}

// tailFile returns the last n lines of a file. The whole file is read; the
// operational log is rotated by the operator and stays small.
func tailFile(path string, n int) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n") + "\n", nil
}
