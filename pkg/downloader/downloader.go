package downloader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	errs "vodarchiver/pkg/errors"
	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/models"
	"vodarchiver/pkg/storage"
)

// Long streams can run large; reserve room for the worst case before
// starting a fetch.
const estimatedMaxVODSize = 10 << 30

// ProgressFunc receives transfer snapshots during a fetch.
type ProgressFunc func(models.Progress)

// Downloader fetches VODs to local disk by delegating to the yt-dlp binary.
type Downloader struct {
	binary     string
	storage    *storage.Manager
	channel    string
	minFreeGB  float64
	logger     logger.Logger
	onProgress ProgressFunc
}

// New creates a Downloader writing into the storage manager's directory.
// The channel name feeds the artifact naming scheme.
func New(st *storage.Manager, channel string, minFreeGB float64, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Downloader{
		binary:    "yt-dlp",
		storage:   st,
		channel:   channel,
		minFreeGB: minFreeGB,
		logger:    log,
	}
}

// SetBinary overrides the yt-dlp binary path. Used by tests.
func (d *Downloader) SetBinary(path string) {
	d.binary = path
}

// OnProgress registers a callback for transfer snapshots.
func (d *Downloader) OnProgress(fn ProgressFunc) {
	d.onProgress = fn
}

// outputBase builds the artifact name stem: "<vodID>_<channel> VOD - <date>"
// when the stream date is known, else the sanitized title.
func (d *Downloader) outputBase(vod models.VOD) string {
	if d.channel != "" && !vod.CreatedAt.IsZero() {
		return fmt.Sprintf("%s_%s VOD - %s", vod.ID, d.channel, vod.CreatedAt.Format("01-02-2006"))
	}
	return fmt.Sprintf("%s_%s", vod.ID, storage.SanitizeFilename(vod.Title))
}

// Download fetches a single VOD and returns an artifact descriptor. On
// failure it removes partial files (best effort) and returns a typed error;
// the caller retries the whole item next cycle since no checkpoint exists.
func (d *Downloader) Download(ctx context.Context, vod models.VOD) (models.Artifact, error) {
	if err := d.storage.CheckSpace(estimatedMaxVODSize, d.minFreeGB); err != nil {
		return models.Artifact{}, err
	}

	template := filepath.Join(d.storage.Dir(), d.outputBase(vod)+".%(ext)s")

	d.logger.InfoWithFields("starting download", map[string]interface{}{
		"vod_id": vod.ID,
		"title":  vod.Title,
		"url":    vod.URL,
	})

	cmd := exec.CommandContext(ctx, d.binary,
		"-f", "best",
		"--no-playlist",
		"--no-warnings",
		"--newline",
		"-o", template,
		vod.URL,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return models.Artifact{}, errs.Wrap(errs.ErrorTypeUnknown, err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return models.Artifact{}, errs.Wrap(errs.ErrorTypeFile,
			fmt.Errorf("failed to start %s: %w", d.binary, err))
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if p, ok := parseProgressLine(scanner.Text()); ok && d.onProgress != nil {
			d.onProgress(p)
		}
	}

	if err := cmd.Wait(); err != nil {
		d.cleanupPartials(vod.ID)
		return models.Artifact{}, errs.Wrap(errs.ErrorTypeNetwork,
			fmt.Errorf("%s failed: %w: %s", d.binary, err, stderr.String()))
	}

	path, ok := d.storage.FindExisting(vod.ID)
	if !ok {
		d.cleanupPartials(vod.ID)
		return models.Artifact{}, errs.New(errs.ErrorTypeFile,
			"download finished but no artifact found")
	}

	info, err := os.Stat(path)
	if err != nil {
		return models.Artifact{}, errs.Wrap(errs.ErrorTypeFile, err)
	}

	d.logger.InfoWithFields("download complete", map[string]interface{}{
		"vod_id": vod.ID,
		"path":   path,
		"size":   info.Size(),
	})

	return models.Artifact{VODID: vod.ID, Path: path, Size: info.Size()}, nil
}

// cleanupPartials removes leftover temp files; failure to clean is logged
// and otherwise ignored.
func (d *Downloader) cleanupPartials(vodID string) {
	if err := d.storage.RemovePartials(vodID); err != nil {
		d.logger.WarnWithFields("failed to clean partial files", map[string]interface{}{
			"vod_id": vodID,
			"error":  err.Error(),
		})
	}
}
