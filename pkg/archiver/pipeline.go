package archiver

import (
	"context"
	"fmt"

	"vodarchiver/pkg/checkpoint"
	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/models"
	"vodarchiver/pkg/storage"
)

// Stage identifies where in the pipeline an item was when it failed.
type Stage string

const (
	StageFetch      Stage = "fetch"
	StagePublish    Stage = "publish"
	StageCheckpoint Stage = "checkpoint"
)

// State is the terminal state of one pipeline pass.
type State string

const (
	// StateArchived means the item was published and checkpointed.
	StateArchived State = "archived"
	// StateFailed means the item was abandoned for this cycle; with no
	// checkpoint written it is eligible for retry next poll.
	StateFailed State = "failed"
)

// Outcome is the explicit result of one pipeline pass. Failures are values,
// not exceptions caught at arbitrary depth.
type Outcome struct {
	State     State
	Stage     Stage
	YouTubeID string
	// Resumed is set when an existing local artifact made the fetch
	// unnecessary.
	Resumed bool
	Err     error
}

// Fetcher is the media-fetch collaborator.
type Fetcher interface {
	Download(ctx context.Context, vod models.VOD) (models.Artifact, error)
}

// Publisher is the publish collaborator.
type Publisher interface {
	Authenticate(ctx context.Context) error
	Authenticated() bool
	Upload(ctx context.Context, req models.UploadRequest) (string, error)
	EnsurePlaylist(ctx context.Context, name string) (string, error)
	AddToPlaylist(ctx context.Context, playlistID, videoID string) error
}

// PipelineConfig carries the publish metadata settings.
type PipelineConfig struct {
	Channel           string
	PrivacyStatus     string
	CategoryID        string
	PlaylistName      string
	DeleteAfterUpload bool
}

// Pipeline runs a single VOD through fetch, publish, checkpoint, and
// cleanup. The machine is linear; the first failure abandons the item and
// leaves state consistent for a retry on the next poll.
type Pipeline struct {
	fetcher   Fetcher
	publisher Publisher
	store     *checkpoint.Store
	artifacts *storage.Manager
	cfg       PipelineConfig
	logger    logger.Logger

	playlistID string
}

// NewPipeline wires the collaborators for per-item processing.
func NewPipeline(fetcher Fetcher, publisher Publisher, store *checkpoint.Store,
	artifacts *storage.Manager, cfg PipelineConfig, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pipeline{
		fetcher:   fetcher,
		publisher: publisher,
		store:     store,
		artifacts: artifacts,
		cfg:       cfg,
		logger:    log,
	}
}

// Process runs one VOD through the pipeline.
//
// The resume check comes first: if a finished artifact already exists on
// disk, the fetch is skipped entirely and the pass continues at publish.
// A checkpoint entry is written strictly after publish success, never
// before.
func (p *Pipeline) Process(ctx context.Context, vod models.VOD) Outcome {
	log := p.logger.WithFields(map[string]interface{}{
		"vod_id": vod.ID,
		"title":  vod.Title,
	})

	// Fetch, unless bytes are already on disk.
	var artifact models.Artifact
	resumed := false
	if path, ok := p.artifacts.FindExisting(vod.ID); ok {
		log.WithField("path", path).Info("found existing artifact, skipping fetch")
		artifact = models.Artifact{VODID: vod.ID, Path: path}
		resumed = true
	} else {
		var err error
		artifact, err = p.fetcher.Download(ctx, vod)
		if err != nil {
			log.WithError(err).Error("fetch failed")
			return Outcome{State: StateFailed, Stage: StageFetch, Err: err}
		}
	}

	// Publish. On failure the artifact is deliberately kept so the next
	// cycle's resume check skips the re-fetch.
	videoID, err := p.publisher.Upload(ctx, models.UploadRequest{
		Path:          artifact.Path,
		Title:         vod.Title,
		Description:   formatDescription(vod),
		Tags:          []string{"Twitch", "VOD", "Archive", p.cfg.Channel},
		PrivacyStatus: p.cfg.PrivacyStatus,
		CategoryID:    p.cfg.CategoryID,
	})
	if err != nil {
		log.WithError(err).Error("publish failed, keeping local artifact for retry")
		return Outcome{State: StateFailed, Stage: StagePublish, Resumed: resumed, Err: err}
	}

	// Playlist membership is best effort; the video is already published.
	p.addToPlaylist(ctx, videoID, log)

	// Checkpoint strictly after publish success.
	if err := p.store.Record(vod.ID, videoID, vod.Title, vod.CreatedAt); err != nil {
		log.WithError(err).Error("checkpoint write failed; item will re-publish next cycle")
		return Outcome{State: StateFailed, Stage: StageCheckpoint, YouTubeID: videoID, Resumed: resumed, Err: err}
	}

	// Cleanup never reverts the checkpoint.
	if p.cfg.DeleteAfterUpload && artifact.Path != "" {
		if err := p.artifacts.Remove(artifact.Path); err != nil {
			log.WithError(err).Warn("failed to delete local artifact")
		}
	}

	log.WithField("youtube_id", videoID).Info("archived")
	return Outcome{State: StateArchived, YouTubeID: videoID, Resumed: resumed}
}

func (p *Pipeline) addToPlaylist(ctx context.Context, videoID string, log logger.Logger) {
	if p.cfg.PlaylistName == "" {
		return
	}

	if p.playlistID == "" {
		id, err := p.publisher.EnsurePlaylist(ctx, p.cfg.PlaylistName)
		if err != nil {
			log.WithError(err).Warn("failed to resolve playlist")
			return
		}
		p.playlistID = id
	}

	if err := p.publisher.AddToPlaylist(ctx, p.playlistID, videoID); err != nil {
		log.WithError(err).Warn("failed to add video to playlist")
	}
}

// formatDescription renders the YouTube description from VOD metadata.
func formatDescription(vod models.VOD) string {
	desc := fmt.Sprintf("Archived from Twitch: %s\n\nOriginal stream date: %s\nDuration: %s\n",
		vod.URL, vod.CreatedAt.Format("2006-01-02 15:04 MST"), vod.Duration)
	if vod.Description != "" {
		desc += "\n" + vod.Description + "\n"
	}
	desc += "\n---\nAutomatically archived from a Twitch VOD."
	return desc
}
