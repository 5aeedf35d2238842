package archiver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"vodarchiver/pkg/checkpoint"
	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/models"
)

// Lister is the source-platform collaborator. It fails closed: errors show
// up as an empty listing, never as a crash of the poll loop.
type Lister interface {
	ListRecent(ctx context.Context, channel string, limit int) []models.VOD
}

// Notifier delivers operator-facing notifications. Optional.
type Notifier interface {
	Notify(title, message string)
}

// CycleInfo describes the most recent completed cycle, for the dashboard.
type CycleInfo struct {
	At        time.Time `json:"at"`
	Completed int       `json:"completed"`
}

// ControllerConfig carries the poll loop settings.
type ControllerConfig struct {
	Channel      string
	VODLimit     int
	PollInterval time.Duration
}

// Controller drives the poll loop: list candidates, filter out checkpointed
// ones, run the pipeline per candidate in order, stop the cycle on the
// first failure, sleep, repeat.
type Controller struct {
	lister    Lister
	pipeline  *Pipeline
	publisher Publisher
	store     *checkpoint.Store
	cfg       ControllerConfig
	logger    logger.Logger
	notifier  Notifier

	mu        sync.Mutex
	lastCycle CycleInfo
}

// NewController wires the poll loop.
func NewController(lister Lister, pipeline *Pipeline, publisher Publisher,
	store *checkpoint.Store, cfg ControllerConfig, log logger.Logger) *Controller {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Controller{
		lister:    lister,
		pipeline:  pipeline,
		publisher: publisher,
		store:     store,
		cfg:       cfg,
		logger:    log,
	}
}

// SetNotifier attaches an optional notifier for archive events.
func (c *Controller) SetNotifier(n Notifier) {
	c.notifier = n
}

// LastCycle returns when the last cycle finished and how many items it
// completed.
func (c *Controller) LastCycle() CycleInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastCycle
}

// RunOnce performs one full cycle and returns the number of items archived.
//
// Processing stops at the first pipeline failure: uploading later VODs
// while an earlier one is stuck would publish them out of chronological
// order, and a systemic failure (full disk, revoked token) would fail every
// remaining item anyway.
func (c *Controller) RunOnce(ctx context.Context) int {
	defer func() {
		c.mu.Lock()
		c.lastCycle.At = time.Now()
		c.mu.Unlock()
	}()

	c.logger.WithField("channel", c.cfg.Channel).Info("checking for new broadcasts")

	vods := c.lister.ListRecent(ctx, c.cfg.Channel, c.cfg.VODLimit)

	candidates := make([]models.VOD, 0, len(vods))
	for _, vod := range vods {
		if entry := c.store.Entry(vod.ID); entry != nil {
			reason := "previously archived"
			if entry.Legacy() {
				reason = "legacy marker"
			}
			c.logger.DebugWithFields("skipping processed broadcast", map[string]interface{}{
				"vod_id": vod.ID,
				"reason": reason,
			})
			continue
		}
		candidates = append(candidates, vod)
	}

	c.setCompleted(0)
	if len(candidates) == 0 {
		c.logger.Info("no new broadcasts")
		return 0
	}

	c.logger.WithField("count", len(candidates)).Info("found new broadcasts")

	// Authenticate the publisher up front so a dead token costs one log
	// line, not one multi-gigabyte download.
	if !c.publisher.Authenticated() {
		if err := c.publisher.Authenticate(ctx); err != nil {
			c.logger.WithError(err).Warn("publisher authentication failed, skipping cycle")
			return 0
		}
	}

	completed := 0
	for _, vod := range candidates {
		if ctx.Err() != nil {
			break
		}

		outcome := c.pipeline.Process(ctx, vod)
		switch outcome.State {
		case StateArchived:
			completed++
			c.setCompleted(completed)
			c.notify("VOD archived", fmt.Sprintf("%s → https://youtu.be/%s", vod.Title, outcome.YouTubeID))
		case StateFailed:
			c.logger.WithFields(map[string]interface{}{
				"vod_id": vod.ID,
				"stage":  string(outcome.Stage),
			}).Warn("stopping cycle on first failure; will retry next poll")
			c.notify("VOD archive failed", fmt.Sprintf("%s failed at %s stage", vod.Title, outcome.Stage))
			return completed
		}
	}

	return completed
}

// RunLoop runs cycles until the context is cancelled. Any failure inside a
// cycle, including a panic, is logged and treated as zero completions; the
// loop sleeps and tries again.
func (c *Controller) RunLoop(ctx context.Context) {
	c.logger.WithFields(map[string]interface{}{
		"channel":       c.cfg.Channel,
		"poll_interval": c.cfg.PollInterval,
	}).Info("starting poll loop")

	for {
		if n := c.runCycle(ctx); n > 0 {
			c.logger.WithField("completed", n).Info("cycle finished")
		}

		select {
		case <-ctx.Done():
			c.logger.Info("poll loop stopped")
			return
		case <-time.After(c.cfg.PollInterval):
		}
	}
}

// runCycle isolates one cycle so a panic cannot kill the loop.
func (c *Controller) runCycle(ctx context.Context) (completed int) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.ErrorWithFields("cycle panicked", map[string]interface{}{
				"panic": fmt.Sprint(r),
			})
			completed = 0
		}
	}()
	return c.RunOnce(ctx)
}

func (c *Controller) setCompleted(n int) {
	c.mu.Lock()
	c.lastCycle.Completed = n
	c.mu.Unlock()
}

func (c *Controller) notify(title, message string) {
	if c.notifier != nil {
		c.notifier.Notify(title, message)
	}
}
