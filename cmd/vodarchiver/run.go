package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vodarchiver/pkg/archiver"
	"vodarchiver/pkg/auth"
	"vodarchiver/pkg/checkpoint"
	"vodarchiver/pkg/config"
	"vodarchiver/pkg/dashboard"
	"vodarchiver/pkg/downloader"
	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/models"
	"vodarchiver/pkg/storage"
	"vodarchiver/pkg/twitch"
	"vodarchiver/pkg/ui"
	"vodarchiver/pkg/youtube"
)

var (
	// Run command flags
	channelName       string
	downloadDir       string
	pollInterval      time.Duration
	dashboardPort     int
	runOnce           bool
	noDashboard       bool
	keepFiles         bool
	withNotifications bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the archive loop",
	Long: `Start the archiver: poll the configured Twitch channel for finished
broadcasts, download each new one, upload it to YouTube, and record it in
the checkpoint file.

The loop runs until interrupted. Use --once to run a single cycle and exit,
which suits cron or systemd timer setups.`,
	Example: `  # Run the poll loop with the configured channel
  vodarchiver run

  # One cycle, then exit
  vodarchiver run --once

  # Override the channel and keep local files after upload
  vodarchiver run --channel somechannel --keep-files`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runArchiver(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&channelName, "channel", "", "Twitch channel to archive")
	runCmd.Flags().StringVarP(&downloadDir, "download-dir", "o", "", "directory for downloaded files")
	runCmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "time between polls, e.g. 30m")
	runCmd.Flags().IntVar(&dashboardPort, "dashboard-port", 0, "status dashboard port")
	runCmd.Flags().BoolVar(&runOnce, "once", false, "run a single cycle and exit")
	runCmd.Flags().BoolVar(&noDashboard, "no-dashboard", false, "disable the status dashboard")
	runCmd.Flags().BoolVar(&keepFiles, "keep-files", false, "keep local files after a successful upload")
	runCmd.Flags().BoolVar(&withNotifications, "notifications", false, "send desktop notifications for archive events")
}

func runArchiver(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("vodarchiver starting")

	// The client secret may come from config, the keychain, or the
	// environment, in that order.
	if cfg.Twitch.ClientSecret == "" {
		secret, err := auth.NewManager().Retrieve(cfg.Twitch.ClientID)
		if err != nil {
			return fmt.Errorf("no Twitch client secret found: set twitch.client_secret, "+
				"run 'vodarchiver auth twitch', or export VODARCHIVER_TWITCH_CLIENT_SECRET: %w", err)
		}
		cfg.Twitch.ClientSecret = secret
	}

	artifacts, err := storage.NewManager(cfg.Archive.DownloadDir)
	if err != nil {
		return fmt.Errorf("failed to prepare download directory: %w", err)
	}

	store, err := checkpoint.NewStore(cfg.Archive.ProcessedFile, log)
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	log.WithFields(map[string]interface{}{
		"archived": store.Count(),
		"legacy":   store.LegacyCount(),
	}).Info("checkpoint store loaded")

	client := twitch.NewClient(cfg.Twitch.ClientID, cfg.Twitch.ClientSecret, log)

	fetcher := downloader.New(artifacts, cfg.Twitch.ChannelName, cfg.Archive.MinFreeGB, log)
	downloadBar := ui.NewProgressRenderer("download")
	fetcher.OnProgress(func(p models.Progress) {
		downloadBar.Update(p)
		if p.Percent() >= 100 {
			downloadBar.Finish()
		}
	})

	uploader := youtube.NewUploader(cfg.YouTube.ClientSecretsFile, cfg.YouTube.TokenFile, log)
	uploadBar := ui.NewProgressRenderer("upload")
	uploader.OnProgress(func(p models.Progress) {
		uploadBar.Update(p)
		if p.Percent() >= 100 {
			uploadBar.Finish()
		}
	})

	pipeline := archiver.NewPipeline(fetcher, uploader, store, artifacts, archiver.PipelineConfig{
		Channel:           cfg.Twitch.ChannelName,
		PrivacyStatus:     cfg.YouTube.PrivacyStatus,
		CategoryID:        cfg.YouTube.CategoryID,
		PlaylistName:      cfg.YouTube.PlaylistName,
		DeleteAfterUpload: cfg.Archive.DeleteAfterUpload,
	}, log)

	controller := archiver.NewController(client, pipeline, uploader, store, archiver.ControllerConfig{
		Channel:      cfg.Twitch.ChannelName,
		VODLimit:     cfg.Archive.VODLimit,
		PollInterval: cfg.Archive.PollInterval,
	}, log)
	if withNotifications {
		controller.SetNotifier(ui.NewNotifier())
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Dashboard.Enabled && !noDashboard && !runOnce {
		srv := dashboard.New(store, artifacts, controller, dashboard.Config{
			Channel:      cfg.Twitch.ChannelName,
			PollInterval: cfg.Archive.PollInterval,
			LogFile:      cfg.Logging.File,
			MarkerDir:    filepath.Dir(store.Path()),
		}, log)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Dashboard.Port); err != nil {
				log.WithError(err).Error("dashboard server failed")
			}
		}()
	}

	if runOnce {
		n := controller.RunOnce(ctx)
		log.WithField("completed", n).Info("cycle finished")
		fmt.Printf("Archived %d broadcast(s)\n", n)
		return nil
	}

	controller.RunLoop(ctx)
	log.Info("vodarchiver stopped")
	return nil
}

// loadConfig builds the flags map from what was set on the command line and
// loads the merged configuration.
func loadConfig() (*config.Config, error) {
	flags := make(map[string]interface{})
	if channelName != "" {
		flags["channel"] = channelName
	}
	if downloadDir != "" {
		flags["download-dir"] = downloadDir
	}
	if pollInterval > 0 {
		flags["poll-interval"] = pollInterval
	}
	if dashboardPort > 0 {
		flags["dashboard-port"] = dashboardPort
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}
	if keepFiles {
		flags["delete-after-upload"] = false
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}
