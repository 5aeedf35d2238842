package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"vodarchiver/pkg/ui"
)

var (
	// Version information, set at build time.
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vodarchiver",
	Short: "Archive Twitch broadcasts to YouTube automatically",
	Long: `VOD Archiver watches a Twitch channel for finished broadcasts,
downloads each one with yt-dlp, and uploads it to YouTube.

Features:
  - Polls the Twitch Helix API on a configurable interval
  - Resumes interrupted work from files already on disk
  - Records finished uploads in a checkpoint file so nothing runs twice
  - Serves a local status dashboard with a live log tail
  - Stores the Twitch client secret in the system keychain`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		// Running without a subcommand starts the archiver.
		return runCmd.RunE(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./vodarchiver.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")

	rootCmd.SetVersionTemplate(`VOD Archiver {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
