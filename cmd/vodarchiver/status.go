package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"vodarchiver/pkg/config"
	"vodarchiver/pkg/ui"
)

var statusPort int

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running archiver",
	Long: `Query the dashboard of a running archiver on this host and print a
summary: uptime, last cycle, archive counts, and disk usage.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().IntVar(&statusPort, "port", 0, "dashboard port (default from config)")
}

// dashboardStatus mirrors the dashboard's /api/status response.
type dashboardStatus struct {
	Running       bool   `json:"running"`
	Channel       string `json:"channel"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	PollInterval  string `json:"poll_interval"`
	LastCycle     struct {
		At        time.Time `json:"at"`
		Completed int       `json:"completed"`
	} `json:"last_cycle"`
	ArchivedCount int `json:"archived_count"`
	LegacyCount   int `json:"legacy_count"`
	Disk          struct {
		Free  int64 `json:"free"`
		Used  int64 `json:"used"`
		Total int64 `json:"total"`
	} `json:"disk"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	port := statusPort
	if port == 0 {
		if cfg, err := config.Load(configFile, nil); err == nil {
			port = cfg.Dashboard.Port
		} else {
			port = config.DefaultConfig().Dashboard.Port
		}
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/api/status", port))
	if err != nil {
		return fmt.Errorf("archiver not reachable on port %d: %w", port, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("dashboard returned %s", resp.Status)
	}

	var st dashboardStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return fmt.Errorf("failed to decode status: %w", err)
	}

	fmt.Printf("Channel:        %s\n", st.Channel)
	fmt.Printf("Uptime:         %s\n", ui.FormatDuration(time.Duration(st.UptimeSeconds)*time.Second))
	fmt.Printf("Poll interval:  %s\n", st.PollInterval)
	if !st.LastCycle.At.IsZero() {
		fmt.Printf("Last cycle:     %s (%d archived)\n",
			st.LastCycle.At.Local().Format(time.RFC1123), st.LastCycle.Completed)
	} else {
		fmt.Printf("Last cycle:     not yet run\n")
	}
	fmt.Printf("Archived VODs:  %d (%d legacy)\n", st.ArchivedCount, st.LegacyCount)
	if st.Disk.Total > 0 {
		fmt.Printf("Disk:           %s free of %s\n",
			ui.FormatBytes(st.Disk.Free), ui.FormatBytes(st.Disk.Total))
	}
	return nil
}
