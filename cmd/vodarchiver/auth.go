package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vodarchiver/pkg/auth"
	"vodarchiver/pkg/config"
	"vodarchiver/pkg/logger"
	"vodarchiver/pkg/youtube"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage Twitch and YouTube credentials",
	Long: `Manage the credentials the archiver needs.

The Twitch client secret is stored in the system keychain when one is
available, with the VODARCHIVER_TWITCH_CLIENT_SECRET environment variable
as the headless fallback. The YouTube OAuth token is kept in the token file
named in the configuration.`,
}

// authTwitchCmd represents the auth twitch command
var authTwitchCmd = &cobra.Command{
	Use:   "twitch [client-id]",
	Short: "Store the Twitch client secret in the system keychain",
	Long: `Store the Twitch application client secret securely.

The client ID is taken from the argument or from the configuration; the
secret is read from the prompt. Create the application and its credentials
at https://dev.twitch.tv/console/apps.`,
	Example: `  # Store the secret for the configured client ID
  vodarchiver auth twitch

  # Store the secret for a specific client ID
  vodarchiver auth twitch abc123def456`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuthTwitch,
}

// authYouTubeCmd represents the auth youtube command
var authYouTubeCmd = &cobra.Command{
	Use:   "youtube",
	Short: "Run the YouTube OAuth flow",
	Long: `Authorize the archiver to upload to your YouTube channel.

This opens the Google consent page in your browser and captures the
authorization code on a local loopback listener. The resulting token,
including the refresh token, is written to the configured token file and
renewed automatically from then on.

Requires the OAuth client secrets file downloaded from the Google Cloud
console (youtube.client_secrets_file in the configuration).`,
	Args: cobra.NoArgs,
	RunE: runAuthYouTube,
}

// authStatusCmd represents the auth status command
var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which credentials are configured",
	Args:  cobra.NoArgs,
	RunE:  runAuthStatus,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authTwitchCmd)
	authCmd.AddCommand(authYouTubeCmd)
	authCmd.AddCommand(authStatusCmd)
}

func runAuthTwitch(cmd *cobra.Command, args []string) error {
	clientID := ""
	if len(args) > 0 {
		clientID = strings.TrimSpace(args[0])
	} else {
		cfg, err := config.Load(configFile, nil)
		if err == nil {
			clientID = cfg.Twitch.ClientID
		}
	}
	if clientID == "" {
		return fmt.Errorf("no client ID: pass one as an argument or set twitch.client_id in the config")
	}

	fmt.Printf("Client ID: %s\n", clientID)
	fmt.Print("Client secret: ")
	reader := bufio.NewReader(os.Stdin)
	secret, err := reader.ReadString('\n')
	if err != nil {
		return fmt.Errorf("failed to read secret: %w", err)
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return fmt.Errorf("empty secret")
	}

	if err := auth.NewManager().Store(clientID, secret); err != nil {
		return fmt.Errorf("failed to store secret: %w", err)
	}

	fmt.Println("Twitch client secret stored.")
	return nil
}

func runAuthYouTube(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		// The OAuth flow only needs the YouTube file paths; fall back to
		// defaults when the rest of the config is incomplete.
		cfg = config.DefaultConfig()
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	uploader := youtube.NewUploader(cfg.YouTube.ClientSecretsFile, cfg.YouTube.TokenFile, logger.GetLogger())
	if err := uploader.InteractiveAuth(cmd.Context()); err != nil {
		return fmt.Errorf("authorization failed: %w", err)
	}

	fmt.Printf("YouTube authorized. Token saved to %s\n", cfg.YouTube.TokenFile)
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		cfg = config.DefaultConfig()
	}

	if cfg.Twitch.ClientID == "" {
		fmt.Println("Twitch:  no client ID configured")
	} else if cfg.Twitch.ClientSecret != "" {
		fmt.Printf("Twitch:  client %s, secret from config or environment\n", cfg.Twitch.ClientID)
	} else if _, err := auth.NewManager().Retrieve(cfg.Twitch.ClientID); err == nil {
		fmt.Printf("Twitch:  client %s, secret stored\n", cfg.Twitch.ClientID)
	} else {
		fmt.Printf("Twitch:  client %s, no secret (run 'vodarchiver auth twitch')\n", cfg.Twitch.ClientID)
	}

	if _, err := os.Stat(cfg.YouTube.TokenFile); err != nil {
		fmt.Println("YouTube: not authorized (run 'vodarchiver auth youtube')")
		return nil
	}

	uploader := youtube.NewUploader(cfg.YouTube.ClientSecretsFile, cfg.YouTube.TokenFile, logger.GetLogger())
	if err := uploader.Authenticate(cmd.Context()); err != nil {
		fmt.Printf("YouTube: token present but unusable: %v\n", err)
		return nil
	}

	if expiry := uploader.TokenExpiry(); !expiry.IsZero() {
		fmt.Printf("YouTube: authorized, access token valid until %s\n",
			expiry.Local().Format(time.RFC1123))
	} else {
		fmt.Println("YouTube: authorized")
	}
	return nil
}
