package cmd

import (
	"fmt"
	"os"

	"github.com/silvercare/companion/internal"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	apiURL  string
	userID  string
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "silvercare",
	Short: "Voice-first healthcare companion client",
	Long: `Terminal client for the SilverCare AI healthcare companion backend.

SilverCare keeps named conversation threads on the backend, detects
emergencies in what you tell it, fans alerts out to your emergency
contacts, and manages reminders with local alarms.

Features:
  • Conversational assistant with persistent chat sessions
  • Emergency detection with contact fan-out over messaging deep-links
  • Reminder management with voice-to-reminder extraction
  • Local alarm scheduling for upcoming reminders
  • Transcript export in multiple formats (JSONL, Markdown, YAML, JSON)

Quick Start:
  silvercare chat                      # Start or resume a conversation
  silvercare sessions list             # List your chat sessions
  silvercare reminders watch           # Arm alarms for upcoming reminders
  silvercare export <id> --format md   # Export a transcript

Configuration is read from the environment (or a .env file):
  SILVERCARE_API_URL, SILVERCARE_USER_ID, SILVERCARE_USER_NAME,
  SILVERCARE_CONTACTS, SILVERCARE_LOCATION, SILVERCARE_ALARM_CMD.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Backend base URL (overrides SILVERCARE_API_URL)")
	rootCmd.PersistentFlags().StringVar(&userID, "user", "", "User ID (overrides SILVERCARE_USER_ID)")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

// loadConfig merges flag overrides into the environment configuration.
func loadConfig() *internal.Config {
	cfg := internal.LoadConfig()
	if apiURL != "" {
		cfg.APIBaseURL = apiURL
	}
	if userID != "" {
		cfg.UserID = userID
	}
	return cfg
}

// requireUser returns the configured user profile or a usable error.
func requireUser(cfg *internal.Config) (*internal.UserProfile, error) {
	user := cfg.User()
	if user == nil {
		return nil, fmt.Errorf("no user configured: set SILVERCARE_USER_ID or pass --user")
	}
	return user, nil
}
