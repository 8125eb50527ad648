package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/silvercare/companion/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check configuration, backend, and cache health",
	Long: `Check the health of the SilverCare client by verifying:
  • User and contact configuration
  • Backend reachability and session data
  • Reminder endpoint
  • Local session cache

This command is useful for debugging connectivity and configuration issues.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(sectionStyle.Render("🔍 SilverCare Health Check"))
		fmt.Println()

		cfg := loadConfig()

		// Step 1: Configuration
		fmt.Println(infoStyle.Render("Step 1: Checking configuration..."))
		userOK := cfg.UserID != ""
		if userOK {
			fmt.Println(successStyle.Render("✅ User configured"))
			if healthcheckDetails {
				fmt.Printf("   User ID: %s\n", cfg.UserID)
				fmt.Printf("   Backend: %s\n", cfg.APIBaseURL)
			}
		} else {
			fmt.Println(errorStyle.Render("❌ No user configured (set SILVERCARE_USER_ID or pass --user)"))
		}
		if len(cfg.EmergencyContacts) > 0 {
			fmt.Println(successStyle.Render(fmt.Sprintf("✅ %d emergency contact(s) configured", len(cfg.EmergencyContacts))))
			if healthcheckDetails {
				for i, contact := range cfg.EmergencyContacts {
					fmt.Printf("   [%d] %s (%s)\n", i+1, contact.Name, contact.Number)
				}
			}
		} else {
			fmt.Println(warningStyle.Render("⚠️  No emergency contacts configured"))
			fmt.Println("   Emergency detection will fall back to the 911 guidance notice.")
		}
		if cfg.Location != nil {
			fmt.Println(successStyle.Render("✅ Location configured for emergency alerts"))
		} else {
			fmt.Println(warningStyle.Render("⚠️  No location configured (SILVERCARE_LOCATION)"))
		}
		fmt.Println()

		// Step 2: Backend reachability
		fmt.Println(infoStyle.Render("Step 2: Checking backend..."))
		backendOK := false
		sessionCount := 0
		if userOK {
			store := internal.NewStoreClient(cfg.APIBaseURL, cfg.RequestTimeout)
			resp, err := store.LoadSessions(cfg.UserID)
			if err != nil {
				fmt.Println(errorStyle.Render("❌ Backend unreachable:"), err)
			} else {
				backendOK = true
				sessionCount = len(resp.Sessions)
				fmt.Println(successStyle.Render(fmt.Sprintf("✅ Backend reachable, %d session(s)", sessionCount)))
				if healthcheckDetails {
					for i, session := range resp.Sessions {
						if i < 5 {
							name := session.Name
							if name == "" {
								name = "Untitled"
							}
							fmt.Printf("   [%d] %s (ID: %s)\n", i+1, name, session.ID)
						}
					}
					if sessionCount > 5 {
						fmt.Printf("   ... and %d more\n", sessionCount-5)
					}
				}

				reminders, rerr := store.FetchReminders(cfg.UserID)
				if rerr != nil {
					fmt.Println(warningStyle.Render("⚠️  Reminder endpoint failed:"), rerr)
				} else {
					fmt.Println(successStyle.Render(fmt.Sprintf("✅ Reminder endpoint OK, %d reminder(s)", len(reminders))))
				}
			}
		} else {
			fmt.Println(warningStyle.Render("⚠️  Skipped (no user configured)"))
		}
		fmt.Println()

		// Step 3: Local cache
		fmt.Println(infoStyle.Render("Step 3: Checking local cache..."))
		cacheOK := false
		cache, err := internal.OpenSessionCache(cfg.CachePath)
		if err != nil {
			fmt.Println(errorStyle.Render("❌ Cache unavailable:"), err)
		} else {
			cacheOK = true
			cached, cerr := cache.Sessions()
			if cerr != nil {
				fmt.Println(warningStyle.Render("⚠️  Cache opened but unreadable:"), cerr)
			} else {
				fmt.Println(successStyle.Render(fmt.Sprintf("✅ Cache OK, %d cached session(s)", len(cached))))
				if healthcheckDetails {
					fmt.Printf("   Path: %s\n", cache.Path())
					if synced := cache.SyncedAt(); !synced.IsZero() {
						fmt.Printf("   Last synced: %s\n", synced.Format("2006-01-02 15:04:05"))
					}
				}
			}
			_ = cache.Close()
		}
		fmt.Println()

		// Summary
		fmt.Println(sectionStyle.Render("📊 Summary"))
		fmt.Println()

		switch {
		case userOK && backendOK:
			fmt.Println(successStyle.Render("✅ Health check passed!"))
			fmt.Println(successStyle.Render("   • Backend: Reachable"))
			fmt.Println(successStyle.Render(fmt.Sprintf("   • Sessions: %d found", sessionCount)))
			return nil
		case userOK && cacheOK:
			fmt.Println(warningStyle.Render("⚠️  Backend unreachable, cache available"))
			fmt.Println("   • `silvercare export --cached` still works offline")
			return nil
		default:
			fmt.Println(errorStyle.Render("❌ Health check failed"))
			fmt.Println("   • Fix the configuration above and run again")
			return fmt.Errorf("health check failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVar(&healthcheckDetails, "details", false, "Show detailed diagnostic information")
}
