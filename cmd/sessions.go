package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/silvercare/companion/internal"
	"github.com/spf13/cobra"
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage chat sessions",
	Long:  `List, create, and delete conversation sessions stored on the backend.`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chat sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		user, err := requireUser(cfg)
		if err != nil {
			return err
		}

		store := internal.NewStoreClient(cfg.APIBaseURL, cfg.RequestTimeout)
		manager := internal.NewSessionManager(store, internal.SilentVoice{}, user)
		if err := manager.Initialize(); err != nil {
			return err
		}

		// Refresh the offline cache while we have a fresh list.
		refreshSessionCache(cfg.CachePath, manager.Sessions())

		displaySessions(manager.Sessions(), manager.ActiveID())
		return nil
	},
}

// refreshSessionCache mirrors a fresh session list into the offline cache,
// best-effort. Cache trouble is logged, never surfaced.
func refreshSessionCache(path string, sessions []internal.ChatSession) {
	cache, err := internal.OpenSessionCache(path)
	if err != nil {
		internal.LogWarn("Failed to open session cache: %v", err)
		return
	}
	if err := cache.Replace(sessions); err != nil {
		internal.LogWarn("Failed to refresh session cache: %v", err)
	}
	_ = cache.Close()
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Create a new chat session",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		user, err := requireUser(cfg)
		if err != nil {
			return err
		}

		store := internal.NewStoreClient(cfg.APIBaseURL, cfg.RequestTimeout)
		manager := internal.NewSessionManager(store, internal.SilentVoice{}, user)
		if err := manager.Initialize(); err != nil {
			return err
		}

		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			name = fmt.Sprintf("Chat %d", manager.Counter())
		}

		session, err := manager.CreateSession(name)
		if err != nil {
			return err
		}
		fmt.Printf("Created session %s (%s)\n", titleStyle.Render(session.Name), idStyle.Render(session.ID))
		manager.SaveState()
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a chat session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		user, err := requireUser(cfg)
		if err != nil {
			return err
		}

		store := internal.NewStoreClient(cfg.APIBaseURL, cfg.RequestTimeout)
		manager := internal.NewSessionManager(store, internal.SilentVoice{}, user)
		if err := manager.Initialize(); err != nil {
			return err
		}

		if err := manager.DeleteSession(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s\n", idStyle.Render(args[0]))
		if manager.ActiveID() != "" {
			fmt.Printf("Active session is now %s\n", idStyle.Render(manager.ActiveID()))
		}
		return nil
	},
}

func displaySessions(sessions []internal.ChatSession, activeID string) {
	if len(sessions) == 0 {
		fmt.Println(headerStyle.Render("📋 No sessions found"))
		return
	}

	header := headerStyle.Render(fmt.Sprintf("📋 Found %d session(s)", len(sessions)))
	fmt.Println(header)
	fmt.Println()

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)

	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Name")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Last Activity")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 90))

	for _, session := range sessions {
		name := session.Name
		if name == "" {
			name = "Untitled"
		}
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		if session.ID == activeID {
			name = activeStyle.Render(name + " *")
		} else {
			name = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(name)
		}

		count := session.MessageCount
		if count == 0 {
			count = len(session.Messages)
		}
		msgCount := countStyle.Render(strconv.Itoa(count))

		activity := formatSessionTime(session)

		shortID := session.ID
		if len(shortID) > 12 {
			shortID = shortID[:12]
		}
		id := idStyle.Render(shortID)

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", id, name, msgCount, activity)
	}

	_ = w.Flush()
	fmt.Println()
	fmt.Println(idStyle.Render("💡 Tip: `silvercare chat` resumes the session marked with *"))
}

func formatSessionTime(session internal.ChatSession) string {
	t := session.LastActivity
	if t.IsZero() {
		t = session.CreatedAt
	}
	if t.IsZero() {
		return dateStyle.Render("—")
	}
	diff := time.Since(t)
	switch {
	case diff < 24*time.Hour:
		return dateStyle.Render(t.Format("Today 15:04"))
	case diff < 7*24*time.Hour:
		return dateStyle.Render(t.Format("Mon 15:04"))
	case diff < 365*24*time.Hour:
		return dateStyle.Render(t.Format("Jan 02 15:04"))
	default:
		return dateStyle.Render(t.Format("2006-01-02"))
	}
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsNewCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
