package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/silvercare/companion/internal"
	"github.com/spf13/cobra"
)

var (
	chatSessionID string

	userBubbleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	assistantBubbleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Padding(0, 1)

	emergencyNoticeStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("196"))

	reminderNoticeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("42"))

	errorNoticeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("214"))

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the SilverCare assistant.

Resumes your most recently active session, or creates one if you have
none. Inside the conversation:

  /new [name]     Create and switch to a new session
  /sessions       List your sessions
  /switch <id>    Switch to another session
  /delete <id>    Delete a session
  /quit           Save and exit`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		user, err := requireUser(cfg)
		if err != nil {
			return err
		}

		store := internal.NewStoreClient(cfg.APIBaseURL, cfg.RequestTimeout)
		voice := internal.SilentVoice{}
		manager := internal.NewSessionManager(store, voice, user)
		responder := internal.NewEmergencyResponder(&internal.WhatsAppMessenger{}, cfg.Locator(), voice)
		pipeline := internal.NewMessagePipeline(store, manager, responder, voice)

		if err := manager.Initialize(); err != nil {
			return err
		}
		if chatSessionID != "" {
			if err := manager.SwitchSession(chatSessionID); err != nil {
				return err
			}
		}
		if err := manager.StartChat(); err != nil {
			return err
		}
		refreshSessionCache(cfg.CachePath, manager.Sessions())

		greeting := user.Name
		if greeting == "" {
			greeting = user.ID
		}
		fmt.Println(headerStyle.Render(fmt.Sprintf("💬 SilverCare — signed in as %s", greeting)))
		fmt.Println(idStyle.Render("Type /quit to exit, /new for a fresh session."))
		fmt.Println()

		rendered := 0
		rendered = renderNewMessages(manager, rendered)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			fmt.Print(promptStyle.Render("you> ") + " ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			if strings.HasPrefix(line, "/") {
				quit, err := runChatCommand(manager, line)
				if err != nil {
					fmt.Println(errorNoticeStyle.Render(err.Error()))
				}
				if quit {
					break
				}
				// Session may have changed under us.
				rendered = len(manager.Messages())
				continue
			}

			if !pipeline.SendMessage(line) {
				fmt.Println(idStyle.Render("(input not accepted right now)"))
				continue
			}
			rendered = renderNewMessages(manager, rendered)
			if banner := pipeline.Error(); banner != "" {
				fmt.Println(errorNoticeStyle.Render("⚠ " + banner))
			}
		}

		manager.SaveState()
		refreshSessionCache(cfg.CachePath, manager.Sessions())
		fmt.Println(idStyle.Render("Goodbye."))
		return scanner.Err()
	},
}

// runChatCommand handles the /-prefixed REPL commands. Returns true when the
// loop should exit.
func runChatCommand(manager *internal.SessionManager, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit", "/exit":
		return true, nil
	case "/new":
		name := strings.TrimSpace(strings.TrimPrefix(line, "/new"))
		if name == "" {
			name = fmt.Sprintf("Chat %d", manager.Counter())
		}
		session, err := manager.CreateSession(name)
		if err != nil {
			return false, err
		}
		fmt.Printf("Switched to new session %s\n", titleStyle.Render(session.Name))
		// The fresh session stays gated until its welcome is delivered.
		if err := manager.StartChat(); err != nil {
			return false, err
		}
		for _, msg := range manager.Messages() {
			fmt.Println(renderMessage(msg))
		}
		return false, nil
	case "/sessions":
		displaySessions(manager.Sessions(), manager.ActiveID())
		return false, nil
	case "/switch":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /switch <session-id>")
		}
		if err := manager.SwitchSession(fields[1]); err != nil {
			return false, err
		}
		fmt.Printf("Switched to session %s\n", idStyle.Render(fields[1]))
		if manager.InputDisabled() {
			// Empty sessions still need their start action.
			if err := manager.StartChat(); err != nil {
				return false, err
			}
		}
		for _, msg := range manager.Messages() {
			fmt.Println(renderMessage(msg))
		}
		return false, nil
	case "/delete":
		if len(fields) < 2 {
			return false, fmt.Errorf("usage: /delete <session-id>")
		}
		if err := manager.DeleteSession(fields[1]); err != nil {
			return false, err
		}
		fmt.Printf("Deleted session %s\n", idStyle.Render(fields[1]))
		return false, nil
	default:
		return false, fmt.Errorf("unknown command %s", fields[0])
	}
}

// renderNewMessages prints messages appended since the last render and
// returns the new high-water mark.
func renderNewMessages(manager *internal.SessionManager, from int) int {
	messages := manager.Messages()
	for _, msg := range messages[from:] {
		fmt.Println(renderMessage(msg))
	}
	return len(messages)
}

func renderMessage(msg internal.Message) string {
	switch {
	case msg.IsEmergency:
		return emergencyNoticeStyle.Render("🚨 " + msg.Text)
	case msg.IsReminder:
		return reminderNoticeStyle.Render("⏰ " + msg.Text)
	case msg.IsError:
		return errorNoticeStyle.Render("⚠ " + msg.Text)
	case msg.IsUser:
		return userBubbleStyle.Render(msg.Text)
	default:
		return assistantBubbleStyle.Render(msg.Text)
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVar(&chatSessionID, "session", "", "Resume a specific session instead of the most recent")
}
