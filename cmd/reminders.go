package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/silvercare/companion/internal"
	"github.com/spf13/cobra"
)

var (
	reminderTitle string
	reminderDate  string
	reminderTime  string

	watchInterval time.Duration
)

var remindersCmd = &cobra.Command{
	Use:   "reminders",
	Short: "Manage reminders and alarms",
	Long: `List, add, and delete reminders stored on the backend, extract
reminders from natural speech, and run a foreground alarm watcher.`,
}

var remindersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := reminderService()
		if err != nil {
			return err
		}
		reminders, err := service.Fetch()
		if err != nil {
			return err
		}
		displayReminders(reminders)
		return nil
	},
}

var remindersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a reminder",
	Long: `Add a reminder with an explicit title, date, and time.

Example:
  silvercare reminders add --title "Take medication" --date 2026-09-01 --time "8:00 AM"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := reminderService()
		if err != nil {
			return err
		}
		r := internal.Reminder{
			Title: reminderTitle,
			Date:  reminderDate,
			Time:  internal.FormatTimeForDisplay(reminderTime),
		}
		if err := service.Add(r); err != nil {
			return err
		}
		fmt.Printf("Reminder %s added for %s at %s\n", titleStyle.Render(r.Title), r.Date, r.Time)
		return nil
	},
}

var remindersDeleteCmd = &cobra.Command{
	Use:   "delete <reminder-id>",
	Short: "Delete a reminder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := reminderService()
		if err != nil {
			return err
		}
		if err := service.Delete(args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted reminder %s\n", idStyle.Render(args[0]))
		return nil
	},
}

var remindersVoiceCmd = &cobra.Command{
	Use:   "voice <utterance>",
	Short: "Create reminders from natural speech",
	Long: `Send a natural-language utterance to the backend's reminder
extraction and create whatever reminders it finds.

Example:
  silvercare reminders voice "remind me to call the doctor tomorrow at 3pm"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := reminderService()
		if err != nil {
			return err
		}
		resp, err := service.AddFromSpeech(strings.Join(args, " "))
		if err != nil {
			return err
		}
		for _, r := range resp.Reminders {
			fmt.Printf("Created %s for %s at %s\n", titleStyle.Render(r.Title), r.Date, r.Time)
		}
		if len(resp.Reminders) == 0 {
			msg := resp.Message
			if msg == "" {
				msg = "Voice reminder created successfully"
			}
			fmt.Println(msg)
		}
		return nil
	},
}

var remindersWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Arm alarms for upcoming reminders",
	Long: `Run in the foreground, keeping one alarm armed per upcoming
reminder. Reminders are re-fetched periodically so changes made
elsewhere are picked up. The alarm cue command comes from
SILVERCARE_ALARM_CMD; firings are also printed to the terminal.

Press Ctrl+C to stop. Press Enter to silence a ringing alarm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		user, err := requireUser(cfg)
		if err != nil {
			return err
		}

		store := internal.NewStoreClient(cfg.APIBaseURL, cfg.RequestTimeout)
		service := internal.NewReminderService(store, internal.SilentVoice{}, user)

		player := &internal.CommandAudioPlayer{Command: cfg.AlarmCommand, Args: cfg.AlarmArgs}
		notifier := &internal.TerminalNotifier{Printf: func(format string, a ...interface{}) {
			fmt.Printf(format, a...)
		}}
		scheduler := internal.NewAlarmScheduler(player, notifier)
		defer scheduler.Close()

		rearm := func() {
			reminders, err := service.Fetch()
			if err != nil {
				internal.LogWarn("Failed to fetch reminders: %v", err)
				return
			}
			armed := scheduler.Reset(reminders)
			internal.LogInfo("Armed %d alarm(s) from %d reminder(s)", armed, len(reminders))
		}
		rearm()
		fmt.Println(headerStyle.Render(fmt.Sprintf("⏰ Watching reminders (%d armed)", scheduler.ArmedCount())))

		// Enter silences a ringing alarm.
		go func() {
			buf := make([]byte, 1)
			for {
				if _, err := os.Stdin.Read(buf); err != nil {
					return
				}
				if scheduler.Active() {
					scheduler.Stop()
					fmt.Println(idStyle.Render("Alarm silenced."))
				}
			}
		}()

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

		for {
			select {
			case <-ticker.C:
				rearm()
			case <-sigs:
				fmt.Println()
				fmt.Println(idStyle.Render("Stopping."))
				return nil
			}
		}
	},
}

func reminderService() (*internal.ReminderService, error) {
	cfg := loadConfig()
	user, err := requireUser(cfg)
	if err != nil {
		return nil, err
	}
	store := internal.NewStoreClient(cfg.APIBaseURL, cfg.RequestTimeout)
	return internal.NewReminderService(store, internal.SilentVoice{}, user), nil
}

func displayReminders(reminders []internal.Reminder) {
	if len(reminders) == 0 {
		fmt.Println(headerStyle.Render("⏰ No reminders"))
		return
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("⏰ %d reminder(s)", len(reminders))))
	fmt.Println()

	w := tabwriter.NewWriter(lipgloss.DefaultRenderer().Output(), 0, 0, 3, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Date")+"\t"+titleStyle.Render("Time")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 70))

	for _, r := range reminders {
		title := r.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
			idStyle.Render(r.ID),
			lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Render(title),
			dateStyle.Render(r.Date),
			dateStyle.Render(r.Time))
	}
	_ = w.Flush()
}

func init() {
	rootCmd.AddCommand(remindersCmd)
	remindersCmd.AddCommand(remindersListCmd)
	remindersCmd.AddCommand(remindersAddCmd)
	remindersCmd.AddCommand(remindersDeleteCmd)
	remindersCmd.AddCommand(remindersVoiceCmd)
	remindersCmd.AddCommand(remindersWatchCmd)

	remindersAddCmd.Flags().StringVar(&reminderTitle, "title", "", "Reminder title")
	remindersAddCmd.Flags().StringVar(&reminderDate, "date", "", "Reminder date (YYYY-MM-DD)")
	remindersAddCmd.Flags().StringVar(&reminderTime, "time", "", "Reminder time (e.g. \"8:00 AM\" or \"20:00\")")
	_ = remindersAddCmd.MarkFlagRequired("title")
	_ = remindersAddCmd.MarkFlagRequired("date")
	_ = remindersAddCmd.MarkFlagRequired("time")

	remindersWatchCmd.Flags().DurationVar(&watchInterval, "interval", time.Minute, "How often to re-fetch reminders")
}
