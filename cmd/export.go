package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/silvercare/companion/internal"
	"github.com/silvercare/companion/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOutput string
	exportCached bool
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript",
	Long: `Export a session transcript in the chosen format.

Formats: jsonl (default), json, md, yaml.

The session is fetched from the backend and the local cache is
refreshed on the way. With --cached the backend is skipped and the
transcript comes from the local cache, which makes export work
offline.

Examples:
  silvercare export abc123 --format md
  silvercare export abc123 --format jsonl --output ./transcripts
  silvercare export abc123 --cached --output -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]
		cfg := loadConfig()

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		session, err := resolveSession(cfg, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return fmt.Errorf("session %s not found", sessionID)
		}

		if exportOutput == "-" {
			return exporter.Export(session, os.Stdout)
		}

		dir := exportOutput
		if dir == "" {
			dir = "."
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path := filepath.Join(dir, sessionID+"."+exporter.Extension())
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()

		if err := exporter.Export(session, f); err != nil {
			return err
		}
		fmt.Printf("Exported session %s to %s\n", idStyle.Render(sessionID), titleStyle.Render(path))
		return nil
	},
}

// resolveSession finds the session on the backend, falling back to the local
// cache when the backend is unreachable or --cached was given.
func resolveSession(cfg *internal.Config, sessionID string) (*internal.ChatSession, error) {
	if !exportCached {
		user, err := requireUser(cfg)
		if err != nil {
			return nil, err
		}
		store := internal.NewStoreClient(cfg.APIBaseURL, cfg.RequestTimeout)
		resp, err := store.LoadSessions(user.ID)
		if err != nil {
			internal.LogWarn("Backend unreachable, falling back to cache: %v", err)
		} else {
			refreshSessionCache(cfg.CachePath, resp.Sessions)
			for i := range resp.Sessions {
				if resp.Sessions[i].ID == sessionID {
					return &resp.Sessions[i], nil
				}
			}
			return nil, nil
		}
	}

	cache, err := internal.OpenSessionCache(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	defer cache.Close()
	return cache.Session(sessionID)
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "jsonl", "Export format: jsonl, json, md, yaml")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output directory, or - for stdout")
	exportCmd.Flags().BoolVar(&exportCached, "cached", false, "Export from the local cache without contacting the backend")
}
