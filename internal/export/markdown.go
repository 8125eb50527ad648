package export

import (
	"fmt"
	"io"
	"time"

	"github.com/silvercare/companion/internal"
)

// MarkdownExporter exports transcripts in Markdown format
type MarkdownExporter struct{}

// Export exports a session transcript to Markdown format
func (e *MarkdownExporter) Export(session *internal.ChatSession, w io.Writer) error {
	title := session.Name
	if title == "" {
		title = session.ID
	}
	_, _ = fmt.Fprintf(w, "# %s\n\n", title)

	if !session.CreatedAt.IsZero() {
		_, _ = fmt.Fprintf(w, "**Created:** %s  \n", session.CreatedAt.Format(time.RFC3339))
	}
	if !session.LastActivity.IsZero() {
		_, _ = fmt.Fprintf(w, "**Last activity:** %s  \n", session.LastActivity.Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(session.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")

	for i, msg := range session.Messages {
		label := actor(msg)
		if kind := noticeKind(msg); kind != "" {
			label = fmt.Sprintf("%s [%s]", label, kind)
		}

		timestamp := ""
		if !msg.Timestamp.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", msg.Timestamp.Format(time.RFC3339))
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", label, timestamp, msg.Text)

		if i < len(session.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
