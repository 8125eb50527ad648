package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/silvercare/companion/internal"
)

// JSONLExporter exports transcripts in JSONL format (one message per line)
type JSONLExporter struct{}

// Export exports a session transcript to JSONL format
func (e *JSONLExporter) Export(session *internal.ChatSession, w io.Writer) error {
	enc := json.NewEncoder(w)

	for _, msg := range session.Messages {
		obj := map[string]interface{}{
			"actor":   actor(msg),
			"content": msg.Text,
		}
		if !msg.Timestamp.IsZero() {
			obj["timestamp"] = msg.Timestamp.Format(time.RFC3339)
		}
		if kind := noticeKind(msg); kind != "" {
			obj["notice"] = kind
		}

		if err := enc.Encode(obj); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}

	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}

func actor(msg internal.Message) string {
	if msg.IsUser {
		return "user"
	}
	return "assistant"
}

// noticeKind names a notice's category for export, or "" for a plain
// conversation turn.
func noticeKind(msg internal.Message) string {
	switch {
	case msg.IsEmergency:
		return "emergency"
	case msg.IsReminder:
		return "reminder"
	case msg.IsError:
		return "error"
	default:
		return ""
	}
}
