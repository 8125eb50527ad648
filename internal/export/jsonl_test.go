package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/silvercare/companion/internal"
)

func testTime() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

func TestJSONLExporter_Export(t *testing.T) {
	base := testTime()
	tests := []struct {
		name    string
		session internal.ChatSession
		want    []string
	}{
		{
			name:    "empty session",
			session: internal.ChatSession{ID: "test1"},
			want:    []string{},
		},
		{
			name:    "session with messages",
			session: internal.CreateTestSession("test2", "Test Session", base),
			want: []string{
				`"actor":"user"`,
				`"actor":"assistant"`,
				`"timestamp":"2026-03-01T09:00:00Z"`,
			},
		},
		{
			name: "emergency notice carries its kind",
			session: internal.ChatSession{
				ID: "test3",
				Messages: []internal.Message{
					internal.NewNotice("emergency", "Emergency situation detected", base),
				},
			},
			want: []string{
				`"notice":"emergency"`,
				`"actor":"assistant"`,
			},
		},
		{
			name: "message without timestamp omits the field",
			session: internal.ChatSession{
				ID:       "test4",
				Messages: []internal.Message{{ID: "m1", Text: "Hello", IsUser: true}},
			},
			want: []string{
				`"actor":"user"`,
				`"content":"Hello"`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			exporter := &JSONLExporter{}

			if err := exporter.Export(&tt.session, &buf); err != nil {
				t.Fatalf("JSONLExporter.Export() error = %v", err)
			}

			output := buf.String()
			if len(tt.session.Messages) == 0 && output != "" {
				t.Errorf("Empty session should produce empty output, got: %q", output)
				return
			}

			for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
				if line == "" {
					continue
				}
				var msg map[string]interface{}
				if err := json.Unmarshal([]byte(line), &msg); err != nil {
					t.Errorf("Line is not valid JSON: %v", err)
				}
			}

			for _, wantStr := range tt.want {
				if !strings.Contains(output, wantStr) {
					t.Errorf("Output should contain %q, got:\n%s", wantStr, output)
				}
			}
		})
	}
}

func TestJSONLExporter_Extension(t *testing.T) {
	exporter := &JSONLExporter{}
	if got := exporter.Extension(); got != "jsonl" {
		t.Errorf("JSONLExporter.Extension() = %v, want jsonl", got)
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		wantExt string
		wantErr bool
	}{
		{"jsonl", "jsonl", false},
		{"json", "json", false},
		{"md", "md", false},
		{"markdown", "md", false},
		{"yaml", "yaml", false},
		{"xml", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exporter, err := NewExporter(tt.format)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewExporter(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got := exporter.Extension(); got != tt.wantExt {
				t.Errorf("Extension() = %q, want %q", got, tt.wantExt)
			}
		})
	}
}
