package internal

import (
	"fmt"
	"time"
)

// ChatSession represents a persisted conversation thread.
// The remote store generates session IDs and is authoritative for the
// session list; local copies are reconciled after every mutating call.
type ChatSession struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"createdAt"`
	LastActivity time.Time `json:"lastActivity"`
	MessageCount int       `json:"messageCount"`
}

// Message represents a single chat message. Messages are immutable once
// appended; the persistence unit is the session's full message array.
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"message"`
	IsUser    bool      `json:"isUser"`
	Timestamp time.Time `json:"timestamp"`

	// Render hints for system-generated notices. A notice is never sent
	// back to the backend as conversation context.
	IsEmergency bool `json:"isEmergency,omitempty"`
	IsReminder  bool `json:"isReminder,omitempty"`
	IsError     bool `json:"isError,omitempty"`
}

// IsNotice reports whether the message is a system-generated notice rather
// than a conversation turn.
func (m Message) IsNotice() bool {
	return m.IsEmergency || m.IsReminder || m.IsError
}

// EmergencyContact is a user-configured contact for emergency fan-out.
// Number may carry display formatting and is normalized before use.
type EmergencyContact struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

// UserProfile carries the parts of the signed-in user the orchestrator needs.
type UserProfile struct {
	ID                string             `json:"id"`
	Name              string             `json:"name,omitempty"`
	EmergencyContacts []EmergencyContact `json:"emergencyContacts,omitempty"`
}

// Reminder represents a scheduled reminder. CreatedAt is the dedup and sort
// key; Date is a calendar date (YYYY-MM-DD) and Time a display-formatted
// 12-hour time.
type Reminder struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Time      string `json:"time"`
	CreatedAt string `json:"created_at"`
}

// HistoryEntry is one sanitized prior turn sent to the chat endpoint.
type HistoryEntry struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// PatternMatches counts the emergency pattern categories the backend matched.
type PatternMatches struct {
	ImmediateDanger  int `json:"immediate_danger"`
	MedicalEmergency int `json:"medical_emergency"`
	SafetyThreats    int `json:"safety_threats"`
}

// EmergencyAnalysis is the backend's supporting evidence for an emergency
// classification.
type EmergencyAnalysis struct {
	SentimentPolarity  float64        `json:"sentiment_polarity"`
	HasImmediateDanger bool           `json:"has_immediate_danger"`
	HasMedicalDistress bool           `json:"has_medical_distress"`
	EmergencyScore     float64        `json:"emergency_score,omitempty"`
	PatternMatches     PatternMatches `json:"pattern_matches"`
}

// ReminderResult reports the outcome of server-side reminder extraction from
// a chat turn. Older backend versions return a single reminder, newer ones a
// list; FirstReminder handles both.
type ReminderResult struct {
	Success   bool       `json:"success"`
	Reminder  *Reminder  `json:"reminder,omitempty"`
	Reminders []Reminder `json:"reminders,omitempty"`
}

// FirstReminder returns the created reminder, preferring the singular field.
func (r *ReminderResult) FirstReminder() *Reminder {
	if r == nil {
		return nil
	}
	if r.Reminder != nil {
		return r.Reminder
	}
	if len(r.Reminders) > 0 {
		return &r.Reminders[0]
	}
	return nil
}

// ChatTurnResponse is the chat endpoint's response for one turn.
type ChatTurnResponse struct {
	Message             string             `json:"message"`
	EmergencyDetected   bool               `json:"emergency_detected"`
	EmergencyConfidence float64            `json:"emergency_confidence"`
	EmergencyAnalysis   *EmergencyAnalysis `json:"emergency_analysis"`
	ReminderDetected    bool               `json:"reminder_detected"`
	ReminderResult      *ReminderResult    `json:"reminder_result"`
}

// NewUserMessage creates a user message with a role-prefixed time-based ID.
func NewUserMessage(text string, now time.Time) Message {
	return Message{
		ID:        fmt.Sprintf("user_%d", now.UnixMilli()),
		Text:      text,
		IsUser:    true,
		Timestamp: now,
	}
}

// NewAssistantMessage creates a plain assistant message.
func NewAssistantMessage(text string, now time.Time) Message {
	return Message{
		ID:        fmt.Sprintf("ai_%d", now.UnixMilli()),
		Text:      text,
		IsUser:    false,
		Timestamp: now,
	}
}

// NewNotice creates a system-generated notice message. The prefix becomes
// part of the message ID, e.g. "emergency" -> "emergency-<millis>".
func NewNotice(prefix, text string, now time.Time) Message {
	m := Message{
		ID:        fmt.Sprintf("%s-%d", prefix, now.UnixMilli()),
		Text:      text,
		IsUser:    false,
		Timestamp: now,
	}
	switch prefix {
	case "emergency", "emergency-no-contacts":
		m.IsEmergency = true
	case "reminder-fail", "emergency-error", "error":
		m.IsError = true
	case "reminder-success":
		m.IsReminder = true
	}
	return m
}

// MostRecentSession returns the session with the latest activity, falling
// back to creation time for sessions that were never touched. Returns nil
// for an empty slice.
func MostRecentSession(sessions []ChatSession) *ChatSession {
	var best *ChatSession
	for i := range sessions {
		s := &sessions[i]
		if best == nil || activityTime(s).After(activityTime(best)) {
			best = s
		}
	}
	return best
}

func activityTime(s *ChatSession) time.Time {
	if !s.LastActivity.IsZero() {
		return s.LastActivity
	}
	return s.CreatedAt
}

// SanitizeHistory converts prior turns into the wire history format,
// excluding notices so client-side alerts never leak into model context.
func SanitizeHistory(messages []Message) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(messages))
	for _, msg := range messages {
		if msg.IsNotice() {
			continue
		}
		role := "assistant"
		if msg.IsUser {
			role = "user"
		}
		history = append(history, HistoryEntry{
			Role:      role,
			Content:   msg.Text,
			Timestamp: msg.Timestamp,
		})
	}
	return history
}
