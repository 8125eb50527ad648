package internal

import (
	"time"
)

// CreateTestSession creates a session with a short two-turn conversation.
func CreateTestSession(id, name string, t time.Time) ChatSession {
	messages := []Message{
		{ID: "user_1", Text: "Hello, how are you?", IsUser: true, Timestamp: t},
		{ID: "ai_1", Text: "I'm doing well, thank you!", IsUser: false, Timestamp: t.Add(time.Second)},
	}
	return ChatSession{
		ID:           id,
		Name:         name,
		Messages:     messages,
		CreatedAt:    t,
		LastActivity: t.Add(time.Second),
		MessageCount: len(messages),
	}
}

// CreateTestReminder creates a reminder due at the given time.
func CreateTestReminder(id, title string, due time.Time, createdAt string) Reminder {
	return Reminder{
		ID:        id,
		Title:     title,
		Date:      due.Format("2006-01-02"),
		Time:      FormatTimeForDisplay(due.Format("15:04")),
		CreatedAt: createdAt,
	}
}
