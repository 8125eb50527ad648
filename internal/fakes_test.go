package internal

import (
	"errors"
	"time"
)

var errTestSpeech = errors.New("speech synthesis failed")

// fakeStore is an in-memory SessionStore and ReminderStore.
type fakeStore struct {
	sessions  []ChatSession
	currentID string
	counter   int
	reminders []Reminder

	loadErr   error
	createErr error
	deleteErr error
	updateErr error
	touchErr  error

	createCalls  int
	updateCalls  [][]Message
	touchCalls   []string
	saveCalls    int
	nextSession  *ChatSession
	deletedIDs   []string
	formatResult *FormatReminderResponse
}

func (f *fakeStore) LoadSessions(userID string) (*LoadSessionsResponse, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return &LoadSessionsResponse{
		Success:          true,
		Sessions:         append([]ChatSession(nil), f.sessions...),
		CurrentSessionID: f.currentID,
		SessionCounter:   f.counter,
	}, nil
}

func (f *fakeStore) SaveSessions(sessions []ChatSession, currentID string, counter int, userID string) error {
	f.saveCalls++
	return nil
}

func (f *fakeStore) CreateSession(name, userID string) (*ChatSession, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.createCalls++
	if f.nextSession != nil {
		s := *f.nextSession
		return &s, nil
	}
	return &ChatSession{
		ID:        "session-" + name,
		Name:      name,
		Messages:  []Message{},
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeStore) UpdateMessages(sessionID string, messages []Message, userID string) error {
	if len(messages) == 0 {
		return &ValidationError{Field: "messages", Reason: "refusing to overwrite history with an empty array"}
	}
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateCalls = append(f.updateCalls, append([]Message(nil), messages...))
	return nil
}

func (f *fakeStore) DeleteSession(sessionID, userID string) ([]ChatSession, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, sessionID)
	var remaining []ChatSession
	for _, s := range f.sessions {
		if s.ID != sessionID {
			remaining = append(remaining, s)
		}
	}
	f.sessions = remaining
	if remaining == nil {
		remaining = []ChatSession{}
	}
	return remaining, nil
}

func (f *fakeStore) TouchActivity(sessionID, userID string) error {
	if f.touchErr != nil {
		return f.touchErr
	}
	f.touchCalls = append(f.touchCalls, sessionID)
	return nil
}

func (f *fakeStore) FetchReminders(userID string) ([]Reminder, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]Reminder(nil), f.reminders...), nil
}

func (f *fakeStore) AddReminder(r Reminder, userID string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.reminders = append(f.reminders, r)
	return nil
}

func (f *fakeStore) DeleteReminder(id, userID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	return nil
}

func (f *fakeStore) FormatReminder(input, userID string) (*FormatReminderResponse, error) {
	if f.formatResult != nil {
		return f.formatResult, nil
	}
	return &FormatReminderResponse{Success: true, Message: "Voice reminder created successfully"}, nil
}

// fakeVoice records utterances and completes speech synchronously.
type fakeVoice struct {
	spoken   []string
	speaking bool
	failNext bool
	stops    int
}

func (v *fakeVoice) Speak(text string, cb SpeechCallbacks) {
	v.spoken = append(v.spoken, text)
	if v.failNext {
		v.failNext = false
		if cb.OnError != nil {
			cb.OnError(errTestSpeech)
		}
		return
	}
	if cb.OnEnded != nil {
		cb.OnEnded()
	}
}

func (v *fakeVoice) Listen() (string, error) { return "", nil }
func (v *fakeVoice) Stop()                   { v.stops++; v.speaking = false }
func (v *fakeVoice) IsSpeaking() bool        { return v.speaking }

// fakeMessenger records every deep-link it was asked to open.
type fakeMessenger struct {
	links   []string
	numbers []string
	err     error
}

func (m *fakeMessenger) SendDeepLink(number, text string) error {
	if m.err != nil {
		return m.err
	}
	m.numbers = append(m.numbers, NormalizeNumber(number))
	m.links = append(m.links, text)
	return nil
}

// fakeChat is a canned ChatService.
type fakeChat struct {
	resp      *ChatTurnResponse
	err       error
	calls     int
	histories [][]HistoryEntry
}

func (c *fakeChat) SendChatTurn(input, userID string, history []HistoryEntry, sessionID string) (*ChatTurnResponse, error) {
	c.calls++
	c.histories = append(c.histories, history)
	if c.err != nil {
		return nil, c.err
	}
	if c.resp != nil {
		return c.resp, nil
	}
	return &ChatTurnResponse{Message: "Hello there"}, nil
}

// fakePlayer is an AudioPlayer that tracks loop/stop calls.
type fakePlayer struct {
	loops int
	stops int
}

func (p *fakePlayer) Loop() error { p.loops++; return nil }
func (p *fakePlayer) Stop()       { p.stops++ }

// fakeNotifier records raised notifications.
type fakeNotifier struct {
	granted bool
	raised  []string
}

func (n *fakeNotifier) PermissionGranted() bool { return n.granted }
func (n *fakeNotifier) Notify(title, body string) error {
	n.raised = append(n.raised, title+": "+body)
	return nil
}
