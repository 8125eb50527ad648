package internal

import (
	"errors"
	"fmt"
	"time"
)

// WelcomeText is spoken and shown when a conversation starts.
const WelcomeText = "Welcome, How can I assist you today?"

// ErrTransitionInFlight is returned when a session transition is requested
// while another one is still running or cooling down. Requests are dropped,
// never queued.
var ErrTransitionInFlight = errors.New("session transition already in flight")

// ErrNoUser is returned for operations that require a signed-in user.
var ErrNoUser = errors.New("no user configured")

// TransitionState is the per-action exclusivity state for session
// transitions (create, delete, switch, start).
type TransitionState int

const (
	// TransitionIdle means a new transition may begin.
	TransitionIdle TransitionState = iota
	// TransitionInFlight means a transition is currently running.
	TransitionInFlight
	// TransitionCooldown absorbs redundant retries shortly after a
	// transition finished.
	TransitionCooldown
)

// transitionCooldown is how long the guard stays held after a transition
// logically completes.
const transitionCooldown = 300 * time.Millisecond

// SessionStore is the remote persistence surface the manager depends on.
// *StoreClient implements it.
type SessionStore interface {
	LoadSessions(userID string) (*LoadSessionsResponse, error)
	SaveSessions(sessions []ChatSession, currentID string, counter int, userID string) error
	CreateSession(name, userID string) (*ChatSession, error)
	UpdateMessages(sessionID string, messages []Message, userID string) error
	DeleteSession(sessionID, userID string) ([]ChatSession, error)
	TouchActivity(sessionID, userID string) error
}

// SessionManager owns the in-memory session list, the active session
// pointer and the monotonic session-name counter, and keeps them
// reconciled with the remote store. It is driven from a single event loop
// and is not safe for concurrent use.
type SessionManager struct {
	store SessionStore
	voice Voice
	user  *UserProfile

	sessions []ChatSession
	current  string
	counter  int

	// messages is the active session's message view.
	messages      []Message
	inputDisabled bool

	inFlight      bool
	cooldownUntil time.Time

	now func() time.Time
}

// NewSessionManager creates a manager for the given user. The voice
// capability is stopped on every transition and used for welcome messages.
func NewSessionManager(store SessionStore, voice Voice, user *UserProfile) *SessionManager {
	if voice == nil {
		voice = SilentVoice{}
	}
	return &SessionManager{
		store:         store,
		voice:         voice,
		user:          user,
		counter:       1,
		inputDisabled: true,
		now:           time.Now,
	}
}

// Sessions returns the local session list, newest first.
func (m *SessionManager) Sessions() []ChatSession { return m.sessions }

// ActiveID returns the active session's ID, or "" when none is active.
func (m *SessionManager) ActiveID() string { return m.current }

// Messages returns the active session's message view.
func (m *SessionManager) Messages() []Message { return m.messages }

// Counter returns the session-name counter used for the next "Chat {n}".
func (m *SessionManager) Counter() int { return m.counter }

// InputDisabled reports whether the input gate is closed, either because no
// conversation has started or because the assistant is speaking.
func (m *SessionManager) InputDisabled() bool { return m.inputDisabled }

// SetInputDisabled opens or closes the input gate.
func (m *SessionManager) SetInputDisabled(disabled bool) { m.inputDisabled = disabled }

// User returns the signed-in user profile.
func (m *SessionManager) User() *UserProfile { return m.user }

// TransitionState reports the current transition guard state.
func (m *SessionManager) TransitionState() TransitionState {
	if m.inFlight {
		return TransitionInFlight
	}
	if m.now().Before(m.cooldownUntil) {
		return TransitionCooldown
	}
	return TransitionIdle
}

// tryBeginTransition is the single transition function for the guard.
// It returns false while another transition runs or cools down.
func (m *SessionManager) tryBeginTransition() bool {
	if m.TransitionState() != TransitionIdle {
		return false
	}
	m.inFlight = true
	return true
}

func (m *SessionManager) endTransition() {
	m.inFlight = false
	m.cooldownUntil = m.now().Add(transitionCooldown)
}

// Initialize loads sessions, the active pointer and the counter from the
// store. Store failure is not an error to the caller: the manager resets to
// an empty counter-1 state, because "no sessions" is a valid state the UI
// must handle anyway.
func (m *SessionManager) Initialize() error {
	if m.user == nil || m.user.ID == "" {
		return ErrNoUser
	}
	m.voice.Stop()

	resp, err := m.store.LoadSessions(m.user.ID)
	if err != nil || !resp.Success {
		if err != nil {
			LogError("failed to load chat sessions: %v", err)
		} else {
			LogError("failed to load chat sessions: %s", resp.Error)
		}
		m.sessions = nil
		m.current = ""
		m.counter = 1
		m.messages = nil
		m.inputDisabled = true
		return nil
	}

	m.sessions = resp.Sessions
	m.counter = resp.SessionCounter
	if m.counter < 1 {
		m.counter = 1
	}
	m.current = ""
	m.messages = nil
	m.inputDisabled = true

	if len(resp.Sessions) == 0 {
		return nil
	}

	active := m.findSession(resp.CurrentSessionID)
	if active == nil {
		active = &m.sessions[0]
	}
	m.current = active.ID
	m.messages = append([]Message(nil), active.Messages...)
	m.inputDisabled = len(active.Messages) == 0
	return nil
}

// CreateSession creates a named session in the store, then prepends it
// locally, activates it and bumps the counter. On store failure the local
// state is left untouched and a SessionCreateError is returned.
func (m *SessionManager) CreateSession(name string) (*ChatSession, error) {
	if m.user == nil || m.user.ID == "" {
		return nil, ErrNoUser
	}
	if !m.tryBeginTransition() {
		return nil, ErrTransitionInFlight
	}
	defer m.endTransition()

	m.voice.Stop()

	session, err := m.store.CreateSession(name, m.user.ID)
	if err != nil {
		return nil, &SessionCreateError{Name: name, Err: err}
	}

	m.sessions = append([]ChatSession{*session}, m.sessions...)
	m.current = session.ID
	m.counter++
	m.messages = nil
	m.inputDisabled = true
	return session, nil
}

// DeleteSession deletes a session and replaces the local list with the
// store's reported remainder, tolerating concurrent deletions from other
// clients. When the active session was deleted, the most recently active
// remainder becomes active, or the active pointer clears and the input gate
// closes when nothing remains.
func (m *SessionManager) DeleteSession(id string) error {
	if m.user == nil || m.user.ID == "" {
		return ErrNoUser
	}
	if id == "" {
		return &ValidationError{Field: "sessionId", Reason: "empty"}
	}
	if !m.tryBeginTransition() {
		return ErrTransitionInFlight
	}
	defer m.endTransition()

	m.voice.Stop()

	remaining, err := m.store.DeleteSession(id, m.user.ID)
	if err != nil {
		return err
	}
	m.sessions = remaining
	if len(m.sessions) == 0 {
		m.counter = 1
	}

	if m.current != id {
		return nil
	}
	if next := MostRecentSession(m.sessions); next != nil {
		m.activate(next)
		if err := m.store.TouchActivity(next.ID, m.user.ID); err != nil {
			LogWarn("failed to update session activity: %v", err)
		} else {
			m.touchLocal(next.ID)
		}
		return nil
	}
	m.current = ""
	m.messages = nil
	m.inputDisabled = true
	return nil
}

// SwitchSession makes another session active and loads its messages into
// the view. Switching to the already-active session is a no-op, as is any
// switch while a transition is in flight.
func (m *SessionManager) SwitchSession(id string) error {
	if id == "" || id == m.current {
		return nil
	}
	if !m.tryBeginTransition() {
		return ErrTransitionInFlight
	}
	defer m.endTransition()

	target := m.findSession(id)
	if target == nil {
		return &StoreInconsistencyError{Kind: "session", ID: id}
	}

	m.voice.Stop()
	m.activate(target)
	m.TouchActivity(id)
	return nil
}

// StartChat begins a conversation: it creates a "Chat {n}" session when none
// is active, then appends and speaks the welcome message. The input gate
// stays closed until the welcome speech terminates.
func (m *SessionManager) StartChat() error {
	if m.user == nil || m.user.ID == "" {
		return ErrNoUser
	}
	if m.current == "" {
		session, err := m.CreateSession(fmt.Sprintf("Chat %d", m.counter))
		if err != nil {
			return err
		}
		m.current = session.ID
	}

	welcome := Message{
		ID:        fmt.Sprintf("welcome_%d", m.now().UnixMilli()),
		Text:      WelcomeText,
		IsUser:    false,
		Timestamp: m.now(),
	}
	m.Append(welcome)
	m.inputDisabled = true
	m.voice.Speak(CleanTextForSpeech(WelcomeText), SpeechCallbacks{
		OnEnded: func() { m.inputDisabled = false },
		OnError: func(err error) {
			LogWarn("speech synthesis failed for welcome message: %v", err)
			m.inputDisabled = false
		},
	})
	return nil
}

// Append adds a message to the active view and persists the session's full
// message array, best-effort. Messages are never removed or edited.
func (m *SessionManager) Append(msg Message) {
	m.messages = append(m.messages, msg)
	if m.current == "" {
		return
	}
	if err := m.PersistMessages(m.current, m.messages); err != nil {
		LogWarn("failed to persist session messages: %v", err)
	}
}

// PersistMessages upserts a session's full message array. Empty arrays are
// rejected locally: an unloaded view must never overwrite stored history.
func (m *SessionManager) PersistMessages(id string, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}
	if m.user == nil {
		return ErrNoUser
	}
	if err := m.store.UpdateMessages(id, messages, m.user.ID); err != nil {
		return err
	}
	if s := m.findSession(id); s != nil {
		s.Messages = append([]Message(nil), messages...)
		s.MessageCount = len(messages)
		s.LastActivity = m.now()
	}
	return nil
}

// TouchActivity marks a session as just used, locally and in the store.
// Best-effort: failures are logged, never surfaced.
func (m *SessionManager) TouchActivity(id string) {
	if m.user == nil || id == "" {
		return
	}
	if err := m.store.TouchActivity(id, m.user.ID); err != nil {
		LogWarn("failed to update session activity: %v", err)
		return
	}
	m.touchLocal(id)
}

// SaveState uploads a snapshot of the full local state, best-effort.
func (m *SessionManager) SaveState() {
	if m.user == nil {
		return
	}
	if len(m.sessions) == 0 && m.current == "" && m.counter <= 1 {
		return
	}
	if err := m.store.SaveSessions(m.sessions, m.current, m.counter, m.user.ID); err != nil {
		LogWarn("failed to save chat state: %v", err)
	}
}

func (m *SessionManager) activate(s *ChatSession) {
	m.current = s.ID
	m.messages = append([]Message(nil), s.Messages...)
	// A fresh session waits for a start action before accepting input.
	m.inputDisabled = len(s.Messages) == 0
}

func (m *SessionManager) findSession(id string) *ChatSession {
	if id == "" {
		return nil
	}
	for i := range m.sessions {
		if m.sessions[i].ID == id {
			return &m.sessions[i]
		}
	}
	return nil
}

func (m *SessionManager) touchLocal(id string) {
	if s := m.findSession(id); s != nil {
		s.LastActivity = m.now()
	}
}
