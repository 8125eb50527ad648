package internal

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestPipeline(chat ChatService, manager *SessionManager, responder *EmergencyResponder, voice Voice) *MessagePipeline {
	p := NewMessagePipeline(chat, manager, responder, voice)
	p.now = manager.now
	return p
}

func TestMessagePipeline_SendMessage(t *testing.T) {
	store := &fakeStore{sessions: []ChatSession{{ID: "s1"}}, currentID: "s1", counter: 2}
	manager := newTestManager(store, nil)
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	manager.SetInputDisabled(false)

	chat := &fakeChat{resp: &ChatTurnResponse{Message: "You're welcome"}}
	voice := &fakeVoice{}
	p := newTestPipeline(chat, manager, nil, voice)

	if !p.SendMessage("thank you") {
		t.Fatal("send should be accepted")
	}
	if p.State() != TurnReplied {
		t.Errorf("expected TurnReplied, got %v", p.State())
	}

	messages := manager.Messages()
	if len(messages) != 2 {
		t.Fatalf("expected user message plus reply, got %d", len(messages))
	}
	if !messages[0].IsUser || messages[0].Text != "thank you" {
		t.Errorf("unexpected user message: %+v", messages[0])
	}
	if messages[1].IsUser || messages[1].Text != "You're welcome" {
		t.Errorf("unexpected reply: %+v", messages[1])
	}
	if len(voice.spoken) != 1 {
		t.Errorf("reply should be spoken, got %v", voice.spoken)
	}
	if manager.InputDisabled() {
		t.Error("input should reopen after the reply speech ends")
	}
}

func TestMessagePipeline_SendMessage_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		setup func(manager *SessionManager, voice *fakeVoice, p *MessagePipeline)
	}{
		{
			name: "blank text",
			text: "   ",
		},
		{
			name: "input gate closed",
			text: "hello",
			setup: func(manager *SessionManager, voice *fakeVoice, p *MessagePipeline) {
				manager.SetInputDisabled(true)
			},
		},
		{
			name: "assistant speaking",
			text: "hello",
			setup: func(manager *SessionManager, voice *fakeVoice, p *MessagePipeline) {
				voice.speaking = true
			},
		},
		{
			name: "send in flight",
			text: "hello",
			setup: func(manager *SessionManager, voice *fakeVoice, p *MessagePipeline) {
				p.state = TurnSending
			},
		},
		{
			name: "session transition in flight",
			text: "hello",
			setup: func(manager *SessionManager, voice *fakeVoice, p *MessagePipeline) {
				manager.inFlight = true
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{sessions: []ChatSession{{ID: "s1"}}, currentID: "s1", counter: 2}
			manager := newTestManager(store, nil)
			if err := manager.Initialize(); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			manager.SetInputDisabled(false)

			chat := &fakeChat{}
			voice := &fakeVoice{}
			p := newTestPipeline(chat, manager, nil, voice)
			if tt.setup != nil {
				tt.setup(manager, voice, p)
			}

			before := len(manager.Messages())
			if p.SendMessage(tt.text) {
				t.Error("send should be rejected")
			}
			if chat.calls != 0 {
				t.Errorf("rejected send must not reach the backend, got %d calls", chat.calls)
			}
			if len(manager.Messages()) != before {
				t.Error("rejected send must not append messages")
			}
		})
	}
}

func TestMessagePipeline_SendMessage_NoUser(t *testing.T) {
	manager := NewSessionManager(&fakeStore{}, nil, nil)
	p := NewMessagePipeline(&fakeChat{}, manager, nil, nil)
	if p.SendMessage("hello") {
		t.Error("send without a user should be rejected")
	}
}

func TestMessagePipeline_HistoryExcludesNoticesAndCurrentInput(t *testing.T) {
	store := &fakeStore{sessions: []ChatSession{{ID: "s1"}}, currentID: "s1", counter: 2}
	manager := newTestManager(store, nil)
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	manager.SetInputDisabled(false)

	now := manager.now()
	manager.Append(NewUserMessage("earlier question", now))
	manager.Append(NewAssistantMessage("earlier answer", now))
	manager.Append(NewNotice("emergency", "Emergency situation detected", now))
	manager.Append(NewNotice("error", "Network error.", now))

	chat := &fakeChat{}
	p := newTestPipeline(chat, manager, nil, &fakeVoice{})

	if !p.SendMessage("new question") {
		t.Fatal("send should be accepted")
	}
	if len(chat.histories) != 1 {
		t.Fatalf("expected 1 request, got %d", len(chat.histories))
	}
	history := chat.histories[0]
	if len(history) != 2 {
		t.Fatalf("history should carry only conversation turns, got %d entries", len(history))
	}
	if history[0].Role != "user" || history[0].Content != "earlier question" {
		t.Errorf("unexpected history[0]: %+v", history[0])
	}
	if history[1].Role != "assistant" || history[1].Content != "earlier answer" {
		t.Errorf("unexpected history[1]: %+v", history[1])
	}
	for _, entry := range history {
		if entry.Content == "new question" {
			t.Error("current input must travel in the input field, not the history")
		}
	}
}

func TestMessagePipeline_EmptyReplyFallsBackToApology(t *testing.T) {
	store := &fakeStore{sessions: []ChatSession{{ID: "s1"}}, currentID: "s1", counter: 2}
	manager := newTestManager(store, nil)
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	manager.SetInputDisabled(false)

	chat := &fakeChat{resp: &ChatTurnResponse{Message: ""}}
	p := newTestPipeline(chat, manager, nil, &fakeVoice{})

	if !p.SendMessage("hello") {
		t.Fatal("send should be accepted")
	}
	messages := manager.Messages()
	if got := messages[len(messages)-1].Text; got != apologyText {
		t.Errorf("expected apology fallback, got %q", got)
	}
}

func TestMessagePipeline_FailedTurn(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "temporary server error",
			err:  &ServerError{Op: "send chat message", Status: 503, Body: "unavailable"},
			want: "Server is temporarily unavailable. Please try again in a moment.",
		},
		{
			name: "transport error",
			err:  &TransportError{Op: "send chat message", Err: errors.New("connection refused")},
			want: "Network error. Please check your internet connection.",
		},
		{
			name: "client error",
			err:  &ServerError{Op: "send chat message", Status: 400, Body: "bad request"},
			want: "Unable to connect to the server. Please check your internet connection and try again.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{sessions: []ChatSession{{ID: "s1"}}, currentID: "s1", counter: 2}
			manager := newTestManager(store, nil)
			if err := manager.Initialize(); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			manager.SetInputDisabled(false)

			chat := &fakeChat{err: tt.err}
			p := newTestPipeline(chat, manager, nil, &fakeVoice{})

			if !p.SendMessage("hello") {
				t.Fatal("accepted send that fails downstream still counts as accepted")
			}
			if p.State() != TurnFailed {
				t.Errorf("expected TurnFailed, got %v", p.State())
			}
			if got := p.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}

			messages := manager.Messages()
			last := messages[len(messages)-1]
			if !last.IsError {
				t.Error("failure must append an error notice")
			}
			if last.Text != tt.want {
				t.Errorf("notice text = %q, want %q", last.Text, tt.want)
			}
			// The optimistic user message stays.
			if !messages[len(messages)-2].IsUser {
				t.Error("optimistic user message must not be rolled back")
			}
		})
	}
}

func TestMessagePipeline_ErrorBannerExpires(t *testing.T) {
	store := &fakeStore{sessions: []ChatSession{{ID: "s1"}}, currentID: "s1", counter: 2}
	manager := newTestManager(store, nil)
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	manager.SetInputDisabled(false)

	chat := &fakeChat{err: &TransportError{Op: "send chat message", Err: errors.New("refused")}}
	p := newTestPipeline(chat, manager, nil, &fakeVoice{})

	p.SendMessage("hello")
	if p.Error() == "" {
		t.Fatal("banner should be visible right after the failure")
	}

	advanceClock(manager, 11*time.Second)
	p.now = manager.now
	if p.Error() != "" {
		t.Error("banner should auto-clear after the timeout")
	}

	// The error notice stays in the history.
	messages := manager.Messages()
	if !messages[len(messages)-1].IsError {
		t.Error("history must keep the error notice after the banner clears")
	}
}

func TestMessagePipeline_ClearError(t *testing.T) {
	store := &fakeStore{sessions: []ChatSession{{ID: "s1"}}, currentID: "s1", counter: 2}
	manager := newTestManager(store, nil)
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	manager.SetInputDisabled(false)

	chat := &fakeChat{err: &TransportError{Op: "send chat message", Err: errors.New("refused")}}
	p := newTestPipeline(chat, manager, nil, &fakeVoice{})

	p.SendMessage("hello")
	p.ClearError()
	if p.Error() != "" {
		t.Error("ClearError should dismiss the banner immediately")
	}
}

func TestMessagePipeline_EmergencyTurn(t *testing.T) {
	store := &fakeStore{sessions: []ChatSession{{ID: "s1"}}, currentID: "s1", counter: 2}
	manager := newTestManager(store, nil)
	if err := manager.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	manager.SetInputDisabled(false)

	messenger := &fakeMessenger{}
	voice := &fakeVoice{}
	responder := NewEmergencyResponder(messenger, NilLocator{}, voice)
	manager.user.EmergencyContacts = []EmergencyContact{{Name: "Alice", Number: "5550100001"}}

	chat := &fakeChat{resp: &ChatTurnResponse{
		Message:             "Please stay calm.",
		EmergencyDetected:   true,
		EmergencyConfidence: 0.9,
		EmergencyAnalysis:   &EmergencyAnalysis{SentimentPolarity: -0.5},
	}}
	p := newTestPipeline(chat, manager, responder, voice)

	if !p.SendMessage("I think I'm having a heart attack") {
		t.Fatal("send should be accepted")
	}

	if len(messenger.links) != 1 {
		t.Errorf("expected contact fan-out, got %d links", len(messenger.links))
	}

	messages := manager.Messages()
	last := messages[len(messages)-1]
	if !strings.Contains(last.Text, "I've already notified your emergency contacts.") {
		t.Errorf("reply should carry the emergency acknowledgment prefix, got %q", last.Text)
	}
	if !strings.Contains(last.Text, "Please stay calm.") {
		t.Errorf("reply should still contain the backend message, got %q", last.Text)
	}

	// Only the responder speaks; the reply voice-over is suppressed.
	if len(voice.spoken) != 1 {
		t.Errorf("expected exactly the emergency speech, got %v", voice.spoken)
	}
}

func TestMessagePipeline_ReminderNotices(t *testing.T) {
	tests := []struct {
		name       string
		result     *ReminderResult
		wantFlag   func(m Message) bool
		wantInText string
	}{
		{
			name: "successful extraction",
			result: &ReminderResult{
				Success:  true,
				Reminder: &Reminder{Title: "Take medication", Date: "2026-09-01", Time: "8:00 AM"},
			},
			wantFlag:   func(m Message) bool { return m.IsReminder },
			wantInText: "Reminder Created Successfully!",
		},
		{
			name:       "failed extraction",
			result:     &ReminderResult{Success: false},
			wantFlag:   func(m Message) bool { return m.IsError },
			wantInText: "Reminder Processing Failed",
		},
		{
			name:       "missing result",
			result:     nil,
			wantFlag:   func(m Message) bool { return m.IsError },
			wantInText: "Reminder Processing Failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{sessions: []ChatSession{{ID: "s1"}}, currentID: "s1", counter: 2}
			manager := newTestManager(store, nil)
			if err := manager.Initialize(); err != nil {
				t.Fatalf("Initialize() error = %v", err)
			}
			manager.SetInputDisabled(false)

			chat := &fakeChat{resp: &ChatTurnResponse{
				Message:          "Noted.",
				ReminderDetected: true,
				ReminderResult:   tt.result,
			}}
			p := newTestPipeline(chat, manager, nil, &fakeVoice{})

			if !p.SendMessage("remind me to take my medication") {
				t.Fatal("send should be accepted")
			}

			messages := manager.Messages()
			// user message, reminder notice, reply
			if len(messages) != 3 {
				t.Fatalf("expected 3 messages, got %d", len(messages))
			}
			notice := messages[1]
			if !tt.wantFlag(notice) {
				t.Errorf("notice flags wrong: %+v", notice)
			}
			if !strings.Contains(notice.Text, tt.wantInText) {
				t.Errorf("notice missing %q: %s", tt.wantInText, notice.Text)
			}
		})
	}
}

func TestReminderSuccessText_Fallbacks(t *testing.T) {
	got := reminderSuccessText(nil)
	for _, want := range []string{"New Reminder", "Not specified"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing fallback %q in %q", want, got)
		}
	}

	got = reminderSuccessText(&Reminder{Title: "Call doctor", Date: "2026-09-02", Time: "3:00 PM"})
	for _, want := range []string{"Call doctor", "2026-09-02", "3:00 PM"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in %q", want, got)
		}
	}
}
