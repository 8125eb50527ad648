package internal

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// apologyText is the reply fallback when the backend returns no message.
const apologyText = "I apologize, but I couldn't process your request. Please try again."

// errorBannerTimeout is how long a transient error stays in the visible
// banner. The error message itself persists in the session history.
const errorBannerTimeout = 10 * time.Second

// TurnState is the per-turn send state.
type TurnState int

const (
	// TurnIdle means no send is in flight.
	TurnIdle TurnState = iota
	// TurnSending means a backend chat request is outstanding.
	TurnSending
	// TurnReplied means the last turn completed with a reply.
	TurnReplied
	// TurnFailed means the last turn ended in an error notice.
	TurnFailed
)

// ChatService is the chat endpoint surface the pipeline depends on.
// *StoreClient implements it.
type ChatService interface {
	SendChatTurn(input, userID string, history []HistoryEntry, sessionID string) (*ChatTurnResponse, error)
}

// MessagePipeline turns a user utterance into a persisted message, calls
// the backend chat endpoint and converts the response into assistant
// messages and notices. One turn at a time; concurrent sends are dropped.
type MessagePipeline struct {
	chat      ChatService
	manager   *SessionManager
	responder *EmergencyResponder
	voice     Voice

	state      TurnState
	lastError  string
	errorSetAt time.Time

	now func() time.Time
}

// NewMessagePipeline wires the pipeline to its collaborators.
func NewMessagePipeline(chat ChatService, manager *SessionManager, responder *EmergencyResponder, voice Voice) *MessagePipeline {
	if voice == nil {
		voice = SilentVoice{}
	}
	return &MessagePipeline{
		chat:      chat,
		manager:   manager,
		responder: responder,
		voice:     voice,
		state:     TurnIdle,
		now:       time.Now,
	}
}

// State reports the per-turn send state.
func (p *MessagePipeline) State() TurnState { return p.state }

// Error returns the transient error banner text, or "" once it expired.
// The banner auto-clears after ten seconds; the corresponding isError
// message stays in the session history.
func (p *MessagePipeline) Error() string {
	if p.lastError == "" || p.now().Sub(p.errorSetAt) > errorBannerTimeout {
		return ""
	}
	return p.lastError
}

// ClearError dismisses the error banner immediately.
func (p *MessagePipeline) ClearError() {
	p.lastError = ""
}

// SendMessage runs one turn and reports whether it was accepted. A send is
// a no-op while the text is blank, no user is signed in, another send or a
// session transition is in flight, the assistant is speaking, or the input
// gate is closed.
func (p *MessagePipeline) SendMessage(text string) bool {
	trimmed := strings.TrimSpace(text)
	user := p.manager.User()
	switch {
	case trimmed == "":
		return false
	case user == nil || user.ID == "":
		return false
	case p.state == TurnSending:
		return false
	case p.manager.TransitionState() == TransitionInFlight:
		return false
	case p.voice.IsSpeaking():
		return false
	case p.manager.InputDisabled():
		return false
	}

	p.lastError = ""

	// Sanitize before appending: the new user message travels in the
	// request's input field, not its history.
	history := SanitizeHistory(p.manager.Messages())

	// Optimistic append, never rolled back.
	p.manager.Append(NewUserMessage(trimmed, p.now()))
	p.state = TurnSending

	resp, err := p.chat.SendChatTurn(trimmed, user.ID, history, p.manager.ActiveID())
	if err != nil {
		p.failTurn(err)
		return true
	}

	p.handleResponse(resp, trimmed, user)
	p.state = TurnReplied
	return true
}

func (p *MessagePipeline) handleResponse(resp *ChatTurnResponse, originalText string, user *UserProfile) {
	emergencyHandled := false
	if resp.EmergencyDetected && p.responder != nil {
		emergencyHandled = p.responder.Handle(p.manager, user, EmergencyClassification{
			Confidence: resp.EmergencyConfidence,
			Analysis:   resp.EmergencyAnalysis,
		}, originalText)
	}

	if resp.ReminderDetected {
		if resp.ReminderResult != nil && resp.ReminderResult.Success {
			p.manager.Append(NewNotice("reminder-success", reminderSuccessText(resp.ReminderResult.FirstReminder()), p.now()))
		} else {
			p.manager.Append(NewNotice("reminder-fail",
				"Reminder Processing Failed\n\nI detected you wanted to set a reminder, but couldn't process it automatically. Please try the Reminders section or be more specific with your request.",
				p.now()))
		}
	}

	reply := resp.Message
	if reply == "" {
		reply = apologyText
	}
	if emergencyHandled {
		reply = fmt.Sprintf(
			"I understand this may be an emergency situation based on advanced sentiment analysis. I've already notified your emergency contacts. %s Is there anything else I can help you with right now?",
			reply)
	}
	p.manager.Append(NewAssistantMessage(reply, p.now()))

	// The responder already produced the user-facing voice output when it
	// handled an emergency; speaking the reply on top would overlap it.
	if emergencyHandled {
		if !p.voice.IsSpeaking() {
			p.manager.SetInputDisabled(false)
		}
		return
	}

	p.manager.SetInputDisabled(true)
	p.voice.Speak(CleanTextForSpeech(reply), SpeechCallbacks{
		OnEnded: func() { p.manager.SetInputDisabled(false) },
		OnError: func(err error) {
			LogWarn("speech synthesis failed for reply: %v", err)
			p.manager.SetInputDisabled(false)
		},
	})
}

// failTurn converts a backend failure into a cause-specific error notice.
// Errors are never retried automatically.
func (p *MessagePipeline) failTurn(err error) {
	LogError("error sending message: %v", err)

	text := explainSendError(err)
	p.lastError = text
	p.errorSetAt = p.now()
	p.manager.Append(NewNotice("error", text, p.now()))
	p.state = TurnFailed
}

// explainSendError maps the error taxonomy onto user-readable causes.
func explainSendError(err error) string {
	var serverErr *ServerError
	if errors.As(err, &serverErr) && serverErr.Temporary() {
		return "Server is temporarily unavailable. Please try again in a moment."
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		return "Network error. Please check your internet connection."
	}
	return "Unable to connect to the server. Please check your internet connection and try again."
}

func reminderSuccessText(r *Reminder) string {
	title, date, timeOfDay := "New Reminder", "Not specified", "Not specified"
	if r != nil {
		if r.Title != "" {
			title = r.Title
		}
		if r.Date != "" {
			date = r.Date
		}
		if r.Time != "" {
			timeOfDay = r.Time
		}
	}
	return fmt.Sprintf("Reminder Created Successfully!\n\nTitle: %s\nDate: %s\nTime: %s", title, date, timeOfDay)
}
