package internal

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// EmergencyClassification is the server's judgment for one turn, handed to
// the responder together with the user's original text.
type EmergencyClassification struct {
	Confidence float64
	Analysis   *EmergencyAnalysis
}

// EmergencyResponder fans a detected emergency out to the user's configured
// contacts through the external messaging deep-link capability and appends
// a spoken notice describing what was done.
type EmergencyResponder struct {
	messenger Messenger
	locator   Locator
	voice     Voice

	now func() time.Time
}

// NewEmergencyResponder wires the responder's capabilities. Any of them may
// be nil; missing capabilities degrade to "not available" behavior rather
// than failures.
func NewEmergencyResponder(messenger Messenger, locator Locator, voice Voice) *EmergencyResponder {
	if voice == nil {
		voice = SilentVoice{}
	}
	return &EmergencyResponder{
		messenger: messenger,
		locator:   locator,
		voice:     voice,
		now:       time.Now,
	}
}

// Handle processes an emergency classification for a user. It appends its
// notice through the manager, speaks it, and returns whether the emergency
// was substantively handled (true whenever any notice was appended), which
// the pipeline uses to suppress the default reply voice-over. Handle never
// panics past the caller.
func (r *EmergencyResponder) Handle(manager *SessionManager, user *UserProfile, c EmergencyClassification, originalText string) bool {
	if user == nil {
		return false
	}

	if len(user.EmergencyContacts) == 0 {
		notice := NewNotice("emergency-no-contacts", r.noContactsText(c), r.now())
		manager.Append(notice)
		r.speakGated(manager, "Emergency situation detected with high confidence, but you don't have emergency contacts configured. Please call 911 or emergency services directly.")
		return true
	}

	alert, err := r.composeAlert(c, originalText)
	if err != nil {
		LogError("failed to handle emergency: %v", err)
		notice := NewNotice("emergency-error",
			"Emergency situation detected but failed to reach your contacts. Please manually call your emergency contacts or emergency services immediately.",
			r.now())
		manager.Append(notice)
		r.speakGated(manager, notice.Text)
		return true
	}

	// Fire-and-forget fan-out: one deep-link per contact, no delivery
	// confirmation exists on this channel.
	for _, contact := range user.EmergencyContacts {
		if r.messenger == nil {
			continue
		}
		if err := r.messenger.SendDeepLink(contact.Number, alert); err != nil {
			LogWarn("failed to open deep-link for %s: %v", contact.Name, err)
		}
	}

	names := make([]string, 0, len(user.EmergencyContacts))
	for _, contact := range user.EmergencyContacts {
		names = append(names, contact.Name)
	}
	noticeText := fmt.Sprintf(
		"Emergency situation detected with %d%% confidence based on: %s. I've opened WhatsApp for your emergency contacts: %s. Please send the pre-filled emergency message to notify them immediately.",
		roundPercent(c.Confidence), strings.Join(detectionReasons(c.Analysis), ", "), strings.Join(names, ", "))
	manager.Append(NewNotice("emergency", noticeText, r.now()))

	r.speakGated(manager, fmt.Sprintf(
		"Emergency situation detected with %d percent confidence. I've opened WhatsApp for your emergency contacts with a detailed emergency message.",
		roundPercent(c.Confidence)))
	return true
}

// composeAlert builds the pre-filled alert text sent to each contact.
func (r *EmergencyResponder) composeAlert(c EmergencyClassification, originalText string) (alert string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("alert composition panicked: %v", rec)
		}
	}()

	locationText := "Location not available"
	if r.locator != nil {
		if fix := r.locator.Location(); fix != nil {
			locationText = fmt.Sprintf("https://www.google.com/maps?q=%v,%v", fix.Lat, fix.Lng)
		}
	}

	analysis := c.Analysis
	if analysis == nil {
		analysis = &EmergencyAnalysis{}
	}

	alert = fmt.Sprintf(
		"EMERGENCY SOS ALERT \n\n- Message: %q \n- Location: %s \n- Confidence: %d%% \n- Sentiment: %s \n- Immediate Danger: %s \n- Medical Emergency: %s \n- Please contact them immediately or call emergency services \n\nSent from SilverCare AI Emergency Detection System",
		originalText,
		locationText,
		roundPercent(c.Confidence),
		sentimentLabel(analysis.SentimentPolarity),
		yesNo(analysis.HasImmediateDanger),
		yesNo(analysis.HasMedicalDistress),
	)
	return alert, nil
}

func (r *EmergencyResponder) noContactsText(c EmergencyClassification) string {
	score := "N/A"
	if c.Analysis != nil && c.Analysis.EmergencyScore != 0 {
		score = fmt.Sprintf("%.2f", c.Analysis.EmergencyScore)
	}
	return fmt.Sprintf(
		"Emergency situation detected with %d%% confidence (Emergency Score: %s). However, you don't have any emergency contacts configured. Please go to your Profile settings to add emergency contacts, or call emergency services directly at 911.",
		roundPercent(c.Confidence), score)
}

// speakGated closes the input gate for the utterance and reopens it on
// either terminal voice event, so input never stays disabled past a failed
// synthesis.
func (r *EmergencyResponder) speakGated(manager *SessionManager, text string) {
	manager.SetInputDisabled(true)
	r.voice.Speak(CleanTextForSpeech(text), SpeechCallbacks{
		OnEnded: func() { manager.SetInputDisabled(false) },
		OnError: func(err error) {
			LogWarn("speech synthesis failed for emergency message: %v", err)
			manager.SetInputDisabled(false)
		},
	})
}

// sentimentLabel thresholds polarity into a severity label.
func sentimentLabel(polarity float64) string {
	switch {
	case polarity < -0.4:
		return "Severely Distressed"
	case polarity < -0.2:
		return "Highly Distressed"
	default:
		return "Distressed"
	}
}

// detectionReasons derives the human-readable trigger categories from the
// analysis. Any subset may apply; an empty analysis yields a generic reason.
func detectionReasons(analysis *EmergencyAnalysis) []string {
	if analysis == nil {
		return []string{"emergency indicators"}
	}
	var reasons []string
	if analysis.PatternMatches.ImmediateDanger > 0 {
		reasons = append(reasons, "immediate danger")
	}
	if analysis.PatternMatches.MedicalEmergency > 0 {
		reasons = append(reasons, "medical emergency")
	}
	if analysis.PatternMatches.SafetyThreats > 0 {
		reasons = append(reasons, "safety threat")
	}
	if analysis.SentimentPolarity < -0.3 {
		reasons = append(reasons, "severe emotional distress")
	}
	if len(reasons) == 0 {
		reasons = []string{"emergency indicators"}
	}
	return reasons
}

func roundPercent(confidence float64) int {
	return int(math.Round(confidence * 100))
}

func yesNo(v bool) string {
	if v {
		return "YES"
	}
	return "NO"
}
