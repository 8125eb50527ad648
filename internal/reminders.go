package internal

import (
	"sort"
)

// ReminderStore is the reminder surface of the backend. *StoreClient
// implements it.
type ReminderStore interface {
	FetchReminders(userID string) ([]Reminder, error)
	AddReminder(r Reminder, userID string) error
	DeleteReminder(id, userID string) error
	FormatReminder(input, userID string) (*FormatReminderResponse, error)
}

// ReminderService loads, creates and deletes reminders, keeping every
// displayed or scheduled list deduplicated and newest-first.
type ReminderService struct {
	store ReminderStore
	voice Voice
	user  *UserProfile
}

// NewReminderService creates a reminder service for the given user.
func NewReminderService(store ReminderStore, voice Voice, user *UserProfile) *ReminderService {
	if voice == nil {
		voice = SilentVoice{}
	}
	return &ReminderService{store: store, voice: voice, user: user}
}

// Fetch returns the user's reminders, time-normalized to 12-hour display
// form, deduplicated by created_at and sorted newest-first.
func (s *ReminderService) Fetch() ([]Reminder, error) {
	if s.user == nil || s.user.ID == "" {
		return nil, ErrNoUser
	}
	reminders, err := s.store.FetchReminders(s.user.ID)
	if err != nil {
		s.speak("Sorry, there was an issue syncing your reminders")
		return nil, err
	}
	for i := range reminders {
		reminders[i].Time = FormatTimeForDisplay(reminders[i].Time)
	}
	return DeduplicateReminders(reminders), nil
}

// Add validates and stores a new reminder.
func (s *ReminderService) Add(r Reminder) error {
	if s.user == nil || s.user.ID == "" {
		return ErrNoUser
	}
	switch {
	case r.Title == "":
		return &ValidationError{Field: "title", Reason: "required"}
	case r.Date == "":
		return &ValidationError{Field: "date", Reason: "required"}
	case r.Time == "":
		return &ValidationError{Field: "time", Reason: "required"}
	}
	if err := s.store.AddReminder(r, s.user.ID); err != nil {
		s.speak("Failed to save reminder. Please try again.")
		return err
	}
	s.speak("Reminder added successfully")
	return nil
}

// Delete removes a reminder by ID.
func (s *ReminderService) Delete(id string) error {
	if s.user == nil || s.user.ID == "" {
		return ErrNoUser
	}
	if err := s.store.DeleteReminder(id, s.user.ID); err != nil {
		s.speak("Failed to delete reminder. Please try again.")
		return err
	}
	s.speak("Reminder deleted successfully")
	return nil
}

// AddFromSpeech sends a natural-language utterance to the voice-to-reminder
// endpoint, which extracts and stores one or more reminders from it.
func (s *ReminderService) AddFromSpeech(input string) (*FormatReminderResponse, error) {
	if s.user == nil || s.user.ID == "" {
		return nil, ErrNoUser
	}
	resp, err := s.store.FormatReminder(input, s.user.ID)
	if err != nil {
		s.speak("Sorry, there was an issue creating your voice reminder")
		return nil, err
	}
	if !resp.Success {
		s.speak("Sorry, there was an issue creating your voice reminder")
		return resp, &ServerError{Op: "format-reminder", Status: 200, Body: resp.Error}
	}
	if resp.Message != "" {
		s.speak(resp.Message)
	} else {
		s.speak("Voice reminder created successfully")
	}
	return resp, nil
}

// Speak reads one reminder aloud.
func (s *ReminderService) Speak(r Reminder) {
	s.speak("Reminder: " + r.Title + " at " + FormatTimeForDisplay(r.Time) + " on " + r.Date)
}

func (s *ReminderService) speak(text string) {
	s.voice.Speak(CleanTextForSpeech(text), SpeechCallbacks{})
}

// DeduplicateReminders drops duplicate reminders sharing a created_at
// timestamp (last write wins) and sorts the result newest-first.
func DeduplicateReminders(reminders []Reminder) []Reminder {
	byCreated := make(map[string]Reminder, len(reminders))
	order := make([]string, 0, len(reminders))
	for _, r := range reminders {
		if _, seen := byCreated[r.CreatedAt]; !seen {
			order = append(order, r.CreatedAt)
		}
		byCreated[r.CreatedAt] = r
	}
	unique := make([]Reminder, 0, len(order))
	for _, key := range order {
		unique = append(unique, byCreated[key])
	}
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].CreatedAt > unique[j].CreatedAt
	})
	return unique
}
