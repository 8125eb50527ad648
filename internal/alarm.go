package internal

import (
	"sync"
	"time"
)

// AlarmScheduler arms one timer per future-dated reminder and plays a
// looping audio cue when one fires. At most one alarm is audible at a time;
// a timer firing while another alarm plays is dropped, not queued. All
// timers are cancelled whenever the reminder set changes or the scheduler
// is closed, so no orphaned timer survives a mutation.
type AlarmScheduler struct {
	player   AudioPlayer
	notifier Notifier

	mu     sync.Mutex
	timers []*time.Timer
	active bool

	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewAlarmScheduler creates a scheduler over the given audio and
// notification capabilities. Either may be nil.
func NewAlarmScheduler(player AudioPlayer, notifier Notifier) *AlarmScheduler {
	return &AlarmScheduler{
		player:    player,
		notifier:  notifier,
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
}

// Reset replaces the armed timer set for a new reminder list. Reminders are
// deduplicated by created_at first; only strictly-future reminders get a
// timer. A playing alarm is stopped too, since its reminder may be gone.
func (s *AlarmScheduler) Reset(reminders []Reminder) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	now := s.now()
	armed := 0
	for _, reminder := range DeduplicateReminders(reminders) {
		due, err := ReminderDue(reminder)
		if err != nil {
			LogDebug("skipping unschedulable reminder %s: %v", reminder.ID, err)
			continue
		}
		if !due.After(now) {
			continue
		}
		r := reminder
		s.timers = append(s.timers, s.afterFunc(due.Sub(now), func() { s.fire(r) }))
		armed++
	}
	return armed
}

// ArmedCount reports how many timers are currently armed.
func (s *AlarmScheduler) ArmedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Active reports whether an alarm is audibly playing.
func (s *AlarmScheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Stop halts the alarm audio and clears the active state, independent of
// any timer's own completion.
func (s *AlarmScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopAudioLocked()
}

// Close cancels every armed timer and stops any playing audio.
func (s *AlarmScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *AlarmScheduler) fire(r Reminder) {
	s.mu.Lock()
	if s.active {
		// Another alarm is already audible; this one is dropped.
		s.mu.Unlock()
		LogDebug("alarm for %s dropped: another alarm is active", r.ID)
		return
	}
	s.active = true
	// The audio starts under the lock so a concurrent Stop either lands
	// before this firing or after the loop is playing, never in between.
	if s.player != nil {
		if err := s.player.Loop(); err != nil {
			LogWarn("failed to play alarm audio: %v", err)
		}
	}
	s.mu.Unlock()

	if s.notifier != nil && s.notifier.PermissionGranted() {
		if err := s.notifier.Notify("Alarm", r.Title+" at "+FormatTimeForDisplay(r.Time)+" on "+r.Date); err != nil {
			LogWarn("failed to raise alarm notification: %v", err)
		}
	}
}

func (s *AlarmScheduler) cancelLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
	s.stopAudioLocked()
}

func (s *AlarmScheduler) stopAudioLocked() {
	if s.active && s.player != nil {
		s.player.Stop()
	}
	s.active = false
}
