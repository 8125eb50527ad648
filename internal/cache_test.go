package internal

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCache(t *testing.T) *SessionCache {
	t.Helper()
	cache, err := OpenSessionCache(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSessionCache() error = %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestSessionCache_ReplaceAndRead(t *testing.T) {
	cache := openTestCache(t)

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	sessions := []ChatSession{
		{
			ID:           "s1",
			Name:         "Chat 1",
			CreatedAt:    now.Add(-time.Hour),
			LastActivity: now,
			Messages: []Message{
				NewUserMessage("hello", now.Add(-time.Hour)),
				NewAssistantMessage("hi there", now.Add(-time.Hour)),
				NewNotice("emergency", "Emergency situation detected", now),
			},
		},
		{
			ID:           "s2",
			Name:         "Chat 2",
			CreatedAt:    now.Add(-2 * time.Hour),
			LastActivity: now.Add(-2 * time.Hour),
		},
	}
	if err := cache.Replace(sessions); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	listed, err := cache.Sessions()
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 cached sessions, got %d", len(listed))
	}
	// Most recently active first, message bodies omitted.
	if listed[0].ID != "s1" {
		t.Errorf("expected s1 first, got %q", listed[0].ID)
	}
	if listed[0].MessageCount != 3 {
		t.Errorf("MessageCount = %d, want 3", listed[0].MessageCount)
	}
	if len(listed[0].Messages) != 0 {
		t.Error("listing must not load message bodies")
	}

	full, err := cache.Session("s1")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if full == nil {
		t.Fatal("expected cached session, got nil")
	}
	if len(full.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(full.Messages))
	}
	if full.Messages[0].Text != "hello" || !full.Messages[0].IsUser {
		t.Errorf("unexpected first message: %+v", full.Messages[0])
	}
	if !full.Messages[2].IsEmergency {
		t.Error("notice flags must survive the round-trip")
	}

	if synced := cache.SyncedAt(); synced.IsZero() {
		t.Error("Replace should record the sync time")
	}
}

func TestSessionCache_Replace_DropsStaleSessions(t *testing.T) {
	cache := openTestCache(t)

	now := time.Now()
	if err := cache.Replace([]ChatSession{{ID: "old", Name: "Old", CreatedAt: now, LastActivity: now}}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if err := cache.Replace([]ChatSession{{ID: "new", Name: "New", CreatedAt: now, LastActivity: now}}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	listed, err := cache.Sessions()
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(listed) != 1 || listed[0].ID != "new" {
		t.Errorf("stale sessions must be dropped, got %+v", listed)
	}
}

func TestSessionCache_UpsertSession(t *testing.T) {
	cache := openTestCache(t)

	now := time.Now()
	session := ChatSession{ID: "s1", Name: "Chat 1", CreatedAt: now, LastActivity: now}
	if err := cache.Replace([]ChatSession{session}); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	session.Messages = []Message{NewUserMessage("hello", now)}
	if err := cache.UpsertSession(session); err != nil {
		t.Fatalf("UpsertSession() error = %v", err)
	}

	full, err := cache.Session("s1")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if len(full.Messages) != 1 {
		t.Errorf("expected refreshed messages, got %d", len(full.Messages))
	}
}

func TestSessionCache_SessionMiss(t *testing.T) {
	cache := openTestCache(t)

	session, err := cache.Session("missing")
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if session != nil {
		t.Errorf("expected nil for a cache miss, got %+v", session)
	}
}

func TestSessionCache_SyncedAt_NeverSynced(t *testing.T) {
	cache := openTestCache(t)
	if !cache.SyncedAt().IsZero() {
		t.Error("a fresh cache must report the zero sync time")
	}
}
