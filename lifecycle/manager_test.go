package lifecycle

import (
	"testing"
	"time"
)

func TestSessionManagerReusesSessions(t *testing.T) {
	m := NewSessionManager(nil, nil, nil, nil, time.Hour)
	defer m.Close()

	first := m.Session("editor-1")
	second := m.Session("editor-1")
	if first != second {
		t.Fatal("same key must return the same session")
	}
	if m.Session("editor-2") == first {
		t.Fatal("different keys must not share a session")
	}
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
}

func TestSessionManagerSweepExpiresIdleSessions(t *testing.T) {
	m := NewSessionManager(nil, nil, nil, nil, time.Minute)
	defer m.Close()

	m.Session("idle")
	active := m.Session("active")

	m.mu.Lock()
	m.sessions["idle"].lastSeen = time.Now().Add(-2 * time.Minute)
	m.mu.Unlock()

	m.sweep(time.Now())

	if m.Len() != 1 {
		t.Fatalf("Len() = %d after sweep, want 1", m.Len())
	}
	if m.Session("active") != active {
		t.Fatal("active session must survive the sweep")
	}
}
