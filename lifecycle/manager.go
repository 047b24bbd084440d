package lifecycle

import (
	"sync"
	"time"
)

// managedSession tracks when a session was last touched so idle ones can be
// reaped together with their poster byte caches.
type managedSession struct {
	session  *AdminSession
	lastSeen time.Time
}

// SessionManager hands out one AdminSession per session key and expires the
// ones nobody has touched within the TTL. Expiry only frees memory; the
// projects themselves live in the store.
type SessionManager struct {
	store    ProjectStore
	blobs    BlobStore
	compiler Compiler
	cleanup  CleanupPublisher
	ttl      time.Duration

	mu       sync.Mutex
	sessions map[string]*managedSession
	stop     chan struct{}
	stopOnce sync.Once
}

func NewSessionManager(store ProjectStore, blobs BlobStore, compiler Compiler, cleanup CleanupPublisher, ttl time.Duration) *SessionManager {
	m := &SessionManager{
		store:    store,
		blobs:    blobs,
		compiler: compiler,
		cleanup:  cleanup,
		ttl:      ttl,
		sessions: make(map[string]*managedSession),
		stop:     make(chan struct{}),
	}
	go m.janitor()
	return m
}

// Session returns the AdminSession for the given key, creating it on first
// use and refreshing its expiry on every call.
func (m *SessionManager) Session(key string) *AdminSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.sessions[key]
	if !ok {
		ms = &managedSession{
			session: NewAdminSession(m.store, m.blobs, m.compiler, m.cleanup),
		}
		m.sessions[key] = ms
	}
	ms.lastSeen = time.Now()
	return ms.session
}

// Len reports the number of live sessions, for health reporting.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

func (m *SessionManager) janitor() {
	interval := m.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep(time.Now())
		}
	}
}

func (m *SessionManager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, ms := range m.sessions {
		if now.Sub(ms.lastSeen) > m.ttl {
			delete(m.sessions, key)
		}
	}
}
