package bolt

import (
	"sync"
	"time"
)

// SessionHandle identifies a session a Backend has created. Its string
// form is opaque to the bolt package and meaningful only to the Backend.
type SessionHandle string

// sessionState tracks bookkeeping for one live session independently of
// whatever state the Backend itself keeps for it.
type sessionState struct {
	handle     SessionHandle
	peerAddr   string
	createdAt  time.Time
	lastActive time.Time
}

// SessionManager enforces a capacity limit across every connection's
// session and reaps sessions that have been idle past a configured
// timeout. It knows nothing about Bolt messages; Connection calls it at
// HELLO, RUN (touch), and on cleanup.
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[SessionHandle]sessionState
	maxSessions int // 0 means unlimited.
}

// NewSessionManager creates a manager capped at maxSessions concurrent
// sessions. maxSessions of 0 means no limit.
func NewSessionManager(maxSessions int) *SessionManager {
	return &SessionManager{
		sessions:    make(map[SessionHandle]sessionState),
		maxSessions: maxSessions,
	}
}

// Register records a newly created session, failing with
// ErrCapacityExceeded if the manager is already at its configured limit.
func (m *SessionManager) Register(handle SessionHandle, peerAddr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		return ErrCapacityExceeded
	}

	now := time.Now()
	m.sessions[handle] = sessionState{handle: handle, peerAddr: peerAddr, createdAt: now, lastActive: now}
	return nil
}

// Remove drops a session from tracking. It is a no-op if the session is
// not present.
func (m *SessionManager) Remove(handle SessionHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, handle)
}

// Touch refreshes a session's last-active timestamp. It is a no-op if the
// session is not present.
func (m *SessionManager) Touch(handle SessionHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[handle]; ok {
		s.lastActive = time.Now()
		m.sessions[handle] = s
	}
}

// Count returns the number of sessions currently tracked.
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// ReapIdle removes and returns every session whose last-active timestamp
// is older than timeout.
func (m *SessionManager) ReapIdle(timeout time.Duration) []SessionHandle {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var reaped []SessionHandle
	for handle, s := range m.sessions {
		if now.Sub(s.lastActive) > timeout {
			reaped = append(reaped, handle)
			delete(m.sessions, handle)
		}
	}
	return reaped
}
