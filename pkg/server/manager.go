package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrTooManySessions is returned when MaxSessions is reached.
	ErrTooManySessions = errors.New("server: too many sessions")
	// ErrTooManySessionsForIP is returned when MaxSessionsPerIP is reached.
	ErrTooManySessionsForIP = errors.New("server: too many sessions for client")
)

// SessionManager owns every live session and closes the idle ones.
type SessionManager struct {
	config  *ServerConfig
	metrics *metrics
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	byIP     map[string]int
	closed   bool
}

func newSessionManager(config *ServerConfig, m *metrics) *SessionManager {
	return &SessionManager{
		config:   config,
		metrics:  m,
		logger:   config.Logger.With("component", "session_manager"),
		sessions: make(map[string]*Session),
		byIP:     make(map[string]int),
	}
}

// Create starts a session for browserID with the shell at path.
func (m *SessionManager) Create(browserID, ip, path string) (*Session, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	if max := m.config.MaxSessions; max > 0 && len(m.sessions) >= max {
		m.mu.Unlock()
		return nil, ErrTooManySessions
	}
	if max := m.config.MaxSessionsPerIP; max > 0 && ip != "" && m.byIP[ip] >= max {
		m.mu.Unlock()
		return nil, ErrTooManySessionsForIP
	}
	id := uuid.NewString()
	// Reserve the slot before building the shell outside the lock.
	m.sessions[id] = nil
	if ip != "" {
		m.byIP[ip]++
	}
	m.mu.Unlock()

	s := newSession(sessionParams{
		id:        id,
		browserID: browserID,
		ip:        ip,
		path:      path,
		storage:   m.config.Storage.Namespace(browserID),
		setup:     m.config.Setup,
		title:     m.config.Title,
		config:    m.config.SessionConfig,
		metrics:   m.metrics,
		logger:    m.config.Logger,
	})

	m.mu.Lock()
	if m.closed {
		delete(m.sessions, id)
		m.mu.Unlock()
		s.Close()
		return nil, ErrTooManySessions
	}
	m.sessions[id] = s
	m.mu.Unlock()
	m.metrics.sessionOpened()
	m.logger.Debug("session created", "session", id, "path", path)
	return s, nil
}

// Get returns the session with id, or nil.
func (m *SessionManager) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id]
}

// Len returns the number of sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Remove closes and forgets the session with id.
func (m *SessionManager) Remove(id string) {
	m.mu.Lock()
	s := m.take(id)
	m.mu.Unlock()
	if s != nil {
		s.Close()
		m.metrics.sessionClosed()
	}
}

// take removes id from the maps. Callers hold m.mu.
func (m *SessionManager) take(id string) *Session {
	s, ok := m.sessions[id]
	if !ok || s == nil {
		return nil
	}
	delete(m.sessions, id)
	if s.IP != "" {
		if m.byIP[s.IP]--; m.byIP[s.IP] <= 0 {
			delete(m.byIP, s.IP)
		}
	}
	return s
}

// Reap closes sessions without a client for longer than the idle timeout
// and returns how many it closed.
func (m *SessionManager) Reap(now time.Time) int {
	timeout := m.config.SessionConfig.IdleTimeout
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s != nil && s.idleSince(now, timeout) {
			idle = append(idle, m.take(id))
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.Close()
		m.metrics.sessionClosed()
	}
	if len(idle) > 0 {
		m.logger.Debug("reaped idle sessions", "count", len(idle))
	}
	return len(idle)
}

// Run reaps idle sessions every interval until ctx is done.
func (m *SessionManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.config.ReapInterval)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			m.Reap(now)
		case <-ctx.Done():
			return
		}
	}
}

// Close closes every session and rejects new ones.
func (m *SessionManager) Close() {
	m.mu.Lock()
	m.closed = true
	all := make([]*Session, 0, len(m.sessions))
	for id := range m.sessions {
		if s := m.take(id); s != nil {
			all = append(all, s)
		}
	}
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
		m.metrics.sessionClosed()
	}
}
