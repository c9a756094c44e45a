package auth

import (
	"sync"
	"time"

	"github.com/vitalwatch/platform/internal/shared/errors"
	"github.com/vitalwatch/platform/internal/shared/types"
)

// SessionConfig defines session parameters.
type SessionConfig struct {
	TTL         time.Duration
	IdleTimeout time.Duration
	MaxPerUser  int
}

// DefaultSessionConfig returns the default session configuration.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:         12 * time.Hour,
		IdleTimeout: 30 * time.Minute,
		MaxPerUser:  3,
	}
}

// Session represents an active portal session.
type Session struct {
	ID             string    `json:"id"`
	UserID         types.ID  `json:"user_id"`
	UserType       string    `json:"user_type"` // patient, caregiver, doctor, admin
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	ExpiresAt      time.Time `json:"expires_at"`
	IPAddress      string    `json:"ip_address,omitempty"`
	UserAgent      string    `json:"user_agent,omitempty"`
}

// IsExpired checks if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// IsIdle checks if the session has been idle too long.
func (s *Session) IsIdle(timeout time.Duration) bool {
	return time.Since(s.LastActivityAt) > timeout
}

// SessionStore holds active sessions behind an explicit object with its own
// lifecycle, rather than ambient package state. Callers construct one, pass
// it where needed, and Close it on shutdown.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	byUser   map[types.ID][]string
	config   SessionConfig

	stopCh chan struct{}
	once   sync.Once
}

// NewSessionStore creates a session store and starts its expiry sweeper.
func NewSessionStore(cfg SessionConfig) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*Session),
		byUser:   make(map[types.ID][]string),
		config:   cfg,
		stopCh:   make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Create registers a new session for a user. The oldest session is evicted
// when the per-user limit is reached.
func (s *SessionStore) Create(userID types.ID, userType, ip, userAgent string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	session := &Session{
		ID:             types.NewID().String(),
		UserID:         userID,
		UserType:       userType,
		CreatedAt:      now,
		LastActivityAt: now,
		ExpiresAt:      now.Add(s.config.TTL),
		IPAddress:      ip,
		UserAgent:      userAgent,
	}

	ids := s.byUser[userID]
	if s.config.MaxPerUser > 0 && len(ids) >= s.config.MaxPerUser {
		oldest := ids[0]
		delete(s.sessions, oldest)
		ids = ids[1:]
	}

	s.sessions[session.ID] = session
	s.byUser[userID] = append(ids, session.ID)
	return session
}

// Get returns an active session by ID.
func (s *SessionStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()

	if !ok {
		return nil, errors.Unauthorized("session not found")
	}
	if session.IsExpired() || session.IsIdle(s.config.IdleTimeout) {
		s.Revoke(id)
		return nil, errors.Unauthorized("session expired")
	}
	return session, nil
}

// Touch updates the session's last-activity timestamp.
func (s *SessionStore) Touch(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[id]; ok {
		session.LastActivityAt = time.Now()
	}
}

// Revoke removes a session.
func (s *SessionStore) Revoke(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return
	}
	delete(s.sessions, id)

	ids := s.byUser[session.UserID]
	for i, sid := range ids {
		if sid == id {
			s.byUser[session.UserID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(s.byUser[session.UserID]) == 0 {
		delete(s.byUser, session.UserID)
	}
}

// Count returns the number of live sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the expiry sweeper.
func (s *SessionStore) Close() {
	s.once.Do(func() {
		close(s.stopCh)
	})
}

// sweep drops expired sessions once a minute.
func (s *SessionStore) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.mu.Lock()
			for id, session := range s.sessions {
				if session.IsExpired() || session.IsIdle(s.config.IdleTimeout) {
					delete(s.sessions, id)

					ids := s.byUser[session.UserID]
					for i, sid := range ids {
						if sid == id {
							s.byUser[session.UserID] = append(ids[:i], ids[i+1:]...)
							break
						}
					}
					if len(s.byUser[session.UserID]) == 0 {
						delete(s.byUser, session.UserID)
					}
				}
			}
			s.mu.Unlock()
		}
	}
}
