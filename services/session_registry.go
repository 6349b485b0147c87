package services

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionRegistry holds the live import sessions. Each session is
// independent; two sessions never observe or mutate each other's state.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*ImportSession
	ttl      time.Duration
}

// NewSessionRegistry creates a registry whose sweeper discards sessions idle
// longer than ttl
func NewSessionRegistry(ttl time.Duration) *SessionRegistry {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &SessionRegistry{
		sessions: make(map[string]*ImportSession),
		ttl:      ttl,
	}
}

// Create opens a new session for the given reviewer
func (r *SessionRegistry) Create(ownerID uint) *ImportSession {
	sess := NewImportSession(uuid.NewString(), ownerID)

	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()

	return sess
}

// Get returns the session with the given ID
func (r *SessionRegistry) Get(id string) (*ImportSession, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Remove drops a session from the registry
func (r *SessionRegistry) Remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

// Count returns the number of live sessions
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// SweepExpired discards abandoned, committed, and idle sessions, returning
// how many were removed
func (r *SessionRegistry) SweepExpired() int {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		if sess.Abandoned() || sess.State() == StateCommitted || sess.IdleSince().Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}

	if removed > 0 {
		log.Printf("SessionRegistry: swept %d expired import sessions, %d remaining", removed, len(r.sessions))
	}
	return removed
}
