package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Session is an active, queryable video session. Dir is the working
// directory holding the session's media artifacts.
type Session struct {
	ID         string
	Dir        string
	CreatedAt  time.Time
	LastActive time.Time
}

// SessionStore tracks active sessions and evicts idle ones. The reaper
// goroutine runs from construction until Close.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	index   Index
	timeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionStore creates a store and starts its idle-session reaper.
func NewSessionStore(idx Index, timeout, reapInterval time.Duration) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*Session),
		index:    idx,
		timeout:  timeout,
		done:     make(chan struct{}),
	}

	go s.reapLoop(reapInterval)
	return s
}

// Register adds a fully-ingested session. Registering an existing ID is
// an error; IDs are UUIDs so a collision indicates a bug.
func (s *SessionStore) Register(id, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; exists {
		return ErrSessionExists
	}

	now := time.Now()
	s.sessions[id] = &Session{
		ID:         id,
		Dir:        dir,
		CreatedAt:  now,
		LastActive: now,
	}

	slog.Info("session registered", "session_id", id, "dir", dir)
	return nil
}

// Get returns a copy of the session state.
func (s *SessionStore) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return *session, nil
}

// Touch resets the session's idle clock.
func (s *SessionStore) Touch(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastActive = time.Now()
	return nil
}

// Count returns the number of active sessions.
func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Remove evicts a session and releases its resources. The map delete
// under lock decides the winner, so cleanup runs at most once per
// session no matter how many callers race. Cleanup failures are logged
// and swallowed; the session is gone either way.
func (s *SessionStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}

	if s.index != nil {
		if err := s.index.DropSession(ctx, id); err != nil {
			slog.Warn("failed to drop session index data", "session_id", id, "error", err)
		}
	}
	if session.Dir != "" {
		if err := os.RemoveAll(session.Dir); err != nil {
			slog.Warn("failed to remove session dir", "session_id", id, "dir", session.Dir, "error", err)
		}
	}

	slog.Info("session removed", "session_id", id)
	return nil
}

// Close stops the reaper. Active sessions are left in place; their data
// outlives the store only until the process exits.
func (s *SessionStore) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

func (s *SessionStore) reapLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.reapIdle()
		}
	}
}

// reapIdle evicts every session idle longer than the timeout.
func (s *SessionStore) reapIdle() {
	cutoff := time.Now().Add(-s.timeout)

	s.mu.RLock()
	var expired []string
	for id, session := range s.sessions {
		if session.LastActive.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	s.mu.RUnlock()

	for _, id := range expired {
		slog.Info("reaping idle session", "session_id", id)
		if err := s.Remove(context.Background(), id); err != nil {
			// Lost the race against an explicit stop; nothing to do.
			continue
		}
	}
}
