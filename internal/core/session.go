package core

import (
	"errors"
	"sync"
	"time"

	"github.com/JonMunkholm/csvdash/internal/dataset"
)

// ErrNoSession is returned by UpdateExisting for an unknown or expired id.
var ErrNoSession = errors.New("session not found")

// EditKind names a cleaning operation.
type EditKind string

const (
	EditRemoveColumns    EditKind = "remove_columns"
	EditRemoveDuplicates EditKind = "remove_duplicates"
	EditFillMissing      EditKind = "fill_missing"
)

// PendingEdit is a previewed cleaning result waiting to be applied or
// cancelled. Base is the dataset the preview was computed from.
type PendingEdit struct {
	Kind      EditKind         `json:"kind"`
	Detail    string           `json:"detail"`
	Result    *dataset.Dataset `json:"-"`
	Base      *dataset.Dataset `json:"-"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Session is one browser's working state: at most one dataset of record and
// at most one pending edit.
type Session struct {
	ID        string
	FileName  string
	Dataset   *dataset.Dataset
	Pending   *PendingEdit
	CreatedAt time.Time
	UpdatedAt time.Time
	// LastSeen is refreshed by every read and write; expiry is measured
	// from it.
	LastSeen time.Time
}

// SessionStore holds sessions in memory. Datasets are never persisted.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates a store whose sessions expire after ttl without
// any access. A ttl of zero disables expiry.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns a copy of the session and marks it as seen. Datasets inside
// are shared and must be treated as read-only.
func (s *SessionStore) Get(id string) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false
	}
	sess.LastSeen = s.now()
	return *sess, true
}

// Update runs fn on the session with the store locked, creating the session
// if it does not exist. Changes are kept only when fn returns nil.
func (s *SessionStore) Update(id string, fn func(*Session) error) error {
	return s.update(id, true, fn)
}

// UpdateExisting is Update without the create: it returns ErrNoSession when
// the session is gone.
func (s *SessionStore) UpdateExisting(id string, fn func(*Session) error) error {
	return s.update(id, false, fn)
}

func (s *SessionStore) update(id string, create bool, fn func(*Session) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess, ok := s.sessions[id]
	var work Session
	switch {
	case ok:
		work = *sess
	case create:
		work = Session{ID: id, CreatedAt: now}
	default:
		return ErrNoSession
	}

	if err := fn(&work); err != nil {
		return err
	}

	work.UpdatedAt = now
	work.LastSeen = now
	s.sessions[id] = &work
	return nil
}

// Delete removes a session. It reports whether the session existed.
func (s *SessionStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Sweep removes sessions not seen for longer than the store's ttl and
// returns how many were removed.
func (s *SessionStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, sess := range s.sessions {
		if sess.LastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
