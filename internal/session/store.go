package session

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

const CookieName = "coding_agent_session"

var ErrNotFound = errors.New("session not found")

// Store keeps State per session id in memory. Nothing survives a restart.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*entry
	now      func() time.Time
}

type entry struct {
	state    State
	lastSeen time.Time
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Create registers a fresh session and returns its id.
func (s *Store) Create() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = &entry{state: NewState(), lastSeen: s.now()}
	s.mu.Unlock()
	return id
}

func (s *Store) Get(id string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return State{}, ErrNotFound
	}
	e.lastSeen = s.now()
	return e.state, nil
}

// Update applies fn to the session's state under the store lock and returns
// the before and after states.
func (s *Store) Update(id string, fn func(State) State) (before, after State, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return State{}, State{}, ErrNotFound
	}
	before = e.state
	e.state = fn(before)
	e.lastSeen = s.now()
	return before, e.state, nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Prune drops sessions idle for longer than maxIdle and returns their ids.
func (s *Store) Prune(maxIdle time.Duration) []string {
	cutoff := s.now().Add(-maxIdle)
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned []string
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			pruned = append(pruned, id)
		}
	}
	return pruned
}

// Resolve returns the session id carried by r, creating a session and
// setting the cookie on w when r has none or an unknown one.
func (s *Store) Resolve(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil {
		if _, err := s.Get(c.Value); err == nil {
			return c.Value
		}
	}
	id := s.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}
