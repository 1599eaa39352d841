package authclient

import (
	"errors"
	"io/fs"
	"sync"
)

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// State is what survives between runs. The refresh token is not part of it:
// it lives in an HTTP-only cookie the client never reads.
type State struct {
	User        *User  `json:"user,omitempty"`
	AccessToken string `json:"accessToken,omitempty"`
}

type SessionStorage interface {
	Load() (State, error)
	Save(State) error
	Clear() error
}

// Session is safe for concurrent use. A nil storage keeps state in memory
// only.
type Session struct {
	mu      sync.RWMutex
	state   State
	storage SessionStorage
}

func NewSession(storage SessionStorage) *Session {
	return &Session{storage: storage}
}

// Hydrate loads persisted state. Missing state leaves the session empty.
func (s *Session) Hydrate() error {
	if s.storage == nil {
		return nil
	}

	state, err := s.storage.Load()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	return nil
}

func (s *Session) Set(user User, accessToken string) error {
	return s.update(func(st *State) {
		st.User = &user
		st.AccessToken = accessToken
	})
}

func (s *Session) UpdateUser(user User) error {
	return s.update(func(st *State) { st.User = &user })
}

func (s *Session) UpdateAccessToken(accessToken string) error {
	return s.update(func(st *State) { st.AccessToken = accessToken })
}

// Clear forgets the user and token, in memory and in storage.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = State{}
	if s.storage == nil {
		return nil
	}
	return s.storage.Clear()
}

func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.AccessToken
}

func (s *Session) User() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.User == nil {
		return User{}, false
	}
	return *s.state.User, true
}

func (s *Session) Authenticated() bool {
	return s.AccessToken() != ""
}

func (s *Session) update(fn func(*State)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state)
	if s.storage == nil {
		return nil
	}
	return s.storage.Save(s.state)
}
