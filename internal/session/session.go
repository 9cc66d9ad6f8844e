// Package session owns the client's authentication state: the bearer token
// and the signed-in user, persisted through a Store.
package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TobiSchelling/Polarify/internal/api"
)

// Storage keys.
const (
	TokenKey = "polarify_token"
	UserKey  = "polarify_user"
)

// Store persists session values.
type Store interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Clear() error
}

// Session reads and writes authentication state. Token is consulted on every
// outbound request, so changes take effect immediately.
type Session struct {
	mu    sync.RWMutex
	store Store
}

// New creates a Session backed by store.
func New(store Store) *Session {
	return &Session{store: store}
}

// Token returns the current bearer token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, err := s.store.Get(TokenKey)
	if err != nil {
		slog.Warn("reading session token", "error", err)
		return ""
	}
	return token
}

// LoggedIn reports whether a token is present.
func (s *Session) LoggedIn() bool {
	return s.Token() != ""
}

// User returns the cached user, or nil when none was stored.
func (s *Session) User() *api.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, err := s.store.Get(UserKey)
	if err != nil || raw == "" {
		return nil
	}
	var u api.User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		return nil
	}
	return &u
}

// Login stores the token and user returned by a successful sign-in.
func (s *Session) Login(token string, user api.User) error {
	if token == "" {
		return fmt.Errorf("login response carried no token")
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(TokenKey, token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	if err := s.store.Set(UserKey, string(data)); err != nil {
		return fmt.Errorf("storing user: %w", err)
	}
	return nil
}

// Register stores the token returned by a successful registration. No user
// is cached until the next Login.
func (s *Session) Register(token string) error {
	if token == "" {
		return fmt.Errorf("register response carried no token")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Set(TokenKey, token); err != nil {
		return fmt.Errorf("storing token: %w", err)
	}
	return nil
}

// Logout removes every persisted session value.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	return nil
}
