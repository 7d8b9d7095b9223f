// Package auth resolves the signed-in user. Providers keep the user in a
// Session and notify listeners when it changes.
package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/nikbrunner/bmsync/internal/model"
)

var (
	// ErrNotSignedIn is returned when an operation needs a user and there is none.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrUnknownProvider is returned by SignIn for a provider name it does not serve.
	ErrUnknownProvider = errors.New("unknown sign-in provider")
	// ErrInvalidToken is returned by a TokenVerifier that rejects a bearer token.
	ErrInvalidToken = errors.New("invalid token")
)

// Provider is the auth collaborator used by the UI and the CLI.
type Provider interface {
	// Name is the provider label passed to SignIn, ex: "google" or "local".
	Name() string
	// CurrentUser returns the signed-in user or nil. It does not prompt.
	CurrentUser(ctx context.Context) (*model.User, error)
	// OnAuthStateChange registers fn and returns a function that removes it.
	OnAuthStateChange(fn func(*model.User)) (unsubscribe func())
	SignIn(ctx context.Context, provider string) error
	SignOut(ctx context.Context) error
	// Token returns the bearer token for the hosted API.
	Token(ctx context.Context) (string, error)
}

// Session holds the current user and its change listeners.
// It is safe for concurrent use.
type Session struct {
	mu        sync.Mutex
	user      *model.User
	nextID    int
	listeners map[int]func(*model.User)
}

// NewSession creates a signed-out Session.
func NewSession() *Session {
	return &Session{listeners: make(map[int]func(*model.User))}
}

// User returns a copy of the current user, or nil.
func (s *Session) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneUser(s.user)
}

// Set replaces the current user and notifies listeners.
func (s *Session) Set(u *model.User) {
	s.mu.Lock()
	s.user = cloneUser(u)
	fns := make([]func(*model.User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(cloneUser(u))
	}
}

// restore sets the user without notifying; used when loading a saved session.
func (s *Session) restore(u *model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = cloneUser(u)
}

// OnChange registers fn and returns its unsubscribe function.
func (s *Session) OnChange(fn func(*model.User)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func cloneUser(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
