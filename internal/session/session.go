// Package session holds the process-wide login state: the bearer credential, who it
// belongs to, and the subscribers that must follow it (gateway, live event client).
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/moses-Dera/TaskFlow-sub000/internal/logger"
	"github.com/moses-Dera/TaskFlow-sub000/internal/model"
	"github.com/moses-Dera/TaskFlow-sub000/internal/storage"
)

var ErrInvalidCredential = errors.New("session: credential is not a readable token")

// Claims is what the backend puts in its tokens. The client only reads them;
// signature verification is the backend's job.
type Claims struct {
	UserID string     `json:"id"`
	Name   string     `json:"name,omitempty"`
	Email  string     `json:"email,omitempty"`
	Role   model.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the signed-in user as read from the credential.
type Identity struct {
	UserID    string
	Name      string
	Role      model.Role
	ExpiresAt time.Time // zero: no expiry
}

func (i Identity) Ref() model.UserRef {
	return model.UserRef{ID: i.UserID, Name: i.Name}
}

// ParseCredential reads the claims of a JWT without verifying its signature.
func ParseCredential(token string) (Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	id := claims.UserID
	if id == "" {
		id = claims.Subject
	}
	if id == "" {
		return Identity{}, fmt.Errorf("%w: no user id claim", ErrInvalidCredential)
	}
	ident := Identity{UserID: id, Name: claims.Name, Role: claims.Role}
	if claims.ExpiresAt != nil {
		ident.ExpiresAt = claims.ExpiresAt.Time
	}
	return ident, nil
}

// Listener is told about every credential change. present=false means signed out.
type Listener func(token string, present bool)

// Session is the login state shared by every component of one running client.
// It is created once at start-up and passed to the gateway and the live client.
type Session struct {
	store   storage.CredentialStore
	profile string
	now     func() time.Time

	mu        sync.RWMutex
	token     string
	ident     Identity
	listeners map[int]Listener
	nextID    int
}

// New returns a signed-out session. store may be nil for a session that is never persisted.
func New(store storage.CredentialStore, profile string) *Session {
	if profile == "" {
		profile = "default"
	}
	return &Session{
		store:     store,
		profile:   profile,
		now:       time.Now,
		listeners: make(map[int]Listener),
	}
}

// Restore loads a previously saved credential. A missing or expired one leaves the
// session signed out and is not an error.
func (s *Session) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	tok, err := s.store.Load(ctx, s.profile)
	if errors.Is(err, storage.ErrNoCredential) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("session.Restore: %w", err)
	}
	ident, err := ParseCredential(tok)
	if err != nil || s.expired(ident) {
		logger.Infof("session: discarding stored credential for profile %s", s.profile)
		if err := s.store.Clear(ctx, s.profile); err != nil {
			logger.Errorf("session: clear stale credential: %v", err)
		}
		return nil
	}
	s.set(tok, ident)
	return nil
}

// SignIn installs a credential issued by the backend and persists it.
func (s *Session) SignIn(ctx context.Context, token string) (Identity, error) {
	ident, err := ParseCredential(token)
	if err != nil {
		return Identity{}, err
	}
	if s.expired(ident) {
		return Identity{}, fmt.Errorf("%w: expired at %s", ErrInvalidCredential, ident.ExpiresAt.Format(time.RFC3339))
	}
	if s.store != nil {
		if err := s.store.Save(ctx, s.profile, token); err != nil {
			return Identity{}, fmt.Errorf("session.SignIn: %w", err)
		}
	}
	s.set(token, ident)
	return ident, nil
}

// SignOut clears the credential. Listeners are notified once even if clearing the
// persisted copy fails.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	had := s.token != ""
	s.token, s.ident = "", Identity{}
	s.mu.Unlock()
	if had {
		s.notify("", false)
	}
	if s.store != nil {
		if err := s.store.Clear(ctx, s.profile); err != nil {
			return fmt.Errorf("session.SignOut: %w", err)
		}
	}
	return nil
}

// Credential returns the bearer credential; ok is false when signed out or expired.
func (s *Session) Credential() (string, bool) {
	s.mu.RLock()
	tok, ident := s.token, s.ident
	s.mu.RUnlock()
	if tok == "" || s.expired(ident) {
		return "", false
	}
	return tok, true
}

func (s *Session) Identity() (Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ident, s.token != ""
}

// Subscribe registers l and immediately replays the current state to it.
// The returned func unsubscribes.
func (s *Session) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	tok := s.token
	s.mu.Unlock()

	l(tok, tok != "")
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Session) set(token string, ident Identity) {
	s.mu.Lock()
	changed := s.token != token
	s.token, s.ident = token, ident
	s.mu.Unlock()
	if changed {
		s.notify(token, true)
	}
}

func (s *Session) notify(token string, present bool) {
	s.mu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.RUnlock()
	for _, l := range ls {
		l(token, present)
	}
}

func (s *Session) expired(i Identity) bool {
	return !i.ExpiresAt.IsZero() && !s.now().Before(i.ExpiresAt)
}
