// Package session tracks the single authenticated actor and the calendar
// connection for the lifetime of the process.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/harrisonrobin/taskboard/pkg/directory"
	"github.com/harrisonrobin/taskboard/pkg/model"
)

// ErrNotAuthenticated indicates no actor is logged in.
var ErrNotAuthenticated = errors.New("not logged in")

// Authenticator is the part of the directory a session needs.
type Authenticator interface {
	Authenticate(email, credential string) (model.User, error)
	Register(c directory.Candidate) (model.User, error)
	Get(id string) (model.User, error)
}

// Session holds at most one actor.
type Session struct {
	mu       sync.RWMutex
	users    Authenticator
	actor    *model.User
	calendar model.CalendarProvider
	logger   *slog.Logger
}

// New creates a logged-out session.
func New(users Authenticator, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{users: users, calendar: model.CalendarNone, logger: logger}
}

// Login authenticates and makes the user the current actor.
func (s *Session) Login(email, credential string) (model.User, error) {
	u, err := s.users.Authenticate(email, credential)
	if err != nil {
		s.logger.Info("login failed", slog.String("email", email))
		return model.User{}, err
	}
	s.setActor(u)
	return u, nil
}

// SignUp registers a new account and logs it in.
func (s *Session) SignUp(c directory.Candidate) (model.User, error) {
	u, err := s.users.Register(c)
	if err != nil {
		return model.User{}, err
	}
	s.setActor(u)
	return u, nil
}

func (s *Session) setActor(u model.User) {
	s.mu.Lock()
	s.actor = &u
	s.mu.Unlock()
	s.logger.Info("logged in", slog.String("user", u.ID), slog.String("role", string(u.Role)))
}

// Logout clears the actor and disconnects the calendar.
func (s *Session) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actor != nil {
		s.logger.Info("logged out", slog.String("user", s.actor.ID))
	}
	s.actor = nil
	s.calendar = model.CalendarNone
}

// Actor returns the current actor, re-read from the directory so role or
// team changes are picked up.
func (s *Session) Actor() (model.User, error) {
	s.mu.RLock()
	actor := s.actor
	s.mu.RUnlock()

	if actor == nil {
		return model.User{}, ErrNotAuthenticated
	}
	u, err := s.users.Get(actor.ID)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: account no longer exists", ErrNotAuthenticated)
	}
	return u, nil
}

// LoggedIn reports whether an actor is set.
func (s *Session) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actor != nil
}

// ConnectCalendar records the calendar provider. Requires a logged-in actor.
func (s *Session) ConnectCalendar(p model.CalendarProvider) error {
	if _, err := model.ParseCalendarProvider(string(p)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.actor == nil {
		return ErrNotAuthenticated
	}
	s.calendar = p
	return nil
}

// Calendar returns the connected provider.
func (s *Session) Calendar() model.CalendarProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calendar
}

// CalendarConnected reports whether any provider is connected.
func (s *Session) CalendarConnected() bool {
	return s.Calendar() != model.CalendarNone
}
