package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// ErrMissingCredentials is returned when either field is blank.
	ErrMissingCredentials = errors.New("please fill in all fields")
	// ErrInvalidEmail is returned when the email does not parse as an address.
	ErrInvalidEmail = errors.New("please enter a valid email address")
)

// User is the signed-in account.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Service accepts any well-formed credentials.
type Service struct {
	delay  time.Duration
	newID  func() string
	logger zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDelay simulates a round trip to an auth backend.
func WithDelay(d time.Duration) Option {
	return func(s *Service) {
		s.delay = d
	}
}

// WithIDGenerator overrides user id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		s.newID = fn
	}
}

// NewService creates the mock auth service.
func NewService(opts ...Option) *Service {
	s := &Service{
		newID:  uuid.NewString,
		logger: log.With().Str("component", "auth").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login validates the form and returns the user. The name is the local part
// of the email.
func (s *Service) Login(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return User{}, ErrMissingCredentials
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Name != "" {
		return User{}, ErrInvalidEmail
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return User{}, ctx.Err()
		case <-timer.C:
		}
	}

	local, _, _ := strings.Cut(addr.Address, "@")
	user := User{
		ID:    s.newID(),
		Email: addr.Address,
		Name:  local,
	}
	s.logger.Info().Str("user", user.Name).Msg("signed in")
	return user, nil
}
