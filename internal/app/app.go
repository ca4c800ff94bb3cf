package app

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/auth"
	"github.com/genzchat/genzchat/internal/service/chat"
)

var (
	// ErrAlreadySignedIn is returned by Login while a user is signed in.
	ErrAlreadySignedIn = errors.New("already signed in")
	// ErrSignedOut is returned by operations that need a signed-in user.
	ErrSignedOut = errors.New("not signed in")
)

// Backend is what the app needs from the chat service.
type Backend interface {
	chat.Streamer
	Personalities(ctx context.Context) ([]persona.Personality, error)
}

// Authenticator signs users in.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (auth.User, error)
}

// App owns the signed-in user and their chat session.
type App struct {
	backend   Backend
	auth      Authenticator
	preferred string
	ctrlOpts  []chat.Option
	logger    zerolog.Logger

	mu         sync.Mutex
	user       *auth.User
	personas   []persona.Personality
	fallback   bool
	controller *chat.Controller
}

// Option configures an App.
type Option func(*App)

// WithPersonality sets the personality new sessions prefer.
func WithPersonality(key string) Option {
	return func(a *App) {
		a.preferred = key
	}
}

// WithControllerOptions passes options to every controller the app creates.
func WithControllerOptions(opts ...chat.Option) Option {
	return func(a *App) {
		a.ctrlOpts = append(a.ctrlOpts, opts...)
	}
}

// WithLogger overrides the app logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// New creates a signed-out App.
func New(backend Backend, authenticator Authenticator, opts ...Option) *App {
	a := &App{
		backend:   backend,
		auth:      authenticator,
		preferred: persona.DefaultKey,
		logger:    log.With().Str("component", "app").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Login signs the user in, loads the personalities and opens a session.
// When the personality list cannot be fetched the built-in fallback is
// used instead.
func (a *App) Login(ctx context.Context, email, password string) (auth.User, error) {
	a.mu.Lock()
	signedIn := a.user != nil
	a.mu.Unlock()
	if signedIn {
		return auth.User{}, ErrAlreadySignedIn
	}

	user, err := a.auth.Login(ctx, email, password)
	if err != nil {
		return auth.User{}, err
	}

	items, fallback := a.loadPersonalities(ctx)
	store := persona.NewMemoryStore(items)
	start, _ := persona.Resolve(store, a.preferred)
	ctrl := chat.NewController(a.backend, store, start.Key, a.ctrlOpts...)

	a.mu.Lock()
	if a.user != nil {
		a.mu.Unlock()
		ctrl.Close()
		return auth.User{}, ErrAlreadySignedIn
	}
	a.user = &user
	a.personas = items
	a.fallback = fallback
	a.controller = ctrl
	a.mu.Unlock()

	a.logger.Info().
		Str("user", user.Name).
		Str("personality", start.Key).
		Bool("fallback_personalities", fallback).
		Msg("session ready")
	return user, nil
}

func (a *App) loadPersonalities(ctx context.Context) ([]persona.Personality, bool) {
	items, err := a.backend.Personalities(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("using fallback personality")
		return persona.Fallback(), true
	}
	if len(items) == 0 {
		a.logger.Warn().Msg("service returned no personalities, using fallback")
		return persona.Fallback(), true
	}
	return items, false
}

// Logout tears down the session and forgets the user.
func (a *App) Logout() {
	a.mu.Lock()
	ctrl := a.controller
	user := a.user
	a.user = nil
	a.personas = nil
	a.fallback = false
	a.controller = nil
	a.mu.Unlock()

	if ctrl != nil {
		ctrl.Close()
	}
	if user != nil {
		a.logger.Info().Str("user", user.Name).Msg("signed out")
	}
}

// User returns the signed-in user.
func (a *App) User() (auth.User, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.user == nil {
		return auth.User{}, false
	}
	return *a.user, true
}

// Controller returns the active session controller.
func (a *App) Controller() (*chat.Controller, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.controller == nil {
		return nil, ErrSignedOut
	}
	return a.controller, nil
}

// Personalities returns the descriptors loaded at login and whether they
// are the built-in fallback.
func (a *App) Personalities() ([]persona.Personality, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]persona.Personality, len(a.personas))
	copy(out, a.personas)
	return out, a.fallback
}
