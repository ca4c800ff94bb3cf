package chat

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/genzchat/genzchat/internal/model/chat"
	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/stream"
)

// ConnectionErrorText replaces the assistant reply when the stream could
// not be opened or read.
const ConnectionErrorText = "Connection error. Make sure the backend is running."

var (
	ErrEmptyMessage    = errors.New("message is empty")
	ErrTurnInFlight    = errors.New("a turn is already in flight")
	ErrClosed          = errors.New("controller closed")
	ErrServiceReported = errors.New("chat service reported an error")
)

// Streamer opens the streamed response for one turn.
type Streamer interface {
	OpenStream(ctx context.Context, req chat.StreamRequest) (io.ReadCloser, error)
}

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	Session chat.Session
	Turn    TurnState
}

// Loading reports whether a turn is in flight.
func (s Snapshot) Loading() bool {
	return s.Turn == TurnInFlight
}

// Option configures a Controller.
type Option func(*Controller)

// WithIDGenerator replaces the session id generator.
func WithIDGenerator(fn func() string) Option {
	return func(c *Controller) {
		c.newID = fn
	}
}

// WithClock replaces the time source used for message timestamps.
func WithClock(fn func() time.Time) Option {
	return func(c *Controller) {
		c.now = fn
	}
}

// WithLogger overrides the controller logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// Controller owns one conversation session and runs at most one turn at a
// time. All session mutation happens under mu; subscribers are notified
// after the lock is released.
type Controller struct {
	streamer Streamer
	personas persona.Store
	logger   zerolog.Logger
	newID    func() string
	now      func() time.Time

	mu          sync.Mutex
	session     chat.Session
	turn        *Turn
	closed      bool
	subscribers map[int]func()
	nextSub     int

	wg sync.WaitGroup
}

// NewController starts a session for the given personality key.
func NewController(streamer Streamer, personas persona.Store, personality string, opts ...Option) *Controller {
	c := &Controller{
		streamer:    streamer,
		personas:    personas,
		logger:      log.With().Str("component", "controller").Logger(),
		newID:       uuid.NewString,
		now:         time.Now,
		subscribers: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resetLocked(personality)
	return c
}

// Snapshot returns a copy of the session and the turn state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{Session: c.session.Clone(), Turn: c.turnStateLocked()}
}

// Personality returns the active personality key.
func (c *Controller) Personality() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Personality
}

// Personalities lists the descriptors the controller can switch between.
func (c *Controller) Personalities() []persona.Personality {
	return c.personas.List()
}

func (c *Controller) turnStateLocked() TurnState {
	if c.turn == nil {
		return TurnIdle
	}
	return c.turn.state
}

// Subscribe registers fn to be called after every state change. The
// returned function removes the subscription.
func (c *Controller) Subscribe(fn func()) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subscribers, id)
		c.mu.Unlock()
	}
}

func (c *Controller) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.subscribers))
	for _, fn := range c.subscribers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Submit starts a turn for text. It returns ErrEmptyMessage for blank text
// and ErrTurnInFlight while another turn runs; in both cases nothing
// changes. On success the user message and an empty in-progress assistant
// message are appended before the stream is opened.
func (c *Controller) Submit(ctx context.Context, text string) (*Turn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if c.turnStateLocked() == TurnInFlight {
		c.mu.Unlock()
		return nil, ErrTurnInFlight
	}

	now := c.now()
	c.session.Messages = append(c.session.Messages,
		chat.Message{Role: chat.RoleUser, Content: text, CreatedAt: now},
		chat.Message{Role: chat.RoleAssistant, CreatedAt: now, InProgress: true},
	)

	turnCtx, cancel := context.WithCancel(ctx)
	turn := &Turn{
		sessionID: c.session.ID,
		index:     len(c.session.Messages) - 1,
		cancel:    cancel,
		done:      make(chan struct{}),
		state:     TurnInFlight,
	}
	c.turn = turn
	req := chat.StreamRequest{
		Message:     text,
		SessionID:   c.session.ID,
		Personality: c.session.Personality,
	}
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Debug().
		Str("session_id", req.SessionID).
		Str("personality", req.Personality).
		Msg("turn started")
	c.notify()

	go c.run(turnCtx, turn, req)
	return turn, nil
}

func (c *Controller) run(ctx context.Context, turn *Turn, req chat.StreamRequest) {
	defer c.wg.Done()

	var (
		res stream.Result
		err error
	)
	defer func() {
		c.release(turn, res, err)
	}()

	body, err := c.streamer.OpenStream(ctx, req)
	if err != nil {
		return
	}
	defer body.Close()

	rec := stream.NewReconciler(func(u stream.Update) {
		c.apply(turn, u)
	}, stream.WithLogger(c.logger.With().Str("session_id", turn.sessionID).Logger()))
	res, err = rec.Consume(ctx, body)
}

func (c *Controller) apply(turn *Turn, u stream.Update) {
	c.mu.Lock()
	if c.session.ID != turn.sessionID {
		c.mu.Unlock()
		return
	}
	msg := &c.session.Messages[turn.index]
	msg.Content = u.Content
	msg.InProgress = u.InProgress
	c.mu.Unlock()

	c.notify()
}

// release ends the turn whatever happened to it.
func (c *Controller) release(turn *Turn, res stream.Result, err error) {
	cancelled := err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))

	c.mu.Lock()
	switch {
	case err != nil:
		turn.state = TurnFailed
		turn.err = err
	case res.State == stream.Errored:
		turn.state = TurnFailed
		turn.err = errors.WithMessage(ErrServiceReported, res.Content)
	default:
		turn.state = TurnCompleted
	}
	turn.result = res

	if c.session.ID == turn.sessionID {
		msg := &c.session.Messages[turn.index]
		if err != nil && !cancelled {
			msg.Content = ConnectionErrorText
		}
		msg.InProgress = false
	}
	c.mu.Unlock()

	turn.cancel()
	close(turn.done)

	logger := c.logger.With().
		Str("session_id", turn.sessionID).
		Str("state", turn.state.String()).
		Int("records", res.Records).
		Int("skipped", res.Skipped).
		Logger()
	switch {
	case cancelled:
		logger.Debug().Msg("turn cancelled")
	case err != nil:
		logger.Warn().Err(err).Msg("turn failed")
	case res.Unterminated:
		logger.Warn().Msg("stream closed without explicit completion")
	default:
		logger.Debug().Msg("turn finished")
	}

	c.notify()
}

// SwitchPersonality starts a fresh session for key. It is a no-op when key
// is already active. An in-flight turn is cancelled and its updates are
// discarded.
func (c *Controller) SwitchPersonality(key string) bool {
	c.mu.Lock()
	if c.closed || key == c.session.Personality {
		c.mu.Unlock()
		return false
	}
	previous := c.turn
	c.resetLocked(key)
	c.mu.Unlock()

	if previous != nil {
		previous.cancel()
	}
	c.logger.Info().Str("personality", key).Msg("personality switched")
	c.notify()
	return true
}

// resetLocked replaces the session with a single greeting message.
func (c *Controller) resetLocked(key string) {
	greeting := persona.DefaultGreeting
	if p, ok := c.personas.FindByKey(key); ok {
		greeting = p.GreetingOrDefault()
	}

	id := c.newID()
	for id == c.session.ID {
		id = c.newID()
	}

	c.session = chat.Session{
		ID:          id,
		Personality: key,
		Messages: []chat.Message{
			{Role: chat.RoleAssistant, Content: greeting, CreatedAt: c.now()},
		},
	}
	c.turn = nil
}

// Close cancels any in-flight turn and waits for it to release. The
// controller rejects further submissions.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	turn := c.turn
	c.mu.Unlock()

	if turn != nil {
		turn.cancel()
	}
	c.wg.Wait()
}
