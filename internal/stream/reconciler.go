package stream

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle of the message a Reconciler fills.
type State int

const (
	Pending State = iota
	Accumulating
	Finalized
	Errored
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Accumulating:
		return "accumulating"
	case Finalized:
		return "finalized"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further mutation may happen.
func (s State) Terminal() bool {
	return s == Finalized || s == Errored
}

// Update is the new content of the in-progress message.
type Update struct {
	Content    string
	InProgress bool
	State      State
}

// Sink receives every change of the in-progress message, in order.
type Sink func(Update)

// Result summarises a consumed stream.
type Result struct {
	State   State
	Content string
	Records int
	Skipped int
	// Unterminated is set when the stream ended without a done or error record.
	Unterminated bool
}

// ErrTerminated is returned by Write once a done or error record was seen.
var ErrTerminated = errors.New("record stream already terminated")

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger overrides the logger used for skipped records.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// Reconciler folds newline-delimited records into exactly one message.
// It is an io.Writer: each Write is one chunk of the response body. It is
// not safe for concurrent use.
type Reconciler struct {
	sink    Sink
	logger  zerolog.Logger
	buf     []byte
	acc     strings.Builder
	state   State
	content string
	records int
	skipped int
}

// NewReconciler returns a Reconciler reporting to sink.
func NewReconciler(sink Sink, opts ...Option) *Reconciler {
	r := &Reconciler{
		sink:   sink,
		logger: log.With().Str("component", "stream").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// State returns the current state.
func (r *Reconciler) State() State {
	return r.state
}

// Write appends p to the line buffer and processes every complete line.
// A trailing partial line is kept for the next call.
func (r *Reconciler) Write(p []byte) (int, error) {
	if r.state.Terminal() {
		return 0, ErrTerminated
	}
	r.buf = append(r.buf, p...)

	start := 0
	for {
		i := bytes.IndexByte(r.buf[start:], '\n')
		if i < 0 {
			break
		}
		r.handleLine(r.buf[start : start+i])
		start += i + 1
		if r.state.Terminal() {
			r.buf = nil
			return len(p), ErrTerminated
		}
	}
	r.buf = append(r.buf[:0], r.buf[start:]...)
	return len(p), nil
}

func (r *Reconciler) handleLine(line []byte) {
	rec, ok, err := ParseLine(line)
	if !ok {
		return
	}
	if err != nil {
		r.skipped++
		r.logger.Warn().Err(err).Int("length", len(line)).Msg("skipping malformed record")
		return
	}
	r.records++
	r.apply(rec)
}

func (r *Reconciler) apply(rec Record) {
	if rec.Error != "" {
		r.finish(Errored, ErrorText(rec.Error))
		return
	}

	if rec.Chunk != "" {
		r.acc.WriteString(rec.Chunk)
		r.content = r.acc.String()
		r.state = Accumulating
		if !rec.Done {
			r.emit(true)
		}
	}

	if rec.Done {
		final := rec.FullResponse
		if final == "" {
			final = r.acc.String()
		}
		r.finish(Finalized, final)
	}
}

func (r *Reconciler) finish(state State, content string) {
	r.state = state
	r.content = content
	r.emit(false)
}

func (r *Reconciler) emit(inProgress bool) {
	if r.sink == nil {
		return
	}
	r.sink(Update{Content: r.content, InProgress: inProgress, State: r.state})
}

// Close ends the stream. When no terminal record arrived the message keeps
// the last accumulated content and is finalized as unterminated. A partial
// line still buffered is discarded.
func (r *Reconciler) Close() Result {
	if r.state.Terminal() {
		return r.Result()
	}
	if len(bytes.TrimSpace(r.buf)) > 0 {
		r.logger.Debug().Int("length", len(r.buf)).Msg("dropping unterminated trailing line")
	}
	r.buf = nil
	r.finish(Finalized, r.acc.String())
	res := r.Result()
	res.Unterminated = true
	return res
}

// Result reports the current outcome without closing.
func (r *Reconciler) Result() Result {
	return Result{
		State:   r.state,
		Content: r.content,
		Records: r.records,
		Skipped: r.skipped,
	}
}

// Consume copies src into r until a terminal record or the end of src and
// then closes r. Read failures are returned wrapped, leaving r unclosed so
// the caller decides how the message ends; a cancelled ctx is returned as is.
func (r *Reconciler) Consume(ctx context.Context, src io.Reader) (Result, error) {
	_, err := io.Copy(r, &ctxReader{ctx: ctx, r: src})
	if errors.Is(err, ErrTerminated) {
		return r.Result(), nil
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return r.Result(), ctxErr
		}
		return r.Result(), errors.Wrap(err, "read chat stream")
	}
	return r.Close(), nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
