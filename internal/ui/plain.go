package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	input "github.com/tcnksm/go-input"

	"github.com/genzchat/genzchat/internal/app"
	"github.com/genzchat/genzchat/internal/render"
	"github.com/genzchat/genzchat/internal/service/auth"
	chatservice "github.com/genzchat/genzchat/internal/service/chat"
)

// PlainOptions configure the line-oriented mode.
type PlainOptions struct {
	// MaskPassword hides password input. The reader must be a terminal.
	MaskPassword bool
	// Clipboard receives /copy text. Defaults to the system clipboard.
	Clipboard func(string) error
}

var errInputClosed = errors.New("input closed")

// eofReader remembers that the underlying reader is exhausted, so an empty
// answer at end of input ends the session instead of looping.
type eofReader struct {
	r   io.Reader
	eof bool
}

func (e *eofReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if errors.Is(err, io.EOF) {
		e.eof = true
	}
	return n, err
}

type plainSession struct {
	ctx    context.Context
	app    *app.App
	ui     *input.UI
	in     *eofReader
	out    io.Writer
	opts   PlainOptions
	logger zerolog.Logger
}

// RunPlain runs the chat as a simple prompt loop for pipes and dumb
// terminals. Replies are printed as they stream in.
func RunPlain(ctx context.Context, a *app.App, in io.Reader, out io.Writer, opts PlainOptions) error {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	s := &plainSession{
		ctx:    ctx,
		app:    a,
		out:    out,
		opts:   opts,
		logger: log.With().Str("component", "ui").Logger(),
	}
	if opts.MaskPassword {
		// Masked reads need the terminal file itself.
		s.ui = &input.UI{Reader: in, Writer: out}
	} else {
		s.in = &eofReader{r: in}
		s.ui = &input.UI{Reader: s.in, Writer: out}
	}
	defer a.Logout()

	for {
		user, err := s.login()
		if errors.Is(err, errInputClosed) {
			return nil
		}
		if err != nil {
			return err
		}

		quit, err := s.chat(user)
		if errors.Is(err, errInputClosed) || (err == nil && quit) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (s *plainSession) ask(query string, mask bool) (string, error) {
	answer, err := s.ui.Ask(query, &input.Options{
		HideOrder: true,
		Mask:      mask,
	})
	if err != nil {
		s.logger.Debug().Err(err).Msg("stopped reading input")
		return "", errInputClosed
	}
	if answer == "" && s.in != nil && s.in.eof {
		return "", errInputClosed
	}
	return answer, nil
}

func (s *plainSession) login() (auth.User, error) {
	for {
		email, err := s.ask("Email:", false)
		if err != nil {
			return auth.User{}, err
		}
		password, err := s.ask("Password:", s.opts.MaskPassword)
		if err != nil {
			return auth.User{}, err
		}

		fmt.Fprintln(s.out, "Signing in...")
		user, err := s.app.Login(s.ctx, email, password)
		switch {
		case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrInvalidEmail):
			fmt.Fprintln(s.out, capitalize(err.Error()))
			continue
		case err != nil:
			return auth.User{}, err
		}
		return user, nil
	}
}

// chat runs until /logout (quit=false) or /quit (quit=true).
func (s *plainSession) chat(user auth.User) (bool, error) {
	ctrl, err := s.app.Controller()
	if err != nil {
		return false, err
	}
	if _, fallback := s.app.Personalities(); fallback {
		fmt.Fprintln(s.out, "Couldn't load modes from the server, using the default one.")
	}
	fmt.Fprintf(s.out, "Signed in as %s. Type /help for commands.\n", user.Name)
	s.printGreeting(ctrl)

	for {
		line, err := s.ask(user.Name+">", false)
		if err != nil {
			return false, err
		}

		if cmd, ok := parseCommand(line); ok {
			if !knownCommand(cmd.name) {
				fmt.Fprintf(s.out, "Unknown command %s, try /help\n", cmd.name)
				continue
			}
			switch cmd.name {
			case "/logout":
				s.app.Logout()
				fmt.Fprintln(s.out, "Signed out.")
				return false, nil
			case "/quit":
				return true, nil
			}
			s.runCommand(ctrl, cmd)
			continue
		}

		if err := s.converse(ctrl, line); err != nil {
			return false, err
		}
	}
}

func (s *plainSession) printGreeting(ctrl *chatservice.Controller) {
	snap := ctrl.Snapshot()
	if len(snap.Session.Messages) == 0 {
		return
	}
	items, _ := s.app.Personalities()
	fmt.Fprintf(s.out, "%s: %s\n", labelFor(items, snap.Session.Personality), render.Emphasis(snap.Session.Messages[0].Content))
}

func (s *plainSession) runCommand(ctrl *chatservice.Controller, cmd command) {
	items, _ := s.app.Personalities()

	switch cmd.name {
	case "/help":
		fmt.Fprintln(s.out, helpText())
	case "/modes":
		fmt.Fprintln(s.out, modesText(items, ctrl.Personality()))
	case "/mode":
		p, ok := findMode(items, cmd.arg)
		if !ok {
			fmt.Fprintf(s.out, "Unknown mode %q, try /modes\n", cmd.arg)
			return
		}
		if !ctrl.SwitchPersonality(p.Key) {
			fmt.Fprintln(s.out, "Already in "+labelFor(items, p.Key))
			return
		}
		s.printGreeting(ctrl)
	case "/copy":
		reply, ok := lastReply(ctrl.Snapshot())
		if !ok {
			fmt.Fprintln(s.out, "Nothing to copy yet")
			return
		}
		if err := s.opts.Clipboard(reply); err != nil {
			s.logger.Warn().Err(err).Msg("clipboard write failed")
			fmt.Fprintln(s.out, "Couldn't reach the clipboard")
			return
		}
		fmt.Fprintln(s.out, "Copied the last reply")
	}
}

// converse submits one message and echoes the reply as it grows.
func (s *plainSession) converse(ctrl *chatservice.Controller, text string) error {
	changes := make(chan struct{}, 1)
	unsubscribe := ctrl.Subscribe(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	turn, err := ctrl.Submit(s.ctx, text)
	switch {
	case errors.Is(err, chatservice.ErrEmptyMessage):
		return nil
	case err != nil:
		return err
	}

	items, _ := s.app.Personalities()
	fmt.Fprintf(s.out, "%s: ", labelFor(items, ctrl.Personality()))

	var printed string
	for {
		select {
		case <-changes:
			printed = s.printDelta(ctrl, printed)
		case <-turn.Done():
			s.printDelta(ctrl, printed)
			fmt.Fprintln(s.out)
			return nil
		}
	}
}

// printDelta writes what the reply gained since the last call. A reply
// that was replaced rather than extended is printed on a fresh line.
func (s *plainSession) printDelta(ctrl *chatservice.Controller, printed string) string {
	msgs := ctrl.Snapshot().Session.Messages
	if len(msgs) == 0 {
		return printed
	}
	content := msgs[len(msgs)-1].Content
	if rest, ok := strings.CutPrefix(content, printed); ok {
		fmt.Fprint(s.out, rest)
	} else {
		fmt.Fprint(s.out, "\n"+content)
	}
	return content
}
