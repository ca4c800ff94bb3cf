package ui

import (
	"context"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genzchat/genzchat/internal/app"
	chatmodel "github.com/genzchat/genzchat/internal/model/chat"
	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/auth"
	chatservice "github.com/genzchat/genzchat/internal/service/chat"
)

// pipeBackend hands out one pipe per stream so tests decide when a turn ends.
type pipeBackend struct {
	writers chan *io.PipeWriter
}

func newPipeBackend() *pipeBackend {
	return &pipeBackend{writers: make(chan *io.PipeWriter, 4)}
}

func (b *pipeBackend) Personalities(context.Context) ([]persona.Personality, error) {
	return persona.Seed(), nil
}

func (b *pipeBackend) OpenStream(ctx context.Context, _ chatmodel.StreamRequest) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	go func() {
		<-ctx.Done()
		pw.CloseWithError(ctx.Err())
	}()
	b.writers <- pw
	return pr, nil
}

func (b *pipeBackend) next(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case pw := <-b.writers:
		return pw
	case <-time.After(2 * time.Second):
		t.Fatal("stream was never opened")
		return nil
	}
}

type harness struct {
	t       *testing.T
	m       *model
	app     *app.App
	backend *pipeBackend
	copied  []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	backend := newPipeBackend()
	a := app.New(backend, auth.NewService(),
		app.WithLogger(zerolog.Nop()),
		app.WithControllerOptions(chatservice.WithLogger(zerolog.Nop())),
	)
	h := &harness{t: t, app: a, backend: backend}
	h.m = newModel(context.Background(), a, Options{
		Style: "notty",
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	})
	t.Cleanup(func() {
		h.m.leaveChat()
		a.Logout()
	})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	_, cmd := h.m.Update(msg)
	return cmd
}

func (h *harness) typeText(s string) {
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) enter() tea.Cmd {
	return h.send(tea.KeyMsg{Type: tea.KeyEnter})
}

func (h *harness) login(email, password string) {
	h.t.Helper()
	h.typeText(email)
	h.enter()
	h.typeText(password)
	cmd := h.enter()
	require.NotNil(h.t, cmd)
	h.send(cmd())
}

func (h *harness) waitIdle() {
	h.t.Helper()
	require.Eventually(h.t, func() bool {
		return !h.m.ctrl.Snapshot().Loading()
	}, 2*time.Second, 5*time.Millisecond)
	h.send(changedMsg{})
}

func (h *harness) say(text string) *io.PipeWriter {
	h.t.Helper()
	h.typeText(text)
	h.enter()
	return h.backend.next(h.t)
}

func TestLoginShowsGreeting(t *testing.T) {
	h := newHarness(t)

	h.login("sam@example.com", "pw")

	require.Equal(t, screenChat, h.m.screen)
	assert.Equal(t, "sam", h.m.user.Name)
	require.Len(t, h.m.snap.Session.Messages, 1)
	assert.Equal(t, persona.DefaultGreeting, h.m.snap.Session.Messages[0].Content)
	assert.True(t, h.m.input.Focused())
	assert.Contains(t, h.m.View(), "sam")
}

func TestLoginErrorStaysOnLoginScreen(t *testing.T) {
	h := newHarness(t)

	h.login("", "pw")

	assert.Equal(t, screenLogin, h.m.screen)
	assert.Equal(t, "Please fill in all fields", h.m.loginErr)
	assert.Contains(t, h.m.View(), "Please fill in all fields")
}

func TestSubmitBlursUntilTurnEnds(t *testing.T) {
	h := newHarness(t)
	h.login("sam@example.com", "pw")

	pw := h.say("hello")

	assert.False(t, h.m.input.Focused(), "input is disabled while a reply streams")
	assert.True(t, h.m.snap.Loading())
	assert.Equal(t, "", h.m.input.Value())
	require.Len(t, h.m.snap.Session.Messages, 3)

	_, err := io.WriteString(pw, `data: {"chunk":"hey **you**","done":false}`+"\n"+`data: {"done":true}`+"\n")
	require.NoError(t, err)
	pw.Close()
	h.waitIdle()

	assert.True(t, h.m.input.Focused(), "input is focused again once the turn ends")
	last := h.m.snap.Session.Messages[2]
	assert.Equal(t, "hey **you**", last.Content)
	assert.False(t, last.InProgress)
}

func TestCopyCommand(t *testing.T) {
	h := newHarness(t)
	h.login("sam@example.com", "pw")

	h.typeText("/copy")
	h.enter()
	assert.Equal(t, "Nothing to copy yet", h.m.notice)

	pw := h.say("hello")
	_, _ = io.WriteString(pw, `data: {"done":true,"full_response":"bet"}`+"\n")
	pw.Close()
	h.waitIdle()

	h.typeText("/copy")
	h.enter()
	assert.Equal(t, []string{"bet"}, h.copied)
}

func TestModeCommandSwitchesPersonality(t *testing.T) {
	h := newHarness(t)
	h.login("sam@example.com", "pw")
	before := h.m.snap.Session.ID

	h.typeText("/mode study_buddy")
	h.enter()

	assert.Equal(t, "study_buddy", h.m.ctrl.Personality())
	assert.NotEqual(t, before, h.m.snap.Session.ID)
	require.Len(t, h.m.snap.Session.Messages, 1)
	assert.Contains(t, h.m.notice, "Switched to")

	h.typeText("/mode pirate")
	h.enter()
	assert.Contains(t, h.m.notice, "Unknown mode")
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness(t)
	h.login("sam@example.com", "pw")

	h.typeText("/dance")
	h.enter()

	assert.Contains(t, h.m.notice, "Unknown command /dance")
	assert.Len(t, h.m.ctrl.Snapshot().Session.Messages, 1)
}

func TestLogoutReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.login("sam@example.com", "pw")

	h.typeText("/logout")
	h.enter()

	assert.Equal(t, screenLogin, h.m.screen)
	assert.Nil(t, h.m.ctrl)
	_, signedIn := h.app.User()
	assert.False(t, signedIn)
}
