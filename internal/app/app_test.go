package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	chatmodel "github.com/genzchat/genzchat/internal/model/chat"
	"github.com/genzchat/genzchat/internal/model/persona"
	"github.com/genzchat/genzchat/internal/service/auth"
	"github.com/genzchat/genzchat/internal/service/chat"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeBackend struct {
	personas []persona.Personality
	err      error
	body     string
}

func (f *fakeBackend) Personalities(context.Context) ([]persona.Personality, error) {
	return f.personas, f.err
}

func (f *fakeBackend) OpenStream(context.Context, chatmodel.StreamRequest) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func newApp(backend Backend, opts ...Option) *App {
	opts = append(opts,
		WithLogger(zerolog.Nop()),
		WithControllerOptions(chat.WithLogger(zerolog.Nop())),
	)
	return New(backend, auth.NewService(), opts...)
}

func TestLoginBootstrapsPreferredPersonality(t *testing.T) {
	a := newApp(&fakeBackend{personas: persona.Seed()}, WithPersonality("study_buddy"))

	user, err := a.Login(context.Background(), "sam@example.com", "pw")
	require.NoError(t, err)
	defer a.Logout()

	assert.Equal(t, "sam", user.Name)
	ctrl, err := a.Controller()
	require.NoError(t, err)
	assert.Equal(t, "study_buddy", ctrl.Personality())

	snap := ctrl.Snapshot()
	require.Len(t, snap.Session.Messages, 1)
	study, _ := persona.NewMemoryStore(persona.Seed()).FindByKey("study_buddy")
	assert.Equal(t, study.Greeting, snap.Session.Messages[0].Content)

	_, fallback := a.Personalities()
	assert.False(t, fallback)
}

func TestLoginUnknownPreferenceUsesFirst(t *testing.T) {
	a := newApp(&fakeBackend{personas: persona.Seed()[1:]}, WithPersonality("nope"))

	_, err := a.Login(context.Background(), "sam@example.com", "pw")
	require.NoError(t, err)
	defer a.Logout()

	ctrl, _ := a.Controller()
	assert.Equal(t, persona.Seed()[1].Key, ctrl.Personality())
}

func TestLoginFallsBackWhenFetchFails(t *testing.T) {
	a := newApp(&fakeBackend{err: errors.New("connection refused")})

	_, err := a.Login(context.Background(), "sam@example.com", "pw")
	require.NoError(t, err)
	defer a.Logout()

	items, fallback := a.Personalities()
	assert.True(t, fallback)
	assert.Equal(t, persona.Fallback(), items)

	ctrl, _ := a.Controller()
	assert.Equal(t, persona.DefaultKey, ctrl.Personality())
	assert.Equal(t, persona.DefaultGreeting, ctrl.Snapshot().Session.Messages[0].Content)
}

func TestLoginFailureKeepsSignedOut(t *testing.T) {
	a := newApp(&fakeBackend{personas: persona.Seed()})

	_, err := a.Login(context.Background(), "", "pw")

	assert.ErrorIs(t, err, auth.ErrMissingCredentials)
	_, ok := a.User()
	assert.False(t, ok)
	_, err = a.Controller()
	assert.ErrorIs(t, err, ErrSignedOut)
}

func TestLoginTwiceIsRejected(t *testing.T) {
	a := newApp(&fakeBackend{personas: persona.Seed()})
	_, err := a.Login(context.Background(), "sam@example.com", "pw")
	require.NoError(t, err)
	defer a.Logout()

	_, err = a.Login(context.Background(), "kim@example.com", "pw")

	assert.ErrorIs(t, err, ErrAlreadySignedIn)
	user, _ := a.User()
	assert.Equal(t, "sam", user.Name)
}

func TestLogoutClosesController(t *testing.T) {
	a := newApp(&fakeBackend{personas: persona.Seed(), body: `data: {"chunk":"hey","done":false}` + "\n"})
	_, err := a.Login(context.Background(), "sam@example.com", "pw")
	require.NoError(t, err)
	ctrl, _ := a.Controller()

	turn, err := ctrl.Submit(context.Background(), "yo")
	require.NoError(t, err)
	<-turn.Done()

	a.Logout()

	_, ok := a.User()
	assert.False(t, ok)
	_, err = ctrl.Submit(context.Background(), "again")
	assert.ErrorIs(t, err, chat.ErrClosed)
}
