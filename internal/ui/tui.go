package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/genzchat/genzchat/internal/app"
	"github.com/genzchat/genzchat/internal/model/chat"
	"github.com/genzchat/genzchat/internal/render"
	"github.com/genzchat/genzchat/internal/service/auth"
	chatservice "github.com/genzchat/genzchat/internal/service/chat"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	inputHeight   = 3
)

// Options configure the interactive UI.
type Options struct {
	// Style is the glamour style for replies; empty detects the terminal.
	Style string
	// Clipboard receives /copy text. Defaults to the system clipboard.
	Clipboard func(string) error
}

type screen int

const (
	screenLogin screen = iota
	screenChat
)

type (
	changedMsg     struct{}
	loginResultMsg struct {
		user auth.User
		err  error
	}
)

type model struct {
	ctx    context.Context
	app    *app.App
	opts   Options
	styles styles

	screen screen
	width  int
	height int

	email     textinput.Model
	password  textinput.Model
	focusIdx  int
	loginErr  string
	loggingIn bool

	user        auth.User
	ctrl        *chatservice.Controller
	unsubscribe func()
	changes     chan struct{}
	leave       chan struct{}
	snap        chatservice.Snapshot
	notice      string

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model
	renderer *render.Renderer
}

// Run shows the login screen and then the chat until the user quits.
func Run(ctx context.Context, a *app.App, opts Options) error {
	m := newModel(ctx, a, opts)
	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	_, err := program.Run()
	m.leaveChat()
	a.Logout()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func newModel(ctx context.Context, a *app.App, opts Options) *model {
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	st := defaultStyles()

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = "Email    "
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	input := textarea.New()
	input.Placeholder = "Say something... (/help for commands)"
	input.ShowLineNumbers = false
	input.CharLimit = 0
	input.SetHeight(inputHeight)
	input.SetWidth(defaultWidth)
	input.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.spinner

	return &model{
		ctx:      ctx,
		app:      a,
		opts:     opts,
		styles:   st,
		width:    defaultWidth,
		height:   defaultHeight,
		email:    email,
		password: password,
		input:    input,
		spinner:  sp,
		viewport: viewport.New(defaultWidth, defaultHeight-inputHeight-2),
		renderer: render.NewRenderer(render.Options{Style: opts.Style, Width: defaultWidth - 4}),
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.screen == screenChat && m.snap.Loading() {
			m.refresh()
		}
		return m, cmd
	case loginResultMsg:
		return m, m.finishLogin(msg)
	case changedMsg:
		if m.screen != screenChat || m.ctrl == nil {
			return m, nil
		}
		wasLoading := m.snap.Loading()
		m.refresh()
		var cmds []tea.Cmd
		if wasLoading && !m.snap.Loading() {
			cmds = append(cmds, m.input.Focus())
		}
		cmds = append(cmds, waitForChange(m.changes, m.leave))
		return m, tea.Batch(cmds...)
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.screen == screenLogin {
			return m, m.updateLogin(msg)
		}
		return m, m.updateChat(msg)
	}
	return m, nil
}

func (m *model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.input.SetWidth(width)
	m.viewport.Width = width
	vpHeight := height - inputHeight - 3
	if vpHeight < 3 {
		vpHeight = 3
	}
	m.viewport.Height = vpHeight
	wrap := width - 4
	if wrap < 20 {
		wrap = 20
	}
	m.renderer = render.NewRenderer(render.Options{Style: m.opts.Style, Width: wrap})
	if m.screen == screenChat {
		m.refresh()
	}
}

func (m *model) updateLogin(msg tea.KeyMsg) tea.Cmd {
	if m.loggingIn {
		return nil
	}
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		return m.focusLogin(1 - m.focusIdx)
	case tea.KeyEnter:
		if m.focusIdx == 0 {
			return m.focusLogin(1)
		}
		m.loggingIn = true
		m.loginErr = ""
		return loginCmd(m.ctx, m.app, m.email.Value(), m.password.Value())
	}

	var cmd tea.Cmd
	if m.focusIdx == 0 {
		m.email, cmd = m.email.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return cmd
}

func (m *model) focusLogin(idx int) tea.Cmd {
	m.focusIdx = idx
	if idx == 0 {
		m.password.Blur()
		return m.email.Focus()
	}
	m.email.Blur()
	return m.password.Focus()
}

func loginCmd(ctx context.Context, a *app.App, email, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := a.Login(ctx, email, password)
		return loginResultMsg{user: user, err: err}
	}
}

func (m *model) finishLogin(msg loginResultMsg) tea.Cmd {
	m.loggingIn = false
	if msg.err != nil {
		m.loginErr = capitalize(msg.err.Error())
		return nil
	}

	ctrl, err := m.app.Controller()
	if err != nil {
		m.loginErr = capitalize(err.Error())
		return nil
	}

	m.user = msg.user
	m.ctrl = ctrl
	m.changes = make(chan struct{}, 1)
	m.leave = make(chan struct{})
	changes := m.changes
	m.unsubscribe = ctrl.Subscribe(func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	m.password.SetValue("")
	m.screen = screenChat
	m.notice = ""
	if _, fallback := m.app.Personalities(); fallback {
		m.notice = "Couldn't load modes from the server, using the default one."
	}
	m.refresh()
	return tea.Batch(m.input.Focus(), waitForChange(m.changes, m.leave))
}

// waitForChange turns controller notifications into messages on the
// program loop.
func waitForChange(changes <-chan struct{}, leave <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-changes:
			return changedMsg{}
		case <-leave:
			return nil
		}
	}
}

func (m *model) leaveChat() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.leave != nil {
		close(m.leave)
		m.leave = nil
	}
	m.ctrl = nil
	m.snap = chatservice.Snapshot{}
}

func (m *model) updateChat(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	case tea.KeyEnter:
		raw := m.input.Value()
		if cmd, ok := parseCommand(raw); ok {
			m.input.Reset()
			return m.runCommand(cmd)
		}
		return m.submit(raw)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *model) submit(text string) tea.Cmd {
	_, err := m.ctrl.Submit(m.ctx, text)
	switch {
	case errors.Is(err, chatservice.ErrEmptyMessage), errors.Is(err, chatservice.ErrTurnInFlight):
		return nil
	case err != nil:
		m.notice = capitalize(err.Error())
		return nil
	}
	m.notice = ""
	m.input.Reset()
	m.input.Blur()
	m.refresh()
	return nil
}

func (m *model) runCommand(cmd command) tea.Cmd {
	if !knownCommand(cmd.name) {
		m.notice = fmt.Sprintf("Unknown command %s, try /help", cmd.name)
		return nil
	}
	items, _ := m.app.Personalities()

	switch cmd.name {
	case "/help":
		m.notice = helpText()
	case "/modes":
		m.notice = modesText(items, m.ctrl.Personality())
	case "/mode":
		if cmd.arg == "" {
			m.notice = "Usage: /mode <key>"
			break
		}
		p, ok := findMode(items, cmd.arg)
		if !ok {
			m.notice = fmt.Sprintf("Unknown mode %q, try /modes", cmd.arg)
			break
		}
		if m.ctrl.SwitchPersonality(p.Key) {
			m.notice = "Switched to " + labelFor(items, p.Key)
		} else {
			m.notice = "Already in " + labelFor(items, p.Key)
		}
		m.refresh()
		return m.input.Focus()
	case "/copy":
		reply, ok := lastReply(m.ctrl.Snapshot())
		if !ok {
			m.notice = "Nothing to copy yet"
			break
		}
		if err := m.opts.Clipboard(reply); err != nil {
			log.Warn().Err(err).Str("component", "ui").Msg("clipboard write failed")
			m.notice = "Couldn't reach the clipboard"
			break
		}
		m.notice = "Copied the last reply"
	case "/logout":
		m.leaveChat()
		m.app.Logout()
		m.screen = screenLogin
		m.notice = ""
		m.loginErr = ""
		m.input.Reset()
		return m.focusLogin(0)
	case "/quit":
		return tea.Quit
	}
	return nil
}

// refresh re-reads the session and redraws the transcript.
func (m *model) refresh() {
	if m.ctrl == nil {
		return
	}
	m.snap = m.ctrl.Snapshot()
	m.viewport.SetContent(m.renderTranscript())
	m.viewport.GotoBottom()
}

func (m *model) renderTranscript() string {
	items, _ := m.app.Personalities()
	label := labelFor(items, m.snap.Session.Personality)

	var b strings.Builder
	for i, msg := range m.snap.Session.Messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		switch msg.Role {
		case chat.RoleUser:
			b.WriteString(m.styles.user.Render(m.user.Name))
			b.WriteString("\n")
			b.WriteString(msg.Content)
		default:
			b.WriteString(m.styles.assistant.Render(label))
			b.WriteString("\n")
			switch {
			case msg.InProgress && msg.Content == "":
				b.WriteString(m.spinner.View() + " typing...")
			case msg.InProgress:
				b.WriteString(render.Emphasis(msg.Content) + " " + m.spinner.View())
			default:
				b.WriteString(m.renderer.Render(msg.Content))
			}
		}
	}
	return b.String()
}

func (m *model) View() string {
	if m.screen == screenLogin {
		return m.loginView()
	}

	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(m.styles.notice.Render(m.notice))
		b.WriteString("\n")
	}
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m *model) statusLine() string {
	items, _ := m.app.Personalities()
	state := "ready"
	if m.snap.Loading() {
		state = "typing"
	}
	return m.styles.status.Render(fmt.Sprintf("%s · %s · session %s · %s",
		m.user.Name,
		labelFor(items, m.snap.Session.Personality),
		shortID(m.snap.Session.ID),
		state,
	))
}

func (m *model) loginView() string {
	var b strings.Builder
	b.WriteString(m.styles.title.Render("Welcome back 💅"))
	b.WriteString("\n")
	b.WriteString(m.email.View())
	b.WriteString("\n")
	b.WriteString(m.password.View())
	b.WriteString("\n\n")
	switch {
	case m.loggingIn:
		b.WriteString(m.spinner.View() + " Signing in...")
	case m.loginErr != "":
		b.WriteString(m.styles.errorText.Render(m.loginErr))
	default:
		b.WriteString(m.styles.hint.Render("enter to continue · tab to switch fields · ctrl+c to quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
