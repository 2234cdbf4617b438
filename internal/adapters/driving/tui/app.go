package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/views/sessions"
	"github.com/custodia-labs/docchat/internal/logger"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	ctx    context.Context
	styles *styles.Styles
	keymap *keymap.KeyMap

	sessionsView *sessions.View
	chatView     *chat.View

	currentView messages.ViewType
	// previousView is where esc returns to from help.
	previousView messages.ViewType

	err    error
	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if ports == nil {
		return nil, fmt.Errorf("creating app: %w", ErrMissingChatService)
	}
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		keymap:       km,
		sessionsView: sessions.NewView(s, km, ports.Chat, ports.UserID),
		chatView:     chat.NewView(s, km, ports.Chat, ports.UserID),
		currentView:  messages.ViewSessions,
	}, nil
}

// WithContext sets the context for the app and its views.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	a.sessionsView.WithContext(ctx)
	a.chatView.WithContext(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tea.EnterAltScreen,
		tea.SetWindowTitle("docchat"),
		a.sessionsView.Init(),
	}
	if id := a.ports.SessionID; id != "" {
		cmds = append(cmds, a.openSession(id))
	}
	return tea.Batch(cmds...)
}

func (a *App) openSession(id string) tea.Cmd {
	return func() tea.Msg {
		session, err := a.ports.Chat.History(a.ctx, a.ports.UserID, id)
		return messages.SessionOpened{Session: session, Err: err}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global quit with ctrl+c
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		switch a.currentView {
		case messages.ViewSessions:
			a.sessionsView, cmd = a.sessionsView.Update(msg)
		case messages.ViewChat:
			a.chatView, cmd = a.chatView.Update(msg)
		case messages.ViewHelp:
			if msg.Type == tea.KeyEsc || msg.String() == "q" {
				a.currentView = a.previousView
			}
		}
		return a, cmd

	case messages.ViewChanged:
		return a, a.switchTo(msg.View)

	case messages.SessionOpened:
		if msg.Err != nil {
			a.err = msg.Err
			logger.Debug("tui: open session: %v", msg.Err)
			a.sessionsView, cmd = a.sessionsView.Update(messages.ErrorOccurred{Err: msg.Err})
			return a, cmd
		}
		a.err = nil
		a.chatView.SetSession(msg.Session)
		a.currentView = messages.ViewChat
		return a, a.chatView.Init()

	case messages.AnswerReceived:
		if msg.Err != nil {
			a.err = msg.Err
			logger.Debug("tui: answer: %v", msg.Err)
		}
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd

	case messages.SessionsLoaded, messages.SessionDeleted:
		a.sessionsView, cmd = a.sessionsView.Update(msg)
		return a, cmd

	case messages.ErrorOccurred:
		a.err = msg.Err
		if a.currentView == messages.ViewChat {
			a.chatView, cmd = a.chatView.Update(msg)
		} else {
			a.sessionsView, cmd = a.sessionsView.Update(msg)
		}
		return a, cmd

	case messages.Quit:
		return a, tea.Quit
	}

	if a.currentView == messages.ViewChat {
		a.chatView, cmd = a.chatView.Update(msg)
	}
	return a, cmd
}

func (a *App) switchTo(view messages.ViewType) tea.Cmd {
	if view == messages.ViewHelp {
		a.previousView = a.currentView
	}
	a.currentView = view

	// Returning to the list refreshes message counts and ordering.
	if view == messages.ViewSessions {
		return a.sessionsView.Init()
	}
	return nil
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.currentView {
	case messages.ViewChat:
		return a.chatView.View()
	case messages.ViewHelp:
		return a.viewHelp()
	default:
		return a.sessionsView.View()
	}
}

func (a *App) viewHelp() string {
	return `Help

Sessions:
  j/k, ↑/↓    Navigate sessions
  enter       Open session
  n           New session
  d           Delete session
  q           Quit

Chat:
  (type)      Write a message
  enter       Send
  pgup/pgdn   Scroll transcript
  esc         Back to sessions

ctrl+c quits from anywhere.

[esc] back`
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	return a.currentView
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions on the app and its views.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.sessionsView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
}
