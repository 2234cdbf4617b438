// Package sessions provides the chat session list view for the TUI.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// ErrNoChatService indicates that no chat service was provided.
var ErrNoChatService = errors.New("chat service is required")

const timeLayout = "2006-01-02 15:04"

// View lists the user's sessions, most recently updated first.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusbar *status.Bar

	chat   driving.ChatService
	userID string
	ctx    context.Context

	sessions []domain.SessionSummary
	selected int
	loading  bool
	err      error
	width    int
	height   int
	ready    bool
}

// NewView creates a new session list view.
func NewView(s *styles.Styles, km *keymap.KeyMap, chat driving.ChatService, userID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetBindings(km.SessionsHelp())

	return &View{
		styles:    s,
		keymap:    km,
		statusbar: bar,
		chat:      chat,
		userID:    userID,
		ctx:       context.Background(),
		width:     80,
		height:    24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the session list.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadSessions()
}

// Update handles messages for the session list.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SessionsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		v.err = nil
		v.sessions = msg.Sessions
		if v.selected >= len(v.sessions) {
			v.selected = max(len(v.sessions)-1, 0)
		}
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage(fmt.Sprintf("%d sessions", len(v.sessions)))
		return v, nil

	case messages.SessionDeleted:
		if msg.Err != nil {
			v.setError(msg.Err)
			return v, nil
		}
		return v, v.loadSessions()

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.selected < len(v.sessions)-1 {
			v.selected++
		}
	case keymap.Matches(key, v.keymap.Open):
		if s := v.Selected(); s != nil {
			return v, v.openSession(s.ID)
		}
	case keymap.Matches(key, v.keymap.NewSession):
		return v, v.createSession()
	case keymap.Matches(key, v.keymap.Delete):
		if s := v.Selected(); s != nil {
			return v, v.deleteSession(s.ID)
		}
	case keymap.Matches(key, v.keymap.Help):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewHelp}
		}
	case keymap.Matches(key, v.keymap.Quit):
		return v, tea.Quit
	}

	return v, nil
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(domain.Categorise(err).Message)
}

func (v *View) loadSessions() tea.Cmd {
	return func() tea.Msg {
		if v.chat == nil {
			return messages.SessionsLoaded{Err: ErrNoChatService}
		}
		list, err := v.chat.ListSessions(v.ctx, v.userID)
		return messages.SessionsLoaded{Sessions: list, Err: err}
	}
}

func (v *View) openSession(id string) tea.Cmd {
	return func() tea.Msg {
		if v.chat == nil {
			return messages.SessionOpened{Err: ErrNoChatService}
		}
		session, err := v.chat.History(v.ctx, v.userID, id)
		return messages.SessionOpened{Session: session, Err: err}
	}
}

func (v *View) createSession() tea.Cmd {
	return func() tea.Msg {
		if v.chat == nil {
			return messages.SessionOpened{Err: ErrNoChatService}
		}
		session, err := v.chat.CreateSession(v.ctx, v.userID, "")
		return messages.SessionOpened{Session: session, Err: err}
	}
}

func (v *View) deleteSession(id string) tea.Cmd {
	return func() tea.Msg {
		if v.chat == nil {
			return messages.SessionDeleted{ID: id, Err: ErrNoChatService}
		}
		return messages.SessionDeleted{ID: id, Err: v.chat.DeleteSession(v.ctx, v.userID, id)}
	}
}

// View renders the session list.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("docchat"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render("Chat with your documents"))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading sessions..."))
		b.WriteString("\n")
	case len(v.sessions) == 0:
		b.WriteString(v.styles.Muted.Render("No sessions yet. Press n to start one."))
		b.WriteString("\n")
	default:
		for i, s := range v.sessions {
			line := fmt.Sprintf("%-32s %3d msgs  %s",
				truncate(s.Title, 32), s.MessageCount, s.UpdatedAt.Local().Format(timeLayout))
			if i == v.selected {
				b.WriteString(v.styles.Selected.Render("> " + line))
			} else {
				b.WriteString(v.styles.Normal.Render("  " + line))
			}
			b.WriteString("\n")
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, b.String(), v.statusbar.View())
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.statusbar.SetWidth(width)
}

// Sessions returns the loaded summaries.
func (v *View) Sessions() []domain.SessionSummary {
	return v.sessions
}

// Selected returns the highlighted session, or nil when the list is empty.
func (v *View) Selected() *domain.SessionSummary {
	if v.selected < 0 || v.selected >= len(v.sessions) {
		return nil
	}
	return &v.sessions[v.selected]
}

// SelectedIndex returns the cursor position.
func (v *View) SelectedIndex() int {
	return v.selected
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
