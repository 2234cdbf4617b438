// Package chat provides the conversation view for the TUI.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// ErrNoChatService indicates that no chat service was provided.
var ErrNoChatService = errors.New("chat service is required")

// ErrNoSession indicates a message was sent before a session was opened.
var ErrNoSession = errors.New("no session open")

// rows reserved for the header, input box and status bar
const chromeHeight = 7

// View shows a session transcript above a message input.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.ChatInput
	statusbar *status.Bar
	viewport  viewport.Model

	chat   driving.ChatService
	userID string
	ctx    context.Context

	session *domain.Session
	// filenames resolves cited document IDs seen in answers this run.
	filenames map[string]string
	pending   string
	waiting   bool
	err       error
	width     int
	height    int
	ready     bool
}

// NewView creates a new conversation view.
func NewView(s *styles.Styles, km *keymap.KeyMap, chat driving.ChatService, userID string) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetBindings(km.ChatHelp())

	return &View{
		styles:    s,
		keymap:    km,
		input:     input.NewChatInput(s),
		statusbar: bar,
		viewport:  viewport.New(80, 24-chromeHeight),
		chat:      chat,
		userID:    userID,
		ctx:       context.Background(),
		filenames: make(map[string]string),
		width:     80,
		height:    24,
	}
}

// WithContext sets the context for service calls.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init focuses the input.
func (v *View) Init() tea.Cmd {
	return tea.Batch(v.input.Focus(), v.input.Init())
}

// SetSession replaces the transcript with the given session.
func (v *View) SetSession(session *domain.Session) {
	v.session = session
	v.pending = ""
	v.waiting = false
	v.err = nil
	v.statusbar.Clear()
	if session != nil {
		v.statusbar.SetMessage(session.Title)
	}
	v.refresh()
}

// Update handles messages for the conversation view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.AnswerReceived:
		v.handleAnswer(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.setError(msg.Err)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewSessions}
		}
	case keymap.Matches(key, v.keymap.PageUp), keymap.Matches(key, v.keymap.PageDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd
	case keymap.Matches(key, v.keymap.Send):
		return v, v.send()
	}

	// Typing is ignored while an answer is outstanding.
	if v.waiting {
		return v, nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) send() tea.Cmd {
	if v.waiting {
		return nil
	}
	if v.session == nil {
		v.setError(ErrNoSession)
		return nil
	}
	text := v.input.Submit()
	if text == "" {
		return nil
	}

	v.pending = text
	v.waiting = true
	v.err = nil
	v.statusbar.SetState(status.StateThinking)
	v.refresh()

	sessionID := v.session.ID
	return func() tea.Msg {
		if v.chat == nil {
			return messages.AnswerReceived{Err: ErrNoChatService}
		}
		answer, err := v.chat.Answer(v.ctx, sessionID, v.userID, text)
		return messages.AnswerReceived{Answer: answer, Err: err}
	}
}

func (v *View) handleAnswer(msg messages.AnswerReceived) {
	v.waiting = false
	if msg.Err != nil {
		// The session is unchanged on failure, so put the text back for a retry.
		v.input.SetValue(v.pending)
		v.pending = ""
		v.setError(msg.Err)
		v.refresh()
		return
	}

	sources := make([]domain.SourceRef, 0, len(msg.Answer.Citations))
	for _, c := range msg.Answer.Citations {
		v.filenames[c.DocumentID] = c.Filename
		sources = append(sources, domain.SourceRef{DocumentID: c.DocumentID, RelevanceScore: c.RelevanceScore})
	}
	if v.session != nil {
		v.session.Messages = append(v.session.Messages,
			domain.Message{Role: domain.RoleUser, Content: v.pending},
			domain.Message{Role: domain.RoleAssistant, Content: msg.Answer.Text, Sources: sources},
		)
	}
	v.pending = ""
	v.err = nil
	v.statusbar.SetState(status.StateReady)
	v.refresh()
}

func (v *View) setError(err error) {
	v.err = err
	v.statusbar.SetState(status.StateError)
	v.statusbar.SetMessage(domain.Categorise(err).Message)
}

func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if v.session == nil {
		return ""
	}

	var b strings.Builder
	if len(v.session.Messages) == 0 && v.pending == "" {
		b.WriteString(v.styles.Muted.Render("Ask a question about your documents."))
		return b.String()
	}

	for _, m := range v.session.Messages {
		v.renderMessage(&b, m)
	}
	if v.pending != "" {
		v.renderMessage(&b, domain.Message{Role: domain.RoleUser, Content: v.pending})
		b.WriteString(v.styles.Muted.Render("..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (v *View) renderMessage(b *strings.Builder, m domain.Message) {
	wrap := lipgloss.NewStyle().Width(max(v.width-2, 20))

	if m.Role == domain.RoleUser {
		b.WriteString(v.styles.UserLabel.Render("You"))
	} else {
		b.WriteString(v.styles.AssistantLabel.Render("Assistant"))
	}
	b.WriteString("\n")
	b.WriteString(wrap.Render(m.Content))
	b.WriteString("\n")

	if len(m.Sources) > 0 {
		names := make([]string, 0, len(m.Sources))
		for _, s := range m.Sources {
			name := v.filenames[s.DocumentID]
			if name == "" {
				name = s.DocumentID
			}
			names = append(names, fmt.Sprintf("%s (%.2f)", name, s.RelevanceScore))
		}
		b.WriteString(v.styles.Citation.Render("Sources: " + strings.Join(names, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// View renders the conversation.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	title := "docchat"
	if v.session != nil {
		title = v.session.Title
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render(title),
		"",
		v.viewport.View(),
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.viewport.Width = width
	v.viewport.Height = max(height-chromeHeight, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Session returns the open session.
func (v *View) Session() *domain.Session {
	return v.session
}

// Waiting reports whether an answer is outstanding.
func (v *View) Waiting() bool {
	return v.waiting
}

// Input returns the current input text.
func (v *View) Input() string {
	return v.input.Value()
}

// SetInput replaces the input text.
func (v *View) SetInput(text string) {
	v.input.SetValue(text)
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
