package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
	"github.com/custodia-labs/docchat/internal/metrics"
)

// Ensure ChatService implements the interface.
var _ driving.ChatService = (*ChatService)(nil)

// DefaultLLMTimeout bounds a model call when no timeout is configured.
const DefaultLLMTimeout = 60 * time.Second

// ChatConfig configures answering.
type ChatConfig struct {
	// TopK is the number of chunks retrieved per message.
	TopK int

	// Timeout bounds the model call.
	Timeout time.Duration

	// Options are passed to the model.
	Options driven.ChatOptions
}

// ChatConfigFrom builds a chat config from settings.
func ChatConfigFrom(settings *domain.AppSettings) ChatConfig {
	return ChatConfig{
		TopK:    settings.Retrieval.TopK,
		Timeout: settings.Timeouts.LLM,
		Options: driven.ChatOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		},
	}
}

// ChatService assembles retrieval context, asks the model and records the
// exchange in the session.
type ChatService struct {
	sessions  driven.SessionStore
	docStore  driven.DocumentStore
	retriever driving.SearchService
	llm       driven.LLMService
	prompts   driven.PromptStore
	cfg       ChatConfig
	locks     *keyedMutex
	now       func() time.Time
}

// NewChatService creates a new chat service.
// llm may be nil, in which case Answer fails with ErrLLMUnavailable.
// prompts may be nil to use domain.DefaultChatSystemPrompt.
func NewChatService(
	sessions driven.SessionStore,
	docStore driven.DocumentStore,
	retriever driving.SearchService,
	llm driven.LLMService,
	prompts driven.PromptStore,
	cfg ChatConfig,
) *ChatService {
	if cfg.TopK <= 0 {
		cfg.TopK = domain.DefaultTopK
	}
	if cfg.TopK > domain.MaxTopK {
		cfg.TopK = domain.MaxTopK
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &ChatService{
		sessions:  sessions,
		docStore:  docStore,
		retriever: retriever,
		llm:       llm,
		prompts:   prompts,
		cfg:       cfg,
		locks:     newKeyedMutex(),
		now:       time.Now,
	}
}

// CreateSession starts an empty session for userID.
func (s *ChatService) CreateSession(ctx context.Context, userID, title string) (*domain.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user is required", domain.ErrInvalidInput)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = domain.DefaultSessionTitle
	}

	now := s.now()
	session := &domain.Session{
		ID:        uuid.New().String(),
		OwnerID:   userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Answer answers message within the session.
//
// Calls on the same session are serialised so each exchange is appended
// after the previous one. Nothing is written unless the model replied and
// ctx is still live; on any failure the session is left as it was.
func (s *ChatService) Answer(ctx context.Context, sessionID, userID, message string) (*domain.Answer, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	if s.llm == nil {
		return nil, domain.ErrLLMUnavailable
	}

	unlock := s.locks.Lock(sessionID)
	defer unlock()

	logger.Section("Answer")
	session, err := s.sessions.FindOne(ctx, domain.SessionFilter{ID: sessionID, OwnerID: userID})
	if err != nil {
		return nil, err
	}

	results, err := s.retriever.Search(ctx, message, userID, domain.SearchOptions{Limit: s.cfg.TopK})
	if err != nil {
		return nil, fmt.Errorf("retrieve: %w", err)
	}
	contextBlock := buildContext(results)

	reply, err := s.invoke(ctx, s.buildMessages(session, contextBlock, message))
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now()
	sources := make([]domain.SourceRef, len(results))
	for i, r := range results {
		sources[i] = domain.SourceRef{DocumentID: r.DocumentID, RelevanceScore: r.Score}
	}
	session.Messages = append(session.Messages,
		domain.Message{Role: domain.RoleUser, Content: message, Timestamp: now},
		domain.Message{Role: domain.RoleAssistant, Content: reply, Timestamp: now, Sources: sources},
	)
	session.UpdatedAt = now
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	metrics.ChatAnswersTotal.Add(1)
	return &domain.Answer{
		SessionID: session.ID,
		Text:      reply,
		Citations: s.citations(ctx, results),
		Context:   contextBlock,
	}, nil
}

// buildContext joins chunk texts in ranking order with a blank line.
func buildContext(results []domain.SearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = r.Content
	}
	return strings.Join(parts, "\n\n")
}

// buildMessages orders the system instruction, the history and the new message.
func (s *ChatService) buildMessages(session *domain.Session, contextBlock, message string) []driven.ChatMessage {
	msgs := make([]driven.ChatMessage, 0, len(session.Messages)+2)
	msgs = append(msgs, driven.ChatMessage{
		Role:    driven.ChatRoleSystem,
		Content: s.systemPrompt() + contextBlock,
	})
	for _, m := range session.Messages {
		msgs = append(msgs, driven.ChatMessage{Role: string(m.Role), Content: m.Content})
	}
	return append(msgs, driven.ChatMessage{Role: driven.ChatRoleUser, Content: message})
}

func (s *ChatService) systemPrompt() string {
	if s.prompts == nil {
		return domain.DefaultChatSystemPrompt
	}
	prompt, err := s.prompts.Load(driven.PromptChatSystem)
	if err != nil || prompt == "" {
		return domain.DefaultChatSystemPrompt
	}
	// Stored prompts are trimmed; keep the context on its own line.
	if !strings.HasSuffix(prompt, " ") && !strings.HasSuffix(prompt, "\n") {
		prompt += "\n\n"
	}
	return prompt
}

// invoke calls the model under the configured timeout.
func (s *ChatService) invoke(ctx context.Context, msgs []driven.ChatMessage) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	logger.Debug("Calling %s with %d messages", s.llm.ModelName(), len(msgs))
	reply, err := s.llm.Chat(callCtx, msgs, s.cfg.Options)
	if err != nil {
		metrics.ModelFailuresTotal.Add(1)
		logger.Warn("Model call failed: %v", err)
		return "", fmt.Errorf("%w: %w", domain.ErrModelInvocation, err)
	}
	return reply, nil
}

// citations resolves filenames, omitting documents deleted since indexing.
func (s *ChatService) citations(ctx context.Context, results []domain.SearchResult) []domain.Citation {
	out := make([]domain.Citation, 0, len(results))
	for _, r := range results {
		doc, err := s.docStore.GetDocument(ctx, r.DocumentID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		filename := r.Filename
		if err == nil {
			filename = doc.Filename
		}
		out = append(out, domain.Citation{
			DocumentID:     r.DocumentID,
			Filename:       filename,
			RelevanceScore: r.Score,
		})
	}
	return out
}

// History returns the session with its messages.
func (s *ChatService) History(ctx context.Context, userID, sessionID string) (*domain.Session, error) {
	return s.sessions.FindOne(ctx, domain.SessionFilter{ID: sessionID, OwnerID: userID})
}

// ListSessions returns the user's sessions, most recently updated first.
func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]domain.SessionSummary, error) {
	return s.sessions.List(ctx, userID)
}

// DeleteSession removes a session and its messages.
func (s *ChatService) DeleteSession(ctx context.Context, userID, sessionID string) error {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	_, err := s.sessions.FindOneAndDelete(ctx, domain.SessionFilter{ID: sessionID, OwnerID: userID})
	return err
}

// RenameSession changes the session title.
func (s *ChatService) RenameSession(ctx context.Context, userID, sessionID, title string) (*domain.Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	return s.sessions.FindOneAndUpdate(ctx,
		domain.SessionFilter{ID: sessionID, OwnerID: userID},
		domain.SessionPatch{Title: &title})
}

// keyedMutex serialises work per key. Entries are dropped when unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
