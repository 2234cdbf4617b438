package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

var testTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// MockDocumentService implements driving.DocumentService for testing.
type MockDocumentService struct {
	IngestFunc func(ctx context.Context, req driving.IngestRequest) (*domain.Document, error)
	ListFunc   func(ctx context.Context, userID string, opts driving.ListOptions) (*domain.DocumentPage, error)
	DetailsErr error
	DeleteErr  error

	Ingested []driving.IngestRequest
	Deleted  []string
	UserIDs  []string
}

func (m *MockDocumentService) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.Document, error) {
	m.Ingested = append(m.Ingested, req)
	if m.IngestFunc != nil {
		return m.IngestFunc(ctx, req)
	}
	return &domain.Document{ID: "doc-" + req.Filename, OwnerID: req.OwnerID, Filename: req.Filename}, nil
}

func (m *MockDocumentService) Get(_ context.Context, userID, id string) (*domain.Document, error) {
	m.UserIDs = append(m.UserIDs, userID)
	return &domain.Document{ID: id, OwnerID: userID, Filename: "report.txt"}, nil
}

func (m *MockDocumentService) List(ctx context.Context, userID string, opts driving.ListOptions) (*domain.DocumentPage, error) {
	m.UserIDs = append(m.UserIDs, userID)
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID, opts)
	}
	return &domain.DocumentPage{Page: 1}, nil
}

func (m *MockDocumentService) GetDetails(_ context.Context, userID, id string) (*driving.DocumentDetails, error) {
	m.UserIDs = append(m.UserIDs, userID)
	if m.DetailsErr != nil {
		return nil, m.DetailsErr
	}
	return &driving.DocumentDetails{
		Document: domain.Document{
			ID:        id,
			OwnerID:   userID,
			Filename:  "report.txt",
			Content:   "Quarterly revenue grew 12%.",
			Metadata:  map[string]string{domain.MetaFileType: "txt", domain.MetaFileSize: "27"},
			CreatedAt: testTime,
		},
		ChunkCount: 3,
	}, nil
}

func (m *MockDocumentService) Delete(_ context.Context, userID, id string) error {
	m.UserIDs = append(m.UserIDs, userID)
	m.Deleted = append(m.Deleted, id)
	return m.DeleteErr
}

// MockSearchService implements driving.SearchService for testing.
type MockSearchService struct {
	Results []domain.SearchResult
	Err     error

	Query  string
	UserID string
	Opts   domain.SearchOptions
}

func (m *MockSearchService) Search(_ context.Context, query, userID string, opts domain.SearchOptions) ([]domain.SearchResult, error) {
	m.Query, m.UserID, m.Opts = query, userID, opts
	return m.Results, m.Err
}

// MockChatService implements driving.ChatService for testing.
type MockChatService struct {
	AnswerFunc func(ctx context.Context, sessionID, userID, message string) (*domain.Answer, error)
	Session    *domain.Session
	Sessions   []domain.SessionSummary
	Err        error

	Created  []string
	Asked    []string
	Deleted  []string
	Renamed  map[string]string
	LastUser string
}

func (m *MockChatService) CreateSession(_ context.Context, userID, title string) (*domain.Session, error) {
	m.LastUser = userID
	if m.Err != nil {
		return nil, m.Err
	}
	if title == "" {
		title = domain.DefaultSessionTitle
	}
	m.Created = append(m.Created, title)
	return &domain.Session{ID: "sess-1", OwnerID: userID, Title: title}, nil
}

func (m *MockChatService) Answer(ctx context.Context, sessionID, userID, message string) (*domain.Answer, error) {
	m.LastUser = userID
	m.Asked = append(m.Asked, sessionID+":"+message)
	if m.AnswerFunc != nil {
		return m.AnswerFunc(ctx, sessionID, userID, message)
	}
	return &domain.Answer{SessionID: sessionID, Text: "answer to " + message}, nil
}

func (m *MockChatService) History(_ context.Context, userID, sessionID string) (*domain.Session, error) {
	m.LastUser = userID
	if m.Session == nil || m.Session.ID != sessionID {
		return nil, domain.ErrNotFound
	}
	return m.Session, nil
}

func (m *MockChatService) ListSessions(_ context.Context, userID string) ([]domain.SessionSummary, error) {
	m.LastUser = userID
	return m.Sessions, m.Err
}

func (m *MockChatService) DeleteSession(_ context.Context, userID, sessionID string) error {
	m.LastUser = userID
	if m.Err != nil {
		return m.Err
	}
	m.Deleted = append(m.Deleted, sessionID)
	return nil
}

func (m *MockChatService) RenameSession(_ context.Context, userID, sessionID, title string) (*domain.Session, error) {
	m.LastUser = userID
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Renamed == nil {
		m.Renamed = make(map[string]string)
	}
	m.Renamed[sessionID] = title
	return &domain.Session{ID: sessionID, OwnerID: userID, Title: title}, nil
}

// MockSettingsService implements driving.SettingsService for testing.
type MockSettingsService struct {
	Settings    domain.AppSettings
	ValidateErr error
	PingErr     error
}

func (m *MockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.Settings
	return &s, nil
}

func (m *MockSettingsService) Save(settings *domain.AppSettings) error {
	m.Settings = *settings
	return nil
}

func (m *MockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.Settings.Embedding.Provider = provider
	m.Settings.Embedding.Model = model
	m.Settings.Embedding.APIKey = apiKey
	return nil
}

func (m *MockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.Settings.LLM.Provider = provider
	m.Settings.LLM.Model = model
	m.Settings.LLM.APIKey = apiKey
	return nil
}

func (m *MockSettingsService) SetChunking(size, overlap int) error {
	c := domain.ChunkingSettings{Size: size, Overlap: overlap}
	if err := c.Validate(); err != nil {
		return err
	}
	m.Settings.Chunking = c
	return nil
}

func (m *MockSettingsService) SetRetrieval(topK, multiplier int) error {
	if topK < 1 || multiplier < 1 {
		return domain.ErrInvalidInput
	}
	m.Settings.Retrieval = domain.RetrievalSettings{TopK: topK, CandidateMultiplier: multiplier}
	return nil
}

func (m *MockSettingsService) Validate() error { return m.ValidateErr }

func (m *MockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *MockSettingsService) ValidateEmbeddingConfig() error { return m.PingErr }

func (m *MockSettingsService) ValidateLLMConfig() error { return m.PingErr }

// testServices are the mocks installed by setupTestServices.
type testServices struct {
	Document *MockDocumentService
	Search   *MockSearchService
	Chat     *MockChatService
	Settings *MockSettingsService
}

// setupTestServices installs fresh mocks and returns a cleanup function
// restoring the previous services.
func setupTestServices() (*testServices, func()) {
	prevFactory := serviceFactory
	prev := &Services{
		Document: documentService,
		Search:   searchService,
		Chat:     chatService,
		Settings: settingsService,
		Close:    closeServices,
	}

	ts := &testServices{
		Document: &MockDocumentService{},
		Search:   &MockSearchService{},
		Chat:     &MockChatService{},
		Settings: &MockSettingsService{Settings: domain.DefaultAppSettings()},
	}
	serviceFactory = nil
	setServices(&Services{
		Document: ts.Document,
		Search:   ts.Search,
		Chat:     ts.Chat,
		Settings: ts.Settings,
	})

	return ts, func() {
		serviceFactory = prevFactory
		setServices(prev)
	}
}

// clearServices removes every service for the duration of a test.
func clearServices(t *testing.T) {
	t.Helper()
	_, cleanup := setupTestServices()
	setServices(&Services{})
	t.Cleanup(cleanup)
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// execute runs the root command with args and stdin, returning combined output.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := rootCmd.Execute()
	return buf.String(), err
}
