package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func TestCreateSession(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/chat/sessions", strings.NewReader(`{"title":"Taxes"}`), "application/json")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "s-1", resp.ID)
	assert.Equal(t, "Taxes", resp.Title)
	assert.Equal(t, testUser, api.chat.gotUser)
}

func TestCreateSession_EmptyBody(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/chat/sessions", nil, "")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.DefaultSessionTitle, resp.Title)
}

func TestCreateSession_MalformedJSON(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPost, "/api/chat/sessions", strings.NewReader(`{"title":`), "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListSessions(t *testing.T) {
	api := newTestAPI(t)
	api.chat.summaries = []domain.SessionSummary{
		{ID: "s-2", Title: "Recent", MessageCount: 4, CreatedAt: testTime, UpdatedAt: testTime},
		{ID: "s-1", Title: "Older", CreatedAt: testTime, UpdatedAt: testTime},
	}

	rec := api.do(http.MethodGet, "/api/chat/sessions", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Sessions []sessionResponse `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Sessions, 2)
	assert.Equal(t, "s-2", resp.Sessions[0].ID)
	assert.Equal(t, 4, resp.Sessions[0].MessageCount)
}

func TestGetSession(t *testing.T) {
	api := newTestAPI(t)
	api.chat.session = &domain.Session{
		ID:    "s-1",
		Title: "Invoices",
		Messages: []domain.Message{
			{Role: domain.RoleUser, Content: "What is the total?", Timestamp: testTime},
			{
				Role:      domain.RoleAssistant,
				Content:   "$1,234.00",
				Timestamp: testTime,
				Sources:   []domain.SourceRef{{DocumentID: "doc-1", RelevanceScore: 0.9}},
			},
		},
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}

	rec := api.do(http.MethodGet, "/api/chat/sessions/s-1", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, domain.RoleUser, resp.Messages[0].Role)
	assert.Empty(t, resp.Messages[0].Sources)
	require.Len(t, resp.Messages[1].Sources, 1)
	assert.Equal(t, "doc-1", resp.Messages[1].Sources[0].DocumentID)
	assert.Equal(t, 2, resp.MessageCount)
}

func TestGetSession_OtherUser(t *testing.T) {
	api := newTestAPI(t)
	api.chat.err = domain.ErrNotFound

	rec := api.do(http.MethodGet, "/api/chat/sessions/theirs", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRenameSession(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodPatch, "/api/chat/sessions/s-1", strings.NewReader(`{"title":"Renamed"}`), "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "s-1", api.chat.gotSession)
	assert.Equal(t, "Renamed", api.chat.gotTitle)
}

func TestDeleteSession(t *testing.T) {
	api := newTestAPI(t)

	rec := api.do(http.MethodDelete, "/api/chat/sessions/s-1", nil, "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "s-1", api.chat.gotSession)
}

func TestSendMessage(t *testing.T) {
	api := newTestAPI(t)
	api.chat.answer = &domain.Answer{
		SessionID: "s-1",
		Text:      "The total due is $1,234.00.",
		Citations: []domain.Citation{{DocumentID: "doc-1", Filename: "invoice.txt", RelevanceScore: 0.93}},
	}

	rec := api.do(http.MethodPost, "/api/chat/sessions/s-1/messages",
		strings.NewReader(`{"message":"What is the total?"}`), "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp answerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "The total due is $1,234.00.", resp.Answer)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "invoice.txt", resp.Sources[0].Filename)

	assert.Equal(t, "s-1", api.chat.gotSession)
	assert.Equal(t, "What is the total?", api.chat.gotMessage)
	assert.Equal(t, testUser, api.chat.gotUser)
}

func TestSendMessage_Failures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"model", fmt.Errorf("%w: 502 upstream", domain.ErrModelInvocation), http.StatusBadGateway, "model_failed"},
		{"timeout", fmt.Errorf("chat: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "timeout"},
		{"not configured", domain.ErrLLMUnavailable, http.StatusServiceUnavailable, "not_configured"},
		{"empty message", fmt.Errorf("%w: message is required", domain.ErrInvalidInput), http.StatusBadRequest, "invalid_input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.chat.err = tt.err

			rec := api.do(http.MethodPost, "/api/chat/sessions/s-1/messages",
				strings.NewReader(`{"message":"hi"}`), "application/json")

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Code)
		})
	}
}
