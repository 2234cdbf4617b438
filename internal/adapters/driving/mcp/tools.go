package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question or keywords to look up"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single retrieved chunk.
type SearchResultOutput struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Position   int     `json:"position"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Message   string `json:"message" jsonschema:"the question to answer from the documents"`
	SessionID string `json:"session_id,omitempty" jsonschema:"existing chat session; a new one is created when empty"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	SessionID string           `json:"session_id"`
	Answer    string           `json:"answer"`
	Sources   []CitationOutput `json:"sources"`
}

// CitationOutput is a document the answer drew on.
type CitationOutput struct {
	DocumentID     string  `json:"document_id"`
	Filename       string  `json:"filename"`
	RelevanceScore float64 `json:"relevance_score"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the passages of your uploaded documents most relevant to a query",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using your uploaded documents as context",
	}, s.handleAsk)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = domain.DefaultTopK
	}

	results, err := s.ports.Search.Search(ctx, input.Query, s.ports.UserID, domain.SearchOptions{Limit: limit})
	if err != nil {
		return nil, SearchOutput{}, publicError(err)
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}
	for i := range results {
		output.Results[i] = SearchResultOutput{
			DocumentID: results[i].DocumentID,
			Filename:   results[i].Filename,
			Position:   results[i].Position,
			Score:      results[i].Score,
			Content:    results[i].Content,
		}
	}

	return nil, output, nil
}

// handleAsk answers a message, opening a session first when none is given.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	if s.ports.Chat == nil {
		return nil, AskOutput{}, publicError(domain.ErrLLMUnavailable)
	}

	sessionID := input.SessionID
	if sessionID == "" {
		session, err := s.ports.Chat.CreateSession(ctx, s.ports.UserID, "")
		if err != nil {
			return nil, AskOutput{}, publicError(err)
		}
		sessionID = session.ID
	}

	answer, err := s.ports.Chat.Answer(ctx, sessionID, s.ports.UserID, input.Message)
	if err != nil {
		return nil, AskOutput{}, publicError(err)
	}

	output := AskOutput{
		SessionID: answer.SessionID,
		Answer:    answer.Text,
		Sources:   make([]CitationOutput, len(answer.Citations)),
	}
	for i, c := range answer.Citations {
		output.Sources[i] = CitationOutput{
			DocumentID:     c.DocumentID,
			Filename:       c.Filename,
			RelevanceScore: c.RelevanceScore,
		}
	}
	return nil, output, nil
}
