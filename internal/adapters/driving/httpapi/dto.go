package httpapi

import (
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

type documentResponse struct {
	ID         string            `json:"id"`
	Filename   string            `json:"filename"`
	Metadata   map[string]string `json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
	Content    string            `json:"content,omitempty"`
	ChunkCount *int              `json:"chunk_count,omitempty"`
}

func toDocumentResponse(doc *domain.Document) documentResponse {
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return documentResponse{
		ID:        doc.ID,
		Filename:  doc.Filename,
		Metadata:  metadata,
		CreatedAt: doc.CreatedAt,
	}
}

type documentPageResponse struct {
	Documents []documentResponse `json:"documents"`
	Total     int                `json:"total"`
	Page      int                `json:"page"`
	Pages     int                `json:"pages"`
}

type searchResultResponse struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Position   int     `json:"position"`
	Content    string  `json:"content"`
	Score      float64 `json:"score"`
}

type sourceResponse struct {
	DocumentID     string  `json:"document_id"`
	Filename       string  `json:"filename,omitempty"`
	RelevanceScore float64 `json:"relevance_score"`
}

type messageResponse struct {
	Role      domain.Role      `json:"role"`
	Content   string           `json:"content"`
	Timestamp time.Time        `json:"timestamp"`
	Sources   []sourceResponse `json:"sources,omitempty"`
}

type sessionResponse struct {
	ID           string            `json:"id"`
	Title        string            `json:"title"`
	MessageCount int               `json:"message_count"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Messages     []messageResponse `json:"messages,omitempty"`
}

func toSessionResponse(session *domain.Session, withMessages bool) sessionResponse {
	resp := sessionResponse{
		ID:           session.ID,
		Title:        session.Title,
		MessageCount: len(session.Messages),
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
	if !withMessages {
		return resp
	}

	resp.Messages = make([]messageResponse, len(session.Messages))
	for i, msg := range session.Messages {
		m := messageResponse{Role: msg.Role, Content: msg.Content, Timestamp: msg.Timestamp}
		for _, src := range msg.Sources {
			m.Sources = append(m.Sources, sourceResponse{
				DocumentID:     src.DocumentID,
				RelevanceScore: src.RelevanceScore,
			})
		}
		resp.Messages[i] = m
	}
	return resp
}

type answerResponse struct {
	SessionID string           `json:"session_id"`
	Answer    string           `json:"answer"`
	Sources   []sourceResponse `json:"sources"`
}

type titleRequest struct {
	Title string `json:"title"`
}

type messageRequest struct {
	Message string `json:"message"`
}
