package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// createSession starts a session. The body is optional.
func (s *Server) createSession(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		renderError(c, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
		return
	}

	session, err := s.ports.Chat.CreateSession(c.Request.Context(), userID(c), req.Title)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toSessionResponse(session, true))
}

// listSessions returns the user's sessions, most recently updated first.
func (s *Server) listSessions(c *gin.Context) {
	summaries, err := s.ports.Chat.ListSessions(c.Request.Context(), userID(c))
	if err != nil {
		renderError(c, err)
		return
	}

	resp := make([]sessionResponse, len(summaries))
	for i, sum := range summaries {
		resp[i] = sessionResponse{
			ID:           sum.ID,
			Title:        sum.Title,
			MessageCount: sum.MessageCount,
			CreatedAt:    sum.CreatedAt,
			UpdatedAt:    sum.UpdatedAt,
		}
	}
	c.JSON(http.StatusOK, gin.H{"sessions": resp})
}

func (s *Server) getSession(c *gin.Context) {
	session, err := s.ports.Chat.History(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session, true))
}

func (s *Server) renameSession(c *gin.Context) {
	var req titleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
		return
	}

	session, err := s.ports.Chat.RenameSession(c.Request.Context(), userID(c), c.Param("id"), req.Title)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, toSessionResponse(session, false))
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.ports.Chat.DeleteSession(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// sendMessage answers a message within the session.
func (s *Server) sendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		renderError(c, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
		return
	}

	answer, err := s.ports.Chat.Answer(c.Request.Context(), c.Param("id"), userID(c), req.Message)
	if err != nil {
		renderError(c, err)
		return
	}

	resp := answerResponse{
		SessionID: answer.SessionID,
		Answer:    answer.Text,
		Sources:   make([]sourceResponse, len(answer.Citations)),
	}
	for i, cit := range answer.Citations {
		resp.Sources[i] = sourceResponse{
			DocumentID:     cit.DocumentID,
			Filename:       cit.Filename,
			RelevanceScore: cit.RelevanceScore,
		}
	}
	c.JSON(http.StatusOK, resp)
}
