package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// search runs retrieval for ?q= and returns up to ?k= chunks.
func (s *Server) search(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		renderError(c, fmt.Errorf("%w: q is required", domain.ErrInvalidInput))
		return
	}
	k, err := intQuery(c, "k", 0)
	if err != nil {
		renderError(c, err)
		return
	}

	results, err := s.ports.Search.Search(c.Request.Context(), query, userID(c), domain.SearchOptions{Limit: k})
	if err != nil {
		renderError(c, err)
		return
	}

	resp := make([]searchResultResponse, len(results))
	for i := range results {
		resp[i] = searchResultResponse{
			ChunkID:    results[i].ChunkID,
			DocumentID: results[i].DocumentID,
			Filename:   results[i].Filename,
			Position:   results[i].Position,
			Content:    results[i].Content,
			Score:      results[i].Score,
		}
	}
	c.JSON(http.StatusOK, gin.H{"results": resp})
}
