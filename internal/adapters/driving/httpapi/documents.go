package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// multipartOverhead leaves room for boundaries and headers around the file.
const multipartOverhead = 1 << 20

// uploadDocument ingests the multipart "file" field.
func (s *Server) uploadDocument(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, domain.MaxUploadSize+multipartOverhead)

	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			renderError(c, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrInvalidInput, domain.MaxUploadSize))
			return
		}
		renderError(c, fmt.Errorf("%w: multipart field \"file\" is required: %w", domain.ErrInvalidInput, err))
		return
	}
	if header.Size > domain.MaxUploadSize {
		renderError(c, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrInvalidInput, domain.MaxUploadSize))
		return
	}

	f, err := header.Open()
	if err != nil {
		renderError(c, fmt.Errorf("open upload: %w", err))
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		renderError(c, fmt.Errorf("read upload: %w", err))
		return
	}

	doc, err := s.ports.Document.Ingest(c.Request.Context(), driving.IngestRequest{
		OwnerID:  userID(c),
		Filename: header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Data:     data,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toDocumentResponse(doc))
}

// listDocuments pages the user's documents, filtered by ?q=.
func (s *Server) listDocuments(c *gin.Context) {
	page, err := intQuery(c, "page", 1)
	if err != nil {
		renderError(c, err)
		return
	}
	limit, err := intQuery(c, "limit", 0)
	if err != nil {
		renderError(c, err)
		return
	}

	result, err := s.ports.Document.List(c.Request.Context(), userID(c), driving.ListOptions{
		Query: c.Query("q"),
		Page:  page,
		Limit: limit,
	})
	if err != nil {
		renderError(c, err)
		return
	}

	resp := documentPageResponse{
		Documents: make([]documentResponse, len(result.Documents)),
		Total:     result.Total,
		Page:      result.Page,
		Pages:     result.Pages,
	}
	for i := range result.Documents {
		resp.Documents[i] = toDocumentResponse(&result.Documents[i])
	}
	c.JSON(http.StatusOK, resp)
}

// getDocument returns a document with its text and chunk count.
func (s *Server) getDocument(c *gin.Context) {
	details, err := s.ports.Document.GetDetails(c.Request.Context(), userID(c), c.Param("id"))
	if err != nil {
		renderError(c, err)
		return
	}

	resp := toDocumentResponse(&details.Document)
	resp.Content = details.Document.Content
	count := details.ChunkCount
	resp.ChunkCount = &count
	c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteDocument(c *gin.Context) {
	if err := s.ports.Document.Delete(c.Request.Context(), userID(c), c.Param("id")); err != nil {
		renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// intQuery parses an optional integer query parameter.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, name)
	}
	return v, nil
}
