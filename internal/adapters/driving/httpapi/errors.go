package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// renderError writes the public category of err and aborts the request.
// The underlying error is only logged.
func renderError(c *gin.Context, err error) {
	cat := domain.Categorise(err)

	entry := logger.WithFields(logger.Fields{
		requestIDKey: c.GetString(requestIDKey),
		"code":       cat.Code,
	})
	if cat.Status >= 500 {
		entry.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	} else {
		entry.Debugf("%s %s: %v", c.Request.Method, c.FullPath(), err)
	}

	c.AbortWithStatusJSON(cat.Status, errorBody{Error: errorDetail{Code: cat.Code, Message: cat.Message}})
}
