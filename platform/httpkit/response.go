package httpkit

import (
	"net/http"

	"sales_pipeline_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

const msgInternal = "internal server error"

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes payload with status.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// OK writes payload with 200.
func OK(c *gin.Context, payload any) {
	JSON(c, http.StatusOK, payload)
}

// Error writes an ErrorResponse with status.
func Error(c *gin.Context, status int, message string, details any) {
	JSON(c, status, ErrorResponse{Error: message, Details: details})
}

// HandleError writes the response for err and reports whether it did.
// Typed *apperr.Error values choose the status and message; anything else is
// recorded on the gin context and answered with an opaque 500.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	if appErr, ok := apperr.As(err); ok {
		Error(c, appErr.HTTPStatus(), appErr.Message, appErr.Details)
		return true
	}

	_ = c.Error(err)
	Error(c, http.StatusInternalServerError, msgInternal, nil)
	return true
}
