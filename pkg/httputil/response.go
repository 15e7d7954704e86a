package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/zapdoc-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewMessageResponse(message string, data interface{}) *Response {
	return &Response{
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondWithSuccess sends a success response with the given status
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, NewSuccessResponse(data))
}

// RespondWithMessage sends a success response carrying a human readable message
func RespondWithMessage(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, NewMessageResponse(message, data))
}

// RespondWithJSON sends body as is, without the success envelope. Used where
// clients read fields at the top level.
func RespondWithJSON(c *gin.Context, status int, body interface{}) {
	c.JSON(status, body)
}

// RespondWithError sends an error response, hiding internals of unexpected errors
func RespondWithError(c *gin.Context, err error) {
	var appErr *errors.AppError
	if !errors.As(err, &appErr) || appErr.Code == errors.ErrInternal {
		log.Error().
			Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Str("request_id", c.GetString("request_id")).
			Msg("Request failed")
		c.JSON(http.StatusInternalServerError, NewErrorResponse("Server error"))
		return
	}

	c.JSON(appErr.StatusCode(), NewErrorResponse(appErr.Message))
}
