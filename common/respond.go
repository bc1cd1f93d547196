package common

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestID returns the id set by the request id middleware, if any.
func RequestID(c *gin.Context) string {
	return c.GetString("requestID")
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError answers the request with err and aborts the chain. Unexpected
// errors are logged and hidden from the client.
func WriteError(c *gin.Context, err error) {
	requestID := RequestID(c)
	status := StatusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.Error(err),
			zap.String("path", c.FullPath()),
			zap.String("requestID", requestID))
		msg = "Internal server error"
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     msg,
		"requestID": requestID,
	})
}

// ParamID reads a numeric path parameter. Malformed ids are reported as
// not found.
func ParamID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 0)
	if err != nil || id == 0 {
		return 0, ErrNotFound
	}
	return uint(id), nil
}

// Bind decodes the request body, JSON or form, into obj. Decoding errors
// become ValidationErrors.
func Bind(c *gin.Context, obj any) error {
	if err := c.ShouldBind(obj); err != nil {
		return Invalid("", "malformed request: "+err.Error())
	}
	return nil
}
