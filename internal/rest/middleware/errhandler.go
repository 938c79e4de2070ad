package middleware

import (
	ierr "github.com/cloudbill/cloudbill/internal/errors"
	"github.com/gin-gonic/gin"
)

// ErrorHandler renders errors attached to the gin context as the standard
// error response. Handlers attach errors with c.Error and return; only the
// last error is rendered.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last().Err
			c.JSON(ierr.HTTPStatusFromErr(err), ierr.NewErrorResponse(err))
		}
	}
}
