package middleware

import (
	"context"

	"github.com/cloudbill/cloudbill/internal/types"
	"github.com/gin-gonic/gin"
)

// RequestIDMiddleware stamps every request with a request ID and an actor
// ID so downstream writes carry attribution.
func RequestIDMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUID()
	}
	ctx = context.WithValue(ctx, types.CtxRequestID, requestID)

	if actorID := c.GetHeader(types.HeaderActorID); actorID != "" {
		ctx = context.WithValue(ctx, types.CtxActorID, actorID)
	}

	c.Request = c.Request.WithContext(ctx)
	c.Header(types.HeaderRequestID, requestID)

	c.Next()
}
