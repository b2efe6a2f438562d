package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader carries the request identifier between services.
	RequestIDHeader = "X-Request-ID"

	// RequestIDKey is the gin.Context key the identifier is stored under.
	RequestIDKey = "request_id"
)

// RequestIDMiddleware gives every request a correlation identifier.
//
// An inbound X-Request-ID from an upstream proxy is reused only when it
// parses as a UUID; anything else is replaced with a fresh UUID v4 so that
// callers cannot inject arbitrary strings into the structured logs and audit
// entries keyed on it. The chosen identifier is stored in the context under
// RequestIDKey and echoed back in the response header.
//
// Register this before the logging middleware so every log line carries the
// identifier.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.New().String()
		}

		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)

		c.Next()
	}
}

// RequestID returns the correlation identifier for the current request, or
// an empty string when RequestIDMiddleware is not installed.
func RequestID(c *gin.Context) string {
	id, _ := c.Get(RequestIDKey)
	s, _ := id.(string)
	return s
}
