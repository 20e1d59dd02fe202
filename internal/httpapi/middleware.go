// Package httpapi exposes RepoMesh's HTTP surface (spec.md section 6) over
// the same service layer the MCP dispatcher uses. Grounded on the teacher's
// internal/orchestrator/api package: gin middleware for request logging,
// panic recovery, and error mapping, plus one handler/router pair per
// resource group.
package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RSuyash/repomesh/internal/apperr"
	"github.com/RSuyash/repomesh/internal/logging"
)

// RequestLogger logs every request's method/path/status/duration.
func RequestLogger(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		log.Info("request completed",
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", requestID),
		)
	}
}

// Recovery recovers from panics in a handler and reports them as an
// internal error rather than crashing the process.
func Recovery(log *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered", zap.Any("panic", r), zap.String("path", c.Request.URL.Path))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error": gin.H{"code": string(apperr.CodeInternalError), "message": "an internal server error occurred"},
				})
			}
		}()
		c.Next()
	}
}

// WriteError maps an AppError (or any other error) to spec.md section 7's
// error envelope and HTTP status.
func WriteError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	body := gin.H{"code": string(apperr.CodeInternalError), "message": err.Error()}
	if ae, ok := apperr.As(err); ok {
		body = gin.H{"code": string(ae.Code), "message": ae.Message}
		if ae.Details != nil {
			body["details"] = ae.Details
		}
	}
	c.JSON(status, gin.H{"error": body})
}

// Auth enforces spec.md section 6's static bearer token: header
// x-repomesh-token, Authorization: Bearer <token>, or (for WS/SSE clients
// that cannot set headers) a token= query parameter. An empty configured
// token disables the check — local development without auth.
func Auth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		candidate := c.GetHeader("x-repomesh-token")
		if candidate == "" {
			candidate = c.Query("token")
		}
		if candidate == "" {
			if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				candidate = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if candidate != token {
			WriteError(c, apperr.Unauthorized("invalid or missing token"))
			c.Abort()
			return
		}
		c.Next()
	}
}
